package rpc

import (
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"lessonchain/core"
	"lessonchain/crypto"
	"lessonchain/services/indexer"
	"lessonchain/storage"
)

type testEnv struct {
	node   *core.Node
	server *Server
	http   *httptest.Server
	client *Client
}

func newTestEnv(t testing.TB, cfg ServerConfig) *testEnv {
	t.Helper()
	programID, err := crypto.ProgramIDFromLabel("rpc-test-program")
	if err != nil {
		t.Fatalf("program id: %v", err)
	}
	metadataID, err := crypto.ProgramIDFromLabel("rpc-test-metadata")
	if err != nil {
		t.Fatalf("metadata id: %v", err)
	}
	node, err := core.NewNode(storage.NewMemDB(), core.Options{ProgramID: programID, MetadataProgramID: metadataID})
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	srv := NewServer(node, cfg)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		node.Close()
	})
	return &testEnv{node: node, server: srv, http: ts, client: NewClient(ts.URL, ts.Client())}
}

func newTestIndexer(t testing.TB) *indexer.Indexer {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	ix, err := indexer.New(db, nil)
	if err != nil {
		t.Fatalf("new indexer: %v", err)
	}
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func newKey(t testing.TB) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func mintAddress(seed byte, lesson int) string {
	var raw [20]byte
	raw[0] = seed
	raw[19] = byte(lesson + 1)
	return crypto.FromRaw(crypto.TokenPrefix, raw).String()
}

func intPtr(v int) *int { return &v }

package token

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"lessonchain/core/state"
	"lessonchain/crypto"
	"lessonchain/native/progress"
	"lessonchain/storage"
)

type fixture struct {
	engine   *progress.Engine
	registry *Registry
	db       *storage.MemDB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	programID, err := crypto.ProgramIDFromLabel("progress-token-test")
	require.NoError(t, err)
	metadataID, err := crypto.ProgramIDFromLabel("metadata-token-test")
	require.NoError(t, err)
	authority, err := progress.DeriveMintAuthority(programID)
	require.NoError(t, err)

	db := storage.NewMemDB()
	manager := state.NewManager(db)
	registry := NewRegistry(metadataID, authority)
	registry.SetState(manager)
	registry.SetNowFunc(func() int64 { return 1_700_000_000 })

	engine := progress.NewEngine(programID, metadataID)
	engine.SetState(manager)
	engine.SetIssuer(registry)
	return &fixture{engine: engine, registry: registry, db: db}
}

func newParticipant(t *testing.T) [20]byte {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return key.PubKey().Address().Raw()
}

func newMint(t *testing.T) [20]byte {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return key.PubKey().Address().Raw()
}

func TestEndToEndCurriculumRewards(t *testing.T) {
	fx := newFixture(t)
	p := newParticipant(t)

	record, err := fx.engine.Initialize(p, [20]byte{})
	require.NoError(t, err)
	for lesson := 0; lesson < progress.LessonCount; lesson++ {
		require.NoError(t, fx.engine.CompleteLesson(p, record, lesson))
	}
	var minted [][20]byte
	for lesson := 0; lesson < progress.LessonCount; lesson++ {
		result, err := fx.engine.MintReward(progress.MintParams{
			Caller:   p,
			Record:   record,
			LessonID: lesson,
			URI:      fmt.Sprintf("https://example.org/rewards/%d.json", lesson),
			Name:     fmt.Sprintf("Lesson %d Badge", lesson),
			Symbol:   "LSN",
			Mint:     newMint(t),
		})
		require.NoError(t, err)
		minted = append(minted, result.Mint)
	}

	rec, err := fx.engine.Progress(record)
	require.NoError(t, err)
	require.Equal(t, progress.LessonCount, rec.CompletedCount())
	require.Equal(t, progress.LessonCount, rec.ClaimedCount())

	owned, err := fx.registry.TokensOf(p)
	require.NoError(t, err)
	require.Equal(t, minted, owned)
	for i, mint := range owned {
		tok, err := fx.registry.Token(mint)
		require.NoError(t, err)
		require.Equal(t, p, tok.Owner)
		require.Equal(t, uint64(1), tok.Supply)
		require.Equal(t, uint8(0), tok.Decimals)
		require.Equal(t, uint64(1_700_000_000), tok.MintedAt)

		meta, err := fx.registry.Metadata(mint)
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("Lesson %d Badge", i), meta.Name)
		require.Equal(t, "LSN", meta.Symbol)
		require.Equal(t, ContentHash(meta.Name, meta.Symbol, meta.URI), meta.ContentHash)
		require.Equal(t, uint16(0), meta.SellerFeeBasisPoints)
		require.True(t, meta.IsMutable)
	}
}

func TestMintIdentityReuseRejected(t *testing.T) {
	fx := newFixture(t)
	p := newParticipant(t)
	q := newParticipant(t)
	recordP, err := fx.engine.Initialize(p, [20]byte{})
	require.NoError(t, err)
	recordQ, err := fx.engine.Initialize(q, [20]byte{})
	require.NoError(t, err)
	require.NoError(t, fx.engine.CompleteLesson(p, recordP, 0))
	require.NoError(t, fx.engine.CompleteLesson(q, recordQ, 0))

	mint := newMint(t)
	_, err = fx.engine.MintReward(progress.MintParams{Caller: p, Record: recordP, LessonID: 0, Name: "A", Symbol: "A", Mint: mint})
	require.NoError(t, err)

	_, err = fx.engine.MintReward(progress.MintParams{Caller: q, Record: recordQ, LessonID: 0, Name: "B", Symbol: "B", Mint: mint})
	require.ErrorIs(t, err, progress.ErrIssuanceFailed)
	require.ErrorIs(t, err, ErrTokenExists)

	rec, err := fx.engine.Progress(recordQ)
	require.NoError(t, err)
	require.False(t, rec.NftsClaimed[0])
	owned, err := fx.registry.TokensOf(q)
	require.NoError(t, err)
	require.Empty(t, owned)

	tok, err := fx.registry.Token(mint)
	require.NoError(t, err)
	require.Equal(t, p, tok.Owner)
}

func TestMetadataLimitsAbortMint(t *testing.T) {
	fx := newFixture(t)
	p := newParticipant(t)
	record, err := fx.engine.Initialize(p, [20]byte{})
	require.NoError(t, err)
	require.NoError(t, fx.engine.CompleteLesson(p, record, 0))
	before := fx.db.Len()

	cases := []struct {
		name, symbol, uri string
		want              error
	}{
		{strings.Repeat("n", MaxNameLength+1), "S", "u", ErrNameTooLong},
		{"n", strings.Repeat("s", MaxSymbolLength+1), "u", ErrSymbolTooLong},
		{"n", "s", strings.Repeat("u", MaxURILength+1), ErrURITooLong},
		{"bad\xff", "s", "u", ErrInvalidEncoding},
	}
	for _, tc := range cases {
		_, err := fx.engine.MintReward(progress.MintParams{
			Caller: p, Record: record, LessonID: 0,
			Name: tc.name, Symbol: tc.symbol, URI: tc.uri, Mint: newMint(t),
		})
		require.ErrorIs(t, err, tc.want)
	}
	require.Equal(t, before, fx.db.Len())
}

func TestIssueValidatesRequest(t *testing.T) {
	fx := newFixture(t)
	mgr := state.NewManager(storage.NewMemDB())
	mint := newMint(t)
	recipient := newParticipant(t)
	metadata, err := progress.DeriveMetadataAddress(fx.engine.MetadataProgramID(), mint)
	require.NoError(t, err)

	valid := progress.IssueRequest{Mint: mint, Recipient: recipient, Metadata: metadata, Name: "n", Symbol: "s", URI: "u"}
	cases := []struct {
		mutate func(*progress.IssueRequest)
		want   error
	}{
		{func(r *progress.IssueRequest) { r.Mint = [20]byte{} }, ErrMintRequired},
		{func(r *progress.IssueRequest) { r.Recipient = [20]byte{} }, ErrRecipientRequired},
		{func(r *progress.IssueRequest) { r.Metadata = recipient }, ErrMetadataAddressMismatch},
	}
	for _, tc := range cases {
		req := valid
		tc.mutate(&req)
		err := mgr.Update(fx.registry.LockKeys(req), func(tx *state.Txn) error {
			return fx.registry.Issue(tx, req)
		})
		require.ErrorIs(t, err, tc.want)
	}

	err = mgr.Update(fx.registry.LockKeys(valid), func(tx *state.Txn) error {
		return fx.registry.Issue(tx, valid)
	})
	require.NoError(t, err)
}

func TestQueriesOnUnknownMint(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.registry.Token(newMint(t))
	require.ErrorIs(t, err, ErrNotFound)
	_, err = fx.registry.Metadata(newMint(t))
	require.ErrorIs(t, err, ErrNotFound)
	owned, err := fx.registry.TokensOf(newParticipant(t))
	require.NoError(t, err)
	require.Empty(t, owned)

	unconfigured := NewRegistry([20]byte{1}, [20]byte{2})
	_, err = unconfigured.Token(newMint(t))
	require.Error(t, err)
}

package indexer

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"lessonchain/crypto"
	"lessonchain/native/progress"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	return db
}

type plainEvent struct{}

func (plainEvent) EventType() string { return "plain" }

func TestIndexerRecordsHistoryInOrder(t *testing.T) {
	ix, err := New(setupTestDB(t), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })

	var learner, other, record, mint, metadata [20]byte
	learner[0], other[0], record[0], mint[0], metadata[0] = 1, 2, 3, 4, 5

	ix.Emit(progress.WrapEvent(progress.UserInitializedEvent(learner, record, learner)))
	ix.Emit(progress.WrapEvent(progress.LessonCompletedEvent(learner, 0)))
	ix.Emit(progress.WrapEvent(progress.LessonCompletedEvent(other, 1)))
	ix.Emit(progress.WrapEvent(progress.NftMintedEvent(learner, 0, mint, metadata, learner)))
	ix.Emit(plainEvent{})
	ix.Emit(nil)

	history, err := ix.History(context.Background(), learner, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, progress.EventTypeUserInitialized, history[0].Type)
	require.Nil(t, history[0].LessonID)
	require.Equal(t, crypto.FromRaw(crypto.ProgramPrefix, record).String(), history[0].Record)
	require.Equal(t, progress.EventTypeLessonCompleted, history[1].Type)
	require.NotNil(t, history[1].LessonID)
	require.Equal(t, 0, *history[1].LessonID)
	require.Equal(t, progress.EventTypeNftMinted, history[2].Type)
	require.Equal(t, crypto.FromRaw(crypto.TokenPrefix, mint).String(), history[2].Mint)
	require.Equal(t, history[2].Mint, history[2].Attributes["mint"])

	limited, err := ix.History(context.Background(), learner, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	otherHistory, err := ix.History(context.Background(), other, 10)
	require.NoError(t, err)
	require.Len(t, otherHistory, 1)
}

func TestIndexerRejectsBadLessonID(t *testing.T) {
	ix, err := New(setupTestDB(t), nil)
	require.NoError(t, err)
	err = ix.Record(context.Background(), progress.EventTypeLessonCompleted, map[string]string{"lessonId": "x"})
	require.Error(t, err)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "dsn", nil)
	require.Error(t, err)
}

func TestOpenSQLiteFile(t *testing.T) {
	dsn := t.TempDir() + "/history.db"
	ix, err := Open(DriverSQLite, dsn, nil)
	require.NoError(t, err)
	require.NoError(t, ix.Close())
}

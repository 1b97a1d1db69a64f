package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openBackends(t *testing.T) map[string]Database {
	t.Helper()
	dir := t.TempDir()
	level, err := NewLevelDB(filepath.Join(dir, "level"))
	require.NoError(t, err)
	bolt, err := NewBoltDB(filepath.Join(dir, "state.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		level.Close()
		bolt.Close()
	})
	return map[string]Database{
		"memory":  NewMemDB(),
		"leveldb": level,
		"bolt":    bolt,
	}
}

func TestDatabaseBasicOperations(t *testing.T) {
	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := db.Get([]byte("missing"))
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, db.Put([]byte("k"), []byte("v")))
			got, err := db.Get([]byte("k"))
			require.NoError(t, err)
			require.Equal(t, []byte("v"), got)

			ok, err := db.Has([]byte("k"))
			require.NoError(t, err)
			require.True(t, ok)

			require.NoError(t, db.Delete([]byte("k")))
			ok, err = db.Has([]byte("k"))
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestDatabaseBatchWrite(t *testing.T) {
	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Put([]byte("stale"), []byte("x")))

			batch := NewBatch()
			batch.Put([]byte("a"), []byte("1"))
			batch.Put([]byte("b"), []byte("2"))
			batch.Delete([]byte("stale"))
			require.Equal(t, 3, batch.Len())
			require.NoError(t, db.Write(batch))

			a, err := db.Get([]byte("a"))
			require.NoError(t, err)
			require.Equal(t, []byte("1"), a)
			b, err := db.Get([]byte("b"))
			require.NoError(t, err)
			require.Equal(t, []byte("2"), b)
			_, err = db.Get([]byte("stale"))
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestBatchCopiesInputs(t *testing.T) {
	key := []byte("key")
	value := []byte("value")
	batch := NewBatch()
	batch.Put(key, value)
	value[0] = 'X'

	db := NewMemDB()
	require.NoError(t, db.Write(batch))
	got, err := db.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), got)
}

func TestLevelDBPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	db1, err := NewLevelDB(dir)
	require.NoError(t, err)
	require.NoError(t, db1.Put([]byte("key"), []byte("value")))
	db1.Close()

	db2, err := NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()
	got, err := db2.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), got)
}

func TestOpenBackends(t *testing.T) {
	dir := t.TempDir()
	mem, err := Open(BackendMemory, dir)
	require.NoError(t, err)
	require.IsType(t, &MemDB{}, mem)

	bolt, err := Open(BackendBolt, filepath.Join(dir, "bolt"))
	require.NoError(t, err)
	bolt.Close()

	_, err = Open("rocksdb", dir)
	require.Error(t, err)
}

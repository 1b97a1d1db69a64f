package state

import (
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"lessonchain/storage"
)

var (
	// ErrKeyNotLocked is returned when a transaction writes a key it did not
	// declare up front.
	ErrKeyNotLocked = errors.New("state: write to undeclared key")
	// ErrTxnClosed is returned when a transaction is used after Update returns.
	ErrTxnClosed = errors.New("state: transaction closed")
)

// Reader exposes decoded reads of RLP-encoded values.
type Reader interface {
	KVGet(key []byte, out interface{}) (bool, error)
}

// Writer is the read-write view handed to transaction closures.
type Writer interface {
	Reader
	KVPut(key []byte, value interface{}) error
}

// Manager provides transactional access to RLP-encoded values held in a
// storage.Database. Logical keys are hashed with keccak256 before they reach
// the backend.
type Manager struct {
	db    storage.Database
	locks *keyLocks
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db, locks: newKeyLocks()}
}

// Database exposes the backing store.
func (m *Manager) Database() storage.Database {
	return m.db
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// KVGet reads the committed value stored under key and decodes it into out.
// The boolean reports whether the key existed.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.db.Get(kvKey(key))
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return decodeInto(data, out)
}

// KVPut stores a single value as its own transaction.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	return m.Update([][]byte{key}, func(tx *Txn) error {
		return tx.KVPut(key, value)
	})
}

// Update runs fn while holding exclusive locks on lockKeys. Writes made by fn
// are staged and committed to the backend as one atomic batch only when fn
// returns nil; any error discards them. Locks are taken in sorted order so
// concurrent updates over overlapping key sets cannot deadlock. Hooks
// registered with Txn.AfterCommit run once the batch is written, before the
// locks are released.
func (m *Manager) Update(lockKeys [][]byte, fn func(tx *Txn) error) error {
	if fn == nil {
		return fmt.Errorf("state: update function required")
	}
	for _, key := range lockKeys {
		if len(key) == 0 {
			return fmt.Errorf("kv: key must not be empty")
		}
	}
	release := m.locks.acquire(lockKeys)
	defer release()

	tx := newTxn(m, lockKeys)
	defer tx.close()
	if err := fn(tx); err != nil {
		return err
	}
	if tx.batch.Len() > 0 {
		if err := m.db.Write(tx.batch); err != nil {
			return err
		}
	}
	for _, hook := range tx.hooks {
		hook()
	}
	return nil
}

// Txn is the staged view of state inside Manager.Update. Reads observe the
// committed state overlaid with the transaction's own writes.
type Txn struct {
	manager *Manager
	held    map[string]struct{}
	staged  map[string][]byte
	batch   *storage.Batch
	hooks   []func()
	closed  bool
}

func newTxn(m *Manager, lockKeys [][]byte) *Txn {
	held := make(map[string]struct{}, len(lockKeys))
	for _, key := range lockKeys {
		held[string(key)] = struct{}{}
	}
	return &Txn{
		manager: m,
		held:    held,
		staged:  make(map[string][]byte),
		batch:   storage.NewBatch(),
	}
}

func (tx *Txn) close() { tx.closed = true }

// AfterCommit registers fn to run after the transaction commits. Hooks run in
// registration order while the transaction's locks are still held and are
// dropped if the transaction fails.
func (tx *Txn) AfterCommit(fn func()) {
	if tx.closed || fn == nil {
		return
	}
	tx.hooks = append(tx.hooks, fn)
}

// KVGet decodes the value for key, preferring writes staged in this
// transaction.
func (tx *Txn) KVGet(key []byte, out interface{}) (bool, error) {
	if tx.closed {
		return false, ErrTxnClosed
	}
	if staged, ok := tx.staged[string(key)]; ok {
		return decodeInto(staged, out)
	}
	return tx.manager.KVGet(key, out)
}

// KVPut stages value under key. The key must be one of the lock keys passed to
// Update.
func (tx *Txn) KVPut(key []byte, value interface{}) error {
	if tx.closed {
		return ErrTxnClosed
	}
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	if _, ok := tx.held[string(key)]; !ok {
		return fmt.Errorf("%w: %q", ErrKeyNotLocked, key)
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	tx.staged[string(key)] = encoded
	tx.batch.Put(kvKey(key), encoded)
	return nil
}

func decodeInto(data []byte, out interface{}) (bool, error) {
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

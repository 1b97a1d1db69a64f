package state

import (
	"sort"
	"sync"
)

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// keyLocks hands out one mutex per logical key, created on demand and dropped
// once no transaction references it.
type keyLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

func newKeyLocks() *keyLocks {
	return &keyLocks{entries: make(map[string]*lockEntry)}
}

func (l *keyLocks) acquire(keys [][]byte) func() {
	names := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		name := string(key)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)

	held := make([]*lockEntry, 0, len(names))
	for _, name := range names {
		l.mu.Lock()
		entry, ok := l.entries[name]
		if !ok {
			entry = &lockEntry{}
			l.entries[name] = entry
		}
		entry.refs++
		l.mu.Unlock()

		entry.mu.Lock()
		held = append(held, entry)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
		}
		l.mu.Lock()
		for i, name := range names {
			held[i].refs--
			if held[i].refs == 0 {
				delete(l.entries, name)
			}
		}
		l.mu.Unlock()
	}
}

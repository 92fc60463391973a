package core

import (
	"path/filepath"
	"sync"
)

// Locker serializes the operations on a vault within one process.
// Every vault root has its own mutex.
// The state file has no cross-process lock: only one process may write a vault.
type Locker struct {
	mux   sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocker returns an empty Locker.
func NewLocker() *Locker {
	return &Locker{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock locks the vault root and returns the unlock function.
//   unlock := locker.Lock(root)
//   defer unlock()
func (lk *Locker) Lock(root string) func() {
	key := root
	if abs, err := filepath.Abs(root); err == nil {
		key = abs
	}

	lk.mux.Lock()
	m, ok := lk.locks[key]
	if !ok {
		m = new(sync.Mutex)
		lk.locks[key] = m
	}
	lk.mux.Unlock()

	m.Lock()
	return m.Unlock
}

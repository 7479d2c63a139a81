package session

import (
	"context"
	"sync"

	"github.com/MarkoPoloResearchLab/walletctl/pkg/ledger"
)

// MemoryStorage keeps the session in process memory.
type MemoryStorage struct {
	mu      sync.Mutex
	session ledger.Session
	stored  bool
	clears  int
}

// NewMemoryStorage returns empty storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Load returns the stored session or ErrNoStoredSession.
func (storage *MemoryStorage) Load(context.Context) (ledger.Session, error) {
	storage.mu.Lock()
	defer storage.mu.Unlock()
	if !storage.stored {
		return ledger.Session{}, ErrNoStoredSession
	}
	return storage.session, nil
}

// Save replaces the stored session.
func (storage *MemoryStorage) Save(_ context.Context, session ledger.Session) error {
	storage.mu.Lock()
	defer storage.mu.Unlock()
	storage.session = session
	storage.stored = true
	return nil
}

// Clear removes the stored session.
func (storage *MemoryStorage) Clear(context.Context) error {
	storage.mu.Lock()
	defer storage.mu.Unlock()
	storage.session = ledger.Session{}
	storage.stored = false
	storage.clears++
	return nil
}

// Clears reports how many times Clear ran.
func (storage *MemoryStorage) Clears() int {
	storage.mu.Lock()
	defer storage.mu.Unlock()
	return storage.clears
}

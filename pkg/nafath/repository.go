package nafath

import (
	"errors"
	"sync"
	"time"
)

// TransactionStatus tracks where a verification sits in its lifecycle.
type TransactionStatus string

const (
	StatusInitiated TransactionStatus = "initiated"
	StatusPending   TransactionStatus = "pending"
	StatusVerified  TransactionStatus = "verified"
	StatusFailed    TransactionStatus = "failed"
)

// Transaction is one verification attempt, keyed by the national ID.
type Transaction struct {
	NafathID      string
	TransactionID string
	Status        TransactionStatus
	Random        string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

var ErrTransactionNotFound = errors.New("nafath transaction not found")

// TransactionRepository stores in-flight verifications. Verifications are
// short-lived, so an in-memory store is enough; a restart just means the
// user retries from the app.
type TransactionRepository struct {
	mu           sync.RWMutex
	transactions map[string]Transaction
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{
		transactions: make(map[string]Transaction),
	}
}

func (r *TransactionRepository) Put(tx Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactions[tx.NafathID] = tx
}

func (r *TransactionRepository) Get(nafathID string) (Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tx, ok := r.transactions[nafathID]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	return tx, nil
}

// SetStatus transitions an existing transaction.
func (r *TransactionRepository) SetStatus(nafathID string, status TransactionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.transactions[nafathID]
	if !ok {
		return ErrTransactionNotFound
	}
	tx.Status = status
	r.transactions[nafathID] = tx
	return nil
}

// PurgeExpired drops transactions past their expiry. Returns how many were
// removed.
func (r *TransactionRepository) PurgeExpired(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, tx := range r.transactions {
		if now.After(tx.ExpiresAt) {
			delete(r.transactions, id)
			removed++
		}
	}
	return removed
}

// Package services orchestrates domain operations between the HTTP
// layer and storage.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
)

// Store is the persistence surface the service needs.
type Store interface {
	CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
}

// TransactionService validates, persists, and aggregates transactions.
// Per-user transaction lists are cached; a create invalidates the
// owner's entry so listings never serve stale data.
type TransactionService struct {
	store Store
	lists *cache.LRU[[]core.Transaction]
}

func NewTransactionService(store Store) *TransactionService {
	return &TransactionService{
		store: store,
		lists: cache.NewLRU[[]core.Transaction](200, 5*time.Minute),
	}
}

// Create validates tx and persists it owned by userID, returning the
// stored record with generated id and timestamp.
func (s *TransactionService) Create(ctx context.Context, userID string, tx core.Transaction) (core.Transaction, error) {
	tx.UserID = userID
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	stored, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.lists.Delete(userID)
	return stored, nil
}

// List returns userID's transactions, newest first.
func (s *TransactionService) List(ctx context.Context, userID string) ([]core.Transaction, error) {
	if items, found := s.lists.Get(userID); found {
		slog.DebugContext(ctx, "Transaction list cache hit", "user_id", userID, "count", len(items))
		// Return a copy to prevent external mutation
		result := make([]core.Transaction, len(items))
		copy(result, items)
		return result, nil
	}

	items, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	s.lists.Set(userID, items)
	return items, nil
}

// MonthSummary aggregates userID's transactions for the given month.
// A year of zero matches the month in any year.
func (s *TransactionService) MonthSummary(ctx context.Context, userID string, month time.Month, year int) (core.Summary, error) {
	txs, err := s.List(ctx, userID)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(txs, month, year), nil
}

// CleanExpired drops expired cache entries; the server calls this
// periodically.
func (s *TransactionService) CleanExpired() int {
	return s.lists.CleanExpired()
}

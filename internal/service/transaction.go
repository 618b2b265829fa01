package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/moneytrail/moneytrail/internal/metrics"
	"github.com/moneytrail/moneytrail/internal/model"
	"github.com/moneytrail/moneytrail/internal/repository"
)

// IdentityInvalidator drops cached identities after ownership changes.
type IdentityInvalidator interface {
	InvalidateIdentity(ctx context.Context, userID string)
}

// TransactionService handles income and expense records.
type TransactionService struct {
	store        TransactionStore
	identities   IdentityInvalidator
	storeTimeout time.Duration
	metrics      metrics.Recorder
}

// NewTransactionService creates a new TransactionService.
// identities may be nil when no identity cache is in use.
func NewTransactionService(store TransactionStore, identities IdentityInvalidator, storeTimeout time.Duration, recorder metrics.Recorder) *TransactionService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &TransactionService{
		store:        store,
		identities:   identities,
		storeTimeout: storeTimeout,
		metrics:      recorder,
	}
}

// TransactionInput defines input for recording a transaction.
// Amount is given positive for both kinds; expenses are stored negated.
type TransactionInput struct {
	Title       string
	Amount      decimal.Decimal
	Date        time.Time
	Category    string
	Description string
}

// Add records a transaction of kind for userID.
func (s *TransactionService) Add(ctx context.Context, userID string, kind model.TransactionKind, input TransactionInput) (*model.Transaction, error) {
	if !kind.IsValid() {
		return nil, ErrInvalidKind
	}
	if err := checkAmount(kind, input.Amount); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tx := &model.Transaction{
		ID:          ulid.Make().String(),
		UserID:      userID,
		Kind:        kind,
		Title:       strings.TrimSpace(input.Title),
		Amount:      model.SignedAmount(kind, input.Amount),
		Date:        input.Date.UTC(),
		Category:    strings.TrimSpace(input.Category),
		Description: strings.TrimSpace(input.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	storeCtx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.store.CreateTransaction(storeCtx, tx); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", kind, err)
	}

	s.invalidate(ctx, userID)
	s.metrics.IncTransactionCreated(string(kind))

	return tx, nil
}

// List returns the user's transactions of kind, newest first.
func (s *TransactionService) List(ctx context.Context, userID string, kind model.TransactionKind) ([]*model.Transaction, error) {
	if !kind.IsValid() {
		return nil, ErrInvalidKind
	}

	storeCtx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	txs, err := s.store.ListTransactions(storeCtx, userID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}
	return txs, nil
}

// Delete removes a transaction owned by userID.
// Returns ErrTransactionNotFound when the id is absent, owned by someone else, or of the other kind.
func (s *TransactionService) Delete(ctx context.Context, userID string, kind model.TransactionKind, id string) error {
	if !kind.IsValid() {
		return ErrInvalidKind
	}

	storeCtx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.store.DeleteTransaction(storeCtx, userID, kind, id); err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return ErrTransactionNotFound
		}
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}

	s.invalidate(ctx, userID)
	s.metrics.IncTransactionDeleted(string(kind))

	return nil
}

// Summary aggregates the user's transactions for charts.
func (s *TransactionService) Summary(ctx context.Context, userID string) (model.Summary, error) {
	storeCtx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	totals, err := s.store.SummarizeTransactions(storeCtx, userID)
	if err != nil {
		return model.Summary{}, fmt.Errorf("failed to summarize transactions: %w", err)
	}
	return model.NewSummary(totals), nil
}

func (s *TransactionService) invalidate(ctx context.Context, userID string) {
	if s.identities != nil {
		s.identities.InvalidateIdentity(ctx, userID)
	}
}

// checkAmount enforces income >= 0 and expense > 0.
func checkAmount(kind model.TransactionKind, amount decimal.Decimal) error {
	switch kind {
	case model.KindIncome:
		if amount.IsNegative() {
			return fmt.Errorf("%w: income must not be negative", ErrInvalidAmount)
		}
	case model.KindExpense:
		if !amount.IsPositive() {
			return fmt.Errorf("%w: expense must be positive", ErrInvalidAmount)
		}
	}
	return nil
}

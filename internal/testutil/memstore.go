package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/moneytrail/moneytrail/internal/model"
	"github.com/moneytrail/moneytrail/internal/repository"
)

// MemoryStore is an in-memory credential and transaction store that returns
// the same sentinel errors as the PostgreSQL repository.
type MemoryStore struct {
	mu      sync.Mutex
	users   map[string]*model.User
	byEmail map[string]string
	txs     []*model.Transaction
	err     error
	calls   int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*model.User),
		byEmail: make(map[string]string),
	}
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (m *MemoryStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many store methods have been called.
func (m *MemoryStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// User returns a copy of the stored user, or nil.
func (m *MemoryStore) User(email string) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil
	}
	u := *m.users[id]
	return &u
}

// Ping reports the injected failure, if any.
func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *MemoryStore) enter() error {
	m.mu.Lock()
	m.calls++
	return m.err
}

// CreateUser stores a user. Returns repository.ErrEmailExists on duplicate email.
func (m *MemoryStore) CreateUser(ctx context.Context, user *model.User) error {
	err := m.enter()
	defer m.mu.Unlock()
	if err != nil {
		return err
	}

	if _, ok := m.byEmail[user.Email]; ok {
		return repository.ErrEmailExists
	}
	u := *user
	m.users[u.ID] = &u
	m.byEmail[u.Email] = u.ID
	return nil
}

// GetUserByEmail returns repository.ErrUserNotFound when absent.
func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	err := m.enter()
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	id, ok := m.byEmail[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u := *m.users[id]
	return &u, nil
}

// GetIdentity returns the user with the ids of owned transactions.
func (m *MemoryStore) GetIdentity(ctx context.Context, userID string) (*model.Identity, error) {
	err := m.enter()
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	u, ok := m.users[userID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	identity := u.Identity()
	for _, tx := range m.txs {
		if tx.UserID != userID {
			continue
		}
		switch tx.Kind {
		case model.KindIncome:
			identity.Incomes = append(identity.Incomes, tx.ID)
		case model.KindExpense:
			identity.Expenses = append(identity.Expenses, tx.ID)
		}
	}
	return identity, nil
}

// UserExists reports whether a user with id is stored.
func (m *MemoryStore) UserExists(ctx context.Context, id string) (bool, error) {
	err := m.enter()
	defer m.mu.Unlock()
	if err != nil {
		return false, err
	}

	_, ok := m.users[id]
	return ok, nil
}

// DeleteUser removes a user and cascades to their transactions.
func (m *MemoryStore) DeleteUser(ctx context.Context, id string) error {
	err := m.enter()
	defer m.mu.Unlock()
	if err != nil {
		return err
	}

	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	delete(m.byEmail, u.Email)
	delete(m.users, id)

	kept := m.txs[:0]
	for _, tx := range m.txs {
		if tx.UserID != id {
			kept = append(kept, tx)
		}
	}
	m.txs = kept
	return nil
}

// CreateTransaction stores a transaction.
func (m *MemoryStore) CreateTransaction(ctx context.Context, tx *model.Transaction) error {
	err := m.enter()
	defer m.mu.Unlock()
	if err != nil {
		return err
	}

	t := *tx
	m.txs = append(m.txs, &t)
	return nil
}

// ListTransactions returns the user's transactions of kind, newest first.
func (m *MemoryStore) ListTransactions(ctx context.Context, userID string, kind model.TransactionKind) ([]*model.Transaction, error) {
	err := m.enter()
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	result := make([]*model.Transaction, 0)
	for _, tx := range m.txs {
		if tx.UserID == userID && tx.Kind == kind {
			t := *tx
			result = append(result, &t)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// DeleteTransaction removes a transaction matching id, owner and kind.
func (m *MemoryStore) DeleteTransaction(ctx context.Context, userID string, kind model.TransactionKind, id string) error {
	err := m.enter()
	defer m.mu.Unlock()
	if err != nil {
		return err
	}

	for i, tx := range m.txs {
		if tx.ID == id && tx.UserID == userID && tx.Kind == kind {
			m.txs = append(m.txs[:i], m.txs[i+1:]...)
			return nil
		}
	}
	return repository.ErrTransactionNotFound
}

// SummarizeTransactions groups the user's transactions by kind and category.
func (m *MemoryStore) SummarizeTransactions(ctx context.Context, userID string) ([]model.CategoryTotal, error) {
	err := m.enter()
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	type key struct {
		kind     model.TransactionKind
		category string
	}
	totals := make(map[key]*model.CategoryTotal)
	var order []key
	for _, tx := range m.txs {
		if tx.UserID != userID {
			continue
		}
		k := key{tx.Kind, tx.Category}
		ct, ok := totals[k]
		if !ok {
			ct = &model.CategoryTotal{Kind: tx.Kind, Category: tx.Category, Total: decimal.Zero}
			totals[k] = ct
			order = append(order, k)
		}
		ct.Total = ct.Total.Add(tx.Amount)
		ct.Count++
	}

	result := make([]model.CategoryTotal, 0, len(order))
	for _, k := range order {
		result = append(result, *totals[k])
	}
	return result, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/moneytrail/moneytrail/internal/model"
)

// ErrTransactionNotFound indicates no transaction matched both id and owner.
var ErrTransactionNotFound = errors.New("transaction not found")

// CreateTransaction inserts a new transaction.
func (r *Repository) CreateTransaction(ctx context.Context, tx *model.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, kind, title, amount, date, category, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		tx.ID,
		tx.UserID,
		string(tx.Kind),
		tx.Title,
		tx.Amount,
		tx.Date,
		tx.Category,
		tx.Description,
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// ListTransactions returns the user's transactions of one kind, newest first.
func (r *Repository) ListTransactions(ctx context.Context, userID string, kind model.TransactionKind) ([]*model.Transaction, error) {
	query := `
		SELECT id, user_id, kind, title, amount, date, category, description, created_at, updated_at
		FROM transactions
		WHERE user_id = $1 AND kind = $2
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, userID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	result := make([]*model.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return result, nil
}

// DeleteTransaction removes a transaction only if it belongs to userID and has the given kind.
func (r *Repository) DeleteTransaction(ctx context.Context, userID string, kind model.TransactionKind, id string) error {
	query := `
		DELETE FROM transactions
		WHERE id = $1 AND user_id = $2 AND kind = $3
	`

	tag, err := r.pool.Exec(ctx, query, id, userID, string(kind))
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}

	return nil
}

// SummarizeTransactions totals the user's transactions per kind and category.
func (r *Repository) SummarizeTransactions(ctx context.Context, userID string) ([]model.CategoryTotal, error) {
	query := `
		SELECT kind, category, SUM(amount), COUNT(*)
		FROM transactions
		WHERE user_id = $1
		GROUP BY kind, category
		ORDER BY kind, category
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize transactions: %w", err)
	}
	defer rows.Close()

	var totals []model.CategoryTotal
	for rows.Next() {
		var t model.CategoryTotal
		var kind string
		if err := rows.Scan(&kind, &t.Category, &t.Total, &t.Count); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		t.Kind = model.TransactionKind(kind)
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate summary rows: %w", err)
	}

	return totals, nil
}

// scanTransaction scans one row into a Transaction model.
func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var tx model.Transaction
	var kind string

	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&kind,
		&tx.Title,
		&tx.Amount,
		&tx.Date,
		&tx.Category,
		&tx.Description,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Kind = model.TransactionKind(kind)
	return &tx, nil
}

package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind distinguishes income from expense records.
type TransactionKind string

const (
	KindIncome  TransactionKind = "income"
	KindExpense TransactionKind = "expense"
)

// IsValid checks if the kind is known.
func (k TransactionKind) IsValid() bool {
	return k == KindIncome || k == KindExpense
}

// Transaction is a single income or expense entry owned by one user.
// Expense amounts are stored negative.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Kind        TransactionKind `json:"type"`
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// SignedAmount returns amount with the sign convention for kind applied.
func SignedAmount(kind TransactionKind, amount decimal.Decimal) decimal.Decimal {
	if kind == KindExpense {
		return amount.Abs().Neg()
	}
	return amount
}

// CategoryTotal aggregates transactions of one kind and category.
type CategoryTotal struct {
	Kind     TransactionKind `json:"type"`
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int64           `json:"count"`
}

// Summary is the chart data for a user.
type Summary struct {
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Balance      decimal.Decimal `json:"balance"`
	Categories   []CategoryTotal `json:"categories"`
}

// NewSummary folds per-category totals into a Summary.
// TotalExpense is reported as a positive number; Balance is income minus expense.
func NewSummary(totals []CategoryTotal) Summary {
	s := Summary{
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		Categories:   make([]CategoryTotal, 0, len(totals)),
	}

	for _, t := range totals {
		switch t.Kind {
		case KindIncome:
			s.TotalIncome = s.TotalIncome.Add(t.Total)
		case KindExpense:
			s.TotalExpense = s.TotalExpense.Add(t.Total.Abs())
		default:
			continue
		}
		s.Categories = append(s.Categories, t)
	}

	sort.SliceStable(s.Categories, func(i, j int) bool {
		if s.Categories[i].Kind != s.Categories[j].Kind {
			return s.Categories[i].Kind == KindIncome
		}
		return s.Categories[i].Category < s.Categories[j].Category
	})

	s.Balance = s.TotalIncome.Sub(s.TotalExpense)
	return s
}

package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moneytrail/moneytrail/internal/model"
)

// dateLayout renders transaction dates as calendar days.
const dateLayout = "2006-01-02"

// TransactionResponse represents an income or expense in API responses.
// Amounts are JSON numbers; expenses are negative.
type TransactionResponse struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	Title       string      `json:"title"`
	Amount      json.Number `json:"amount"`
	Date        string      `json:"date"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// CategoryTotalResponse is one bar of the category chart.
type CategoryTotalResponse struct {
	Type     string      `json:"type"`
	Category string      `json:"category"`
	Total    json.Number `json:"total"`
	Count    int64       `json:"count"`
}

// SummaryResponse is the body of GET /api/transaction/summary.
type SummaryResponse struct {
	TotalIncome  json.Number             `json:"total_income"`
	TotalExpense json.Number             `json:"total_expense"`
	Balance      json.Number             `json:"balance"`
	Categories   []CategoryTotalResponse `json:"categories"`
}

// DeleteResponse is the body of a successful delete.
type DeleteResponse struct {
	Message string `json:"message"`
}

// ToTransactionResponse converts a Transaction model to TransactionResponse DTO.
func ToTransactionResponse(tx *model.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          tx.ID,
		Type:        string(tx.Kind),
		Title:       tx.Title,
		Amount:      number(tx.Amount),
		Date:        tx.Date.UTC().Format(dateLayout),
		Category:    tx.Category,
		Description: tx.Description,
		CreatedAt:   tx.CreatedAt,
		UpdatedAt:   tx.UpdatedAt,
	}
}

// ToTransactionList converts transactions, keeping order. Never returns nil.
func ToTransactionList(txs []*model.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, ToTransactionResponse(tx))
	}
	return out
}

// ToSummaryResponse converts a Summary model to SummaryResponse DTO.
func ToSummaryResponse(s model.Summary) SummaryResponse {
	categories := make([]CategoryTotalResponse, 0, len(s.Categories))
	for _, c := range s.Categories {
		categories = append(categories, CategoryTotalResponse{
			Type:     string(c.Kind),
			Category: c.Category,
			Total:    number(c.Total),
			Count:    c.Count,
		})
	}
	return SummaryResponse{
		TotalIncome:  number(s.TotalIncome),
		TotalExpense: number(s.TotalExpense),
		Balance:      number(s.Balance),
		Categories:   categories,
	}
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

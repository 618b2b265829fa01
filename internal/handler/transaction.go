package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/moneytrail/moneytrail/internal/auth"
	"github.com/moneytrail/moneytrail/internal/handler/dto"
	"github.com/moneytrail/moneytrail/internal/middleware"
	"github.com/moneytrail/moneytrail/internal/model"
	"github.com/moneytrail/moneytrail/internal/service"
)

// msgServerError is the body message for transaction infrastructure failures.
const msgServerError = "Server Error"

// TransactionService is the ledger logic behind TransactionHandler.
type TransactionService interface {
	Add(ctx context.Context, userID string, kind model.TransactionKind, input service.TransactionInput) (*model.Transaction, error)
	List(ctx context.Context, userID string, kind model.TransactionKind) ([]*model.Transaction, error)
	Delete(ctx context.Context, userID string, kind model.TransactionKind, id string) error
	Summary(ctx context.Context, userID string) (model.Summary, error)
}

// TransactionHandler handles HTTP requests for incomes and expenses.
// Every route expects the session middleware to have run.
type TransactionHandler struct {
	svc    TransactionService
	logger *slog.Logger
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(svc TransactionService, logger *slog.Logger) *TransactionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransactionHandler{
		svc:    svc,
		logger: logger,
	}
}

// Add handles POST /api/transaction/add-incomes and add-expenses.
func (h *TransactionHandler) Add(kind model.TransactionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req middleware.TransactionRequest
		if err := middleware.DecodeAndValidate(r, &req); err != nil {
			writeValidationError(w, err)
			return
		}
		if err := req.CheckAmount(kind); err != nil {
			writeValidationError(w, err)
			return
		}

		userID := auth.UserIDFromContext(r.Context())
		tx, err := h.svc.Add(r.Context(), userID, kind, service.TransactionInput{
			Title:       req.Title,
			Amount:      req.ParsedAmount(),
			Date:        req.ParsedDate(),
			Category:    req.Category,
			Description: req.Description,
		})
		if err != nil {
			h.handleServiceError(w, r, kind, err)
			return
		}

		h.logger.Info("transaction_created",
			"transaction_id", tx.ID,
			"type", string(kind),
			"user_id", userID,
		)

		writeJSON(w, http.StatusCreated, dto.ToTransactionResponse(tx))
	}
}

// List handles GET /api/transaction/get-incomes and get-expenses.
func (h *TransactionHandler) List(kind model.TransactionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txs, err := h.svc.List(r.Context(), auth.UserIDFromContext(r.Context()), kind)
		if err != nil {
			h.handleServiceError(w, r, kind, err)
			return
		}

		writeJSON(w, http.StatusOK, dto.ToTransactionList(txs))
	}
}

// Delete handles DELETE /api/transaction/delete-incomes/{id} and delete-expenses/{id}.
func (h *TransactionHandler) Delete(kind model.TransactionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, http.StatusBadRequest, kindLabel(kind)+" ID is required")
			return
		}

		userID := auth.UserIDFromContext(r.Context())
		if err := h.svc.Delete(r.Context(), userID, kind, id); err != nil {
			h.handleServiceError(w, r, kind, err)
			return
		}

		h.logger.Info("transaction_deleted",
			"transaction_id", id,
			"type", string(kind),
			"user_id", userID,
		)

		writeJSON(w, http.StatusOK, dto.DeleteResponse{Message: kindLabel(kind) + " deleted successfully"})
	}
}

// Summary handles GET /api/transaction/summary.
func (h *TransactionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Summary(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.logger.Error("internal_error",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToSummaryResponse(summary))
}

// handleServiceError maps service errors to HTTP responses.
func (h *TransactionHandler) handleServiceError(w http.ResponseWriter, r *http.Request, kind model.TransactionKind, err error) {
	switch {
	case errors.Is(err, service.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, kindLabel(kind)+" not found")
	case errors.Is(err, service.ErrInvalidAmount), errors.Is(err, service.ErrInvalidKind):
		writeValidationError(w, err)
	default:
		h.logger.Error("internal_error",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, msgServerError)
	}
}

func kindLabel(kind model.TransactionKind) string {
	if kind == model.KindExpense {
		return "Expense"
	}
	return "Income"
}

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/virtustage/creditcore/internal/models"
	"github.com/virtustage/creditcore/internal/service"
)

type balanceResponse struct {
	AccountID uuid.UUID `json:"account_id"`
	Balance   int64     `json:"balance"`
}

type statsResponse struct {
	AccountID        uuid.UUID `json:"account_id"`
	TotalPurchased   int64     `json:"total_purchased"`
	TotalConsumed    int64     `json:"total_consumed"`
	TotalRefunded    int64     `json:"total_refunded"`
	TotalBonus       int64     `json:"total_bonus"`
	PendingReserved  int64     `json:"pending_reserved"`
	TransactionCount int64     `json:"transaction_count"`
}

type dailyUsageResponse struct {
	Day      time.Time `json:"day"`
	Consumed int64     `json:"consumed"`
}

type grantBonusRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type grantBonusResponse struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	AccountID     uuid.UUID `json:"account_id"`
	Amount        int64     `json:"amount"`
}

// GetBalance handles GET /api/v1/accounts/{accountId}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	balance, err := h.ledger.GetBalance(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{AccountID: accountID, Balance: balance})
}

// GetStats handles GET /api/v1/accounts/{accountId}/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	stats, err := h.ledger.GetStats(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		AccountID:        accountID,
		TotalPurchased:   stats.TotalPurchased,
		TotalConsumed:    stats.TotalConsumed,
		TotalRefunded:    stats.TotalRefunded,
		TotalBonus:       stats.TotalBonus,
		PendingReserved:  stats.PendingReserved,
		TransactionCount: stats.TransactionCount,
	})
}

// GetWeeklyStats handles GET /api/v1/accounts/{accountId}/stats/weekly
func (h *Handler) GetWeeklyStats(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	usage, err := h.ledger.GetWeeklyStats(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	days := make([]dailyUsageResponse, 0, len(usage))
	for _, day := range usage {
		days = append(days, dailyUsageResponse(day))
	}

	writeJSON(w, http.StatusOK, days)
}

// GrantBonus handles POST /api/v1/accounts/{accountId}/bonus. Bonuses are
// operator-granted credits outside the payment flow, so no external
// reference is attached.
func (h *Handler) GrantBonus(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.accountID(w, r)
	if !ok {
		return
	}

	var req grantBonusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "invalid_request",
			Message: "request body is not valid JSON",
		})
		return
	}
	if req.Description == "" {
		req.Description = "welcome bonus"
	}

	txn, err := h.ledger.Credit(r.Context(), accountID, req.Amount, models.TransactionKindBonus, req.Description, "")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, grantBonusResponse{
		TransactionID: txn.ID,
		AccountID:     accountID,
		Amount:        txn.AmountCredits,
	})
}

func (h *Handler) accountID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	accountID, err := uuid.Parse(mux.Vars(r)["accountId"])
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error:   service.ErrCodeAccountNotFound,
			Message: "account not found",
		})
		return uuid.Nil, false
	}
	return accountID, true
}

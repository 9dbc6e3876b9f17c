package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/ledgercal/internal/adapter/http/dto"
	"github.com/iho/ledgercal/internal/usecase"
)

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	queryUC *usecase.QueryService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(queryUC *usecase.QueryService) *AccountHandler {
	return &AccountHandler{queryUC: queryUC}
}

// List lists the snapshot's accounts.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.queryUC.Accounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list accounts", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountsFromDomain(accounts))
}

// Balance returns one account's reconstructed balance at a requested
// instant. The "at" query parameter accepts RFC3339 or a calendar day
// (resolved to end of day in the configured zone); missing "at" means
// the snapshot's as-of instant.
func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	snap, err := h.queryUC.Snapshot(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load snapshot", err.Error())
		return
	}

	at := snap.AsOf
	dayOnly := false
	if atStr := r.URL.Query().Get("at"); atStr != "" {
		at, dayOnly, err = parseInstant(atStr, h.queryUC.Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'at' format (use RFC3339 or 2006-01-02)", err.Error())
			return
		}
	}

	var balance decimal.Decimal
	if dayOnly {
		balance, err = h.queryUC.BalanceOnDate(ctx, accountID, at)
	} else {
		balance, err = h.queryUC.BalanceAsOf(ctx, accountID, at)
	}
	if err != nil {
		writeError(w, mapDomainError(err), "failed to reconstruct balance", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceResponse{
		AccountID: accountID,
		At:        at,
		Balance:   balance,
		Version:   snap.Version,
	})
}

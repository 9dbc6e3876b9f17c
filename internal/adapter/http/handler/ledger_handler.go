package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/iho/ledgercal/internal/adapter/http/dto"
	"github.com/iho/ledgercal/internal/usecase"
)

// LedgerHandler handles ledger-wide queries: net worth, verification,
// snapshot refresh.
type LedgerHandler struct {
	queryUC *usecase.QueryService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(queryUC *usecase.QueryService) *LedgerHandler {
	return &LedgerHandler{queryUC: queryUC}
}

// NetWorth returns aggregate net worth at a requested instant. The
// "at" query parameter accepts RFC3339 or a calendar day; a day
// resolves to its end in the configured time zone. Missing "at" means
// the snapshot's as-of instant.
func (h *LedgerHandler) NetWorth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

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

	var value decimal.Decimal
	if dayOnly {
		value, err = h.queryUC.NetWorthOnDate(ctx, at)
	} else {
		value, err = h.queryUC.NetWorthAsOf(ctx, at)
	}
	if err != nil {
		writeError(w, mapDomainError(err), "failed to compute net worth", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceResponse{
		At:      at,
		Balance: value,
		Version: snap.Version,
	})
}

// Verify runs the advisory balance reconciliation for the current
// snapshot and returns the full report.
func (h *LedgerHandler) Verify(w http.ResponseWriter, r *http.Request) {
	report, err := h.queryUC.Verify(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to verify snapshot", err.Error())
		return
	}

	// Advisory: drift is flagged in the body, not the status code.
	writeJSON(w, http.StatusOK, report)
}

// Refresh forces a new snapshot fetch cycle.
func (h *LedgerHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.queryUC.Refresh(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to refresh snapshot", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.SnapshotFromDomain(snap))
}

// Snapshot describes the currently served snapshot version.
func (h *LedgerHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.queryUC.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load snapshot", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.SnapshotFromDomain(snap))
}

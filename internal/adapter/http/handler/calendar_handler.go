package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/ledgercal/internal/adapter/http/dto"
	"github.com/iho/ledgercal/internal/usecase"
)

// CalendarHandler serves the calendar surface: per-day transaction
// buckets and per-month summaries.
type CalendarHandler struct {
	queryUC *usecase.QueryService
}

// NewCalendarHandler creates a new CalendarHandler.
func NewCalendarHandler(queryUC *usecase.QueryService) *CalendarHandler {
	return &CalendarHandler{queryUC: queryUC}
}

// Day returns all transactions on a calendar day. Days without
// activity resolve to an empty bucket.
func (h *CalendarHandler) Day(w http.ResponseWriter, r *http.Request) {
	date, err := parseDay(chi.URLParam(r, "date"), h.queryUC.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date (use 2006-01-02)", err.Error())
		return
	}

	bucket, err := h.queryUC.TransactionsOnDate(r.Context(), date)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to load day", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.DayBucketFromUseCase(bucket))
}

// Month returns the summary for a calendar month (path format
// 2006-01).
func (h *CalendarHandler) Month(w http.ResponseWriter, r *http.Request) {
	month, err := time.Parse("2006-01", chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid month (use 2006-01)", err.Error())
		return
	}

	summary, err := h.queryUC.GetMonthSummary(r.Context(), month.Year(), month.Month())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to summarize month", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.MonthSummaryFromUseCase(summary))
}

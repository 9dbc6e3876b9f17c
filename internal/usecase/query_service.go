package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/ledgercal/internal/domain"
	"github.com/iho/ledgercal/internal/infrastructure/metrics"
)

// DefaultReconcileTolerance is the allowed drift between recorded
// balances and the replayed transaction log before verification
// reports the snapshot inconsistent.
const DefaultReconcileTolerance = "0.01"

// DefaultSummaryCacheTTL bounds how long cached month summaries live.
// Keys are version-prefixed, so the TTL only limits storage growth.
const DefaultSummaryCacheTTL = time.Hour

// MonthSummary aggregates one calendar month for the presentation
// layer. Income is the sum of positive amounts, Outflow the sum of
// negative amounts, EndOfMonthBalance the reconstructed net worth at
// the end of the month (capped at the snapshot's as-of instant).
type MonthSummary struct {
	Year              int             `json:"year"`
	Month             time.Month      `json:"month"`
	Income            decimal.Decimal `json:"income"`
	Outflow           decimal.Decimal `json:"outflow"`
	TransactionCount  int             `json:"transaction_count"`
	EndOfMonthBalance decimal.Decimal `json:"end_of_month_balance"`
}

// QueryService is the single entry point the presentation layer uses.
// It pulls the current snapshot from its source and memoizes the
// derived balance table and calendar index per snapshot version:
// built lazily on first access, built at most once per version, and
// discarded wholesale when a newer version is observed.
type QueryService struct {
	source    SnapshotSource
	cache     Cache
	loc       *time.Location
	tolerance decimal.Decimal
	cacheTTL  time.Duration
	logger    zerolog.Logger
	metrics   *metrics.Metrics

	mu      sync.Mutex
	current *derivations
}

// derivations bundles everything computed from one snapshot version.
// The sync.Once gives the single-build guarantee: concurrent first
// accesses for a not-yet-built version wait for one build instead of
// racing their own.
type derivations struct {
	snap  *domain.Snapshot
	once  sync.Once
	table *BalanceTable
	index *CalendarIndex
}

// QueryServiceConfig holds dependencies for the query service.
// Cache and Metrics are optional.
type QueryServiceConfig struct {
	Source    SnapshotSource
	Cache     Cache
	Location  *time.Location
	Tolerance decimal.Decimal
	CacheTTL  time.Duration
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics
}

// NewQueryService creates a new QueryService.
func NewQueryService(cfg QueryServiceConfig) *QueryService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Tolerance.IsZero() {
		cfg.Tolerance, _ = decimal.NewFromString(DefaultReconcileTolerance)
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultSummaryCacheTTL
	}

	return &QueryService{
		source:    cfg.Source,
		cache:     cfg.Cache,
		loc:       cfg.Location,
		tolerance: cfg.Tolerance,
		cacheTTL:  cfg.CacheTTL,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
}

// Location returns the time zone used for day boundaries.
func (s *QueryService) Location() *time.Location {
	return s.loc
}

// derived returns the derivations for the source's current snapshot,
// building them on first access for a version.
func (s *QueryService) derived(ctx context.Context) (*derivations, error) {
	snap, err := s.source.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	s.mu.Lock()
	if s.current == nil || s.current.snap.Version != snap.Version {
		if s.current != nil {
			s.logger.Info().
				Str("old_version", s.current.snap.Version).
				Str("new_version", snap.Version).
				Msg("snapshot version changed, discarding derivations")
			if s.metrics != nil {
				s.metrics.IndexInvalidation.Inc()
			}
		}
		s.current = &derivations{snap: snap}
	}
	d := s.current
	s.mu.Unlock()

	d.once.Do(func() {
		start := time.Now()
		d.table = NewBalanceTable(d.snap)
		d.index = BuildCalendarIndex(d.snap, s.loc)
		s.logger.Info().
			Str("version", d.snap.Version).
			Int("transactions", len(d.snap.Transactions)).
			Dur("took", time.Since(start)).
			Msg("built snapshot derivations")
		if s.metrics != nil {
			s.metrics.IndexBuilds.Inc()
			s.metrics.IndexBuildTime.Observe(time.Since(start).Seconds())
			s.metrics.SnapshotVersion.Set(float64(d.snap.AsOf.Unix()))
			s.metrics.TransactionsSeen.Set(float64(len(d.snap.Transactions)))
		}
	})

	return d, nil
}

// BalanceAsOf returns one account's balance at the given instant.
func (s *QueryService) BalanceAsOf(ctx context.Context, accountID string, at time.Time) (decimal.Decimal, error) {
	s.countQuery("balance_as_of")
	d, err := s.derived(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	balance, err := d.table.BalanceAsOf(accountID, at)
	if err != nil {
		s.countError("balance_as_of")
	}
	return balance, err
}

// BalanceOnDate returns one account's balance at the end of the given
// calendar day: every transaction up through end of day has already
// occurred. The instant is capped at the snapshot's as-of instant so
// the current (partial) day resolves too.
func (s *QueryService) BalanceOnDate(ctx context.Context, accountID string, date time.Time) (decimal.Decimal, error) {
	s.countQuery("balance_on_date")
	d, err := s.derived(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	at, err := s.dayInstant(d.snap, date)
	if err != nil {
		s.countError("balance_on_date")
		return decimal.Zero, err
	}
	balance, err := d.table.BalanceAsOf(accountID, at)
	if err != nil {
		s.countError("balance_on_date")
	}
	return balance, err
}

// NetWorthAsOf returns aggregate net worth at the given instant.
func (s *QueryService) NetWorthAsOf(ctx context.Context, at time.Time) (decimal.Decimal, error) {
	s.countQuery("net_worth_as_of")
	d, err := s.derived(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	value, err := d.table.NetWorthAsOf(at)
	if err != nil {
		s.countError("net_worth_as_of")
	}
	return value, err
}

// NetWorthOnDate returns aggregate net worth at the end of the given
// calendar day, capped at the snapshot's as-of instant.
func (s *QueryService) NetWorthOnDate(ctx context.Context, date time.Time) (decimal.Decimal, error) {
	s.countQuery("net_worth_on_date")
	d, err := s.derived(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	at, err := s.dayInstant(d.snap, date)
	if err != nil {
		s.countError("net_worth_on_date")
		return decimal.Zero, err
	}
	value, err := d.table.NetWorthAsOf(at)
	if err != nil {
		s.countError("net_worth_on_date")
	}
	return value, err
}

// TransactionsOnDate returns the bucket for the calendar day
// containing date. A day without transactions yields an empty bucket.
func (s *QueryService) TransactionsOnDate(ctx context.Context, date time.Time) (*DayBucket, error) {
	s.countQuery("transactions_on_date")
	d, err := s.derived(ctx)
	if err != nil {
		return nil, err
	}
	if startOfDay(date.In(s.loc)).After(d.snap.AsOf) {
		s.countError("transactions_on_date")
		return nil, domain.ErrFutureDate
	}
	return d.index.Day(date), nil
}

// GetMonthSummary aggregates one calendar month. Results are cached
// under a version-prefixed key when a cache is configured, so a stale
// version's entries become unreachable instead of being served.
func (s *QueryService) GetMonthSummary(ctx context.Context, year int, month time.Month) (*MonthSummary, error) {
	s.countQuery("month_summary")
	d, err := s.derived(ctx)
	if err != nil {
		return nil, err
	}

	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, s.loc)
	if monthStart.After(d.snap.AsOf) {
		s.countError("month_summary")
		return nil, domain.ErrFutureDate
	}

	cacheKey := fmt.Sprintf("month:%s:%04d-%02d", d.snap.Version, year, int(month))
	if s.cache != nil {
		if raw, ok, err := s.cache.Get(ctx, cacheKey); err == nil && ok {
			var cached MonthSummary
			if err := json.Unmarshal(raw, &cached); err == nil {
				if s.metrics != nil {
					s.metrics.CacheHits.Inc()
				}
				return &cached, nil
			}
		} else if err != nil {
			s.logger.Warn().Err(err).Str("key", cacheKey).Msg("summary cache read failed")
		}
		if s.metrics != nil {
			s.metrics.CacheMisses.Inc()
		}
	}

	end := endOfMonth(year, month, s.loc)
	if end.After(d.snap.AsOf) {
		end = d.snap.AsOf
	}
	endBalance, err := d.table.NetWorthAsOf(end)
	if err != nil {
		s.countError("month_summary")
		return nil, err
	}

	agg := d.index.Month(year, month)
	summary := &MonthSummary{
		Year:              year,
		Month:             month,
		Income:            agg.Income,
		Outflow:           agg.Outflow,
		TransactionCount:  agg.Count,
		EndOfMonthBalance: endBalance,
	}

	if s.cache != nil {
		raw, err := json.Marshal(summary)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, raw, s.cacheTTL); err != nil {
				s.logger.Warn().Err(err).Str("key", cacheKey).Msg("summary cache write failed")
			}
		}
	}

	return summary, nil
}

// Snapshot returns the currently served snapshot.
func (s *QueryService) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	d, err := s.derived(ctx)
	if err != nil {
		return nil, err
	}
	return d.snap, nil
}

// Accounts returns the snapshot's account set.
func (s *QueryService) Accounts(ctx context.Context) ([]*domain.Account, error) {
	d, err := s.derived(ctx)
	if err != nil {
		return nil, err
	}
	return d.snap.Accounts, nil
}

// Refresh forces the source to start a new fetch cycle and returns
// the resulting snapshot. Derivations for the new version are still
// built lazily on the next query.
func (s *QueryService) Refresh(ctx context.Context) (*domain.Snapshot, error) {
	return s.source.Refresh(ctx)
}

// dayInstant resolves a calendar day to the instant its balance query
// runs at: end of day in the configured zone, capped at as-of.
func (s *QueryService) dayInstant(snap *domain.Snapshot, date time.Time) (time.Time, error) {
	local := date.In(s.loc)
	if startOfDay(local).After(snap.AsOf) {
		return time.Time{}, domain.ErrFutureDate
	}
	at := endOfDay(local)
	if at.After(snap.AsOf) {
		at = snap.AsOf
	}
	return at, nil
}

func (s *QueryService) countQuery(op string) {
	if s.metrics != nil {
		s.metrics.Queries.WithLabelValues(op).Inc()
	}
}

func (s *QueryService) countError(op string) {
	if s.metrics != nil {
		s.metrics.QueryErrors.WithLabelValues(op).Inc()
	}
}

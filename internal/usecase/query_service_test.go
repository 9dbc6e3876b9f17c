package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/ledgercal/internal/domain"
	"github.com/iho/ledgercal/internal/infrastructure/metrics"
	"github.com/iho/ledgercal/internal/usecase"
	"github.com/iho/ledgercal/internal/usecase/mocks"
)

// Prometheus metrics register once per process, so every test shares
// this instance and asserts on counter deltas.
var testMetrics = metrics.New()

func fixtureSnapshot(t *testing.T, version string, asOf time.Time) *domain.Snapshot {
	t.Helper()
	accounts := []*domain.Account{
		{ID: "acc-1", Name: "Checking", Type: domain.AccountTypeAsset, Currency: "USD", CurrentBalance: dec(t, "1000")},
		{ID: "acc-2", Name: "Car Loan", Type: domain.AccountTypeLoan, Currency: "USD", CurrentBalance: dec(t, "400")},
	}
	transactions := []*domain.Transaction{
		{ID: "tx-1", AccountID: "acc-1", Timestamp: asOf.Add(-48 * time.Hour), Amount: dec(t, "250"), Category: "salary"},
		{ID: "tx-2", AccountID: "acc-1", Timestamp: asOf.Add(-24 * time.Hour), Amount: dec(t, "-75"), Category: "groceries"},
		{ID: "tx-3", AccountID: "acc-2", Timestamp: asOf.Add(-24 * time.Hour), Amount: dec(t, "-100"), Category: "loan-payment"},
	}
	return mustSnapshot(t, version, asOf, accounts, transactions)
}

func newTestService(source usecase.SnapshotSource, cache usecase.Cache) *usecase.QueryService {
	return usecase.NewQueryService(usecase.QueryServiceConfig{
		Source:  source,
		Cache:   cache,
		Logger:  zerolog.Nop(),
		Metrics: testMetrics,
	})
}

func TestQueryService_MemoizesPerVersion(t *testing.T) {
	asOf := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	source := mocks.NewMockSnapshotSource(fixtureSnapshot(t, "v1", asOf))
	svc := newTestService(source, nil)

	buildsBefore := testutil.ToFloat64(testMetrics.IndexBuilds)

	for i := 0; i < 5; i++ {
		got, err := svc.BalanceAsOf(context.Background(), "acc-1", asOf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.Equal(dec(t, "1000")) {
			t.Fatalf("expected 1000, got %s", got)
		}
	}

	if source.LatestCalls != 5 {
		t.Fatalf("each query consults the source once, got %d calls", source.LatestCalls)
	}
	if builds := testutil.ToFloat64(testMetrics.IndexBuilds) - buildsBefore; builds != 1 {
		t.Fatalf("expected exactly one derivation build, got %v", builds)
	}
}

func TestQueryService_RebuildsOnVersionChange(t *testing.T) {
	ctrl := gomock.NewController(t)
	asOf1 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	asOf2 := asOf1.Add(time.Hour)

	snap1 := fixtureSnapshot(t, "v1", asOf1)
	snap2 := fixtureSnapshot(t, "v2", asOf2)

	source := mocks.NewMockSnapshotSourceClient(ctrl)
	gomock.InOrder(
		source.EXPECT().Latest(gomock.Any()).Return(snap1, nil).Times(2),
		source.EXPECT().Latest(gomock.Any()).Return(snap2, nil),
	)

	svc := newTestService(source, nil)
	buildsBefore := testutil.ToFloat64(testMetrics.IndexBuilds)

	ctx := context.Background()
	if _, err := svc.NetWorthAsOf(ctx, asOf1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.NetWorthAsOf(ctx, asOf1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Third query observes v2; the v1 derivations are discarded and a
	// query at asOf2 no longer fails as a future date.
	if _, err := svc.NetWorthAsOf(ctx, asOf2); err != nil {
		t.Fatalf("unexpected error after version change: %v", err)
	}

	if builds := testutil.ToFloat64(testMetrics.IndexBuilds) - buildsBefore; builds != 2 {
		t.Fatalf("expected one build per version, got %v", builds)
	}
}

func TestQueryService_ConcurrentFirstAccessBuildsOnce(t *testing.T) {
	asOf := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	source := mocks.NewMockSnapshotSource(fixtureSnapshot(t, "v1", asOf))
	svc := newTestService(source, nil)

	buildsBefore := testutil.ToFloat64(testMetrics.IndexBuilds)

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.NetWorthAsOf(context.Background(), asOf); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent query failed: %v", err)
	}
	if builds := testutil.ToFloat64(testMetrics.IndexBuilds) - buildsBefore; builds != 1 {
		t.Fatalf("expected a single build under concurrency, got %v", builds)
	}
}

func TestQueryService_SourceErrorPropagates(t *testing.T) {
	sourceErr := errors.New("store offline")
	source := mocks.NewMockSnapshotSource(nil)
	source.LatestFunc = func(ctx context.Context) (*domain.Snapshot, error) {
		return nil, sourceErr
	}

	svc := newTestService(source, nil)
	if _, err := svc.NetWorthAsOf(context.Background(), time.Now()); !errors.Is(err, sourceErr) {
		t.Fatalf("expected wrapped source error, got %v", err)
	}
}

func TestQueryService_BalanceOnDate(t *testing.T) {
	asOf := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	accounts := []*domain.Account{
		{ID: "acc-1", Name: "Checking", Type: domain.AccountTypeAsset, Currency: "USD", CurrentBalance: dec(t, "900")},
	}
	transactions := []*domain.Transaction{
		{ID: "tx-1", AccountID: "acc-1", Timestamp: time.Date(2025, 6, 8, 23, 0, 0, 0, time.UTC), Amount: dec(t, "-100"), Category: "dining"},
	}
	source := mocks.NewMockSnapshotSource(mustSnapshot(t, "v1", asOf, accounts, transactions))
	svc := newTestService(source, nil)
	ctx := context.Background()

	// End of the 8th includes the late-evening transaction.
	on8th, err := svc.BalanceOnDate(ctx, "acc-1", time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !on8th.Equal(dec(t, "900")) {
		t.Fatalf("expected 900 at end of the 8th, got %s", on8th)
	}

	on7th, err := svc.BalanceOnDate(ctx, "acc-1", time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !on7th.Equal(dec(t, "1000")) {
		t.Fatalf("expected 1000 at end of the 7th, got %s", on7th)
	}

	// The current partial day is capped at as-of, not rejected.
	if _, err := svc.BalanceOnDate(ctx, "acc-1", asOf); err != nil {
		t.Fatalf("partial day should resolve: %v", err)
	}

	if _, err := svc.BalanceOnDate(ctx, "acc-1", asOf.AddDate(0, 0, 1)); !errors.Is(err, domain.ErrFutureDate) {
		t.Fatalf("expected ErrFutureDate, got %v", err)
	}
}

func TestQueryService_TransactionsOnDate(t *testing.T) {
	asOf := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	source := mocks.NewMockSnapshotSource(fixtureSnapshot(t, "v1", asOf))
	svc := newTestService(source, nil)
	ctx := context.Background()

	bucket, err := svc.TransactionsOnDate(ctx, asOf.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bucket.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(bucket.Transactions))
	}

	if _, err := svc.TransactionsOnDate(ctx, asOf.AddDate(0, 0, 2)); !errors.Is(err, domain.ErrFutureDate) {
		t.Fatalf("expected ErrFutureDate, got %v", err)
	}
}

func TestQueryService_MonthSummaryCaching(t *testing.T) {
	asOf := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	source := mocks.NewMockSnapshotSource(fixtureSnapshot(t, "v1", asOf))
	cache := mocks.NewMockCache()
	svc := newTestService(source, cache)
	ctx := context.Background()

	first, err := svc.GetMonthSummary(ctx, 2025, time.June)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Misses)
	assert.Equal(t, 1, cache.Sets)
	assert.Equal(t, 3, first.TransactionCount)
	assert.True(t, first.Income.Equal(dec(t, "250")), "income %s", first.Income)
	assert.True(t, first.Outflow.Equal(dec(t, "-175")), "outflow %s", first.Outflow)

	second, err := svc.GetMonthSummary(ctx, 2025, time.June)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Hits)
	assert.Equal(t, 1, cache.Sets, "cached result must not be recomputed")
	assert.True(t, first.EndOfMonthBalance.Equal(second.EndOfMonthBalance))
}

func TestQueryService_MonthSummaryNotStaleAcrossVersions(t *testing.T) {
	asOf := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	source := mocks.NewMockSnapshotSource(fixtureSnapshot(t, "v1", asOf))
	cache := mocks.NewMockCache()
	svc := newTestService(source, cache)
	ctx := context.Background()

	first, err := svc.GetMonthSummary(ctx, 2025, time.June)
	require.NoError(t, err)
	assert.Equal(t, 3, first.TransactionCount)
	assert.True(t, first.Income.Equal(dec(t, "250")), "income %s", first.Income)

	// A new snapshot version with an extra June transaction. The cache
	// key carries the version, so the v1 entry must not be served.
	accounts := []*domain.Account{
		{ID: "acc-1", Name: "Checking", Type: domain.AccountTypeAsset, Currency: "USD", CurrentBalance: dec(t, "1500")},
		{ID: "acc-2", Name: "Car Loan", Type: domain.AccountTypeLoan, Currency: "USD", CurrentBalance: dec(t, "400")},
	}
	transactions := []*domain.Transaction{
		{ID: "tx-1", AccountID: "acc-1", Timestamp: asOf.Add(-48 * time.Hour), Amount: dec(t, "250"), Category: "salary"},
		{ID: "tx-2", AccountID: "acc-1", Timestamp: asOf.Add(-24 * time.Hour), Amount: dec(t, "-75"), Category: "groceries"},
		{ID: "tx-3", AccountID: "acc-2", Timestamp: asOf.Add(-24 * time.Hour), Amount: dec(t, "-100"), Category: "loan-payment"},
		{ID: "tx-4", AccountID: "acc-1", Timestamp: asOf.Add(-12 * time.Hour), Amount: dec(t, "500"), Category: "bonus"},
	}
	source.SetSnapshot(mustSnapshot(t, "v2", asOf, accounts, transactions))

	second, err := svc.GetMonthSummary(ctx, 2025, time.June)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Misses, "new version must miss and recompute")
	assert.Equal(t, 2, cache.Sets)
	assert.Equal(t, 0, cache.Hits)
	assert.Equal(t, 4, second.TransactionCount)
	assert.True(t, second.Income.Equal(dec(t, "750")), "income %s", second.Income)
	assert.True(t, second.Outflow.Equal(dec(t, "-175")), "outflow %s", second.Outflow)
}

func TestQueryService_MonthSummaryFutureMonth(t *testing.T) {
	asOf := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	source := mocks.NewMockSnapshotSource(fixtureSnapshot(t, "v1", asOf))
	svc := newTestService(source, nil)

	if _, err := svc.GetMonthSummary(context.Background(), 2025, time.July); !errors.Is(err, domain.ErrFutureDate) {
		t.Fatalf("expected ErrFutureDate, got %v", err)
	}
}

func TestQueryService_MonthSummaryCacheFailureIsSoft(t *testing.T) {
	ctrl := gomock.NewController(t)
	asOf := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	source := mocks.NewMockSnapshotSource(fixtureSnapshot(t, "v1", asOf))

	cache := mocks.NewMockCacheClient(ctrl)
	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, false, errors.New("redis down"))
	cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	svc := newTestService(source, cache)

	summary, err := svc.GetMonthSummary(context.Background(), 2025, time.June)
	require.NoError(t, err, "cache failures must not fail the query")
	assert.Equal(t, 3, summary.TransactionCount)
}

func TestQueryService_Refresh(t *testing.T) {
	asOf := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	source := mocks.NewMockSnapshotSource(fixtureSnapshot(t, "v1", asOf))
	svc := newTestService(source, nil)

	snap, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Version != "v1" {
		t.Fatalf("expected v1, got %s", snap.Version)
	}
	if source.RefreshCalls != 1 {
		t.Fatalf("expected 1 refresh call, got %d", source.RefreshCalls)
	}
}

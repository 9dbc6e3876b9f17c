package memory_test

import (
	"context"
	"testing"

	"github.com/iho/ledgercal/internal/adapter/repository/memory"
)

func TestSnapshotSource_LatestIsStable(t *testing.T) {
	accounts, transactions := memory.SeedFixture()
	source := memory.NewSnapshotSource(accounts, transactions)
	ctx := context.Background()

	first, err := source.Latest(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := source.Latest(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Version != second.Version {
		t.Fatalf("Latest must serve one version between refreshes: %s vs %s", first.Version, second.Version)
	}
}

func TestSnapshotSource_RefreshAdvancesVersion(t *testing.T) {
	accounts, transactions := memory.SeedFixture()
	source := memory.NewSnapshotSource(accounts, transactions)
	ctx := context.Background()

	before, err := source.Latest(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after, err := source.Refresh(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if before.Version == after.Version {
		t.Fatal("Refresh must mint a new version token")
	}
	// ULIDs order lexicographically by creation time.
	if !(before.Version < after.Version) {
		t.Fatalf("expected monotonically increasing versions: %s then %s", before.Version, after.Version)
	}

	latest, err := source.Latest(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.Version != after.Version {
		t.Fatal("Latest must serve the refreshed snapshot")
	}
}

func TestSeedFixture_IsValid(t *testing.T) {
	accounts, transactions := memory.SeedFixture()
	source := memory.NewSnapshotSource(accounts, transactions)

	snap, err := source.Latest(context.Background())
	if err != nil {
		t.Fatalf("seed fixture must build a valid snapshot: %v", err)
	}
	if len(snap.Accounts) != 3 {
		t.Fatalf("expected 3 accounts, got %d", len(snap.Accounts))
	}
	if len(snap.Transactions) != 17 {
		t.Fatalf("expected 17 transactions, got %d", len(snap.Transactions))
	}
}

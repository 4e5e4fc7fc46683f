package persistence

import (
	"context"
	"testing"
	"time"

	"binsim/internal/scenario"
	"binsim/internal/state"
	"binsim/internal/testutil"
)

func setupSnapshotStore(t *testing.T) *SnapshotStore {
	t.Helper()
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	snaps := NewSnapshotStore(db)
	if err := snaps.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return snaps
}

func seededStateStore(t *testing.T) *state.Store {
	t.Helper()
	store := state.NewStore(100)
	presets, err := scenario.Presets()
	if err != nil {
		t.Fatal(err)
	}
	for _, sc := range presets {
		if err := store.LoadScenario(sc); err != nil {
			t.Fatalf("load %q: %v", sc.Name, err)
		}
	}
	return store
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	snaps := setupSnapshotStore(t)
	ctx := context.Background()
	store := seededStateStore(t)

	size, err := snaps.Save(ctx, "test-key", store.Snapshot())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if size <= 0 {
		t.Errorf("size = %d", size)
	}

	loaded, err := snaps.Load(ctx, "test-key")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded == nil {
		t.Fatal("loaded nil snapshot")
	}

	restored := state.NewStore(100)
	if err := restored.Restore(loaded); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.PoolCount() != store.PoolCount() {
		t.Errorf("restored %d pools, want %d", restored.PoolCount(), store.PoolCount())
	}
}

func TestLoadMissingKey(t *testing.T) {
	snaps := setupSnapshotStore(t)

	snap, err := snaps.Load(context.Background(), "never-saved")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap != nil {
		t.Error("expected nil snapshot for an unknown key")
	}
}

func TestLoadReturnsNewest(t *testing.T) {
	snaps := setupSnapshotStore(t)
	ctx := context.Background()

	first := state.NewStore(0)
	if _, err := snaps.Save(ctx, "k", first.Snapshot()); err != nil {
		t.Fatal(err)
	}

	second := seededStateStore(t)
	snap := second.Snapshot()
	snap.TakenAt = snap.TakenAt.Add(time.Second)
	if _, err := snaps.Save(ctx, "k", snap); err != nil {
		t.Fatal(err)
	}

	loaded, err := snaps.Load(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Pools) == 0 {
		t.Error("load returned the older, empty snapshot")
	}
}

func TestPrune(t *testing.T) {
	snaps := setupSnapshotStore(t)
	ctx := context.Background()
	store := seededStateStore(t)

	for i := 0; i < 5; i++ {
		snap := store.Snapshot()
		snap.TakenAt = snap.TakenAt.Add(time.Duration(i) * time.Second)
		if _, err := snaps.Save(ctx, "k", snap); err != nil {
			t.Fatal(err)
		}
	}
	if err := snaps.Prune(ctx, "k", 2); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if err := snaps.Prune(ctx, "k", 0); err == nil {
		t.Error("non-positive keep accepted")
	}

	// The newest snapshot survives pruning.
	loaded, err := snaps.Load(ctx, "k")
	if err != nil || loaded == nil {
		t.Fatalf("load after prune: %v", err)
	}
}

func TestLatestInfo(t *testing.T) {
	snaps := setupSnapshotStore(t)
	ctx := context.Background()

	if _, ok, err := snaps.LatestInfo(ctx, "empty"); err != nil || ok {
		t.Errorf("empty key: ok=%v err=%v", ok, err)
	}

	store := state.NewStore(0)
	if _, err := snaps.Save(ctx, "k", store.Snapshot()); err != nil {
		t.Fatal(err)
	}
	takenAt, ok, err := snaps.LatestInfo(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("latest info: ok=%v err=%v", ok, err)
	}
	if time.Since(takenAt) > time.Minute {
		t.Errorf("taken_at = %s", takenAt)
	}
}

package state

import (
	"fmt"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"

	binmath "binsim/internal/math"
)

func unit(n int64) sdkmath.Int {
	return sdkmath.NewIntWithDecimal(1, 18).MulRaw(n)
}

// validPool builds a pool around bin 0: asset A below, asset B above,
// both in the center, each populated bin backed by matching shares.
func validPool(poolID string, binIDs ...int32) *PoolState {
	now := time.Now()
	const binStep = uint16(25)
	pool := &PoolState{
		PoolID: poolID,
		Metadata: PoolMetadata{
			AssetA:           "ETH",
			AssetB:           "USDC",
			BinStepBps:       binStep,
			BaseFactor:       10_000,
			ProtocolShareBps: 1000,
		},
		Bins:         make(map[int32]BinState),
		ActiveBinID:  0,
		ProtocolFees: ZeroAmounts(),
		Volume24h:    sdkmath.ZeroInt(),
		CreatedAt:    now,
		LastUpdated:  now,
	}
	for _, id := range binIDs {
		reserves := ZeroAmounts()
		switch {
		case id < 0:
			reserves.A = unit(10)
		case id > 0:
			reserves.B = unit(10)
		default:
			reserves = NewAmounts(unit(10), unit(10))
		}
		pool.Bins[id] = BinState{
			BinID:         id,
			Reserves:      reserves,
			TotalLPShares: unit(10),
			Price:         binmath.PriceOfBin(id, binStep),
			IsActive:      id == 0,
		}
	}
	if _, ok := pool.Bins[0]; !ok {
		pool.Bins[0] = BinState{
			BinID:         0,
			Reserves:      ZeroAmounts(),
			TotalLPShares: sdkmath.ZeroInt(),
			Price:         binmath.Scale,
			IsActive:      true,
		}
	}
	pool.RecomputeTotals()
	return pool
}

func validPosition(userID, poolID string, binIDs ...int32) *UserPosition {
	now := time.Now()
	pos := &UserPosition{
		UserID:       userID,
		PoolID:       poolID,
		BinPositions: make(map[int32]BinPosition),
		CreatedAt:    now,
		LastUpdated:  now,
	}
	for _, id := range binIDs {
		pos.BinPositions[id] = BinPosition{
			BinID:      id,
			LPShares:   unit(10),
			Underlying: NewAmounts(unit(10), sdkmath.ZeroInt()),
			FeesEarned: ZeroAmounts(),
			EntryPrice: binmath.PriceOfBin(id, 25),
			EntryTime:  now,
		}
	}
	pos.RecomputeTotals()
	return pos
}

func TestStorePutGetPool(t *testing.T) {
	store := NewStore(0)
	pool := validPool("ETH-USDC-25", -1, 0, 1)

	if err := store.PutPool(pool); err != nil {
		t.Fatalf("put pool: %v", err)
	}
	got, ok := store.GetPool("ETH-USDC-25")
	if !ok {
		t.Fatal("pool not found after put")
	}
	if got.PoolID != pool.PoolID || len(got.Bins) != 3 {
		t.Errorf("got pool %s with %d bins", got.PoolID, len(got.Bins))
	}
	if !store.HasPool("ETH-USDC-25") || store.HasPool("missing") {
		t.Error("HasPool mismatch")
	}
	if store.PoolCount() != 1 {
		t.Errorf("pool count = %d, want 1", store.PoolCount())
	}
}

func TestStoreReadsAreIsolated(t *testing.T) {
	store := NewStore(0)
	if err := store.PutPool(validPool("ETH-USDC-25", 0)); err != nil {
		t.Fatal(err)
	}

	got, _ := store.GetPool("ETH-USDC-25")
	bin := got.Bins[0]
	bin.Reserves.A = unit(999)
	got.Bins[0] = bin

	fresh, _ := store.GetPool("ETH-USDC-25")
	if fresh.Bins[0].Reserves.A.Equal(unit(999)) {
		t.Error("mutating a read clone leaked into the store")
	}
}

func TestStoreRejectsInvalidPool(t *testing.T) {
	store := NewStore(0)
	pool := validPool("ETH-USDC-25", 0)

	// Reserves without backing shares violate a bin invariant.
	bin := pool.Bins[0]
	bin.TotalLPShares = sdkmath.ZeroInt()
	pool.Bins[0] = bin

	if err := store.PutPool(pool); err == nil {
		t.Fatal("expected validation failure")
	}
	if store.HasPool("ETH-USDC-25") {
		t.Error("rejected pool was stored")
	}
}

func TestStorePutPoolRecomputesTotals(t *testing.T) {
	store := NewStore(0)
	pool := validPool("ETH-USDC-25", -1, 0, 1)
	pool.TotalReserves = NewAmounts(unit(12345), unit(12345)) // stale

	if err := store.PutPool(pool); err != nil {
		t.Fatalf("put pool with stale totals: %v", err)
	}
	got, _ := store.GetPool("ETH-USDC-25")
	want := NewAmounts(unit(20), unit(20))
	if !got.TotalReserves.Equal(want) {
		t.Errorf("totals = (%s, %s), want re-derived (%s, %s)",
			got.TotalReserves.A, got.TotalReserves.B, want.A, want.B)
	}
}

func TestStorePositions(t *testing.T) {
	store := NewStore(0)
	if err := store.PutPosition(validPosition("alice", "ETH-USDC-25", 0)); err != nil {
		t.Fatal(err)
	}
	if err := store.PutPosition(validPosition("alice", "BTC-USDC-10", 0)); err != nil {
		t.Fatal(err)
	}
	if err := store.PutPosition(validPosition("bob", "ETH-USDC-25", 0, 1)); err != nil {
		t.Fatal(err)
	}

	if _, ok := store.GetPosition("alice", "ETH-USDC-25"); !ok {
		t.Fatal("alice position missing")
	}
	forUser := store.PositionsForUser("alice")
	if len(forUser) != 2 || forUser[0].PoolID != "BTC-USDC-10" {
		t.Errorf("positions for alice = %d entries, want 2 sorted by pool", len(forUser))
	}
	forPool := store.PositionsForPool("ETH-USDC-25")
	if len(forPool) != 2 || forPool[0].UserID != "alice" || forPool[1].UserID != "bob" {
		t.Errorf("positions for pool not sorted by user: %d entries", len(forPool))
	}

	if !store.RemovePosition("alice", "ETH-USDC-25") {
		t.Error("remove reported missing position")
	}
	if _, ok := store.GetPosition("alice", "ETH-USDC-25"); ok {
		t.Error("position still present after remove")
	}
	if store.RemovePosition("alice", "ETH-USDC-25") {
		t.Error("second remove should report absence")
	}
}

func TestStoreCommitAtomic(t *testing.T) {
	store := NewStore(0)
	pool := validPool("ETH-USDC-25", -1, 0, 1)
	if err := store.PutPool(pool); err != nil {
		t.Fatal(err)
	}

	// Pool update is valid, position is not: nothing may change.
	next, _ := store.GetPool("ETH-USDC-25")
	bin := next.Bins[0]
	bin.Reserves.A = unit(50)
	bin.TotalLPShares = unit(50)
	next.Bins[0] = bin

	badPos := validPosition("alice", "ETH-USDC-25", 0)
	bp := badPos.BinPositions[0]
	bp.LPShares = unit(-1)
	badPos.BinPositions[0] = bp
	badPos.RecomputeTotals()

	if err := store.Commit(next, badPos); err == nil {
		t.Fatal("expected commit to fail")
	}
	after, _ := store.GetPool("ETH-USDC-25")
	if !after.Bins[0].Reserves.A.Equal(unit(10)) {
		t.Error("failed commit mutated the pool")
	}
	if _, ok := store.GetPosition("alice", "ETH-USDC-25"); ok {
		t.Error("failed commit stored the position")
	}
}

func TestStoreCommitRemovesEmptyPositions(t *testing.T) {
	store := NewStore(0)
	if err := store.PutPosition(validPosition("alice", "ETH-USDC-25", 0)); err != nil {
		t.Fatal(err)
	}

	emptied, _ := store.GetPosition("alice", "ETH-USDC-25")
	delete(emptied.BinPositions, 0)
	emptied.RecomputeTotals()

	if err := store.Commit(nil, emptied); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, ok := store.GetPosition("alice", "ETH-USDC-25"); ok {
		t.Error("fully burned position should be removed")
	}
}

func TestTransactionLogNewestFirst(t *testing.T) {
	store := NewStore(0)
	base := time.Now()
	for i := 0; i < 5; i++ {
		store.AppendTransaction(Transaction{
			ID:        fmt.Sprintf("tx-%d", i),
			Kind:      TxSwap,
			UserID:    "alice",
			PoolID:    "ETH-USDC-25",
			Result:    TxResult{Success: true, GasPrice: sdkmath.NewInt(1)},
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
	}

	all := store.Transactions(0)
	if len(all) != 5 {
		t.Fatalf("got %d transactions, want 5", len(all))
	}
	if all[0].ID != "tx-4" || all[4].ID != "tx-0" {
		t.Errorf("order [%s..%s], want newest first", all[0].ID, all[4].ID)
	}

	limited := store.Transactions(2)
	if len(limited) != 2 || limited[0].ID != "tx-4" || limited[1].ID != "tx-3" {
		t.Errorf("limit 2 returned %d entries starting at %s", len(limited), limited[0].ID)
	}

	if tx, ok := store.TransactionByID("tx-2"); !ok || tx.ID != "tx-2" {
		t.Error("lookup by id failed")
	}
	if _, ok := store.TransactionByID("missing"); ok {
		t.Error("lookup of missing id succeeded")
	}
}

func TestTransactionLogFilters(t *testing.T) {
	store := NewStore(0)
	store.AppendTransaction(Transaction{ID: "a1", UserID: "alice", PoolID: "p1", Result: TxResult{GasPrice: sdkmath.NewInt(1)}})
	store.AppendTransaction(Transaction{ID: "b1", UserID: "bob", PoolID: "p1", Result: TxResult{GasPrice: sdkmath.NewInt(1)}})
	store.AppendTransaction(Transaction{ID: "a2", UserID: "alice", PoolID: "p2", Result: TxResult{GasPrice: sdkmath.NewInt(1)}})

	byUser := store.TransactionsForUser("alice", 0)
	if len(byUser) != 2 || byUser[0].ID != "a2" || byUser[1].ID != "a1" {
		t.Errorf("user filter = %v", byUser)
	}
	byPool := store.TransactionsForPool("p1", 0)
	if len(byPool) != 2 || byPool[0].ID != "b1" {
		t.Errorf("pool filter = %v", byPool)
	}
}

func TestTransactionLogCap(t *testing.T) {
	store := NewStore(3)
	for i := 0; i < 5; i++ {
		store.AppendTransaction(Transaction{
			ID:     fmt.Sprintf("tx-%d", i),
			Result: TxResult{GasPrice: sdkmath.NewInt(1)},
		})
	}
	all := store.Transactions(0)
	if len(all) != 3 {
		t.Fatalf("got %d transactions, want capped at 3", len(all))
	}
	if all[0].ID != "tx-4" || all[2].ID != "tx-2" {
		t.Errorf("cap kept [%s..%s], want the newest three", all[0].ID, all[2].ID)
	}
}

func TestLoadScenario(t *testing.T) {
	store := NewStore(0)
	sc := PoolScenario{
		Name:        "balanced",
		PoolID:      "ETH-USDC-25",
		Metadata:    PoolMetadata{AssetA: "ETH", AssetB: "USDC", BinStepBps: 25, BaseFactor: 10_000},
		ActiveBinID: 0,
		Bins: []ScenarioBin{
			{BinID: -1, Reserves: NewAmounts(unit(10), sdkmath.ZeroInt()), LPShares: unit(10)},
			{BinID: 0, Reserves: NewAmounts(unit(10), unit(10)), LPShares: unit(10)},
			{BinID: 1, Reserves: NewAmounts(sdkmath.ZeroInt(), unit(10)), LPShares: unit(10)},
		},
		Positions: []ScenarioPosition{
			{UserID: "seed", Shares: []ScenarioShare{
				{BinID: 0, LPShares: unit(5)},
			}},
		},
	}

	if err := store.LoadScenario(sc); err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	pool, ok := store.GetPool("ETH-USDC-25")
	if !ok {
		t.Fatal("scenario pool missing")
	}
	if pool.ActiveBinID != 0 || !pool.Bins[0].IsActive {
		t.Error("active bin not marked")
	}
	if !pool.Bins[1].Price.GT(pool.Bins[0].Price) {
		t.Error("bin prices not derived from bin ids")
	}

	pos, ok := store.GetPosition("seed", "ETH-USDC-25")
	if !ok {
		t.Fatal("seeded position missing")
	}
	// Half the shares of a (10, 10) bin.
	if !pos.TotalUnderlying.Equal(NewAmounts(unit(5), unit(5))) {
		t.Errorf("underlying = (%s, %s), want share-proportional slice",
			pos.TotalUnderlying.A, pos.TotalUnderlying.B)
	}
}

func TestLoadScenarioRejectsBadDefinitions(t *testing.T) {
	meta := PoolMetadata{AssetA: "ETH", AssetB: "USDC", BinStepBps: 25, BaseFactor: 10_000}

	cases := []struct {
		name string
		sc   PoolScenario
	}{
		{"empty pool id", PoolScenario{Name: "x", Metadata: meta}},
		{"duplicate bin", PoolScenario{
			Name: "x", PoolID: "p", Metadata: meta,
			Bins: []ScenarioBin{
				{BinID: 0, Reserves: NewAmounts(unit(1), unit(1)), LPShares: unit(1)},
				{BinID: 0, Reserves: NewAmounts(unit(1), unit(1)), LPShares: unit(1)},
			},
		}},
		{"position in missing bin", PoolScenario{
			Name: "x", PoolID: "p", Metadata: meta,
			Bins: []ScenarioBin{{BinID: 0, Reserves: NewAmounts(unit(1), unit(1)), LPShares: unit(1)}},
			Positions: []ScenarioPosition{
				{UserID: "u", Shares: []ScenarioShare{{BinID: 7, LPShares: unit(1)}}},
			},
		}},
		{"position exceeds bin shares", PoolScenario{
			Name: "x", PoolID: "p", Metadata: meta,
			Bins: []ScenarioBin{{BinID: 0, Reserves: NewAmounts(unit(1), unit(1)), LPShares: unit(1)}},
			Positions: []ScenarioPosition{
				{UserID: "u", Shares: []ScenarioShare{{BinID: 0, LPShares: unit(2)}}},
			},
		}},
	}
	for _, tc := range cases {
		store := NewStore(0)
		if err := store.LoadScenario(tc.sc); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

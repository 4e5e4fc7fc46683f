package state

import (
	"fmt"
	"sort"
	"time"

	sdkmath "cosmossdk.io/math"
)

// SnapshotVersion identifies the snapshot wire format.
const SnapshotVersion = "1"

// Snapshot is the full store state in structural form: every map is
// flattened to an entry list ordered by key, so two equal stores always
// serialize to identical JSON.
type Snapshot struct {
	Version      string          `json:"version"`
	TakenAt      time.Time       `json:"taken_at"`
	Config       EngineConfig    `json:"config"`
	Pools        []PoolEntry     `json:"pools"`
	Positions    []PositionEntry `json:"positions"`
	Transactions []Transaction   `json:"transactions"`
}

// EngineConfig is the simulation configuration the state was produced
// under, saved with every snapshot so a restored instance can see the
// settings in effect at save time.
type EngineConfig struct {
	FailureRate              float64       `json:"failure_rate"`
	LatencyMean              time.Duration `json:"latency_mean"`
	MaxTransactions          int           `json:"max_transactions"`
	EnableRealisticGas       bool          `json:"enable_realistic_gas"`
	EnablePriceImpact        bool          `json:"enable_price_impact"`
	EnableSlippageSimulation bool          `json:"enable_slippage_simulation"`
	Seed                     int64         `json:"seed"`
}

// PoolEntry is one pool with its bins flattened to an ordered list.
type PoolEntry struct {
	PoolID string       `json:"pool_id"`
	Pool   PoolSnapshot `json:"pool"`
}

// PoolSnapshot mirrors PoolState with Bins as an ordered slice.
type PoolSnapshot struct {
	Metadata      PoolMetadata `json:"metadata"`
	Bins          []BinState   `json:"bins"`
	ActiveBinID   int32        `json:"active_bin_id"`
	TotalReserves Amounts      `json:"total_reserves"`
	ProtocolFees  Amounts      `json:"protocol_fees"`
	Volume24h     string       `json:"volume_24h"`
	CreatedAt     time.Time    `json:"created_at"`
	LastUpdated   time.Time    `json:"last_updated"`
}

// PositionEntry is one user/pool position with bins flattened.
type PositionEntry struct {
	UserID   string           `json:"user_id"`
	PoolID   string           `json:"pool_id"`
	Position PositionSnapshot `json:"position"`
}

// PositionSnapshot mirrors UserPosition with an ordered bin list.
type PositionSnapshot struct {
	BinPositions    []BinPosition `json:"bin_positions"`
	TotalShares     string        `json:"total_shares"`
	TotalUnderlying Amounts       `json:"total_underlying"`
	TotalFees       Amounts       `json:"total_fees"`
	CreatedAt       time.Time     `json:"created_at"`
	LastUpdated     time.Time     `json:"last_updated"`
}

// Snapshot exports the full store state.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{
		Version: SnapshotVersion,
		TakenAt: time.Now(),
		Config:  s.config,
	}

	poolIDs := make([]string, 0, len(s.pools))
	for id := range s.pools {
		poolIDs = append(poolIDs, id)
	}
	sort.Strings(poolIDs)
	for _, id := range poolIDs {
		pool := s.pools[id]
		bins := make([]BinState, 0, len(pool.Bins))
		for _, bin := range pool.Bins {
			bins = append(bins, bin.Clone())
		}
		sort.Slice(bins, func(i, j int) bool { return bins[i].BinID < bins[j].BinID })
		snap.Pools = append(snap.Pools, PoolEntry{
			PoolID: id,
			Pool: PoolSnapshot{
				Metadata:      pool.Metadata,
				Bins:          bins,
				ActiveBinID:   pool.ActiveBinID,
				TotalReserves: pool.TotalReserves,
				ProtocolFees:  pool.ProtocolFees,
				Volume24h:     pool.Volume24h.String(),
				CreatedAt:     pool.CreatedAt,
				LastUpdated:   pool.LastUpdated,
			},
		})
	}

	userIDs := make([]string, 0, len(s.positions))
	for id := range s.positions {
		userIDs = append(userIDs, id)
	}
	sort.Strings(userIDs)
	for _, userID := range userIDs {
		byPool := s.positions[userID]
		poolKeys := make([]string, 0, len(byPool))
		for id := range byPool {
			poolKeys = append(poolKeys, id)
		}
		sort.Strings(poolKeys)
		for _, poolID := range poolKeys {
			pos := byPool[poolID]
			bins := make([]BinPosition, 0, len(pos.BinPositions))
			for _, bp := range pos.BinPositions {
				bins = append(bins, bp)
			}
			sort.Slice(bins, func(i, j int) bool { return bins[i].BinID < bins[j].BinID })
			snap.Positions = append(snap.Positions, PositionEntry{
				UserID: userID,
				PoolID: poolID,
				Position: PositionSnapshot{
					BinPositions:    bins,
					TotalShares:     pos.TotalShares.String(),
					TotalUnderlying: pos.TotalUnderlying,
					TotalFees:       pos.TotalFees,
					CreatedAt:       pos.CreatedAt,
					LastUpdated:     pos.LastUpdated,
				},
			})
		}
	}

	snap.Transactions = make([]Transaction, 0, len(s.transactions))
	for i := range s.transactions {
		snap.Transactions = append(snap.Transactions, s.transactions[i].Clone())
	}
	return snap
}

// Restore replaces the entire store contents with the snapshot. Every
// restored entity is validated; any failure aborts with the store left
// untouched.
func (s *Store) Restore(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot is nil")
	}
	if snap.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version %q", snap.Version)
	}

	pools := make(map[string]*PoolState, len(snap.Pools))
	for _, entry := range snap.Pools {
		ps := entry.Pool
		volume, err := parseInt(ps.Volume24h)
		if err != nil {
			return fmt.Errorf("pool %s: volume: %w", entry.PoolID, err)
		}
		pool := &PoolState{
			PoolID:       entry.PoolID,
			Metadata:     ps.Metadata,
			Bins:         make(map[int32]BinState, len(ps.Bins)),
			ActiveBinID:  ps.ActiveBinID,
			ProtocolFees: ps.ProtocolFees,
			Volume24h:    volume,
			CreatedAt:    ps.CreatedAt,
			LastUpdated:  ps.LastUpdated,
		}
		for _, bin := range ps.Bins {
			if _, dup := pool.Bins[bin.BinID]; dup {
				return fmt.Errorf("pool %s: duplicate bin %d in snapshot", entry.PoolID, bin.BinID)
			}
			pool.Bins[bin.BinID] = bin.Clone()
		}
		pool.RecomputeTotals()
		if err := ValidatePool(pool).Err("pool " + entry.PoolID); err != nil {
			return err
		}
		pools[entry.PoolID] = pool
	}

	positions := make(map[string]map[string]*UserPosition)
	for _, entry := range snap.Positions {
		ps := entry.Position
		pos := &UserPosition{
			UserID:       entry.UserID,
			PoolID:       entry.PoolID,
			BinPositions: make(map[int32]BinPosition, len(ps.BinPositions)),
			CreatedAt:    ps.CreatedAt,
			LastUpdated:  ps.LastUpdated,
		}
		for _, bp := range ps.BinPositions {
			pos.BinPositions[bp.BinID] = bp
		}
		pos.RecomputeTotals()
		entity := fmt.Sprintf("position %s/%s", entry.UserID, entry.PoolID)
		if err := ValidatePosition(pos).Err(entity); err != nil {
			return err
		}
		byPool, ok := positions[entry.UserID]
		if !ok {
			byPool = make(map[string]*UserPosition)
			positions[entry.UserID] = byPool
		}
		byPool[entry.PoolID] = pos
	}

	txs := make([]Transaction, 0, len(snap.Transactions))
	for _, tx := range snap.Transactions {
		txs = append(txs, tx.Clone())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = snap.Config
	s.pools = pools
	s.positions = positions
	s.transactions = txs
	if s.maxTransactions > 0 && len(s.transactions) > s.maxTransactions {
		overflow := len(s.transactions) - s.maxTransactions
		s.transactions = append([]Transaction(nil), s.transactions[overflow:]...)
	}
	return nil
}

func parseInt(s string) (sdkmath.Int, error) {
	if s == "" {
		return sdkmath.ZeroInt(), nil
	}
	v, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}

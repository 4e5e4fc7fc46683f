package state

import (
	"fmt"
	"sort"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"

	binmath "binsim/internal/math"
)

// Store is the in-memory system of record for pools, positions, and the
// transaction log. A single RWMutex guards all maps; mutations validate
// a fully-built replacement entity and then swap it in, so readers never
// observe a partially-applied update. Every read returns a deep clone.
type Store struct {
	mu sync.RWMutex

	pools     map[string]*PoolState
	positions map[string]map[string]*UserPosition // userID -> poolID -> position

	transactions    []Transaction
	maxTransactions int

	config EngineConfig
}

// NewStore creates an empty store. maxTransactions caps the transaction
// log (oldest entries are trimmed); zero or negative means unbounded.
func NewStore(maxTransactions int) *Store {
	return &Store{
		pools:           make(map[string]*PoolState),
		positions:       make(map[string]map[string]*UserPosition),
		maxTransactions: maxTransactions,
	}
}

// SetConfig records the engine configuration this store runs under.
// It is exported with every snapshot.
func (s *Store) SetConfig(cfg EngineConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
}

// Config returns the recorded engine configuration.
func (s *Store) Config() EngineConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// GetPool returns a deep clone of the pool, or false when absent.
func (s *Store) GetPool(poolID string) (*PoolState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pool, ok := s.pools[poolID]
	if !ok {
		return nil, false
	}
	return pool.Clone(), true
}

// HasPool reports whether the pool exists.
func (s *Store) HasPool(poolID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pools[poolID]
	return ok
}

// ListPools returns clones of all pools, ordered by pool id.
func (s *Store) ListPools() []*PoolState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*PoolState, 0, len(s.pools))
	for _, pool := range s.pools {
		out = append(out, pool.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PoolID < out[j].PoolID })
	return out
}

// PoolCount returns the number of pools.
func (s *Store) PoolCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pools)
}

// PositionCount returns the number of user positions across all pools.
func (s *Store) PositionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, byPool := range s.positions {
		n += len(byPool)
	}
	return n
}

// PutPool validates the pool and commits a clone of it. Aggregates are
// re-derived before validation so callers cannot commit stale totals.
func (s *Store) PutPool(pool *PoolState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putPoolLocked(pool)
}

func (s *Store) putPoolLocked(pool *PoolState) error {
	if pool == nil {
		return fmt.Errorf("pool is nil")
	}
	next := pool.Clone()
	next.RecomputeTotals()
	if err := ValidatePool(next).Err("pool " + next.PoolID); err != nil {
		return err
	}
	s.pools[next.PoolID] = next
	return nil
}

// RemovePool deletes a pool, reporting whether it existed.
func (s *Store) RemovePool(poolID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pools[poolID]
	delete(s.pools, poolID)
	return ok
}

// GetPosition returns a clone of the user's position in the pool.
func (s *Store) GetPosition(userID, poolID string) (*UserPosition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.positions[userID][poolID]
	if !ok {
		return nil, false
	}
	return pos.Clone(), true
}

// PutPosition validates the position and commits a clone of it.
func (s *Store) PutPosition(pos *UserPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putPositionLocked(pos)
}

func (s *Store) putPositionLocked(pos *UserPosition) error {
	if pos == nil {
		return fmt.Errorf("position is nil")
	}
	next := pos.Clone()
	next.RecomputeTotals()
	entity := fmt.Sprintf("position %s/%s", next.UserID, next.PoolID)
	if err := ValidatePosition(next).Err(entity); err != nil {
		return err
	}
	byPool, ok := s.positions[next.UserID]
	if !ok {
		byPool = make(map[string]*UserPosition)
		s.positions[next.UserID] = byPool
	}
	byPool[next.PoolID] = next
	return nil
}

// RemovePosition deletes a user's position in a pool.
func (s *Store) RemovePosition(userID, poolID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	byPool, ok := s.positions[userID]
	if !ok {
		return false
	}
	if _, ok := byPool[poolID]; !ok {
		return false
	}
	delete(byPool, poolID)
	if len(byPool) == 0 {
		delete(s.positions, userID)
	}
	return true
}

// PositionsForUser returns clones of all positions held by the user,
// ordered by pool id.
func (s *Store) PositionsForUser(userID string) []*UserPosition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byPool := s.positions[userID]
	out := make([]*UserPosition, 0, len(byPool))
	for _, pos := range byPool {
		out = append(out, pos.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PoolID < out[j].PoolID })
	return out
}

// PositionsForPool returns clones of every position in the pool,
// ordered by user id.
func (s *Store) PositionsForPool(poolID string) []*UserPosition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*UserPosition
	for _, byPool := range s.positions {
		if pos, ok := byPool[poolID]; ok {
			out = append(out, pos.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Commit atomically applies a pool update together with any number of
// position updates. Positions with no remaining bin positions are
// removed instead of stored. Everything is validated before anything is
// swapped in, so a failure leaves the store untouched.
func (s *Store) Commit(pool *PoolState, positions ...*UserPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var nextPool *PoolState
	if pool != nil {
		nextPool = pool.Clone()
		nextPool.RecomputeTotals()
		if err := ValidatePool(nextPool).Err("pool " + nextPool.PoolID); err != nil {
			return err
		}
	}

	nextPositions := make([]*UserPosition, 0, len(positions))
	for _, pos := range positions {
		if pos == nil {
			continue
		}
		next := pos.Clone()
		next.RecomputeTotals()
		if len(next.BinPositions) > 0 {
			entity := fmt.Sprintf("position %s/%s", next.UserID, next.PoolID)
			if err := ValidatePosition(next).Err(entity); err != nil {
				return err
			}
		}
		nextPositions = append(nextPositions, next)
	}

	if nextPool != nil {
		s.pools[nextPool.PoolID] = nextPool
	}
	for _, next := range nextPositions {
		if len(next.BinPositions) == 0 {
			byPool := s.positions[next.UserID]
			delete(byPool, next.PoolID)
			if len(byPool) == 0 {
				delete(s.positions, next.UserID)
			}
			continue
		}
		byPool, ok := s.positions[next.UserID]
		if !ok {
			byPool = make(map[string]*UserPosition)
			s.positions[next.UserID] = byPool
		}
		byPool[next.PoolID] = next
	}
	return nil
}

// AppendTransaction appends to the log, trimming the oldest entries
// past the configured cap.
func (s *Store) AppendTransaction(tx Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, tx.Clone())
	if s.maxTransactions > 0 && len(s.transactions) > s.maxTransactions {
		overflow := len(s.transactions) - s.maxTransactions
		s.transactions = append([]Transaction(nil), s.transactions[overflow:]...)
	}
}

// TransactionByID returns a clone of the transaction with the given id.
func (s *Store) TransactionByID(id string) (Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.transactions {
		if s.transactions[i].ID == id {
			return s.transactions[i].Clone(), true
		}
	}
	return Transaction{}, false
}

// Transactions returns up to limit entries, newest first. A zero or
// negative limit returns everything.
func (s *Store) Transactions(limit int) []Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterTransactionsLocked(limit, func(Transaction) bool { return true })
}

// TransactionsForUser returns the user's entries, newest first.
func (s *Store) TransactionsForUser(userID string, limit int) []Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterTransactionsLocked(limit, func(tx Transaction) bool {
		return tx.UserID == userID
	})
}

// TransactionsForPool returns the pool's entries, newest first.
func (s *Store) TransactionsForPool(poolID string, limit int) []Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterTransactionsLocked(limit, func(tx Transaction) bool {
		return tx.PoolID == poolID
	})
}

func (s *Store) filterTransactionsLocked(limit int, keep func(Transaction) bool) []Transaction {
	var out []Transaction
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if !keep(s.transactions[i]) {
			continue
		}
		out = append(out, s.transactions[i].Clone())
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// LoadScenario builds a pool (and optional seeded positions) from a
// scenario definition, validates, and commits it. Bin prices are
// derived from the bin step; position underlying amounts are the
// share-proportional slice of each bin's reserves.
func (s *Store) LoadScenario(sc PoolScenario) error {
	if sc.PoolID == "" {
		return fmt.Errorf("scenario %q: pool id is empty", sc.Name)
	}
	now := time.Now()
	pool := &PoolState{
		PoolID:       sc.PoolID,
		Metadata:     sc.Metadata,
		Bins:         make(map[int32]BinState, len(sc.Bins)),
		ActiveBinID:  sc.ActiveBinID,
		ProtocolFees: ZeroAmounts(),
		Volume24h:    sdkmath.ZeroInt(),
		CreatedAt:    now,
		LastUpdated:  now,
	}
	for _, sb := range sc.Bins {
		if _, dup := pool.Bins[sb.BinID]; dup {
			return fmt.Errorf("scenario %q: duplicate bin %d", sc.Name, sb.BinID)
		}
		pool.Bins[sb.BinID] = BinState{
			BinID:         sb.BinID,
			Reserves:      sb.Reserves,
			TotalLPShares: sb.LPShares,
			Price:         binmath.PriceOfBin(sb.BinID, sc.Metadata.BinStepBps),
			IsActive:      sb.BinID == sc.ActiveBinID,
		}
	}
	if _, ok := pool.Bins[sc.ActiveBinID]; !ok {
		pool.Bins[sc.ActiveBinID] = BinState{
			BinID:         sc.ActiveBinID,
			Reserves:      ZeroAmounts(),
			TotalLPShares: sdkmath.ZeroInt(),
			Price:         binmath.PriceOfBin(sc.ActiveBinID, sc.Metadata.BinStepBps),
			IsActive:      true,
		}
	}
	pool.RecomputeTotals()

	positions := make([]*UserPosition, 0, len(sc.Positions))
	for _, sp := range sc.Positions {
		pos := &UserPosition{
			UserID:       sp.UserID,
			PoolID:       sc.PoolID,
			BinPositions: make(map[int32]BinPosition, len(sp.Shares)),
			CreatedAt:    now,
			LastUpdated:  now,
		}
		for _, share := range sp.Shares {
			bin, ok := pool.Bins[share.BinID]
			if !ok {
				return fmt.Errorf("scenario %q: position for %s references missing bin %d",
					sc.Name, sp.UserID, share.BinID)
			}
			if share.LPShares.GT(bin.TotalLPShares) {
				return fmt.Errorf("scenario %q: position for %s exceeds bin %d shares",
					sc.Name, sp.UserID, share.BinID)
			}
			underlying := ZeroAmounts()
			if bin.TotalLPShares.IsPositive() {
				underlying = Amounts{
					A: bin.Reserves.A.Mul(share.LPShares).Quo(bin.TotalLPShares),
					B: bin.Reserves.B.Mul(share.LPShares).Quo(bin.TotalLPShares),
				}
			}
			pos.BinPositions[share.BinID] = BinPosition{
				BinID:      share.BinID,
				LPShares:   share.LPShares,
				Underlying: underlying,
				FeesEarned: ZeroAmounts(),
				EntryPrice: bin.Price,
				EntryTime:  now,
			}
		}
		pos.RecomputeTotals()
		positions = append(positions, pos)
	}

	return s.Commit(pool, positions...)
}

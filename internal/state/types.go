package state

import (
	"time"

	sdkmath "cosmossdk.io/math"

	binmath "binsim/internal/math"
)

// Amounts is a pair of token amounts, one per pool asset.
type Amounts struct {
	A sdkmath.Int `json:"a"`
	B sdkmath.Int `json:"b"`
}

func ZeroAmounts() Amounts {
	return Amounts{A: sdkmath.ZeroInt(), B: sdkmath.ZeroInt()}
}

func NewAmounts(a, b sdkmath.Int) Amounts {
	return Amounts{A: a, B: b}
}

func (a Amounts) Add(o Amounts) Amounts {
	return Amounts{A: a.A.Add(o.A), B: a.B.Add(o.B)}
}

func (a Amounts) Sub(o Amounts) Amounts {
	return Amounts{A: a.A.Sub(o.A), B: a.B.Sub(o.B)}
}

func (a Amounts) IsZero() bool {
	return a.A.IsZero() && a.B.IsZero()
}

func (a Amounts) IsNegative() bool {
	return a.A.IsNegative() || a.B.IsNegative()
}

func (a Amounts) Equal(o Amounts) bool {
	return a.A.Equal(o.A) && a.B.Equal(o.B)
}

// PoolMetadata carries the immutable pool parameters.
// The swap fee is BinStepBps * BaseFactor / 10000 basis points;
// ProtocolShareBps is the protocol's cut of that fee.
type PoolMetadata struct {
	AssetA           string `json:"asset_a"`
	AssetB           string `json:"asset_b"`
	BinStepBps       uint16 `json:"bin_step_bps"`
	BaseFactor       uint16 `json:"base_factor"`
	ProtocolShareBps uint16 `json:"protocol_share_bps"`
}

// SwapFeeBps returns the total swap fee in basis points.
func (m PoolMetadata) SwapFeeBps() uint32 {
	return uint32(m.BinStepBps) * uint32(m.BaseFactor) / binmath.BasisPointMax
}

// BinState is one discrete price bin inside a pool.
type BinState struct {
	BinID         int32       `json:"bin_id"`
	Reserves      Amounts     `json:"reserves"`
	TotalLPShares sdkmath.Int `json:"total_lp_shares"`
	Price         sdkmath.Int `json:"price"`
	IsActive      bool        `json:"is_active"`
	LastSwapAt    *time.Time  `json:"last_swap_at,omitempty"`
}

func (b BinState) Clone() BinState {
	out := b
	if b.LastSwapAt != nil {
		ts := *b.LastSwapAt
		out.LastSwapAt = &ts
	}
	return out
}

// PoolState is the full state of one liquidity pool.
type PoolState struct {
	PoolID        string             `json:"pool_id"`
	Metadata      PoolMetadata       `json:"metadata"`
	Bins          map[int32]BinState `json:"bins"`
	ActiveBinID   int32              `json:"active_bin_id"`
	TotalReserves Amounts            `json:"total_reserves"`
	ProtocolFees  Amounts            `json:"protocol_fees"`
	Volume24h     sdkmath.Int        `json:"volume_24h"`
	CreatedAt     time.Time          `json:"created_at"`
	LastUpdated   time.Time          `json:"last_updated"`
}

func (p *PoolState) Clone() *PoolState {
	out := *p
	out.Bins = make(map[int32]BinState, len(p.Bins))
	for id, bin := range p.Bins {
		out.Bins[id] = bin.Clone()
	}
	return &out
}

// RecomputeTotals re-derives TotalReserves from the bin map.
func (p *PoolState) RecomputeTotals() {
	total := ZeroAmounts()
	for _, bin := range p.Bins {
		total = total.Add(bin.Reserves)
	}
	p.TotalReserves = total
}

// BinPosition is a user's stake in a single bin.
type BinPosition struct {
	BinID      int32       `json:"bin_id"`
	LPShares   sdkmath.Int `json:"lp_shares"`
	Underlying Amounts     `json:"underlying"`
	FeesEarned Amounts     `json:"fees_earned"`
	EntryPrice sdkmath.Int `json:"entry_price"`
	EntryTime  time.Time   `json:"entry_time"`
}

// UserPosition aggregates a user's bin positions in one pool.
type UserPosition struct {
	UserID          string                `json:"user_id"`
	PoolID          string                `json:"pool_id"`
	BinPositions    map[int32]BinPosition `json:"bin_positions"`
	TotalShares     sdkmath.Int           `json:"total_shares"`
	TotalUnderlying Amounts               `json:"total_underlying"`
	TotalFees       Amounts               `json:"total_fees"`
	CreatedAt       time.Time             `json:"created_at"`
	LastUpdated     time.Time             `json:"last_updated"`
}

func (u *UserPosition) Clone() *UserPosition {
	out := *u
	out.BinPositions = make(map[int32]BinPosition, len(u.BinPositions))
	for id, bp := range u.BinPositions {
		out.BinPositions[id] = bp
	}
	return &out
}

// RecomputeTotals re-derives the aggregate fields from the bin positions.
func (u *UserPosition) RecomputeTotals() {
	shares := sdkmath.ZeroInt()
	underlying := ZeroAmounts()
	fees := ZeroAmounts()
	for _, bp := range u.BinPositions {
		shares = shares.Add(bp.LPShares)
		underlying = underlying.Add(bp.Underlying)
		fees = fees.Add(bp.FeesEarned)
	}
	u.TotalShares = shares
	u.TotalUnderlying = underlying
	u.TotalFees = fees
}

// TxKind identifies the operation a transaction record describes.
type TxKind string

const (
	TxCreatePool      TxKind = "createPool"
	TxAddLiquidity    TxKind = "addLiquidity"
	TxRemoveLiquidity TxKind = "removeLiquidity"
	TxSwap            TxKind = "swap"
)

// Event is a structured effect emitted by a successful operation.
type Event struct {
	Type string            `json:"type"`
	Data map[string]string `json:"data,omitempty"`
}

// TxResult is the simulated execution outcome of a transaction.
type TxResult struct {
	Success     bool        `json:"success"`
	GasUsed     uint64      `json:"gas_used"`
	GasPrice    sdkmath.Int `json:"gas_price"`
	BlockNumber uint64      `json:"block_number"`
	Events      []Event     `json:"events,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// Transaction is one entry in the append-only transaction log.
type Transaction struct {
	ID        string            `json:"id"`
	Kind      TxKind            `json:"kind"`
	UserID    string            `json:"user_id"`
	PoolID    string            `json:"pool_id,omitempty"`
	Params    map[string]string `json:"params,omitempty"`
	Result    TxResult          `json:"result"`
	Timestamp time.Time         `json:"timestamp"`
}

func (t Transaction) Clone() Transaction {
	out := t
	if t.Params != nil {
		out.Params = make(map[string]string, len(t.Params))
		for k, v := range t.Params {
			out.Params[k] = v
		}
	}
	if t.Result.Events != nil {
		out.Result.Events = make([]Event, len(t.Result.Events))
		for i, ev := range t.Result.Events {
			out.Result.Events[i] = ev
			if ev.Data != nil {
				data := make(map[string]string, len(ev.Data))
				for k, v := range ev.Data {
					data[k] = v
				}
				out.Result.Events[i].Data = data
			}
		}
	}
	return out
}

// ScenarioBin seeds one bin when loading a scenario.
type ScenarioBin struct {
	BinID    int32       `json:"bin_id"`
	Reserves Amounts     `json:"reserves"`
	LPShares sdkmath.Int `json:"lp_shares"`
}

// ScenarioShare assigns a slice of a bin's shares to a scenario user.
type ScenarioShare struct {
	BinID    int32       `json:"bin_id"`
	LPShares sdkmath.Int `json:"lp_shares"`
}

// ScenarioPosition seeds one user's position when loading a scenario.
type ScenarioPosition struct {
	UserID string          `json:"user_id"`
	Shares []ScenarioShare `json:"shares"`
}

// PoolScenario is a named, reusable pool setup.
type PoolScenario struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	PoolID      string             `json:"pool_id"`
	Metadata    PoolMetadata       `json:"metadata"`
	ActiveBinID int32              `json:"active_bin_id"`
	Bins        []ScenarioBin      `json:"bins"`
	Positions   []ScenarioPosition `json:"positions,omitempty"`
}

package math

import (
	"testing"

	sdkmath "cosmossdk.io/math"
)

func TestPriceOfBinZeroIsOne(t *testing.T) {
	for _, step := range []uint16{1, 10, 25, 100} {
		if got := PriceOfBin(0, step); !got.Equal(Scale) {
			t.Errorf("step %d: price of bin 0 = %s, want %s", step, got, Scale)
		}
	}
}

func TestPriceOfBinOneStep(t *testing.T) {
	// step 25 bps: price(1) = 1.0025 * 1e18 exactly.
	want := sdkmath.NewIntWithDecimal(10025, 14)
	if got := PriceOfBin(1, 25); !got.Equal(want) {
		t.Errorf("price of bin 1 = %s, want %s", got, want)
	}
}

func TestPriceOfBinMonotonic(t *testing.T) {
	prev := PriceOfBin(-50, 25)
	for id := int32(-49); id <= 50; id++ {
		p := PriceOfBin(id, 25)
		if !p.GT(prev) {
			t.Fatalf("price not strictly increasing at bin %d: %s <= %s", id, p, prev)
		}
		prev = p
	}
}

func TestPriceOfBinReciprocal(t *testing.T) {
	for _, id := range []int32{1, 7, 42, 300} {
		pos := PriceOfBin(id, 25)
		neg := PriceOfBin(-id, 25)

		// pos * neg should be Scale up to rounding of the reciprocal.
		product := pos.Mul(neg).Quo(Scale)
		diff := product.Sub(Scale)
		if diff.IsNegative() {
			diff = diff.Neg()
		}
		// Tolerate a relative error of 1e-9.
		tol := Scale.QuoRaw(1_000_000_000)
		if diff.GT(tol) {
			t.Errorf("bin %d: price(n)*price(-n) = %s, want ~%s", id, product, Scale)
		}
	}
}

func TestPriceOfBinPanicsOnZeroStep(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for zero bin step")
		}
	}()
	PriceOfBin(1, 0)
}

func TestBinOfPriceRoundTrip(t *testing.T) {
	steps := []uint16{1, 10, 25, 100}
	ids := []int32{-5000, -500, -42, -1, 0, 1, 42, 500, 5000}

	for _, step := range steps {
		for _, id := range ids {
			price := PriceOfBin(id, step)
			if got := BinOfPrice(price, step); got != id {
				t.Errorf("step %d: BinOfPrice(PriceOfBin(%d)) = %d", step, id, got)
			}
		}
	}
}

func TestBinOfPriceClosest(t *testing.T) {
	// A price 10% of the way from bin 3 to bin 4 resolves to bin 3.
	p3 := PriceOfBin(3, 25)
	p4 := PriceOfBin(4, 25)
	price := p3.Add(p4.Sub(p3).QuoRaw(10))
	if got := BinOfPrice(price, 25); got != 3 {
		t.Errorf("BinOfPrice near bin 3 = %d, want 3", got)
	}

	// 90% of the way resolves to bin 4.
	price = p3.Add(p4.Sub(p3).MulRaw(9).QuoRaw(10))
	if got := BinOfPrice(price, 25); got != 4 {
		t.Errorf("BinOfPrice near bin 4 = %d, want 4", got)
	}
}

func TestBinOfPriceTieResolvesLower(t *testing.T) {
	// Equidistant from bins 0 and 1: the lower id wins.
	p0 := PriceOfBin(0, 100)
	p1 := PriceOfBin(1, 100)
	mid := p0.Add(p1).QuoRaw(2)

	d0 := mid.Sub(p0)
	d1 := p1.Sub(mid)
	if !d0.Equal(d1) {
		t.Skipf("midpoint not exactly equidistant (d0=%s d1=%s)", d0, d1)
	}
	if got := BinOfPrice(mid, 100); got != 0 {
		t.Errorf("tie resolved to bin %d, want 0", got)
	}
}

func TestIntSqrt(t *testing.T) {
	cases := []struct {
		in   int64
		want int64
	}{
		{0, 0},
		{1, 1},
		{4, 2},
		{15, 3},
		{16, 4},
		{1_000_000, 1000},
	}
	for _, c := range cases {
		if got := IntSqrt(sdkmath.NewInt(c.in)); !got.Equal(sdkmath.NewInt(c.want)) {
			t.Errorf("IntSqrt(%d) = %s, want %d", c.in, got, c.want)
		}
	}

	// Large value: sqrt(4e36) = 2e18.
	big := sdkmath.NewIntWithDecimal(4, 36)
	want := sdkmath.NewIntWithDecimal(2, 18)
	if got := IntSqrt(big); !got.Equal(want) {
		t.Errorf("IntSqrt(4e36) = %s, want %s", got, want)
	}
}

func TestRelativeDiff(t *testing.T) {
	a := sdkmath.NewInt(110)
	b := sdkmath.NewInt(100)
	want := Scale.QuoRaw(10) // 10%
	if got := RelativeDiff(a, b); !got.Equal(want) {
		t.Errorf("RelativeDiff(110, 100) = %s, want %s", got, want)
	}
	if got := RelativeDiff(b, a); got.IsZero() {
		t.Error("RelativeDiff should be symmetric in sign only, got zero")
	}
	if got := RelativeDiff(a, sdkmath.ZeroInt()); !got.IsZero() {
		t.Errorf("RelativeDiff with zero base = %s, want 0", got)
	}
}

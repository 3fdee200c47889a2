package allocation

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func targets(n int) []Target {
	out := make([]Target, n)
	for i := range out {
		out[i] = Target{ID: fmt.Sprintf("order-%d", i+1)}
	}
	return out
}

func assertAmounts(t *testing.T, got []Target, want ...string) {
	t.Helper()
	require.Len(t, got, len(want))
	for i, w := range want {
		assert.Truef(t, got[i].Amount.Equal(d(w)), "target %d: got %s, want %s", i, got[i].Amount, w)
	}
}

func TestEqual_ThreeWaySplitOfThousand(t *testing.T) {
	got := Equal(d("1000"), targets(3))

	assertAmounts(t, got, "333.33", "333.33", "333.34")
	assert.True(t, Sum(got).Equal(d("1000")))
}

func TestEqual_SumsExactlyToTotal(t *testing.T) {
	totals := []string{"1000", "999.99", "0.05", "12345.67", "100", "7"}
	for _, total := range totals {
		for n := 1; n <= 9; n++ {
			got := Equal(d(total), targets(n))
			require.Len(t, got, n)
			assert.Truef(t, Sum(got).Equal(d(total)), "total=%s n=%d sum=%s", total, n, Sum(got))
		}
	}
}

func TestEqual_EmptyInput(t *testing.T) {
	assert.Empty(t, Equal(d("500"), nil))
}

func TestEqual_DoesNotMutateInput(t *testing.T) {
	in := targets(2)
	in[0].Amount = d("42")

	_ = Equal(d("100"), in)

	assert.True(t, in[0].Amount.Equal(d("42")))
}

func TestByWeight_SixtyForty(t *testing.T) {
	in := []Target{
		{ID: "a", Weight: dp("60")},
		{ID: "b", Weight: dp("40")},
	}

	got := ByWeight(d("1000"), in, decimal.Zero)

	assertAmounts(t, got, "600", "400")
	assert.True(t, got[0].Percentage.Equal(d("60")))
	assert.True(t, got[1].Percentage.Equal(d("40")))
}

func TestByWeight_FallbackWeightForUnknownHeadcount(t *testing.T) {
	in := []Target{
		{ID: "a", Weight: dp("100")},
		{ID: "b"},
		{ID: "c", Weight: dp("0")},
	}

	got := ByWeight(d("900"), in, decimal.Zero)

	assertAmounts(t, got, "300", "300", "300")
	assert.True(t, got[1].Weight.Equal(DefaultFallbackWeight))
}

func TestByWeight_ConfigurableFallback(t *testing.T) {
	in := []Target{
		{ID: "a", Weight: dp("150")},
		{ID: "b"},
	}

	got := ByWeight(d("1000"), in, d("50"))

	assertAmounts(t, got, "750", "250")
}

func TestByWeight_ReconcilesWithinTolerance(t *testing.T) {
	in := []Target{
		{ID: "a", Weight: dp("7")},
		{ID: "b", Weight: dp("13")},
		{ID: "c", Weight: dp("29")},
	}

	got := ByWeight(d("1000"), in, decimal.Zero)

	assert.True(t, Balanced(ReconcileDelta(d("1000"), got)))
	assert.True(t, Sum(got).Equal(d("1000")))
}

func TestByWeight_MonotonicInWeight(t *testing.T) {
	prev := decimal.Zero
	for w := 1; w <= 200; w += 7 {
		in := []Target{
			{ID: "a", Weight: dp("50")},
			{ID: "b", Weight: dp(fmt.Sprint(w))},
			{ID: "c", Weight: dp("30")},
		}
		got := ByWeight(d("1234.56"), in, decimal.Zero)
		assert.True(t, got[1].Amount.GreaterThanOrEqual(prev), "weight %d decreased share", w)
		prev = got[1].Amount
	}
}

func TestByPercentage_PreservesExistingAndDefaultsNew(t *testing.T) {
	in := []Target{
		{ID: "a", Percentage: dp("50")},
		{ID: "b"},
		{ID: "c"},
		{ID: "d"},
	}

	got := ByPercentage(d("1000"), in, map[string]decimal.Decimal{"b": d("30")})

	assert.True(t, got[0].Percentage.Equal(d("50")))
	assert.True(t, got[1].Percentage.Equal(d("30")))
	assert.True(t, got[2].Percentage.Equal(d("25")))
	assertAmounts(t, got, "500", "300", "250", "250")

	// over-allocated: no renormalisation, the caller sees the delta
	assert.True(t, PercentageTotal(got).Equal(d("130")))
	assert.True(t, ReconcileDelta(d("1000"), got).Equal(d("-300")))
}

func TestManual_KeepsPriorAmounts(t *testing.T) {
	got := Manual(targets(3), map[string]decimal.Decimal{
		"order-1": d("250.50"),
		"order-3": d("100"),
	})

	assertAmounts(t, got, "250.50", "0", "100")
	assert.True(t, ReconcileDelta(d("500"), got).Equal(d("149.5")))
}

func TestReconcileDelta_Sign(t *testing.T) {
	balanced := []Target{{Amount: d("600")}, {Amount: d("400")}}
	under := []Target{{Amount: d("600")}, {Amount: d("300")}}
	over := []Target{{Amount: d("600")}, {Amount: d("500")}}

	assert.True(t, ReconcileDelta(d("1000"), balanced).IsZero())
	assert.True(t, ReconcileDelta(d("1000"), under).IsPositive())
	assert.True(t, ReconcileDelta(d("1000"), over).IsNegative())

	assert.True(t, Balanced(d("0.01")))
	assert.True(t, Balanced(d("-0.01")))
	assert.False(t, Balanced(d("0.02")))
}

func TestAllocate_SwitchingPolicyRecomputes(t *testing.T) {
	manual := Allocate(PolicyManual, d("1000"), targets(2), Options{
		PriorAmounts: map[string]decimal.Decimal{"order-1": d("900")},
	})
	assertAmounts(t, manual, "900", "0")

	equal := Allocate(PolicyEqual, d("1000"), manual, Options{})
	assertAmounts(t, equal, "500", "500")
}

func TestValidateBatch(t *testing.T) {
	assert.ErrorIs(t, ValidateBatch(nil), ErrTooFewTargets)
	assert.ErrorIs(t, ValidateBatch(targets(1)), ErrTooFewTargets)
	assert.NoError(t, ValidateBatch(targets(2)))
}

func TestParsePolicy(t *testing.T) {
	p, ok := ParsePolicy("Plates")
	assert.True(t, ok)
	assert.Equal(t, PolicyWeight, p)

	_, ok = ParsePolicy("lottery")
	assert.False(t, ok)
}

func TestSummarize(t *testing.T) {
	got := Summarize(PolicyEqual, d("1000"), Equal(d("1000"), targets(3)))

	assert.True(t, got.Balanced)
	assert.True(t, got.Delta.IsZero())
}

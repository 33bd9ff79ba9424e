package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFromCents(t *testing.T) {
	require.Equal(t, "45.00", FromCents(4500).StringFixed(2))
	require.Equal(t, "0.01", FromCents(1).StringFixed(2))
	require.Equal(t, "0.00", FromCents(0).StringFixed(2))
}

func TestToCents(t *testing.T) {
	require.EqualValues(t, 4500, ToCents(decimal.RequireFromString("45.00")))
	require.EqualValues(t, 1, ToCents(decimal.RequireFromString("0.01")))
}

func TestEqual(t *testing.T) {
	// 数值相等即相等，标度不同不影响比较
	require.True(t, Equal(decimal.RequireFromString("45"), decimal.RequireFromString("45.00")))
	require.False(t, Equal(decimal.RequireFromString("45.00"), decimal.RequireFromString("50.00")))
}

func TestRoundTrip(t *testing.T) {
	for _, cents := range []int64{0, 1, 99, 100, 4500, 123456789} {
		require.Equal(t, cents, ToCents(FromCents(cents)))
	}
}

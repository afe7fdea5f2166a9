package shipping_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/tradepost/pkg/shipping"
)

func rate(id, amount, token string) shipping.Rate {
	return shipping.Rate{
		ID:                id,
		Amount:            decimal.RequireFromString(amount),
		Currency:          "USD",
		ServiceLevelToken: token,
	}
}

func TestSelectRate_Cheapest(t *testing.T) {
	orders := [][]shipping.Rate{
		{rate("a", "15.00", "x"), rate("b", "9.99", "y"), rate("c", "12.00", "z")},
		{rate("b", "9.99", "y"), rate("a", "15.00", "x"), rate("c", "12.00", "z")},
		{rate("c", "12.00", "z"), rate("a", "15.00", "x"), rate("b", "9.99", "y")},
	}

	for _, rates := range orders {
		got, ok := shipping.SelectRate(rates, "")
		require.True(t, ok)
		assert.Equal(t, "b", got.ID)
	}
}

func TestSelectRate_TieKeepsFirst(t *testing.T) {
	rates := []shipping.Rate{
		rate("first", "7.50", "a"),
		rate("second", "7.5", "b"),
		rate("third", "7.500", "c"),
	}

	got, ok := shipping.SelectRate(rates, "")
	require.True(t, ok)
	assert.Equal(t, "first", got.ID)
}

func TestSelectRate_ComparesNumerically(t *testing.T) {
	// "10.00" sorts before "9.99" as a string.
	rates := []shipping.Rate{rate("ten", "10.00", ""), rate("nine", "9.99", "")}

	got, ok := shipping.SelectRate(rates, "")
	require.True(t, ok)
	assert.Equal(t, "nine", got.ID)
}

func TestSelectRate_Token(t *testing.T) {
	rates := []shipping.Rate{
		rate("ground", "5.00", "usps_ground_advantage"),
		rate("priority", "11.00", "usps_priority"),
		rate("priority-2", "10.00", "usps_priority"),
	}

	got, ok := shipping.SelectRate(rates, "usps_priority")
	require.True(t, ok)
	assert.Equal(t, "priority", got.ID, "first matching token wins even if a later one is cheaper")
}

func TestSelectRate_TokenNoMatch(t *testing.T) {
	rates := []shipping.Rate{rate("ground", "5.00", "usps_ground_advantage")}

	_, ok := shipping.SelectRate(rates, "usps_priority")
	assert.False(t, ok)
}

func TestSelectRate_TokenIsExact(t *testing.T) {
	rates := []shipping.Rate{rate("p", "5.00", "USPS_PRIORITY")}

	_, ok := shipping.SelectRate(rates, "usps_priority")
	assert.False(t, ok)
}

func TestSelectRate_Empty(t *testing.T) {
	_, ok := shipping.SelectRate(nil, "")
	assert.False(t, ok)
}

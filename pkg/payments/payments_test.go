package payments

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToMinorUnits(t *testing.T) {
	cases := map[string]int64{
		"23.50":  2350,
		"0.01":   1,
		"10":     1000,
		"19.999": 2000,
		"3.005":  301,
	}
	for in, want := range cases {
		assert.Equal(t, want, ToMinorUnits(decimal.RequireFromString(in)), in)
	}
}

func TestFromMinorUnits(t *testing.T) {
	assert.True(t, decimal.RequireFromString("23.50").Equal(FromMinorUnits(2350)))
}

func TestNormalizeCurrency(t *testing.T) {
	assert.Equal(t, "usd", NormalizeCurrency(""))
	assert.Equal(t, "eur", NormalizeCurrency(" EUR "))
}

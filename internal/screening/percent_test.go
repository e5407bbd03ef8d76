package screening

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPctOfHigh(t *testing.T) {
	tests := []struct {
		name    string
		current string
		high    string
		want    string
		ok      bool
	}{
		{name: "half of high", current: "50.00", high: "100.00", want: "50", ok: true},
		{name: "at the high", current: "100.00", high: "100.00", want: "100", ok: true},
		{name: "above the high", current: "120.00", high: "100.00", want: "120", ok: true},
		{name: "deep drawdown", current: "12.50", high: "200.00", want: "6.25", ok: true},
		{name: "fractional cents survive", current: "33.3333", high: "100.00", want: "33.3333", ok: true},
		{name: "zero high is undefined", current: "10.00", high: "0", want: "0", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := decimal.RequireFromString(tt.current)
			high := decimal.RequireFromString(tt.high)

			got, ok := PctOfHigh(current, high)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
					"got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPctOfHigh_FullPrecisionAtBoundary(t *testing.T) {
	// A hair above the boundary must not round down into inclusion.
	pct, ok := PctOfHigh(decimal.RequireFromString("50.001"), decimal.RequireFromString("100"))
	assert.True(t, ok)
	assert.True(t, pct.GreaterThan(decimal.NewFromInt(50)))
}

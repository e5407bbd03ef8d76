package screening

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// PctOfHigh computes current / high * 100 at full precision. The
// second return is false when high is zero, in which case the ratio is
// undefined and the caller should drop the ticker.
//
// This is the one algorithmic kernel of the screener, kept free of
// storage concerns so it can be tested exhaustively on its own.
func PctOfHigh(current, high decimal.Decimal) (decimal.Decimal, bool) {
	if high.IsZero() {
		return decimal.Zero, false
	}
	return current.Div(high).Mul(hundred), true
}

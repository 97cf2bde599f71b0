package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"finsync/internal/util"
)

// Tolerance is the system-wide monetary comparison threshold. Every "no
// change" / "match" decision on amounts uses it to absorb rounding noise.
var Tolerance = decimal.RequireFromString("0.01")

var hundred = decimal.NewFromInt(100)

type AdjustedPrice struct {
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// WithinTolerance reports whether two amounts are equal for reconciliation
// purposes.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// DiscountAmount interprets a raw discount cell against a line's pre-discount
// total. A trailing % makes it a percentage of the total; anything else is an
// absolute currency amount after locale cleaning.
func DiscountAmount(unitPrice, quantity decimal.Decimal, discount string) decimal.Decimal {
	raw := strings.TrimSpace(discount)
	if raw == "" {
		return decimal.Zero
	}
	value := util.CleanDecimal(raw)
	if strings.Contains(raw, "%") {
		return unitPrice.Mul(quantity).Mul(value).Div(hundred)
	}
	return value
}

// HasDiscount reports whether a discount is worth processing at all.
// Sub-tolerance discounts are explicitly skipped, not errors.
func HasDiscount(unitPrice, quantity decimal.Decimal, discount string) bool {
	return DiscountAmount(unitPrice, quantity, discount).Abs().GreaterThanOrEqual(Tolerance)
}

// Adjust folds a discount into the unit price so the line total equals the
// pre-discount total minus the discount. The adjusted unit price never goes
// negative; an over-large discount floors the line at zero.
func Adjust(unitPrice, quantity decimal.Decimal, discount string) AdjustedPrice {
	if !HasDiscount(unitPrice, quantity, discount) {
		return AdjustedPrice{UnitPrice: unitPrice, LineTotal: unitPrice.Mul(quantity)}
	}

	discountAmount := DiscountAmount(unitPrice, quantity, discount)
	totalAfter := unitPrice.Mul(quantity).Sub(discountAmount)

	adjusted := unitPrice
	if quantity.IsPositive() {
		adjusted = totalAfter.Div(quantity)
	}
	if adjusted.IsNegative() {
		adjusted = decimal.Zero
	}

	return AdjustedPrice{UnitPrice: adjusted, LineTotal: adjusted.Mul(quantity)}
}

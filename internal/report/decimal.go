package report

import (
	"github.com/cockroachdb/apd/v3"
)

// Decimal is an exact decimal used for utilization percentages.
type Decimal struct {
	value apd.Decimal
}

func decimalContext() *apd.Context {
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Rounding = apd.RoundHalfUp
	return ctx
}

func NewDecimalFromInt64(i int64) Decimal {
	var d apd.Decimal
	d.SetInt64(i)
	return Decimal{value: d}
}

func (d Decimal) String() string {
	return d.value.Text('f')
}

func (d Decimal) Cmp(other Decimal) int {
	return d.value.Cmp(&other.value)
}

// Percent returns part/whole*100. whole must not be zero.
func Percent(part, whole int64) Decimal {
	var result apd.Decimal
	ctx := decimalContext()
	hundred := apd.New(100, 0)
	p := apd.New(part, 0)
	w := apd.New(whole, 0)
	ctx.Mul(&result, p, hundred)
	ctx.Quo(&result, &result, w)
	return Decimal{value: result}
}

// Round returns d rounded half-up to places decimal places.
func (d Decimal) Round(places int32) Decimal {
	var result apd.Decimal
	decimalContext().Quantize(&result, &d.value, -places)
	return Decimal{value: result}
}

package valueobjects

import "fmt"

// DiscountKind describes for how long a discount applies.
type DiscountKind string

const (
	DiscountNone    DiscountKind = "none"
	DiscountOnce    DiscountKind = "once"
	DiscountNMonths DiscountKind = "n_months"
	DiscountForever DiscountKind = "forever"
)

var validDiscountKinds = map[DiscountKind]bool{
	DiscountNone:    true,
	DiscountOnce:    true,
	DiscountNMonths: true,
	DiscountForever: true,
}

func (k DiscountKind) IsValid() bool {
	return validDiscountKinds[k]
}

// Discount is a fixed amount off the base price, in minor units.
type Discount struct {
	amount int64
	kind   DiscountKind
	months int
}

func NoDiscount() Discount {
	return Discount{kind: DiscountNone}
}

func NewDiscount(amount int64, kind DiscountKind, months int) (Discount, error) {
	if !kind.IsValid() {
		return Discount{}, fmt.Errorf("invalid discount kind: %s", kind)
	}
	if amount < 0 {
		return Discount{}, fmt.Errorf("discount amount cannot be negative")
	}
	if kind == DiscountNMonths && months <= 0 {
		return Discount{}, fmt.Errorf("n_months discount requires a positive month count")
	}
	if kind == DiscountNone {
		return NoDiscount(), nil
	}
	return Discount{amount: amount, kind: kind, months: months}, nil
}

func (d Discount) Amount() int64      { return d.amount }
func (d Discount) Kind() DiscountKind { return d.kind }
func (d Discount) Months() int        { return d.months }

// AppliesTo reports whether the discount reduces a charge made after
// monthsElapsed paid months. A once discount only covers the first charge.
func (d Discount) AppliesTo(monthsElapsed int, firstCharge bool) bool {
	switch d.kind {
	case DiscountForever:
		return true
	case DiscountNMonths:
		return monthsElapsed < d.months
	case DiscountOnce:
		return firstCharge
	default:
		return false
	}
}

// Apply returns base minus the discount when it applies, floored at zero.
func (d Discount) Apply(base int64, monthsElapsed int, firstCharge bool) int64 {
	due := base
	if d.AppliesTo(monthsElapsed, firstCharge) {
		due -= d.amount
	}
	if due < 0 {
		return 0
	}
	return due
}

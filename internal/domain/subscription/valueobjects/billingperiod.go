package valueobjects

type BillingPeriod string

const (
	BillingPeriodMonthly BillingPeriod = "monthly"
	BillingPeriodYearly  BillingPeriod = "yearly"
)

func (p BillingPeriod) IsValid() bool {
	return p == BillingPeriodMonthly || p == BillingPeriodYearly
}

// Months is the number of calendar months one period covers.
func (p BillingPeriod) Months() int {
	if p == BillingPeriodYearly {
		return 12
	}
	return 1
}

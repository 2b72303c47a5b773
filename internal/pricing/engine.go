// Package pricing computes the locked-in amounts attached to a booking.
package pricing

import "math"

const (
	// MinMonths is the shortest rentable stay.
	MinMonths = 1
	// MaxMonths is the longest stay accepted by the server regardless of client input.
	MaxMonths = 24

	// ServiceFeePercent is the platform fee applied on top of the subtotal.
	ServiceFeePercent = 5
	// DepositPercent is the share of the subtotal due when the booking is made.
	DepositPercent = 30

	// MaxMonthlyRate is the highest rate for which every quote amount fits in an int64.
	MaxMonthlyRate = math.MaxInt64 / (MaxMonths * 100)
)

// Quote is the full price breakdown for a stay. All amounts are whole currency units.
type Quote struct {
	MonthlyRate int64
	Months      int
	Subtotal    int64
	ServiceFee  int64
	Deposit     int64
	Total       int64
	BalanceDue  int64
}

// ClampMonths normalizes a requested duration into [MinMonths, MaxMonths].
func ClampMonths(months int) int {
	if months < MinMonths {
		return MinMonths
	}
	if months > MaxMonths {
		return MaxMonths
	}
	return months
}

// Price computes the quote for a monthly rate and a duration. The duration is
// clamped first; fee and deposit are rounded half-up independently of each other.
func Price(monthlyRate int64, months int) Quote {
	months = ClampMonths(months)
	subtotal := monthlyRate * int64(months)
	fee := percentOf(subtotal, ServiceFeePercent)
	deposit := percentOf(subtotal, DepositPercent)
	total := subtotal + fee

	return Quote{
		MonthlyRate: monthlyRate,
		Months:      months,
		Subtotal:    subtotal,
		ServiceFee:  fee,
		Deposit:     deposit,
		Total:       total,
		BalanceDue:  total - deposit,
	}
}

// percentOf returns round-half-up(amount * percent / 100) using integer math.
func percentOf(amount int64, percent int64) int64 {
	scaled := amount * percent
	if scaled >= 0 {
		return (scaled + 50) / 100
	}
	return -((-scaled + 50) / 100)
}

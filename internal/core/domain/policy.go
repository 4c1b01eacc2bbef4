package domain

import "time"

// Circulation policy constants
const (
	// FinePerDay is the fine accrued per overdue day (currency units)
	FinePerDay int64 = 500

	// BlockThreshold is the outstanding-fine total at or above which new
	// loans and renewals are refused and the member may be deactivated
	BlockThreshold int64 = 2000

	// MaxRenewals is the maximum number of renewals per loan
	MaxRenewals = 2

	// MaxReservations is the maximum simultaneous active reservations per member
	MaxReservations = 3

	// PickupWindow is how long a notified reservation stays claimable
	PickupWindow = 48 * time.Hour
)

// Loan durations in days
const (
	YellowLoanDays       = 1
	WhiteLoanDaysTeacher = 15
	WhiteLoanDaysDefault = 5
)

// LoanLimit returns the maximum simultaneous active loans for a role.
func LoanLimit(role Role) int {
	if role == RoleTeacher {
		return 4
	}
	return 2
}

// LoanDays returns the loan duration in days for a role and tag.
// Red-tagged books never circulate; callers must guard for that upstream.
func LoanDays(role Role, tag Tag) int {
	if tag == TagYellow {
		return YellowLoanDays
	}
	if role == RoleTeacher {
		return WhiteLoanDaysTeacher
	}
	return WhiteLoanDaysDefault
}

// DueDate computes the due date for a loan starting at base.
func DueDate(role Role, tag Tag, base time.Time) time.Time {
	return base.AddDate(0, 0, LoanDays(role, tag))
}

// RenewalBase picks the reference date for a renewal: the current due date
// if it still lies in the future, otherwise now. An overdue loan renews
// from today, not from its stale due date.
func RenewalBase(currentDue, now time.Time) time.Time {
	if currentDue.After(now) {
		return currentDue
	}
	return now
}

// DaysOverdue returns the number of whole days a loan is past due at ref,
// or 0 when the loan is not overdue.
func DaysOverdue(due, ref time.Time) int {
	if !ref.After(due) {
		return 0
	}
	return int(ref.Sub(due) / (24 * time.Hour))
}

// FineAmount returns the raw fine for a number of overdue days.
func FineAmount(daysOverdue int) int64 {
	if daysOverdue <= 0 {
		return 0
	}
	return int64(daysOverdue) * FinePerDay
}

// UnpaidAmount credits already-paid installments against a raw fine.
func UnpaidAmount(raw, paid int64) int64 {
	if unpaid := raw - paid; unpaid > 0 {
		return unpaid
	}
	return 0
}

// DueSoon reports whether a due date falls within the next 24 hours.
func DueSoon(due, now time.Time) bool {
	return due.After(now) && !due.After(now.Add(24*time.Hour))
}

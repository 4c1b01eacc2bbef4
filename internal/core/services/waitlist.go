package services

import (
	"sort"

	"unilib-circ/internal/adapters/persistence/models"
	"unilib-circ/internal/core/domain"
)

// OrderWaitlist sorts a book's waitlist into service order:
// already-notified holds first, then teachers, then by reservation date.
// The sort is stable so equal-priority entries keep arrival order.
func OrderWaitlist(list []*models.Reservation) []*models.Reservation {
	ordered := make([]*models.Reservation, len(list))
	copy(ordered, list)

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]

		aNotified := a.Status == models.ReservationStatusNotified
		bNotified := b.Status == models.ReservationStatusNotified
		if aNotified != bNotified {
			return aNotified
		}

		aTeacher := a.User != nil && domain.Role(a.User.Role) == domain.RoleTeacher
		bTeacher := b.User != nil && domain.Role(b.User.Role) == domain.RoleTeacher
		if aTeacher != bTeacher {
			return aTeacher
		}

		return a.ReservationDate.Before(b.ReservationDate)
	})

	return ordered
}

// NextPending returns the highest-priority reservation that has not been
// notified yet, or nil when every waitlist entry already holds an offer.
func NextPending(list []*models.Reservation) *models.Reservation {
	for _, res := range OrderWaitlist(list) {
		if res.Status == models.ReservationStatusPending {
			return res
		}
	}
	return nil
}

package services

import (
	"testing"
	"time"

	"unilib-circ/internal/adapters/persistence/models"
	"unilib-circ/internal/core/domain"

	"github.com/stretchr/testify/assert"
)

func waitlistEntry(id uint, role domain.Role, status string, reserved time.Time) *models.Reservation {
	return &models.Reservation{
		ID:              id,
		UserID:          id,
		Status:          status,
		ReservationDate: reserved,
		User:            &models.User{ID: id, Role: string(role)},
	}
}

func TestOrderWaitlistTeacherBeforeEarlierStudent(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	student := waitlistEntry(1, domain.RoleStudent, models.ReservationStatusPending, base)
	teacher := waitlistEntry(2, domain.RoleTeacher, models.ReservationStatusPending, base.Add(2*time.Hour))

	ordered := OrderWaitlist([]*models.Reservation{student, teacher})

	assert.Equal(t, uint(2), ordered[0].ID, "teacher jumps ahead of earlier student")
	assert.Equal(t, uint(1), ordered[1].ID)
}

func TestOrderWaitlistNotifiedBeforeTeacher(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	notified := waitlistEntry(1, domain.RoleStudent, models.ReservationStatusNotified, base.Add(3*time.Hour))
	teacher := waitlistEntry(2, domain.RoleTeacher, models.ReservationStatusPending, base)

	ordered := OrderWaitlist([]*models.Reservation{teacher, notified})

	assert.Equal(t, uint(1), ordered[0].ID, "an outstanding offer outranks everything")
	assert.Equal(t, uint(2), ordered[1].ID)
}

func TestOrderWaitlistEqualPriorityByDate(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	late := waitlistEntry(1, domain.RoleStudent, models.ReservationStatusPending, base.Add(time.Hour))
	early := waitlistEntry(2, domain.RoleStudent, models.ReservationStatusPending, base)

	ordered := OrderWaitlist([]*models.Reservation{late, early})

	assert.Equal(t, uint(2), ordered[0].ID)
	assert.Equal(t, uint(1), ordered[1].ID)
}

func TestOrderWaitlistDoesNotMutateInput(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	list := []*models.Reservation{
		waitlistEntry(1, domain.RoleStudent, models.ReservationStatusPending, base.Add(time.Hour)),
		waitlistEntry(2, domain.RoleTeacher, models.ReservationStatusPending, base),
	}

	_ = OrderWaitlist(list)

	assert.Equal(t, uint(1), list[0].ID, "input slice keeps its order")
}

func TestNextPendingSkipsNotified(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	notified := waitlistEntry(1, domain.RoleTeacher, models.ReservationStatusNotified, base)
	pending := waitlistEntry(2, domain.RoleStudent, models.ReservationStatusPending, base.Add(time.Hour))

	next := NextPending([]*models.Reservation{notified, pending})

	assert.NotNil(t, next)
	assert.Equal(t, uint(2), next.ID)
}

func TestNextPendingEmptyWhenAllNotified(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	list := []*models.Reservation{
		waitlistEntry(1, domain.RoleStudent, models.ReservationStatusNotified, base),
	}

	assert.Nil(t, NextPending(list))
}

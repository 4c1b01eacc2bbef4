package services

import (
	"context"
	"testing"
	"time"

	"unilib-circ/internal/adapters/persistence/models"
	"unilib-circ/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateReservationDeniesRedTag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "red_reserver", domain.RoleStudent)
	book := env.createBook(t, "Archive Item", domain.TagRed, 1)

	_, err := env.reservations.Create(ctx, user.ID, book.ID)
	assert.ErrorIs(t, err, ErrBookNotCirculating)
}

func TestCreateReservationDeniesWhileHoldingTitle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "holding_reserver", domain.RoleStudent)
	book := env.createBook(t, "Already Mine", domain.TagWhite, 2)

	_, err := env.loans.CreateLoan(ctx, user.ID, book.ID)
	require.NoError(t, err)

	_, err = env.reservations.Create(ctx, user.ID, book.ID)
	assert.ErrorIs(t, err, ErrTitleAlreadyHeld)
}

func TestCreateReservationDeniesDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	holder := env.createUser(t, "dup_holder", domain.RoleStudent)
	user := env.createUser(t, "dup_reserver", domain.RoleStudent)
	book := env.createBook(t, "Twice Wanted", domain.TagWhite, 1)

	_, err := env.loans.CreateLoan(ctx, holder.ID, book.ID)
	require.NoError(t, err)

	_, err = env.reservations.Create(ctx, user.ID, book.ID)
	require.NoError(t, err)

	_, err = env.reservations.Create(ctx, user.ID, book.ID)
	assert.ErrorIs(t, err, ErrAlreadyReserved)
}

func TestCreateReservationDeniesAtLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	holder := env.createUser(t, "limit_holder", domain.RoleTeacher)
	user := env.createUser(t, "limit_reserver", domain.RoleStudent)

	titles := []string{"Cap One", "Cap Two", "Cap Three", "Cap Four"}
	books := make([]*models.Book, 0, len(titles))
	for _, title := range titles {
		book := env.createBook(t, title, domain.TagWhite, 1)
		_, err := env.loans.CreateLoan(ctx, holder.ID, book.ID)
		require.NoError(t, err)
		books = append(books, book)
	}

	for _, book := range books[:3] {
		_, err := env.reservations.Create(ctx, user.ID, book.ID)
		require.NoError(t, err)
	}

	_, err := env.reservations.Create(ctx, user.ID, books[3].ID)
	assert.ErrorIs(t, err, ErrReservationLimitReached)
}

func TestPromoteTeacherOverEarlierStudent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	env.setClock(start)

	holder := env.createUser(t, "prio_holder", domain.RoleStudent)
	student := env.createUser(t, "prio_student", domain.RoleStudent)
	teacher := env.createUser(t, "prio_teacher", domain.RoleTeacher)
	book := env.createBook(t, "Priority Book", domain.TagWhite, 1)

	loan, err := env.loans.CreateLoan(ctx, holder.ID, book.ID)
	require.NoError(t, err)

	// Student reserves first, teacher an hour later.
	studentRes, err := env.reservations.Create(ctx, student.ID, book.ID)
	require.NoError(t, err)

	env.setClock(start.Add(time.Hour))
	teacherRes, err := env.reservations.Create(ctx, teacher.ID, book.ID)
	require.NoError(t, err)

	env.setClock(start.Add(2 * time.Hour))
	_, err = env.loans.ReturnLoan(ctx, loan.ID)
	require.NoError(t, err)

	promoted, err := env.reservationRepo.GetByID(ctx, teacherRes.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusNotified, promoted.Status)
	require.NotNil(t, promoted.ExpirationDate)
	assert.Equal(t, start.Add(2*time.Hour).Add(domain.PickupWindow), *promoted.ExpirationDate)

	waiting, err := env.reservationRepo.GetByID(ctx, studentRes.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusPending, waiting.Status)
}

func TestPromoteAtMostOnePerCopy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	holder := env.createUser(t, "single_holder", domain.RoleStudent)
	first := env.createUser(t, "first_waiter", domain.RoleStudent)
	second := env.createUser(t, "second_waiter", domain.RoleStudent)
	book := env.createBook(t, "One Copy Book", domain.TagWhite, 1)

	loan, err := env.loans.CreateLoan(ctx, holder.ID, book.ID)
	require.NoError(t, err)

	firstRes, err := env.reservations.Create(ctx, first.ID, book.ID)
	require.NoError(t, err)
	secondRes, err := env.reservations.Create(ctx, second.ID, book.ID)
	require.NoError(t, err)

	_, err = env.loans.ReturnLoan(ctx, loan.ID)
	require.NoError(t, err)

	// One copy came back; only the head of the line holds an offer.
	promoted, err := env.reservationRepo.GetByID(ctx, firstRes.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusNotified, promoted.Status)

	waiting, err := env.reservationRepo.GetByID(ctx, secondRes.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusPending, waiting.Status)

	// Re-running promotion changes nothing while the offer is out.
	res, err := env.reservations.PromoteNextInLine(ctx, book.ID)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestExpireLapsedPromotesNext(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	env.setClock(start)

	holder := env.createUser(t, "lapse_holder", domain.RoleStudent)
	first := env.createUser(t, "lapse_first", domain.RoleStudent)
	second := env.createUser(t, "lapse_second", domain.RoleStudent)
	book := env.createBook(t, "Lapsing Book", domain.TagWhite, 1)

	loan, err := env.loans.CreateLoan(ctx, holder.ID, book.ID)
	require.NoError(t, err)

	firstRes, err := env.reservations.Create(ctx, first.ID, book.ID)
	require.NoError(t, err)
	secondRes, err := env.reservations.Create(ctx, second.ID, book.ID)
	require.NoError(t, err)

	_, err = env.loans.ReturnLoan(ctx, loan.ID)
	require.NoError(t, err)

	// 49 hours later the first offer has lapsed.
	env.setClock(start.Add(49 * time.Hour))

	expired, err := env.reservations.ExpireLapsed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	lapsed, err := env.reservationRepo.GetByID(ctx, firstRes.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusExpired, lapsed.Status)

	promoted, err := env.reservationRepo.GetByID(ctx, secondRes.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusNotified, promoted.Status)
}

func TestCancelReservationByOtherUserFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	holder := env.createUser(t, "cancel_holder", domain.RoleStudent)
	owner := env.createUser(t, "cancel_owner", domain.RoleStudent)
	intruder := env.createUser(t, "cancel_intruder", domain.RoleStudent)
	book := env.createBook(t, "Guarded Reservation", domain.TagWhite, 1)

	_, err := env.loans.CreateLoan(ctx, holder.ID, book.ID)
	require.NoError(t, err)

	res, err := env.reservations.Create(ctx, owner.ID, book.ID)
	require.NoError(t, err)

	err = env.reservations.Cancel(ctx, res.ID, intruder.ID)
	assert.ErrorIs(t, err, ErrNotReservationOwner)

	err = env.reservations.Cancel(ctx, res.ID, owner.ID)
	require.NoError(t, err)

	cancelled, err := env.reservationRepo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusCancelled, cancelled.Status)
}

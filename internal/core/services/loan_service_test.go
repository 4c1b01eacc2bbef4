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

func TestEvaluateDeniesUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	book := env.createBook(t, "Orphan Book", domain.TagWhite, 1)

	result, err := env.loans.Evaluate(ctx, 999, book.ID)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, domain.ErrUserNotFound.Error(), result.Reason)
}

func TestEvaluateDeniesInactiveUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "blocked_user", domain.RoleStudent)
	require.NoError(t, env.userRepo.SetActive(ctx, user.ID, false))
	book := env.createBook(t, "Some Book", domain.TagWhite, 1)

	result, err := env.loans.Evaluate(ctx, user.ID, book.ID)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, domain.ErrUserInactive.Error(), result.Reason)
}

func TestEvaluateDeniesRedTag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "red_reader", domain.RoleTeacher)
	book := env.createBook(t, "Reference Only", domain.TagRed, 1)

	result, err := env.loans.Evaluate(ctx, user.ID, book.ID)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, ErrBookNotCirculating.Error(), result.Reason)
}

func TestEvaluateDeniesNoCopies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	holder := env.createUser(t, "holder", domain.RoleStudent)
	wants := env.createUser(t, "wants", domain.RoleStudent)
	book := env.createBook(t, "Single Copy", domain.TagWhite, 1)

	_, err := env.loans.CreateLoan(ctx, holder.ID, book.ID)
	require.NoError(t, err)

	result, err := env.loans.Evaluate(ctx, wants.ID, book.ID)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, ErrBookUnavailable.Error(), result.Reason)
}

func TestEvaluateDeniesPendingRequestClaims(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	queued := env.createUser(t, "queued_member", domain.RoleStudent)
	walkIn := env.createUser(t, "walk_in", domain.RoleStudent)
	book := env.createBook(t, "Claimed Copy", domain.TagWhite, 1)

	_, err := env.requests.CreateLoanRequest(ctx, queued.ID, book.ID)
	require.NoError(t, err)

	// One shelf copy, one pending claim: effective availability is zero.
	result, err := env.loans.Evaluate(ctx, walkIn.ID, book.ID)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Contains(t, result.Reason, ErrCopiesClaimed.Error())
	assert.Contains(t, result.Reason, "queued_member")
}

func TestEvaluateDeniesFinesAtThreshold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	env.setClock(start)

	user := env.createUser(t, "fined_member", domain.RoleStudent)
	overdueBook := env.createBook(t, "Late Book", domain.TagWhite, 1)
	nextBook := env.createBook(t, "Next Book", domain.TagWhite, 1)

	_, err := env.loans.CreateLoan(ctx, user.ID, overdueBook.ID)
	require.NoError(t, err)

	// 4 days past the 5-day due date: virtual fine 2000, at the threshold.
	env.setClock(start.Add(9 * 24 * time.Hour))

	result, err := env.loans.Evaluate(ctx, user.ID, nextBook.ID)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Contains(t, result.Reason, ErrFinesExceedLimit.Error())
	assert.Contains(t, result.Reason, "2000")
}

func TestEvaluateDeniesRoleLoanLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	student := env.createUser(t, "maxed_student", domain.RoleStudent)
	b1 := env.createBook(t, "Limit One", domain.TagWhite, 1)
	b2 := env.createBook(t, "Limit Two", domain.TagWhite, 1)
	b3 := env.createBook(t, "Limit Three", domain.TagWhite, 1)

	_, err := env.loans.CreateLoan(ctx, student.ID, b1.ID)
	require.NoError(t, err)
	_, err = env.loans.CreateLoan(ctx, student.ID, b2.ID)
	require.NoError(t, err)

	result, err := env.loans.Evaluate(ctx, student.ID, b3.ID)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Contains(t, result.Reason, ErrLoanLimitReached.Error())
}

func TestEvaluateTeacherLimitIsFour(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacher := env.createUser(t, "busy_teacher", domain.RoleTeacher)
	titles := []string{"T One", "T Two", "T Three", "T Four"}
	for _, title := range titles {
		book := env.createBook(t, title, domain.TagWhite, 1)
		_, err := env.loans.CreateLoan(ctx, teacher.ID, book.ID)
		require.NoError(t, err)
	}

	fifth := env.createBook(t, "T Five", domain.TagWhite, 1)
	result, err := env.loans.Evaluate(ctx, teacher.ID, fifth.ID)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Contains(t, result.Reason, ErrLoanLimitReached.Error())
}

func TestEvaluateDeniesSecondLoanOfSameBook(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "title_holder", domain.RoleStudent)
	book := env.createBook(t, "Held Title", domain.TagWhite, 2)

	_, err := env.loans.CreateLoan(ctx, user.ID, book.ID)
	require.NoError(t, err)

	result, err := env.loans.Evaluate(ctx, user.ID, book.ID)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, ErrDuplicateLoan.Error(), result.Reason)
}

func TestEvaluateAllowsSameTitleDifferentAuthor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "homonym_reader", domain.RoleStudent)
	first := env.createBook(t, "Common Title", domain.TagWhite, 1)

	// Same title string, different author: a different work entirely.
	second := &models.Book{
		Title:           first.Title,
		Author:          "Someone Else",
		Tag:             string(domain.TagWhite),
		TotalCopies:     1,
		AvailableCopies: 1,
	}
	require.NoError(t, env.db.Create(second).Error)

	_, err := env.loans.CreateLoan(ctx, user.ID, first.ID)
	require.NoError(t, err)

	result, err := env.loans.Evaluate(ctx, user.ID, second.ID)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestEvaluateDeniesTeacherWithPendingRequestForTitle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacher := env.createUser(t, "request_teacher", domain.RoleTeacher)
	book := env.createBook(t, "Requested Twice", domain.TagWhite, 3)

	_, err := env.requests.CreateLoanRequest(ctx, teacher.ID, book.ID)
	require.NoError(t, err)

	result, err := env.loans.Evaluate(ctx, teacher.ID, book.ID)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, ErrRequestPending.Error(), result.Reason)
}

func TestCreateLoanDueDates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	env.setClock(now)

	cases := []struct {
		name string
		role domain.Role
		tag  domain.Tag
		days int
	}{
		{"yellow ignores role", domain.RoleTeacher, domain.TagYellow, 1},
		{"white teacher", domain.RoleTeacher, domain.TagWhite, 15},
		{"white student", domain.RoleStudent, domain.TagWhite, 5},
		{"white staff", domain.RoleStaff, domain.TagWhite, 5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			user := env.createUser(t, "due_user_"+tc.name, domain.Role(tc.role))
			book := env.createBook(t, "Due Book "+tc.name, tc.tag, 1)

			loan, err := env.loans.CreateLoan(ctx, user.ID, book.ID)
			require.NoError(t, err)
			assert.Equal(t, now.AddDate(0, 0, tc.days), loan.DueDate)
		})
	}
}

func TestCreateLoanDecrementsCopies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "copy_counter", domain.RoleStudent)
	book := env.createBook(t, "Counted Book", domain.TagWhite, 2)

	_, err := env.loans.CreateLoan(ctx, user.ID, book.ID)
	require.NoError(t, err)

	after, err := env.bookRepo.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(1), after.AvailableCopies)
}

func TestCreateLoanFulfillsOwnReservation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	holder := env.createUser(t, "res_holder", domain.RoleStudent)
	waiter := env.createUser(t, "res_waiter", domain.RoleStudent)
	book := env.createBook(t, "Reserved Book", domain.TagWhite, 1)

	// Book goes out, waiter joins the waitlist, book comes back: waiter is
	// notified and then borrows it.
	loan, err := env.loans.CreateLoan(ctx, holder.ID, book.ID)
	require.NoError(t, err)

	res, err := env.reservations.Create(ctx, waiter.ID, book.ID)
	require.NoError(t, err)

	_, err = env.loans.ReturnLoan(ctx, loan.ID)
	require.NoError(t, err)

	_, err = env.loans.CreateLoan(ctx, waiter.ID, book.ID)
	require.NoError(t, err)

	stored, err := env.reservationRepo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusFulfilled, stored.Status)
}

func TestReturnLoanTenDaysLateCharges5000(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	env.setClock(start)

	user := env.createUser(t, "late_returner", domain.RoleStudent)
	book := env.createBook(t, "Very Late Book", domain.TagWhite, 1)

	loan, err := env.loans.CreateLoan(ctx, user.ID, book.ID)
	require.NoError(t, err)

	// Due at day 5, returned at day 15: ten full days overdue.
	env.setClock(start.Add(15 * 24 * time.Hour))

	fine, err := env.loans.ReturnLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), fine)

	after, err := env.bookRepo.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(1), after.AvailableCopies, "copy back on the shelf")

	returned, err := env.loanRepo.GetByID(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusReturned, returned.Status)
	require.NotNil(t, returned.ReturnDate)
}

func TestReturnLoanOnTimeNoFine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	env.setClock(start)

	user := env.createUser(t, "on_time", domain.RoleStudent)
	book := env.createBook(t, "Punctual Book", domain.TagWhite, 1)

	loan, err := env.loans.CreateLoan(ctx, user.ID, book.ID)
	require.NoError(t, err)

	env.setClock(start.Add(3 * 24 * time.Hour))

	fine, err := env.loans.ReturnLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Zero(t, fine)

	var fineCount int64
	env.db.Model(&models.Fine{}).Count(&fineCount)
	assert.Zero(t, fineCount)
}

func TestReturnLoanTwiceFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "double_return", domain.RoleStudent)
	book := env.createBook(t, "Twice Returned", domain.TagWhite, 1)

	loan, err := env.loans.CreateLoan(ctx, user.ID, book.ID)
	require.NoError(t, err)

	_, err = env.loans.ReturnLoan(ctx, loan.ID)
	require.NoError(t, err)

	_, err = env.loans.ReturnLoan(ctx, loan.ID)
	assert.ErrorIs(t, err, ErrLoanNotActive)
}

func TestRenewLoanExtendsFromDueDate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	env.setClock(start)

	user := env.createUser(t, "renewer", domain.RoleStudent)
	book := env.createBook(t, "Renewable Book", domain.TagWhite, 1)

	loan, err := env.loans.CreateLoan(ctx, user.ID, book.ID)
	require.NoError(t, err)
	due := loan.DueDate

	// Renewed before the due date: new term starts at the old due date.
	env.setClock(start.Add(2 * 24 * time.Hour))
	renewed, err := env.loans.RenewLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, due.AddDate(0, 0, 5), renewed.DueDate)
	assert.Equal(t, 1, renewed.RenewalCount)
}

func TestRenewLoanOverdueExtendsFromNow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	env.setClock(start)

	user := env.createUser(t, "late_renewer", domain.RoleStudent)
	book := env.createBook(t, "Overdue Renewable", domain.TagWhite, 1)

	loan, err := env.loans.CreateLoan(ctx, user.ID, book.ID)
	require.NoError(t, err)

	// Two days overdue: fine is 1000, under the threshold, renewal allowed
	// but the new term runs from now.
	lateNow := start.Add(7 * 24 * time.Hour)
	env.setClock(lateNow)

	renewed, err := env.loans.RenewLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, lateNow.AddDate(0, 0, 5), renewed.DueDate)
}

func TestRenewLoanRefusedAtLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "limit_renewer", domain.RoleStudent)
	book := env.createBook(t, "Twice Renewed", domain.TagWhite, 1)

	loan, err := env.loans.CreateLoan(ctx, user.ID, book.ID)
	require.NoError(t, err)

	_, err = env.loans.RenewLoan(ctx, loan.ID)
	require.NoError(t, err)
	_, err = env.loans.RenewLoan(ctx, loan.ID)
	require.NoError(t, err)

	_, err = env.loans.RenewLoan(ctx, loan.ID)
	assert.ErrorIs(t, err, ErrRenewalLimitReached)
}

func TestRenewLoanRefusedWhenReservedByOther(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	holder := env.createUser(t, "renew_holder", domain.RoleStudent)
	waiter := env.createUser(t, "renew_waiter", domain.RoleStudent)
	book := env.createBook(t, "Wanted Book", domain.TagWhite, 1)

	loan, err := env.loans.CreateLoan(ctx, holder.ID, book.ID)
	require.NoError(t, err)

	_, err = env.reservations.Create(ctx, waiter.ID, book.ID)
	require.NoError(t, err)

	_, err = env.loans.RenewLoan(ctx, loan.ID)
	assert.ErrorIs(t, err, ErrReservedByOther)
}

func TestRenewLoanKeepsCopyCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "count_renewer", domain.RoleStudent)
	book := env.createBook(t, "Stable Count", domain.TagWhite, 2)

	loan, err := env.loans.CreateLoan(ctx, user.ID, book.ID)
	require.NoError(t, err)

	_, err = env.loans.RenewLoan(ctx, loan.ID)
	require.NoError(t, err)

	after, err := env.bookRepo.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(1), after.AvailableCopies)
}

func TestApproveLoanRequestNotBlockedByOwnClaim(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	member := env.createUser(t, "envelope_member", domain.RoleStudent)
	staff := env.createUser(t, "desk_staff", domain.RoleStaff)
	book := env.createBook(t, "Enveloped Book", domain.TagWhite, 1)

	req, err := env.requests.CreateLoanRequest(ctx, member.ID, book.ID)
	require.NoError(t, err)

	// The request's own claim on the last copy must not fail its approval.
	loan, err := env.requests.ApproveLoanRequest(ctx, req.ID, staff.ID, "picked up")
	require.NoError(t, err)
	assert.Equal(t, member.ID, loan.UserID)

	decided, err := env.requestRepo.GetLoanRequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, decided.Status)
	require.NotNil(t, decided.DecidedBy)
	assert.Equal(t, staff.ID, *decided.DecidedBy)
}

func TestApproveLoanRequestTwiceFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	member := env.createUser(t, "twice_member", domain.RoleStudent)
	staff := env.createUser(t, "twice_staff", domain.RoleStaff)
	book := env.createBook(t, "Twice Approved", domain.TagWhite, 2)

	req, err := env.requests.CreateLoanRequest(ctx, member.ID, book.ID)
	require.NoError(t, err)

	_, err = env.requests.ApproveLoanRequest(ctx, req.ID, staff.ID, "")
	require.NoError(t, err)

	_, err = env.requests.ApproveLoanRequest(ctx, req.ID, staff.ID, "")
	assert.ErrorIs(t, err, ErrRequestDecided)
}

func TestRejectLoanRequestReleasesClaim(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	member := env.createUser(t, "rejected_member", domain.RoleStudent)
	other := env.createUser(t, "next_member", domain.RoleStudent)
	staff := env.createUser(t, "reject_staff", domain.RoleStaff)
	book := env.createBook(t, "Freed Claim", domain.TagWhite, 1)

	req, err := env.requests.CreateLoanRequest(ctx, member.ID, book.ID)
	require.NoError(t, err)

	// While pending, the claim blocks a walk-in borrower.
	result, err := env.loans.Evaluate(ctx, other.ID, book.ID)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	_, err = env.requests.RejectLoanRequest(ctx, req.ID, staff.ID, "not available for loan")
	require.NoError(t, err)

	result, err = env.loans.Evaluate(ctx, other.ID, book.ID)
	require.NoError(t, err)
	assert.True(t, result.Allowed, "rejection frees the claimed copy")
}

func TestCreateRenewalRequestRefusedAtRenewalLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "req_renewer", domain.RoleStudent)
	book := env.createBook(t, "Exhausted Renewals", domain.TagWhite, 1)

	loan, err := env.loans.CreateLoan(ctx, user.ID, book.ID)
	require.NoError(t, err)

	_, err = env.loans.RenewLoan(ctx, loan.ID)
	require.NoError(t, err)
	_, err = env.loans.RenewLoan(ctx, loan.ID)
	require.NoError(t, err)

	_, err = env.requests.CreateRenewalRequest(ctx, loan.ID, user.ID)
	assert.ErrorIs(t, err, ErrRenewalLimitReached)
}

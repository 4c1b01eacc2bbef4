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

func sweepLoan(id, userID uint, due time.Time) *models.Loan {
	return &models.Loan{
		ID:      id,
		UserID:  userID,
		BookID:  id,
		DueDate: due,
		Status:  models.LoanStatusActive,
	}
}

func TestComputeSweepActionsOverdueAndBlock(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)

	loans := []*models.Loan{
		sweepLoan(1, 1, now.Add(-5*24*time.Hour)),  // 5 days overdue: 2500, over threshold
		sweepLoan(2, 2, now.Add(-2*24*time.Hour)),  // 2 days overdue: 1000, under threshold
		sweepLoan(3, 3, now.Add(10*24*time.Hour)),  // not due for a while
	}
	loanUnpaid := map[uint]int64{1: 2500, 2: 1000}
	userOutstanding := map[uint]int64{1: 2500, 2: 1000}

	actions := ComputeSweepActions(now, loans, loanUnpaid, userOutstanding)

	var alerts, blocks, dueSoon int
	for _, a := range actions {
		switch a.Kind {
		case SweepActionOverdueAlert:
			alerts++
		case SweepActionBlockUser:
			blocks++
			assert.Equal(t, uint(1), a.UserID)
			assert.Equal(t, int64(2500), a.Amount)
		case SweepActionDueSoon:
			dueSoon++
		}
	}

	assert.Equal(t, 2, alerts)
	assert.Equal(t, 1, blocks, "only the user at or over the threshold is blocked")
	assert.Equal(t, 0, dueSoon)
}

func TestComputeSweepActionsDueSoon(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)

	loans := []*models.Loan{
		sweepLoan(1, 1, now.Add(12*time.Hour)), // due within a day
		sweepLoan(2, 2, now.Add(30*time.Hour)), // not yet
	}

	actions := ComputeSweepActions(now, loans, nil, nil)

	require.Len(t, actions, 1)
	assert.Equal(t, SweepActionDueSoon, actions[0].Kind)
	assert.Equal(t, uint(1), actions[0].LoanID)
}

func TestComputeSweepActionsBlockOncePerUser(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)

	// One borrower, two overdue loans, combined exposure over the threshold.
	loans := []*models.Loan{
		sweepLoan(1, 7, now.Add(-3*24*time.Hour)),
		sweepLoan(2, 7, now.Add(-2*24*time.Hour)),
	}
	loanUnpaid := map[uint]int64{1: 1500, 2: 1000}
	userOutstanding := map[uint]int64{7: 2500}

	actions := ComputeSweepActions(now, loans, loanUnpaid, userOutstanding)

	blocks := 0
	for _, a := range actions {
		if a.Kind == SweepActionBlockUser {
			blocks++
		}
	}
	assert.Equal(t, 1, blocks)
}

func TestComputeSweepActionsEmptySnapshot(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
	assert.Empty(t, ComputeSweepActions(now, nil, nil, nil))
}

func TestSweepRunBlocksOverThresholdAndIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	env.setClock(start)

	student := env.createUser(t, "overdue_student", domain.RoleStudent)
	book := env.createBook(t, "Sweep Target", domain.TagWhite, 1)

	_, err := env.loans.CreateLoan(ctx, student.ID, book.ID)
	require.NoError(t, err)

	// 9 days later the white/5-day loan is 4 days overdue: 2000, at threshold.
	env.setClock(start.Add(9 * 24 * time.Hour))

	summary, err := env.sweep.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.OverdueAlerts)
	assert.Equal(t, 1, summary.UsersBlocked)

	blocked, err := env.userRepo.GetByID(ctx, student.ID)
	require.NoError(t, err)
	assert.False(t, blocked.IsActive)

	// A second sweep re-plans the block but changes nothing.
	summary2, err := env.sweep.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary2.UsersBlocked)

	still, err := env.userRepo.GetByID(ctx, student.ID)
	require.NoError(t, err)
	assert.False(t, still.IsActive)
}

func TestSweepDoesNotMaterializeFines(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	env.setClock(start)

	student := env.createUser(t, "sweep_virtual", domain.RoleStudent)
	book := env.createBook(t, "Virtual Fine Book", domain.TagWhite, 1)

	_, err := env.loans.CreateLoan(ctx, student.ID, book.ID)
	require.NoError(t, err)

	env.setClock(start.Add(7 * 24 * time.Hour))
	_, err = env.sweep.Run(ctx)
	require.NoError(t, err)

	var fineCount int64
	env.db.Model(&models.Fine{}).Count(&fineCount)
	assert.Zero(t, fineCount, "fines stay virtual until return or payment")
}

package services

import (
	"context"
	"errors"
	"log"
	"time"

	"unilib-circ/internal/adapters/persistence/models"
	"unilib-circ/internal/adapters/persistence/repositories"
	"unilib-circ/internal/core/domain"
)

// Fine errors
var (
	ErrFineNotFound    = errors.New("fine not found")
	ErrFineAlreadyPaid = errors.New("fine is already paid")
	ErrNothingToPay    = errors.New("loan has no unpaid fine")
)

// FineViewKind discriminates persisted fine rows from virtual accruals
type FineViewKind string

const (
	FineViewPersisted FineViewKind = "PERSISTED"
	FineViewVirtual   FineViewKind = "VIRTUAL"
)

// FineView is either a persisted Fine row or the live-computed overdue
// charge of a loan that is still active. A virtual view has no Fine row
// and can never be mistaken for something already settled.
type FineView struct {
	Kind        FineViewKind `json:"kind"`
	Fine        *models.Fine `json:"fine,omitempty"`
	LoanID      uint         `json:"loan_id"`
	Amount      int64        `json:"amount"`
	DaysOverdue int          `json:"days_overdue"`
}

// FineService handles the fine ledger: virtual accrual, materialization
// and payment
type FineService struct {
	fineRepo *repositories.FineRepository
	loanRepo *repositories.LoanRepository
	now      func() time.Time
}

// NewFineService creates a new fine service
func NewFineService(fineRepo *repositories.FineRepository, loanRepo *repositories.LoanRepository) *FineService {
	return &FineService{
		fineRepo: fineRepo,
		loanRepo: loanRepo,
		now:      time.Now,
	}
}

// UnpaidForLoan recomputes a loan's effective unpaid fine at ref:
// raw accrual from the due date, minus any installments already paid.
func (s *FineService) UnpaidForLoan(ctx context.Context, loan *models.Loan, ref time.Time) (int64, int, error) {
	days := domain.DaysOverdue(loan.DueDate, ref)
	raw := domain.FineAmount(days)
	if raw == 0 {
		return 0, 0, nil
	}

	paid, err := s.fineRepo.SumPaidByLoan(ctx, loan.ID)
	if err != nil {
		return 0, 0, err
	}

	return domain.UnpaidAmount(raw, paid), days, nil
}

// OutstandingForUser is a user's total exposure: pending persisted fines
// plus virtual fines across every active-and-overdue loan. The eligibility
// evaluator and the blocking policy both consult this number.
func (s *FineService) OutstandingForUser(ctx context.Context, userID uint) (int64, error) {
	now := s.now()

	total, err := s.fineRepo.SumPendingByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	overdue, err := s.loanRepo.ListActiveOverdueByUser(ctx, userID, now)
	if err != nil {
		return 0, err
	}
	for _, loan := range overdue {
		unpaid, _, err := s.UnpaidForLoan(ctx, loan, now)
		if err != nil {
			return 0, err
		}
		total += unpaid
	}

	return total, nil
}

// ViewsForUser lists a user's open fines: pending persisted rows plus one
// virtual view per active overdue loan.
func (s *FineService) ViewsForUser(ctx context.Context, userID uint) ([]*FineView, error) {
	now := s.now()
	views := []*FineView{}

	pending, err := s.fineRepo.ListPendingByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, f := range pending {
		views = append(views, &FineView{
			Kind:        FineViewPersisted,
			Fine:        f,
			LoanID:      f.LoanID,
			Amount:      f.Amount,
			DaysOverdue: f.DaysOverdue,
		})
	}

	overdue, err := s.loanRepo.ListActiveOverdueByUser(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	for _, loan := range overdue {
		unpaid, days, err := s.UnpaidForLoan(ctx, loan, now)
		if err != nil {
			return nil, err
		}
		if unpaid == 0 {
			continue
		}
		views = append(views, &FineView{
			Kind:        FineViewVirtual,
			LoanID:      loan.ID,
			Amount:      unpaid,
			DaysOverdue: days,
		})
	}

	return views, nil
}

// Pay settles a whole pending fine row. Partial amounts are not accepted;
// partial settlement of a loan is modeled by paying whole rows.
func (s *FineService) Pay(ctx context.Context, fineID uint) (*models.Fine, error) {
	fine, err := s.fineRepo.GetByID(ctx, fineID)
	if err != nil {
		return nil, ErrFineNotFound
	}
	if fine.Status == models.FineStatusPaid {
		return nil, ErrFineAlreadyPaid
	}

	now := s.now()
	fine.Status = models.FineStatusPaid
	fine.PaymentDate = &now
	if err := s.fineRepo.Update(ctx, fine); err != nil {
		return nil, err
	}

	log.Printf("💰 Fine %d paid (loan %d, amount %d)", fine.ID, fine.LoanID, fine.Amount)
	return fine, nil
}

// PayVirtual settles the currently-computed unpaid amount of an active
// overdue loan by materializing a new paid Fine row. The loan keeps
// accruing from its due date; the paid row is credited on the next
// recomputation.
func (s *FineService) PayVirtual(ctx context.Context, loanID uint) (*models.Fine, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, ErrLoanNotFound
	}
	if !loan.IsActive() {
		return nil, ErrLoanNotActive
	}

	now := s.now()
	unpaid, days, err := s.UnpaidForLoan(ctx, loan, now)
	if err != nil {
		return nil, err
	}
	if unpaid == 0 {
		return nil, ErrNothingToPay
	}

	fine := &models.Fine{
		LoanID:      loan.ID,
		UserID:      loan.UserID,
		Amount:      unpaid,
		DaysOverdue: days,
		Status:      models.FineStatusPaid,
		PaymentDate: &now,
	}
	if err := s.fineRepo.Create(ctx, fine); err != nil {
		return nil, err
	}

	log.Printf("💰 Virtual fine settled for loan %d: %d (%d days)", loan.ID, unpaid, days)
	return fine, nil
}

// MaterializeOnReturn freezes a loan's fine at return time as a pending
// row. Already-paid installments are credited first, so a sweep racing a
// return can never double-charge.
func (s *FineService) MaterializeOnReturn(ctx context.Context, loan *models.Loan, returnedAt time.Time) (int64, error) {
	unpaid, days, err := s.UnpaidForLoan(ctx, loan, returnedAt)
	if err != nil {
		return 0, err
	}
	if unpaid == 0 {
		return 0, nil
	}

	fine := &models.Fine{
		LoanID:      loan.ID,
		UserID:      loan.UserID,
		Amount:      unpaid,
		DaysOverdue: days,
		Status:      models.FineStatusPending,
	}
	if err := s.fineRepo.Create(ctx, fine); err != nil {
		return 0, err
	}

	return unpaid, nil
}

package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"unilib-circ/internal/adapters/persistence/models"
	"unilib-circ/internal/adapters/persistence/repositories"
	"unilib-circ/internal/core/domain"
)

// ErrSweepRunning is returned when a sweep is requested while one is in
// progress.
var ErrSweepRunning = errors.New("overdue sweep is already running")

// SweepActionKind enumerates what the sweep planner decided per loan/user
type SweepActionKind string

const (
	SweepActionBlockUser    SweepActionKind = "BLOCK_USER"
	SweepActionOverdueAlert SweepActionKind = "OVERDUE_ALERT"
	SweepActionDueSoon      SweepActionKind = "DUE_SOON"
)

// SweepAction is one planned side effect of an overdue sweep
type SweepAction struct {
	Kind        SweepActionKind
	UserID      uint
	LoanID      uint
	DaysOverdue int
	Amount      int64
}

// SweepSummary reports what a completed sweep did
type SweepSummary struct {
	StartedAt           time.Time `json:"started_at"`
	ActiveLoans         int       `json:"active_loans"`
	OverdueAlerts       int       `json:"overdue_alerts"`
	DueSoonAlerts       int       `json:"due_soon_alerts"`
	UsersBlocked        int       `json:"users_blocked"`
	ReservationsExpired int       `json:"reservations_expired"`
}

// ComputeSweepActions plans the sweep over a snapshot of active loans.
// loanUnpaid holds each overdue loan's effective unpaid fine and
// userOutstanding each borrower's total exposure, both computed at now.
// Pure: no clock, no storage, deterministic for a given snapshot.
func ComputeSweepActions(now time.Time, loans []*models.Loan, loanUnpaid map[uint]int64, userOutstanding map[uint]int64) []SweepAction {
	actions := []SweepAction{}
	blocked := map[uint]bool{}

	for _, loan := range loans {
		if !loan.IsActive() {
			continue
		}

		days := domain.DaysOverdue(loan.DueDate, now)
		if days > 0 {
			actions = append(actions, SweepAction{
				Kind:        SweepActionOverdueAlert,
				UserID:      loan.UserID,
				LoanID:      loan.ID,
				DaysOverdue: days,
				Amount:      loanUnpaid[loan.ID],
			})
			if !blocked[loan.UserID] && userOutstanding[loan.UserID] >= domain.BlockThreshold {
				blocked[loan.UserID] = true
				actions = append(actions, SweepAction{
					Kind:   SweepActionBlockUser,
					UserID: loan.UserID,
					Amount: userOutstanding[loan.UserID],
				})
			}
			continue
		}

		if domain.DueSoon(loan.DueDate, now) {
			actions = append(actions, SweepAction{
				Kind:   SweepActionDueSoon,
				UserID: loan.UserID,
				LoanID: loan.ID,
			})
		}
	}

	return actions
}

// SweepService walks all active loans once a day: alerts overdue
// borrowers, blocks accounts past the fine threshold and expires lapsed
// reservation holds. Fines themselves stay virtual; the sweep observes,
// it does not materialize.
type SweepService struct {
	userRepo      *repositories.UserRepository
	loanRepo      *repositories.LoanRepository
	fineService   *FineService
	reservations  *ReservationService
	notifyService *NotificationService
	now           func() time.Time

	mu sync.Mutex
}

// NewSweepService creates a new sweep service
func NewSweepService(
	userRepo *repositories.UserRepository,
	loanRepo *repositories.LoanRepository,
	fineService *FineService,
	reservations *ReservationService,
	notifyService *NotificationService,
) *SweepService {
	return &SweepService{
		userRepo:      userRepo,
		loanRepo:      loanRepo,
		fineService:   fineService,
		reservations:  reservations,
		notifyService: notifyService,
		now:           time.Now,
	}
}

// Run executes one full sweep. Overlapping runs are refused, not queued.
func (s *SweepService) Run(ctx context.Context) (*SweepSummary, error) {
	if !s.mu.TryLock() {
		return nil, ErrSweepRunning
	}
	defer s.mu.Unlock()

	now := s.now()
	log.Printf("🧹 Overdue sweep started at %s", now.Format(time.RFC3339))

	loans, err := s.loanRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	loanUnpaid := map[uint]int64{}
	userOutstanding := map[uint]int64{}
	for _, loan := range loans {
		if domain.DaysOverdue(loan.DueDate, now) == 0 {
			continue
		}
		unpaid, _, err := s.fineService.UnpaidForLoan(ctx, loan, now)
		if err != nil {
			return nil, err
		}
		loanUnpaid[loan.ID] = unpaid
		if _, seen := userOutstanding[loan.UserID]; !seen {
			outstanding, err := s.fineService.OutstandingForUser(ctx, loan.UserID)
			if err != nil {
				return nil, err
			}
			userOutstanding[loan.UserID] = outstanding
		}
	}

	summary := &SweepSummary{StartedAt: now, ActiveLoans: len(loans)}
	loansByID := map[uint]*models.Loan{}
	for _, loan := range loans {
		loansByID[loan.ID] = loan
	}

	for _, action := range ComputeSweepActions(now, loans, loanUnpaid, userOutstanding) {
		switch action.Kind {
		case SweepActionOverdueAlert:
			summary.OverdueAlerts++
			loan := loansByID[action.LoanID]
			if s.notifyService != nil && loan != nil && loan.User != nil {
				s.notifyService.SendOverdueAlert(loan.User, loan, action.DaysOverdue, action.Amount)
			}

		case SweepActionDueSoon:
			summary.DueSoonAlerts++
			loan := loansByID[action.LoanID]
			if s.notifyService != nil && loan != nil && loan.User != nil {
				s.notifyService.SendDueSoon(loan.User, loan)
			}

		case SweepActionBlockUser:
			// Idempotent: re-blocking an already blocked account is a no-op
			// at the storage layer.
			if err := s.userRepo.SetActive(ctx, action.UserID, false); err != nil {
				log.Printf("❌ Failed to block user %d: %v", action.UserID, err)
				continue
			}
			summary.UsersBlocked++
			log.Printf("🚫 User %d blocked: outstanding fines %d", action.UserID, action.Amount)
			if s.notifyService != nil {
				if user, err := s.userRepo.GetByID(ctx, action.UserID); err == nil {
					s.notifyService.SendBlocked(user, action.Amount)
				}
			}
		}
	}

	expired, err := s.reservations.ExpireLapsed(ctx)
	if err != nil {
		log.Printf("❌ Failed to expire lapsed reservations: %v", err)
	}
	summary.ReservationsExpired = expired

	log.Printf("🧹 Overdue sweep done: %d active loans, %d overdue alerts, %d due-soon alerts, %d users blocked, %d holds expired",
		summary.ActiveLoans, summary.OverdueAlerts, summary.DueSoonAlerts, summary.UsersBlocked, summary.ReservationsExpired)
	return summary, nil
}

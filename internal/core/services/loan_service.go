package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"unilib-circ/internal/adapters/persistence/models"
	"unilib-circ/internal/adapters/persistence/repositories"
	"unilib-circ/internal/core/domain"

	"gorm.io/gorm"
)

// Loan errors
var (
	ErrLoanNotFound        = errors.New("loan not found")
	ErrLoanNotActive       = errors.New("loan is not active")
	ErrNotLoanOwner        = errors.New("loan belongs to another member")
	ErrBookUnavailable     = errors.New("no copies of this book are available")
	ErrBookNotCirculating  = errors.New("book is library-use only and cannot circulate")
	ErrDuplicateLoan       = errors.New("member already holds an active loan of this book")
	ErrRequestPending      = errors.New("member already has a pending loan request for this book")
	ErrCopiesClaimed       = errors.New("remaining copies are claimed by pending loan requests")
	ErrFinesExceedLimit    = errors.New("outstanding fines reach the block threshold")
	ErrLoanLimitReached    = errors.New("active loan limit for this role reached")
	ErrTitleAlreadyHeld    = errors.New("member already holds a copy of this title")
	ErrRenewalLimitReached = errors.New("loan has reached the renewal limit")
	ErrReservedByOther     = errors.New("another member is waiting on a reservation for this book")
)

// policyDenials is every eligibility/renewal rule failure. Denials are the
// expected common case; anything outside this list is an infrastructure
// error and propagates as such.
var policyDenials = []error{
	domain.ErrUserNotFound,
	domain.ErrUserInactive,
	domain.ErrBookNotFound,
	ErrBookUnavailable,
	ErrBookNotCirculating,
	ErrDuplicateLoan,
	ErrRequestPending,
	ErrCopiesClaimed,
	ErrFinesExceedLimit,
	ErrLoanLimitReached,
	ErrTitleAlreadyHeld,
	ErrRenewalLimitReached,
	ErrReservedByOther,
	ErrReservationLimitReached,
	ErrAlreadyReserved,
}

// IsPolicyDenial reports whether err is a circulation rule failure rather
// than an infrastructure error.
func IsPolicyDenial(err error) bool {
	for _, denial := range policyDenials {
		if errors.Is(err, denial) {
			return true
		}
	}
	return false
}

// EligibilityResult is the outcome of an eligibility evaluation
type EligibilityResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// LoanService governs the loan state machine and eligibility rules
type LoanService struct {
	userRepo        *repositories.UserRepository
	bookRepo        *repositories.BookRepository
	loanRepo        *repositories.LoanRepository
	requestRepo     *repositories.RequestRepository
	reservationRepo *repositories.ReservationRepository
	fineService     *FineService
	reservations    *ReservationService
	notifyService   *NotificationService
	now             func() time.Time
}

// NewLoanService creates a new loan service
func NewLoanService(
	userRepo *repositories.UserRepository,
	bookRepo *repositories.BookRepository,
	loanRepo *repositories.LoanRepository,
	requestRepo *repositories.RequestRepository,
	reservationRepo *repositories.ReservationRepository,
	fineService *FineService,
	reservations *ReservationService,
	notifyService *NotificationService,
) *LoanService {
	return &LoanService{
		userRepo:        userRepo,
		bookRepo:        bookRepo,
		loanRepo:        loanRepo,
		requestRepo:     requestRepo,
		reservationRepo: reservationRepo,
		fineService:     fineService,
		reservations:    reservations,
		notifyService:   notifyService,
		now:             time.Now,
	}
}

// Evaluate runs the full eligibility rule chain for a member and a book.
// Rule failures come back as a denial with a reason, never as an error.
func (s *LoanService) Evaluate(ctx context.Context, userID, bookID uint) (*EligibilityResult, error) {
	_, _, err := s.evaluate(ctx, userID, bookID, 0)
	if err != nil {
		if IsPolicyDenial(err) {
			return &EligibilityResult{Allowed: false, Reason: err.Error()}, nil
		}
		return nil, err
	}
	return &EligibilityResult{Allowed: true}, nil
}

// evaluate runs the ordered eligibility checks and short-circuits on the
// first failure. Both direct loans and approved loan requests route
// through here; excludeRequestID removes the request being approved from
// the queue-derived checks so its own claim does not block it.
func (s *LoanService) evaluate(ctx context.Context, userID, bookID uint, excludeRequestID uint) (*models.User, *models.Book, error) {
	// 1. Member must exist and be active
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.ErrUserNotFound
		}
		return nil, nil, err
	}
	if !user.IsActive {
		return nil, nil, domain.ErrUserInactive
	}

	// 2. Book must exist
	book, err := s.bookRepo.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.ErrBookNotFound
		}
		return nil, nil, err
	}

	// 3. A copy must be on the shelf
	if book.AvailableCopies == 0 {
		return nil, nil, ErrBookUnavailable
	}

	// 4. Red-tagged books never circulate
	if !domain.Tag(book.Tag).Circulates() {
		return nil, nil, ErrBookNotCirculating
	}

	// 5. No second loan of the exact same book
	hasLoan, err := s.loanRepo.HasActiveLoanForBook(ctx, userID, bookID)
	if err != nil {
		return nil, nil, err
	}
	if hasLoan {
		return nil, nil, ErrDuplicateLoan
	}

	// 6. No duplicate pending loan request for this book
	hasReq, err := s.requestRepo.HasPendingLoanRequest(ctx, userID, bookID, excludeRequestID)
	if err != nil {
		return nil, nil, err
	}
	if hasReq {
		return nil, nil, ErrRequestPending
	}

	// 7. Effective copies: shelf copies minus copies pre-claimed by the
	// pending loan-request queue
	claimed, err := s.requestRepo.CountPendingForBook(ctx, bookID, excludeRequestID)
	if err != nil {
		return nil, nil, err
	}
	if int64(book.AvailableCopies)-claimed <= 0 {
		queued, err := s.requestRepo.ListPendingUsersForBook(ctx, bookID)
		if err != nil {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: queued members: %s", ErrCopiesClaimed, strings.Join(queued, ", "))
	}

	// 8. Outstanding fines below the block threshold
	outstanding, err := s.fineService.OutstandingForUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if outstanding >= domain.BlockThreshold {
		return nil, nil, fmt.Errorf("%w: owed %d, threshold %d", ErrFinesExceedLimit, outstanding, domain.BlockThreshold)
	}

	// 9. Role loan limit
	active, err := s.loanRepo.CountActiveByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	limit := domain.LoanLimit(domain.Role(user.Role))
	if active >= int64(limit) {
		return nil, nil, fmt.Errorf("%w: limit %d for role %s", ErrLoanLimitReached, limit, user.Role)
	}

	// 10. One copy per title, regardless of which physical copy; teachers
	// are additionally blocked by their own pending request for the title
	hasTitle, err := s.loanRepo.HasActiveLoanForTitle(ctx, userID, book.Title, book.Author)
	if err != nil {
		return nil, nil, err
	}
	if hasTitle {
		return nil, nil, fmt.Errorf("%w: %q", ErrTitleAlreadyHeld, book.Title)
	}
	if domain.Role(user.Role) == domain.RoleTeacher {
		requested, err := s.requestRepo.HasPendingLoanRequestForTitle(ctx, userID, book.Title, book.Author, excludeRequestID)
		if err != nil {
			return nil, nil, err
		}
		if requested {
			return nil, nil, fmt.Errorf("%w: %q is already requested", ErrTitleAlreadyHeld, book.Title)
		}
	}

	return user, book, nil
}

// CreateLoan creates a loan after a passing eligibility evaluation
func (s *LoanService) CreateLoan(ctx context.Context, userID, bookID uint) (*models.Loan, error) {
	return s.createLoan(ctx, userID, bookID, 0)
}

func (s *LoanService) createLoan(ctx context.Context, userID, bookID uint, excludeRequestID uint) (*models.Loan, error) {
	user, book, err := s.evaluate(ctx, userID, bookID, excludeRequestID)
	if err != nil {
		return nil, err
	}

	// Atomic decrement-with-check: two racing attempts on the last copy
	// resolve to one winner here, not in the eligibility snapshot above.
	if err := s.bookRepo.ClaimCopy(ctx, book.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookUnavailable
		}
		return nil, err
	}

	now := s.now()
	loan := &models.Loan{
		UserID:   userID,
		BookID:   bookID,
		LoanDate: now,
		DueDate:  domain.DueDate(domain.Role(user.Role), domain.Tag(book.Tag), now),
		Status:   models.LoanStatusActive,
	}
	if err := s.loanRepo.Create(ctx, loan); err != nil {
		// Give the claimed copy back; the loan row never existed.
		if relErr := s.bookRepo.ReleaseCopy(ctx, book.ID); relErr != nil {
			log.Printf("❌ Failed to release copy of book %d after loan create error: %v", book.ID, relErr)
		}
		return nil, err
	}

	// A member converting a reservation into a loan must not keep
	// occupying a waitlist slot.
	res, err := s.reservationRepo.GetActiveByUserAndBook(ctx, userID, bookID)
	if err != nil {
		log.Printf("⚠️ Reservation lookup failed for user %d book %d: %v", userID, bookID, err)
	} else if res != nil {
		res.Status = models.ReservationStatusFulfilled
		if err := s.reservationRepo.Update(ctx, res); err != nil {
			log.Printf("⚠️ Failed to fulfill reservation %d: %v", res.ID, err)
		}
	}

	loan.User = user
	loan.Book = book
	log.Printf("📚 Loan %d created: user %d borrowed book %d, due %s",
		loan.ID, userID, bookID, loan.DueDate.Format("2006-01-02"))
	return loan, nil
}

// ReturnLoan closes an active loan, materializes any overdue fine, frees
// the copy and serves the reservation waitlist. Returns the fine amount.
func (s *LoanService) ReturnLoan(ctx context.Context, loanID uint) (int64, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return 0, ErrLoanNotFound
	}
	if !loan.IsActive() {
		return 0, ErrLoanNotActive
	}

	now := s.now()
	fineAmount, err := s.fineService.MaterializeOnReturn(ctx, loan, now)
	if err != nil {
		return 0, err
	}

	loan.Status = models.LoanStatusReturned
	loan.ReturnDate = &now
	if err := s.loanRepo.Update(ctx, loan); err != nil {
		return 0, err
	}

	if err := s.bookRepo.ReleaseCopy(ctx, loan.BookID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("❌ Failed to release copy of book %d on return: %v", loan.BookID, err)
	}

	// The return already succeeded; a waitlist hiccup is logged, not
	// propagated.
	if s.reservations != nil {
		if _, err := s.reservations.PromoteNextInLine(ctx, loan.BookID); err != nil {
			log.Printf("⚠️ Waitlist promotion failed for book %d: %v", loan.BookID, err)
		}
	}

	log.Printf("📚 Loan %d returned (fine %d)", loan.ID, fineAmount)
	return fineAmount, nil
}

// RenewLoan extends an active loan. Refused when the renewal limit is
// reached, another member waits on a reservation, or outstanding fines
// reach the block threshold. Renewal never changes available copies.
func (s *LoanService) RenewLoan(ctx context.Context, loanID uint) (*models.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, ErrLoanNotFound
	}
	if !loan.IsActive() {
		return nil, ErrLoanNotActive
	}

	if err := s.checkRenewable(ctx, loan); err != nil {
		return nil, err
	}

	now := s.now()
	base := domain.RenewalBase(loan.DueDate, now)
	loan.DueDate = domain.DueDate(domain.Role(loan.User.Role), domain.Tag(loan.Book.Tag), base)
	loan.RenewalCount++
	if err := s.loanRepo.Update(ctx, loan); err != nil {
		return nil, err
	}

	if s.notifyService != nil {
		s.notifyService.SendRenewalDecision(loan.User, loan.Book, true, &loan.DueDate)
	}

	log.Printf("📚 Loan %d renewed (%d/%d), new due date %s",
		loan.ID, loan.RenewalCount, domain.MaxRenewals, loan.DueDate.Format("2006-01-02"))
	return loan, nil
}

// checkRenewable applies the renewal refusal rules to an active loan.
// Direct renewals and renewal-request admission share these rules.
func (s *LoanService) checkRenewable(ctx context.Context, loan *models.Loan) error {
	if loan.RenewalCount >= domain.MaxRenewals {
		return fmt.Errorf("%w: %d renewals", ErrRenewalLimitReached, domain.MaxRenewals)
	}

	reserved, err := s.reservationRepo.HasActiveByOtherUser(ctx, loan.BookID, loan.UserID)
	if err != nil {
		return err
	}
	if reserved {
		return ErrReservedByOther
	}

	outstanding, err := s.fineService.OutstandingForUser(ctx, loan.UserID)
	if err != nil {
		return err
	}
	if outstanding >= domain.BlockThreshold {
		return fmt.Errorf("%w: owed %d, threshold %d", ErrFinesExceedLimit, outstanding, domain.BlockThreshold)
	}
	return nil
}

// GetByID gets a loan by ID
func (s *LoanService) GetByID(ctx context.Context, id uint) (*models.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, err
	}
	return loan, nil
}

// ListByUser lists a user's loans with pagination
func (s *LoanService) ListByUser(ctx context.Context, userID uint, offset, limit int) ([]*models.Loan, int64, error) {
	return s.loanRepo.ListByUser(ctx, userID, offset, limit)
}

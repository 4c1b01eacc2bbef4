package services

import (
	"context"
	"errors"
	"log"
	"time"

	"unilib-circ/internal/adapters/persistence/models"
	"unilib-circ/internal/adapters/persistence/repositories"
	"unilib-circ/internal/core/domain"

	"gorm.io/gorm"
)

// Reservation errors
var (
	ErrReservationNotFound     = errors.New("reservation not found")
	ErrReservationNotActive    = errors.New("reservation is no longer active")
	ErrNotReservationOwner     = errors.New("reservation belongs to another member")
	ErrReservationLimitReached = errors.New("active reservation limit reached")
	ErrAlreadyReserved         = errors.New("member already has an active reservation for this title")
)

// ReservationService manages the per-book waitlist
type ReservationService struct {
	userRepo        *repositories.UserRepository
	bookRepo        *repositories.BookRepository
	loanRepo        *repositories.LoanRepository
	reservationRepo *repositories.ReservationRepository
	notifyService   *NotificationService
	now             func() time.Time
}

// NewReservationService creates a new reservation service
func NewReservationService(
	userRepo *repositories.UserRepository,
	bookRepo *repositories.BookRepository,
	loanRepo *repositories.LoanRepository,
	reservationRepo *repositories.ReservationRepository,
	notifyService *NotificationService,
) *ReservationService {
	return &ReservationService{
		userRepo:        userRepo,
		bookRepo:        bookRepo,
		loanRepo:        loanRepo,
		reservationRepo: reservationRepo,
		notifyService:   notifyService,
		now:             time.Now,
	}
}

// Create places a member on a book's waitlist
func (s *ReservationService) Create(ctx context.Context, userID, bookID uint) (*models.Reservation, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	book, err := s.bookRepo.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBookNotFound
		}
		return nil, err
	}

	if !domain.Tag(book.Tag).Circulates() {
		return nil, ErrBookNotCirculating
	}

	// A member holding a copy of the title has nothing to wait for.
	hasTitle, err := s.loanRepo.HasActiveLoanForTitle(ctx, userID, book.Title, book.Author)
	if err != nil {
		return nil, err
	}
	if hasTitle {
		return nil, ErrTitleAlreadyHeld
	}

	reserved, err := s.reservationRepo.HasActiveForTitle(ctx, userID, book.Title, book.Author)
	if err != nil {
		return nil, err
	}
	if reserved {
		return nil, ErrAlreadyReserved
	}

	count, err := s.reservationRepo.CountActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if count >= domain.MaxReservations {
		return nil, ErrReservationLimitReached
	}

	res := &models.Reservation{
		UserID:          userID,
		BookID:          bookID,
		Status:          models.ReservationStatusPending,
		ReservationDate: s.now(),
	}
	if err := s.reservationRepo.Create(ctx, res); err != nil {
		return nil, err
	}

	res.User = user
	res.Book = book
	log.Printf("📗 Reservation %d created: user %d waiting for book %d", res.ID, userID, bookID)

	// A copy may already be sitting on the shelf unclaimed.
	if _, err := s.PromoteNextInLine(ctx, bookID); err != nil {
		log.Printf("⚠️ Waitlist promotion failed for book %d: %v", bookID, err)
	}

	return res, nil
}

// Cancel withdraws a member's own active reservation, then offers the
// freed slot's copy to the next member in line.
func (s *ReservationService) Cancel(ctx context.Context, reservationID, userID uint) error {
	res, err := s.reservationRepo.GetByID(ctx, reservationID)
	if err != nil {
		return ErrReservationNotFound
	}
	if res.UserID != userID {
		return ErrNotReservationOwner
	}
	if !res.IsActive() {
		return ErrReservationNotActive
	}

	res.Status = models.ReservationStatusCancelled
	if err := s.reservationRepo.Update(ctx, res); err != nil {
		return err
	}

	log.Printf("📗 Reservation %d cancelled by user %d", res.ID, userID)

	if _, err := s.PromoteNextInLine(ctx, res.BookID); err != nil {
		log.Printf("⚠️ Waitlist promotion failed for book %d: %v", res.BookID, err)
	}
	return nil
}

// PromoteNextInLine offers a held copy to the highest-priority pending
// reservation of a book. A copy is only offered when shelf copies exceed
// the offers already outstanding, so every notified member has a real copy
// waiting. Returns the promoted reservation, or nil when nothing changed.
func (s *ReservationService) PromoteNextInLine(ctx context.Context, bookID uint) (*models.Reservation, error) {
	book, err := s.bookRepo.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBookNotFound
		}
		return nil, err
	}
	if book.AvailableCopies == 0 {
		return nil, nil
	}

	waitlist, err := s.reservationRepo.ListWaitlist(ctx, bookID)
	if err != nil {
		return nil, err
	}

	notified := 0
	for _, r := range waitlist {
		if r.Status == models.ReservationStatusNotified {
			notified++
		}
	}
	if int(book.AvailableCopies) <= notified {
		return nil, nil
	}

	next := NextPending(waitlist)
	if next == nil {
		return nil, nil
	}

	now := s.now()
	expires := now.Add(domain.PickupWindow)
	next.Status = models.ReservationStatusNotified
	next.NotificationDate = &now
	next.ExpirationDate = &expires
	if err := s.reservationRepo.Update(ctx, next); err != nil {
		return nil, err
	}

	next.Book = book
	if s.notifyService != nil {
		s.notifyService.SendReservationReady(next, expires)
	}

	log.Printf("📗 Reservation %d promoted: user %d notified for book %d, hold until %s",
		next.ID, next.UserID, bookID, expires.Format("2006-01-02 15:04"))
	return next, nil
}

// ExpireLapsed expires notified reservations whose pickup window has
// passed and re-offers the freed copies. Returns how many lapsed.
func (s *ReservationService) ExpireLapsed(ctx context.Context) (int, error) {
	lapsed, err := s.reservationRepo.ListNotifiedExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}

	expired := 0
	books := map[uint]struct{}{}
	for _, res := range lapsed {
		res.Status = models.ReservationStatusExpired
		if err := s.reservationRepo.Update(ctx, res); err != nil {
			log.Printf("❌ Failed to expire reservation %d: %v", res.ID, err)
			continue
		}
		expired++
		books[res.BookID] = struct{}{}
		log.Printf("📙 Reservation %d expired: user %d did not pick up book %d", res.ID, res.UserID, res.BookID)
	}

	for bookID := range books {
		if _, err := s.PromoteNextInLine(ctx, bookID); err != nil {
			log.Printf("⚠️ Waitlist promotion failed for book %d: %v", bookID, err)
		}
	}

	return expired, nil
}

// GetByID gets a reservation by ID
func (s *ReservationService) GetByID(ctx context.Context, id uint) (*models.Reservation, error) {
	res, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return res, nil
}

// ListByUser lists a user's reservations with pagination
func (s *ReservationService) ListByUser(ctx context.Context, userID uint, offset, limit int) ([]*models.Reservation, int64, error) {
	return s.reservationRepo.ListByUser(ctx, userID, offset, limit)
}

package repositories

import (
	"context"
	"time"

	"unilib-circ/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// ReservationRepository handles reservation waitlist data access
type ReservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository creates a new reservation repository
func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// Create creates a new reservation
func (r *ReservationRepository) Create(ctx context.Context, res *models.Reservation) error {
	return r.db.WithContext(ctx).Create(res).Error
}

// GetByID gets a reservation by ID
func (r *ReservationRepository) GetByID(ctx context.Context, id uint) (*models.Reservation, error) {
	var res models.Reservation
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Book").
		First(&res, id).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Update updates a reservation
func (r *ReservationRepository) Update(ctx context.Context, res *models.Reservation) error {
	return r.db.WithContext(ctx).Save(res).Error
}

// ListWaitlist lists pending and notified reservations for a book with the
// reserving users preloaded. Priority ordering is applied by the service.
func (r *ReservationRepository) ListWaitlist(ctx context.Context, bookID uint) ([]*models.Reservation, error) {
	var list []*models.Reservation
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("book_id = ? AND status IN ?", bookID,
			[]string{models.ReservationStatusPending, models.ReservationStatusNotified}).
		Order("reservation_date ASC").
		Find(&list).Error
	return list, err
}

// CountActiveByUser counts a user's pending/notified reservations
func (r *ReservationRepository) CountActiveByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("user_id = ? AND status IN ?", userID,
			[]string{models.ReservationStatusPending, models.ReservationStatusNotified}).
		Count(&count).Error
	return count, err
}

// HasActiveForTitle checks whether a user already waits for any copy of a title
func (r *ReservationRepository) HasActiveForTitle(ctx context.Context, userID uint, title, author string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Joins("JOIN books ON books.id = reservations.book_id").
		Where("reservations.user_id = ? AND reservations.status IN ? AND books.title = ? AND books.author = ?",
			userID,
			[]string{models.ReservationStatusPending, models.ReservationStatusNotified},
			title, author).
		Count(&count).Error
	return count > 0, err
}

// GetActiveByUserAndBook gets a user's pending/notified reservation for a book
func (r *ReservationRepository) GetActiveByUserAndBook(ctx context.Context, userID, bookID uint) (*models.Reservation, error) {
	var res models.Reservation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND book_id = ? AND status IN ?", userID, bookID,
			[]string{models.ReservationStatusPending, models.ReservationStatusNotified}).
		First(&res).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &res, nil
}

// HasActiveByOtherUser checks whether anyone else waits for this book.
// Renewals are blocked while another member's reservation is outstanding.
func (r *ReservationRepository) HasActiveByOtherUser(ctx context.Context, bookID, excludeUserID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("book_id = ? AND user_id <> ? AND status IN ?", bookID, excludeUserID,
			[]string{models.ReservationStatusPending, models.ReservationStatusNotified}).
		Count(&count).Error
	return count > 0, err
}

// ListNotifiedExpired lists notified reservations whose pickup window lapsed
func (r *ReservationRepository) ListNotifiedExpired(ctx context.Context, ref time.Time) ([]*models.Reservation, error) {
	var list []*models.Reservation
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Book").
		Where("status = ? AND expiration_date < ?", models.ReservationStatusNotified, ref).
		Find(&list).Error
	return list, err
}

// ListByUser lists all of a user's reservations
func (r *ReservationRepository) ListByUser(ctx context.Context, userID uint, offset, limit int) ([]*models.Reservation, int64, error) {
	var list []*models.Reservation
	var total int64

	r.db.WithContext(ctx).Model(&models.Reservation{}).Where("user_id = ?", userID).Count(&total)

	err := r.db.WithContext(ctx).
		Preload("Book").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error

	return list, total, err
}

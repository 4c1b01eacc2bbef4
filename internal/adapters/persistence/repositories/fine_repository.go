package repositories

import (
	"context"

	"unilib-circ/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// FineRepository handles fine ledger data access
type FineRepository struct {
	db *gorm.DB
}

// NewFineRepository creates a new fine repository
func NewFineRepository(db *gorm.DB) *FineRepository {
	return &FineRepository{db: db}
}

// Create persists a new fine row
func (r *FineRepository) Create(ctx context.Context, fine *models.Fine) error {
	return r.db.WithContext(ctx).Create(fine).Error
}

// GetByID gets a fine by ID
func (r *FineRepository) GetByID(ctx context.Context, id uint) (*models.Fine, error) {
	var fine models.Fine
	err := r.db.WithContext(ctx).First(&fine, id).Error
	if err != nil {
		return nil, err
	}
	return &fine, nil
}

// Update updates a fine
func (r *FineRepository) Update(ctx context.Context, fine *models.Fine) error {
	return r.db.WithContext(ctx).Save(fine).Error
}

// SumPaidByLoan sums paid installments for a loan. The effective unpaid
// amount of a loan is its recomputed raw fine minus this sum.
func (r *FineRepository) SumPaidByLoan(ctx context.Context, loanID uint) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&models.Fine{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("loan_id = ? AND status = ?", loanID, models.FineStatusPaid).
		Scan(&sum).Error
	return sum, err
}

// SumPendingByUser sums a user's pending persisted fines
func (r *FineRepository) SumPendingByUser(ctx context.Context, userID uint) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&models.Fine{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND status = ?", userID, models.FineStatusPending).
		Scan(&sum).Error
	return sum, err
}

// ListPendingByUser lists a user's pending persisted fines
func (r *FineRepository) ListPendingByUser(ctx context.Context, userID uint) ([]*models.Fine, error) {
	var fines []*models.Fine
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.FineStatusPending).
		Order("created_at ASC").
		Find(&fines).Error
	return fines, err
}

// ListByUser lists all of a user's fines
func (r *FineRepository) ListByUser(ctx context.Context, userID uint, offset, limit int) ([]*models.Fine, int64, error) {
	var fines []*models.Fine
	var total int64

	r.db.WithContext(ctx).Model(&models.Fine{}).Where("user_id = ?", userID).Count(&total)

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&fines).Error

	return fines, total, err
}

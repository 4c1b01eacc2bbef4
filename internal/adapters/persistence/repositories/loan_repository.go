package repositories

import (
	"context"
	"time"

	"unilib-circ/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// LoanRepository handles loan data access
type LoanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

// Create creates a new loan
func (r *LoanRepository) Create(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Create(loan).Error
}

// GetByID gets a loan by ID with relations
func (r *LoanRepository) GetByID(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Book").
		First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// Update updates a loan
func (r *LoanRepository) Update(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Save(loan).Error
}

// CountActiveByUser counts a user's active loans
func (r *LoanRepository) CountActiveByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("user_id = ? AND status = ?", userID, models.LoanStatusActive).
		Count(&count).Error
	return count, err
}

// HasActiveLoanForBook checks whether a user already borrowed this exact book
func (r *LoanRepository) HasActiveLoanForBook(ctx context.Context, userID, bookID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Where("user_id = ? AND book_id = ? AND status = ?", userID, bookID, models.LoanStatusActive).
		Count(&count).Error
	return count > 0, err
}

// HasActiveLoanForTitle checks whether a user holds an active loan of any
// copy of the given title, regardless of which physical book row it is.
func (r *LoanRepository) HasActiveLoanForTitle(ctx context.Context, userID uint, title, author string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Loan{}).
		Joins("JOIN books ON books.id = loans.book_id").
		Where("loans.user_id = ? AND loans.status = ? AND books.title = ? AND books.author = ?",
			userID, models.LoanStatusActive, title, author).
		Count(&count).Error
	return count > 0, err
}

// ListActiveByUser lists a user's active loans with books preloaded
func (r *LoanRepository) ListActiveByUser(ctx context.Context, userID uint) ([]*models.Loan, error) {
	var loans []*models.Loan
	err := r.db.WithContext(ctx).
		Preload("Book").
		Where("user_id = ? AND status = ?", userID, models.LoanStatusActive).
		Order("due_date ASC").
		Find(&loans).Error
	return loans, err
}

// ListByUser lists all of a user's loans
func (r *LoanRepository) ListByUser(ctx context.Context, userID uint, offset, limit int) ([]*models.Loan, int64, error) {
	var loans []*models.Loan
	var total int64

	r.db.WithContext(ctx).Model(&models.Loan{}).Where("user_id = ?", userID).Count(&total)

	err := r.db.WithContext(ctx).
		Preload("Book").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&loans).Error

	return loans, total, err
}

// ListActive lists every active loan with user and book preloaded.
// Used by the overdue sweep.
func (r *LoanRepository) ListActive(ctx context.Context) ([]*models.Loan, error) {
	var loans []*models.Loan
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Book").
		Where("status = ?", models.LoanStatusActive).
		Order("due_date ASC").
		Find(&loans).Error
	return loans, err
}

// ListActiveOverdueByUser lists a user's active loans already past due at ref
func (r *LoanRepository) ListActiveOverdueByUser(ctx context.Context, userID uint, ref time.Time) ([]*models.Loan, error) {
	var loans []*models.Loan
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND due_date < ?", userID, models.LoanStatusActive, ref).
		Find(&loans).Error
	return loans, err
}

package repositories

import (
	"context"

	"unilib-circ/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// RequestRepository handles loan/renewal approval envelope data access
type RequestRepository struct {
	db *gorm.DB
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// CreateLoanRequest creates a pending loan request
func (r *RequestRepository) CreateLoanRequest(ctx context.Context, req *models.LoanRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

// GetLoanRequestByID gets a loan request by ID with relations
func (r *RequestRepository) GetLoanRequestByID(ctx context.Context, id uint) (*models.LoanRequest, error) {
	var req models.LoanRequest
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Book").
		First(&req, id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateLoanRequest updates a loan request
func (r *RequestRepository) UpdateLoanRequest(ctx context.Context, req *models.LoanRequest) error {
	return r.db.WithContext(ctx).Save(req).Error
}

// CountPendingForBook counts pending loan requests claiming copies of a book.
// Available copies minus this count is the book's effective availability.
func (r *RequestRepository) CountPendingForBook(ctx context.Context, bookID uint, excludeID uint) (int64, error) {
	var count int64
	q := r.db.WithContext(ctx).
		Model(&models.LoanRequest{}).
		Where("book_id = ? AND status = ?", bookID, models.RequestStatusPending)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count, err
}

// ListPendingUsersForBook lists usernames queued on pending requests for a book
func (r *RequestRepository) ListPendingUsersForBook(ctx context.Context, bookID uint) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&models.LoanRequest{}).
		Joins("JOIN users ON users.id = loan_requests.user_id").
		Where("loan_requests.book_id = ? AND loan_requests.status = ?", bookID, models.RequestStatusPending).
		Order("loan_requests.created_at ASC").
		Pluck("users.username", &names).Error
	return names, err
}

// HasPendingLoanRequest checks whether a user already queued for this book
func (r *RequestRepository) HasPendingLoanRequest(ctx context.Context, userID, bookID uint, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).
		Model(&models.LoanRequest{}).
		Where("user_id = ? AND book_id = ? AND status = ?", userID, bookID, models.RequestStatusPending)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

// HasPendingLoanRequestForTitle checks whether a user queued for any copy of a title
func (r *RequestRepository) HasPendingLoanRequestForTitle(ctx context.Context, userID uint, title, author string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).
		Model(&models.LoanRequest{}).
		Joins("JOIN books ON books.id = loan_requests.book_id").
		Where("loan_requests.user_id = ? AND loan_requests.status = ? AND books.title = ? AND books.author = ?",
			userID, models.RequestStatusPending, title, author)
	if excludeID != 0 {
		q = q.Where("loan_requests.id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

// ListPendingLoanRequests lists pending loan requests with pagination
func (r *RequestRepository) ListPendingLoanRequests(ctx context.Context, offset, limit int) ([]*models.LoanRequest, int64, error) {
	var reqs []*models.LoanRequest
	var total int64

	r.db.WithContext(ctx).Model(&models.LoanRequest{}).
		Where("status = ?", models.RequestStatusPending).Count(&total)

	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Book").
		Where("status = ?", models.RequestStatusPending).
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&reqs).Error

	return reqs, total, err
}

// CreateRenewalRequest creates a pending renewal request
func (r *RequestRepository) CreateRenewalRequest(ctx context.Context, req *models.RenewalRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

// GetRenewalRequestByID gets a renewal request by ID with relations
func (r *RequestRepository) GetRenewalRequestByID(ctx context.Context, id uint) (*models.RenewalRequest, error) {
	var req models.RenewalRequest
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Loan").
		Preload("Loan.Book").
		First(&req, id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateRenewalRequest updates a renewal request
func (r *RequestRepository) UpdateRenewalRequest(ctx context.Context, req *models.RenewalRequest) error {
	return r.db.WithContext(ctx).Save(req).Error
}

// HasPendingRenewalRequest checks for an existing pending renewal of a loan
func (r *RequestRepository) HasPendingRenewalRequest(ctx context.Context, loanID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RenewalRequest{}).
		Where("loan_id = ? AND status = ?", loanID, models.RequestStatusPending).
		Count(&count).Error
	return count > 0, err
}

// ListPendingRenewalRequests lists pending renewal requests with pagination
func (r *RequestRepository) ListPendingRenewalRequests(ctx context.Context, offset, limit int) ([]*models.RenewalRequest, int64, error) {
	var reqs []*models.RenewalRequest
	var total int64

	r.db.WithContext(ctx).Model(&models.RenewalRequest{}).
		Where("status = ?", models.RequestStatusPending).Count(&total)

	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Loan").
		Preload("Loan.Book").
		Where("status = ?", models.RequestStatusPending).
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&reqs).Error

	return reqs, total, err
}

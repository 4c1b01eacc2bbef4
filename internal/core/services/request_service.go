package services

import (
	"context"
	"errors"
	"log"
	"time"

	"unilib-circ/internal/adapters/persistence/models"
	"unilib-circ/internal/adapters/persistence/repositories"

	"gorm.io/gorm"
)

// Request errors
var (
	ErrRequestNotFound = errors.New("request not found")
	ErrRequestDecided  = errors.New("request has already been decided")
)

// RequestService handles loan and renewal approval envelopes. Both request
// kinds share the circulation rules with their direct counterparts: a
// request is admitted with the same checks as the action itself, and the
// checks run again at approval time against current state.
type RequestService struct {
	requestRepo   *repositories.RequestRepository
	loanService   *LoanService
	notifyService *NotificationService
	now           func() time.Time
}

// NewRequestService creates a new request service
func NewRequestService(
	requestRepo *repositories.RequestRepository,
	loanService *LoanService,
	notifyService *NotificationService,
) *RequestService {
	return &RequestService{
		requestRepo:   requestRepo,
		loanService:   loanService,
		notifyService: notifyService,
		now:           time.Now,
	}
}

// CreateLoanRequest queues a loan for staff approval. Admission runs the
// full eligibility chain so a request that could never be approved is
// rejected up front.
func (s *RequestService) CreateLoanRequest(ctx context.Context, userID, bookID uint) (*models.LoanRequest, error) {
	user, book, err := s.loanService.evaluate(ctx, userID, bookID, 0)
	if err != nil {
		return nil, err
	}

	req := &models.LoanRequest{
		UserID: userID,
		BookID: bookID,
		Status: models.RequestStatusPending,
	}
	if err := s.requestRepo.CreateLoanRequest(ctx, req); err != nil {
		return nil, err
	}

	req.User = user
	req.Book = book
	log.Printf("📋 Loan request %d created: user %d for book %d", req.ID, userID, bookID)
	return req, nil
}

// ApproveLoanRequest re-runs eligibility against current state and creates
// the loan. The request's own claim is excluded from the queue-derived
// checks so it cannot block itself.
func (s *RequestService) ApproveLoanRequest(ctx context.Context, requestID, deciderID uint, remark string) (*models.Loan, error) {
	req, err := s.requestRepo.GetLoanRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if req.Status != models.RequestStatusPending {
		return nil, ErrRequestDecided
	}

	loan, err := s.loanService.createLoan(ctx, req.UserID, req.BookID, req.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	req.Status = models.RequestStatusApproved
	req.DecidedBy = &deciderID
	req.DecidedAt = &now
	req.Remark = remark
	if err := s.requestRepo.UpdateLoanRequest(ctx, req); err != nil {
		log.Printf("❌ Loan %d created but request %d not marked approved: %v", loan.ID, req.ID, err)
		return nil, err
	}

	log.Printf("📋 Loan request %d approved by user %d, loan %d", req.ID, deciderID, loan.ID)
	return loan, nil
}

// RejectLoanRequest declines a pending loan request
func (s *RequestService) RejectLoanRequest(ctx context.Context, requestID, deciderID uint, remark string) (*models.LoanRequest, error) {
	req, err := s.requestRepo.GetLoanRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if req.Status != models.RequestStatusPending {
		return nil, ErrRequestDecided
	}

	now := s.now()
	req.Status = models.RequestStatusRejected
	req.DecidedBy = &deciderID
	req.DecidedAt = &now
	req.Remark = remark
	if err := s.requestRepo.UpdateLoanRequest(ctx, req); err != nil {
		return nil, err
	}

	log.Printf("📋 Loan request %d rejected by user %d", req.ID, deciderID)
	return req, nil
}

// ListPendingLoanRequests lists pending loan requests with pagination
func (s *RequestService) ListPendingLoanRequests(ctx context.Context, offset, limit int) ([]*models.LoanRequest, int64, error) {
	return s.requestRepo.ListPendingLoanRequests(ctx, offset, limit)
}

// CreateRenewalRequest queues a renewal for staff approval. The same
// refusal rules as a direct renewal apply at admission.
func (s *RequestService) CreateRenewalRequest(ctx context.Context, loanID, userID uint) (*models.RenewalRequest, error) {
	loan, err := s.loanService.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.UserID != userID {
		return nil, ErrNotLoanOwner
	}
	if !loan.IsActive() {
		return nil, ErrLoanNotActive
	}

	pending, err := s.requestRepo.HasPendingRenewalRequest(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrRequestPending
	}

	if err := s.loanService.checkRenewable(ctx, loan); err != nil {
		return nil, err
	}

	req := &models.RenewalRequest{
		LoanID: loanID,
		UserID: userID,
		Status: models.RequestStatusPending,
	}
	if err := s.requestRepo.CreateRenewalRequest(ctx, req); err != nil {
		return nil, err
	}

	req.Loan = loan
	log.Printf("📋 Renewal request %d created: user %d for loan %d", req.ID, userID, loanID)
	return req, nil
}

// ApproveRenewalRequest renews the loan and records the decision
func (s *RequestService) ApproveRenewalRequest(ctx context.Context, requestID, deciderID uint, remark string) (*models.Loan, error) {
	req, err := s.requestRepo.GetRenewalRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if req.Status != models.RequestStatusPending {
		return nil, ErrRequestDecided
	}

	loan, err := s.loanService.RenewLoan(ctx, req.LoanID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	req.Status = models.RequestStatusApproved
	req.DecidedBy = &deciderID
	req.DecidedAt = &now
	req.Remark = remark
	if err := s.requestRepo.UpdateRenewalRequest(ctx, req); err != nil {
		log.Printf("❌ Loan %d renewed but request %d not marked approved: %v", loan.ID, req.ID, err)
		return nil, err
	}

	log.Printf("📋 Renewal request %d approved by user %d", req.ID, deciderID)
	return loan, nil
}

// RejectRenewalRequest declines a pending renewal request and notifies
// the member
func (s *RequestService) RejectRenewalRequest(ctx context.Context, requestID, deciderID uint, remark string) (*models.RenewalRequest, error) {
	req, err := s.requestRepo.GetRenewalRequestByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if req.Status != models.RequestStatusPending {
		return nil, ErrRequestDecided
	}

	now := s.now()
	req.Status = models.RequestStatusRejected
	req.DecidedBy = &deciderID
	req.DecidedAt = &now
	req.Remark = remark
	if err := s.requestRepo.UpdateRenewalRequest(ctx, req); err != nil {
		return nil, err
	}

	if s.notifyService != nil && req.User != nil {
		var book *models.Book
		if req.Loan != nil {
			book = req.Loan.Book
		}
		s.notifyService.SendRenewalDecision(req.User, book, false, nil)
	}

	log.Printf("📋 Renewal request %d rejected by user %d", req.ID, deciderID)
	return req, nil
}

// ListPendingRenewalRequests lists pending renewal requests with pagination
func (s *RequestService) ListPendingRenewalRequests(ctx context.Context, offset, limit int) ([]*models.RenewalRequest, int64, error) {
	return s.requestRepo.ListPendingRenewalRequests(ctx, offset, limit)
}

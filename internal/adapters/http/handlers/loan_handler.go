package handlers

import (
	"errors"
	"strconv"

	"unilib-circ/internal/adapters/persistence/models"
	"unilib-circ/internal/core/services"
	"unilib-circ/internal/pkg/pagination"
	"unilib-circ/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// LoanHandler handles circulation endpoints
type LoanHandler struct {
	loanService *services.LoanService
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(loanService *services.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

// CreateLoanRequest represents a checkout request body
type CreateLoanRequest struct {
	UserID uint `json:"user_id"`
	BookID uint `json:"book_id"`
}

// Evaluate runs the eligibility check without creating anything
// @Summary Check borrowing eligibility
// @Description Run the full eligibility rule chain for a member and a book (staff/admin only)
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param user_id query int true "User ID"
// @Param book_id query int true "Book ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /loans/eligibility [get]
func (h *LoanHandler) Evaluate(c *fiber.Ctx) error {
	userID, err := strconv.ParseUint(c.Query("user_id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}
	bookID, err := strconv.ParseUint(c.Query("book_id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid book ID")
	}

	result, err := h.loanService.Evaluate(c.Context(), uint(userID), uint(bookID))
	if err != nil {
		return response.InternalServerError(c, "Failed to evaluate eligibility")
	}

	return response.Success(c, "Eligibility evaluated", result)
}

// Create checks out a book to a member
// @Summary Create loan
// @Description Check a book out to a member at the circulation desk (staff/admin only)
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateLoanRequest true "Checkout data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /loans [post]
func (h *LoanHandler) Create(c *fiber.Ctx) error {
	var req CreateLoanRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.UserID == 0 || req.BookID == 0 {
		return response.BadRequest(c, "user_id and book_id are required")
	}

	loan, err := h.loanService.CreateLoan(c.Context(), req.UserID, req.BookID)
	if err != nil {
		if services.IsPolicyDenial(err) {
			return response.UnprocessableEntity(c, err.Error())
		}
		return response.InternalServerError(c, "Failed to create loan")
	}

	return response.Created(c, "Loan created successfully", loan.ToResponse())
}

// Return checks a book back in
// @Summary Return loan
// @Description Check a book back in; reports the fine owed, if any (staff/admin only)
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/return [post]
func (h *LoanHandler) Return(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	fine, err := h.loanService.ReturnLoan(c.Context(), uint(id))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLoanNotFound):
			return response.NotFound(c, "Loan not found")
		case errors.Is(err, services.ErrLoanNotActive):
			return response.Conflict(c, "Loan has already been returned")
		default:
			return response.InternalServerError(c, "Failed to return loan")
		}
	}

	return response.Success(c, "Book returned successfully", fiber.Map{
		"fine_amount": fine,
	})
}

// Renew extends a member's own active loan
// @Summary Renew loan
// @Description Extend an active loan's due date
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /loans/{id}/renew [post]
func (h *LoanHandler) Renew(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	role, _ := c.Locals("role").(string)

	loan, err := h.loanService.GetByID(c.Context(), uint(id))
	if err != nil {
		return response.NotFound(c, "Loan not found")
	}
	if loan.UserID != userID && role != "STAFF" && role != "ADMIN" {
		return response.Forbidden(c, "You can only renew your own loans")
	}

	renewed, err := h.loanService.RenewLoan(c.Context(), uint(id))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLoanNotFound):
			return response.NotFound(c, "Loan not found")
		case errors.Is(err, services.ErrLoanNotActive):
			return response.Conflict(c, "Loan has already been returned")
		default:
			if services.IsPolicyDenial(err) {
				return response.UnprocessableEntity(c, err.Error())
			}
			return response.InternalServerError(c, "Failed to renew loan")
		}
	}

	return response.Success(c, "Loan renewed successfully", renewed.ToResponse())
}

// MyLoans lists the authenticated member's loans
// @Summary List my loans
// @Description List the authenticated member's loan history with pagination
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} pagination.Response
// @Router /loans/my [get]
func (h *LoanHandler) MyLoans(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c)

	loans, total, err := h.loanService.ListByUser(c.Context(), userID, params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list loans")
	}

	items := make([]*models.LoanResponse, 0, len(loans))
	for _, l := range loans {
		items = append(items, l.ToResponse())
	}

	return c.JSON(pagination.NewResponse(items, params, total))
}

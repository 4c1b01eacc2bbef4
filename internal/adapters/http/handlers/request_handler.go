package handlers

import (
	"errors"
	"strconv"

	"unilib-circ/internal/core/services"
	"unilib-circ/internal/pkg/pagination"
	"unilib-circ/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// RequestHandler handles loan/renewal approval endpoints
type RequestHandler struct {
	requestService *services.RequestService
}

// NewRequestHandler creates a new request handler
func NewRequestHandler(requestService *services.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

// CreateLoanRequestBody represents a loan request body
type CreateLoanRequestBody struct {
	BookID uint `json:"book_id"`
}

// CreateRenewalRequestBody represents a renewal request body
type CreateRenewalRequestBody struct {
	LoanID uint `json:"loan_id"`
}

// DecideRequestBody represents an approve/reject body
type DecideRequestBody struct {
	Remark string `json:"remark"`
}

// CreateLoanRequest queues a borrow for approval
// @Summary Request a loan
// @Description Queue a borrow request for staff approval
// @Tags Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateLoanRequestBody true "Request data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /requests/loans [post]
func (h *RequestHandler) CreateLoanRequest(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req CreateLoanRequestBody
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.BookID == 0 {
		return response.BadRequest(c, "book_id is required")
	}

	result, err := h.requestService.CreateLoanRequest(c.Context(), userID, req.BookID)
	if err != nil {
		if services.IsPolicyDenial(err) {
			return response.UnprocessableEntity(c, err.Error())
		}
		return response.InternalServerError(c, "Failed to create loan request")
	}

	return response.Created(c, "Loan request created successfully", result)
}

// ListPendingLoanRequests lists pending loan requests
// @Summary List pending loan requests
// @Description List pending loan requests for review (staff/admin only)
// @Tags Requests
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} pagination.Response
// @Router /requests/loans [get]
func (h *RequestHandler) ListPendingLoanRequests(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	list, total, err := h.requestService.ListPendingLoanRequests(c.Context(), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list loan requests")
	}

	return c.JSON(pagination.NewResponse(list, params, total))
}

// ApproveLoanRequest approves a pending loan request
// @Summary Approve loan request
// @Description Approve a pending loan request and create the loan (staff/admin only)
// @Tags Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Param body body DecideRequestBody false "Decision remark"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /requests/loans/{id}/approve [post]
func (h *RequestHandler) ApproveLoanRequest(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid request ID")
	}

	deciderID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var body DecideRequestBody
	_ = c.BodyParser(&body)

	loan, err := h.requestService.ApproveLoanRequest(c.Context(), uint(id), deciderID, body.Remark)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRequestNotFound):
			return response.NotFound(c, "Request not found")
		case errors.Is(err, services.ErrRequestDecided):
			return response.Conflict(c, "Request has already been decided")
		default:
			if services.IsPolicyDenial(err) {
				return response.UnprocessableEntity(c, err.Error())
			}
			return response.InternalServerError(c, "Failed to approve loan request")
		}
	}

	return response.Success(c, "Loan request approved", loan.ToResponse())
}

// RejectLoanRequest rejects a pending loan request
// @Summary Reject loan request
// @Description Reject a pending loan request (staff/admin only)
// @Tags Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Param body body DecideRequestBody false "Decision remark"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /requests/loans/{id}/reject [post]
func (h *RequestHandler) RejectLoanRequest(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid request ID")
	}

	deciderID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var body DecideRequestBody
	_ = c.BodyParser(&body)

	req, err := h.requestService.RejectLoanRequest(c.Context(), uint(id), deciderID, body.Remark)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRequestNotFound):
			return response.NotFound(c, "Request not found")
		case errors.Is(err, services.ErrRequestDecided):
			return response.Conflict(c, "Request has already been decided")
		default:
			return response.InternalServerError(c, "Failed to reject loan request")
		}
	}

	return response.Success(c, "Loan request rejected", req)
}

// CreateRenewalRequest queues a renewal for approval
// @Summary Request a renewal
// @Description Queue a renewal request for staff approval
// @Tags Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateRenewalRequestBody true "Request data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /requests/renewals [post]
func (h *RequestHandler) CreateRenewalRequest(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req CreateRenewalRequestBody
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.LoanID == 0 {
		return response.BadRequest(c, "loan_id is required")
	}

	result, err := h.requestService.CreateRenewalRequest(c.Context(), req.LoanID, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLoanNotFound):
			return response.NotFound(c, "Loan not found")
		case errors.Is(err, services.ErrNotLoanOwner):
			return response.Forbidden(c, "You can only renew your own loans")
		case errors.Is(err, services.ErrLoanNotActive):
			return response.Conflict(c, "Loan has already been returned")
		default:
			if services.IsPolicyDenial(err) {
				return response.UnprocessableEntity(c, err.Error())
			}
			return response.InternalServerError(c, "Failed to create renewal request")
		}
	}

	return response.Created(c, "Renewal request created successfully", result)
}

// ListPendingRenewalRequests lists pending renewal requests
// @Summary List pending renewal requests
// @Description List pending renewal requests for review (staff/admin only)
// @Tags Requests
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} pagination.Response
// @Router /requests/renewals [get]
func (h *RequestHandler) ListPendingRenewalRequests(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	list, total, err := h.requestService.ListPendingRenewalRequests(c.Context(), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list renewal requests")
	}

	return c.JSON(pagination.NewResponse(list, params, total))
}

// ApproveRenewalRequest approves a pending renewal request
// @Summary Approve renewal request
// @Description Approve a pending renewal request and extend the loan (staff/admin only)
// @Tags Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Param body body DecideRequestBody false "Decision remark"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /requests/renewals/{id}/approve [post]
func (h *RequestHandler) ApproveRenewalRequest(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid request ID")
	}

	deciderID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var body DecideRequestBody
	_ = c.BodyParser(&body)

	loan, err := h.requestService.ApproveRenewalRequest(c.Context(), uint(id), deciderID, body.Remark)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRequestNotFound):
			return response.NotFound(c, "Request not found")
		case errors.Is(err, services.ErrRequestDecided):
			return response.Conflict(c, "Request has already been decided")
		case errors.Is(err, services.ErrLoanNotActive):
			return response.Conflict(c, "Loan has already been returned")
		default:
			if services.IsPolicyDenial(err) {
				return response.UnprocessableEntity(c, err.Error())
			}
			return response.InternalServerError(c, "Failed to approve renewal request")
		}
	}

	return response.Success(c, "Renewal request approved", loan.ToResponse())
}

// RejectRenewalRequest rejects a pending renewal request
// @Summary Reject renewal request
// @Description Reject a pending renewal request (staff/admin only)
// @Tags Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Param body body DecideRequestBody false "Decision remark"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /requests/renewals/{id}/reject [post]
func (h *RequestHandler) RejectRenewalRequest(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid request ID")
	}

	deciderID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var body DecideRequestBody
	_ = c.BodyParser(&body)

	req, err := h.requestService.RejectRenewalRequest(c.Context(), uint(id), deciderID, body.Remark)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRequestNotFound):
			return response.NotFound(c, "Request not found")
		case errors.Is(err, services.ErrRequestDecided):
			return response.Conflict(c, "Request has already been decided")
		default:
			return response.InternalServerError(c, "Failed to reject renewal request")
		}
	}

	return response.Success(c, "Renewal request rejected", req)
}

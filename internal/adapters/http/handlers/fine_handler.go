package handlers

import (
	"errors"
	"strconv"

	"unilib-circ/internal/core/services"
	"unilib-circ/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// FineHandler handles fine ledger endpoints
type FineHandler struct {
	fineService *services.FineService
}

// NewFineHandler creates a new fine handler
func NewFineHandler(fineService *services.FineService) *FineHandler {
	return &FineHandler{fineService: fineService}
}

// MyFines lists the authenticated member's open fines
// @Summary List my fines
// @Description List open fines: settled-pending rows plus live charges on overdue loans
// @Tags Fines
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /fines/my [get]
func (h *FineHandler) MyFines(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	views, err := h.fineService.ViewsForUser(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list fines")
	}

	outstanding, err := h.fineService.OutstandingForUser(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to compute outstanding amount")
	}

	return response.Success(c, "Fines retrieved successfully", fiber.Map{
		"fines":       views,
		"outstanding": outstanding,
	})
}

// Outstanding reports a member's total exposure
// @Summary Get member's outstanding fines
// @Description Total of pending fines plus live charges on overdue loans (staff/admin only)
// @Tags Fines
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Router /fines/users/{id}/outstanding [get]
func (h *FineHandler) Outstanding(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	outstanding, err := h.fineService.OutstandingForUser(c.Context(), uint(id))
	if err != nil {
		return response.InternalServerError(c, "Failed to compute outstanding amount")
	}

	return response.Success(c, "Outstanding amount retrieved", fiber.Map{
		"user_id":     uint(id),
		"outstanding": outstanding,
	})
}

// Pay settles a pending fine row
// @Summary Pay fine
// @Description Settle a pending fine in full (staff/admin only)
// @Tags Fines
// @Produce json
// @Security BearerAuth
// @Param id path int true "Fine ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /fines/{id}/pay [post]
func (h *FineHandler) Pay(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid fine ID")
	}

	fine, err := h.fineService.Pay(c.Context(), uint(id))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrFineNotFound):
			return response.NotFound(c, "Fine not found")
		case errors.Is(err, services.ErrFineAlreadyPaid):
			return response.Conflict(c, "Fine is already paid")
		default:
			return response.InternalServerError(c, "Failed to pay fine")
		}
	}

	return response.Success(c, "Fine paid successfully", fine)
}

// PayVirtual settles the live charge on an active overdue loan
// @Summary Pay accrued fine on an active loan
// @Description Settle the currently-accrued charge of an overdue loan that is still out (staff/admin only)
// @Tags Fines
// @Produce json
// @Security BearerAuth
// @Param loanId path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /fines/loans/{loanId}/pay [post]
func (h *FineHandler) PayVirtual(c *fiber.Ctx) error {
	loanID, err := strconv.ParseUint(c.Params("loanId"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	fine, err := h.fineService.PayVirtual(c.Context(), uint(loanID))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLoanNotFound):
			return response.NotFound(c, "Loan not found")
		case errors.Is(err, services.ErrLoanNotActive):
			return response.Conflict(c, "Loan is not active")
		case errors.Is(err, services.ErrNothingToPay):
			return response.Conflict(c, "Loan has no unpaid fine")
		default:
			return response.InternalServerError(c, "Failed to pay fine")
		}
	}

	return response.Success(c, "Accrued fine paid successfully", fine)
}

package handlers

import (
	"errors"
	"strconv"

	"unilib-circ/internal/core/services"
	"unilib-circ/internal/pkg/pagination"
	"unilib-circ/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ReservationHandler handles waitlist endpoints
type ReservationHandler struct {
	reservationService *services.ReservationService
}

// NewReservationHandler creates a new reservation handler
func NewReservationHandler(reservationService *services.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservationService: reservationService}
}

// CreateReservationRequest represents a reservation request body
type CreateReservationRequest struct {
	BookID uint `json:"book_id"`
}

// Create places the member on a book's waitlist
// @Summary Create reservation
// @Description Join the waitlist for a book
// @Tags Reservations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateReservationRequest true "Reservation data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /reservations [post]
func (h *ReservationHandler) Create(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req CreateReservationRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.BookID == 0 {
		return response.BadRequest(c, "book_id is required")
	}

	res, err := h.reservationService.Create(c.Context(), userID, req.BookID)
	if err != nil {
		if services.IsPolicyDenial(err) {
			return response.UnprocessableEntity(c, err.Error())
		}
		return response.InternalServerError(c, "Failed to create reservation")
	}

	return response.Created(c, "Reservation created successfully", res)
}

// Cancel withdraws the member's own reservation
// @Summary Cancel reservation
// @Description Withdraw an active reservation
// @Tags Reservations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Reservation ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /reservations/{id} [delete]
func (h *ReservationHandler) Cancel(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid reservation ID")
	}

	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	if err := h.reservationService.Cancel(c.Context(), uint(id), userID); err != nil {
		switch {
		case errors.Is(err, services.ErrReservationNotFound):
			return response.NotFound(c, "Reservation not found")
		case errors.Is(err, services.ErrNotReservationOwner):
			return response.Forbidden(c, "You can only cancel your own reservations")
		case errors.Is(err, services.ErrReservationNotActive):
			return response.Conflict(c, "Reservation is no longer active")
		default:
			return response.InternalServerError(c, "Failed to cancel reservation")
		}
	}

	return response.Success(c, "Reservation cancelled successfully", nil)
}

// MyReservations lists the authenticated member's reservations
// @Summary List my reservations
// @Description List the authenticated member's reservations with pagination
// @Tags Reservations
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} pagination.Response
// @Router /reservations/my [get]
func (h *ReservationHandler) MyReservations(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c)

	list, total, err := h.reservationService.ListByUser(c.Context(), userID, params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list reservations")
	}

	return c.JSON(pagination.NewResponse(list, params, total))
}

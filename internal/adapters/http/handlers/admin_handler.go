package handlers

import (
	"errors"

	"unilib-circ/internal/core/services"
	"unilib-circ/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler handles administrative maintenance endpoints
type AdminHandler struct {
	sweepService *services.SweepService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(sweepService *services.SweepService) *AdminHandler {
	return &AdminHandler{sweepService: sweepService}
}

// RunSweep triggers the overdue sweep immediately
// @Summary Run overdue sweep
// @Description Run the daily overdue sweep now instead of waiting for the schedule (admin only)
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/sweep [post]
func (h *AdminHandler) RunSweep(c *fiber.Ctx) error {
	summary, err := h.sweepService.Run(c.Context())
	if err != nil {
		if errors.Is(err, services.ErrSweepRunning) {
			return response.Conflict(c, "A sweep is already running")
		}
		return response.InternalServerError(c, "Sweep failed")
	}

	return response.Success(c, "Sweep completed", summary)
}

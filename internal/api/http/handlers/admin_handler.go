package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/clearsight/auth-service/internal/api/dto"
	"github.com/clearsight/auth-service/internal/auth"
	"github.com/clearsight/auth-service/internal/service"
	apperrors "github.com/clearsight/auth-service/pkg/util"
)

// AdminHandler exposes administrative operations on doctor accounts.
type AdminHandler struct {
	doctors *service.DoctorService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(doctorService *service.DoctorService) *AdminHandler {
	return &AdminHandler{doctors: doctorService}
}

// DecideVerification handles PATCH /admin/doctors/:id/verification.
func (h *AdminHandler) DecideVerification(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	doctorID := c.Params("id")
	if doctorID == "" {
		return fiber.NewError(http.StatusBadRequest, "doctor id required")
	}

	var req dto.VerificationDecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Status == "" {
		return fiber.NewError(http.StatusBadRequest, "status required")
	}

	if err := h.doctors.Decide(c.Context(), doctorID, req.Status, principal.User.ID); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": "Verification status updated."})
}

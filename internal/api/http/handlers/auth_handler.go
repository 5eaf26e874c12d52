package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/clearsight/auth-service/internal/api/dto"
	"github.com/clearsight/auth-service/internal/auth"
	"github.com/clearsight/auth-service/internal/service"
	apperrors "github.com/clearsight/auth-service/pkg/util"
)

// AuthHandler exposes the authentication and session lifecycle endpoints.
type AuthHandler struct {
	auth      *service.AuthService
	passwords *service.PasswordService
	logger    *zap.Logger
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, passwordService *service.PasswordService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: authService, passwords: passwordService, logger: logger}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.FullName == "" || req.Email == "" || req.Password == "" || req.Role == "" {
		return fiber.NewError(http.StatusBadRequest, "full_name, email, password, role required")
	}

	result, err := h.auth.Register(c.Context(), req.FullName, req.Email, req.Password, req.Role)
	if err != nil {
		return apperrors.MapError(err)
	}
	if result.Message != "" {
		return apperrors.NewValidationError(result.Message, nil)
	}

	// Confirmation delivery is part of the registration contract: if the
	// code cannot even be issued the account is rolled back, matching the
	// delete-on-failed-delivery behavior of the platform.
	if err := h.passwords.RequestEmailConfirmation(c.Context(), result.Email); err != nil {
		h.logger.Error("email confirmation request failed", zap.Error(err))
		if delErr := h.auth.DeleteAccount(c.Context(), result.UserID); delErr != nil {
			h.logger.Error("rollback of unconfirmed account failed", zap.Error(delErr))
		}
		return apperrors.MapError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.RegisterResponse{
			Email:    result.Email,
			Username: result.Username,
			Role:     string(result.Role),
		},
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}

	result, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !result.Authenticated {
		return apperrors.NewUnauthorized(result.ErrorMessage)
	}

	c.Cookie(auth.RefreshCookie(result.RefreshToken, result.RefreshExpiresAt))

	return c.JSON(fiber.Map{"data": authResponse(result)})
}

// RefreshToken handles GET /auth/refresh-token. The refresh token arrives
// in the http-only cookie set at login.
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	presented := c.Cookies(auth.RefreshCookieName)
	if presented == "" {
		return fiber.NewError(http.StatusBadRequest, "refresh token required")
	}

	result, err := h.auth.Refresh(c.Context(), presented)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !result.Authenticated {
		return apperrors.NewUnauthorized(result.ErrorMessage)
	}

	c.Cookie(auth.RefreshCookie(result.RefreshToken, result.RefreshExpiresAt))

	return c.JSON(fiber.Map{"data": authResponse(result)})
}

// RevokeToken handles DELETE /auth/revoke-token.
func (h *AuthHandler) RevokeToken(c *fiber.Ctx) error {
	presented := c.Cookies(auth.RefreshCookieName)
	if presented == "" {
		return fiber.NewError(http.StatusBadRequest, "Token is required!")
	}

	revoked, err := h.auth.Revoke(c.Context(), presented)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !revoked {
		return fiber.NewError(http.StatusBadRequest, "Token is invalid!")
	}

	c.Cookie(auth.ClearRefreshCookie())
	return c.JSON(fiber.Map{"data": "Token revoked successfully"})
}

// RequestResetCode handles POST /auth/password/code.
func (h *AuthHandler) RequestResetCode(c *fiber.Ctx) error {
	var req dto.ResetCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" {
		return fiber.NewError(http.StatusBadRequest, "email required")
	}

	if err := h.passwords.RequestResetCode(c.Context(), req.Email); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": "Verification code sent to your email."})
}

// ResetPassword handles POST /auth/password/reset.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.VerificationCode == "" || req.NewPassword == "" {
		return fiber.NewError(http.StatusBadRequest, "email, verification_code, new_password required")
	}

	if err := h.passwords.ConfirmReset(c.Context(), req.Email, req.VerificationCode, req.NewPassword); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": "Password reset successful."})
}

// ChangePassword handles POST /auth/password/change (authenticated).
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return fiber.NewError(http.StatusBadRequest, "current_password and new_password required")
	}

	if err := h.passwords.ChangePassword(c.Context(), principal.User.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return apperrors.MapError(err)
	}

	c.Cookie(auth.ClearRefreshCookie())
	return c.JSON(fiber.Map{"data": "Password has been changed successfully."})
}

// ConfirmEmail handles POST /auth/confirm-email.
func (h *AuthHandler) ConfirmEmail(c *fiber.Ctx) error {
	var req dto.ConfirmEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.VerificationCode == "" {
		return fiber.NewError(http.StatusBadRequest, "email and verification_code required")
	}

	if err := h.passwords.ConfirmEmail(c.Context(), req.Email, req.VerificationCode); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": "Email confirmed successfully."})
}

func authResponse(result *service.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{
		Token:            result.Token,
		ExpiresAt:        result.ExpiresAt,
		Username:         result.Username,
		Email:            result.Email,
		Role:             string(result.Role),
		RefreshExpiresAt: result.RefreshExpiresAt,
	}
}

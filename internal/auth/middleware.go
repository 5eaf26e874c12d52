package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/clearsight/auth-service/internal/domain"
	apperrors "github.com/clearsight/auth-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	User               *domain.User
	Role               domain.Role
	VerificationStatus string
	Claims             Claims
}

// AuthMiddleware validates bearer tokens, enforces the security stamp gate
// and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
	stamps *StampValidator
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, stamps *StampValidator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, stamps: stamps}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	// Stamp mismatch gets the same generic response as any other invalid
	// token; no detail beyond "log in again" is leaked.
	user, err := m.stamps.Validate(c.Context(), claims)
	if err != nil {
		if errors.Is(err, ErrStampMismatch) {
			return apperrors.NewUnauthorized("invalid token")
		}
		return apperrors.MapError(err)
	}

	principal := &Principal{User: user, Role: user.PrimaryRole, Claims: claims}
	if status, ok := claims.First(ClaimVerificationStatus); ok {
		principal.VerificationStatus = status
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

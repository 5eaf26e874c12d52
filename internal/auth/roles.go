package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/clearsight/auth-service/internal/domain"
)

// RequireRole ensures the principal holds one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}

// RequireApprovedDoctor ensures the caller is a doctor whose verification
// claim reads Approved. The claim reflects the status at token issuance;
// status changes bump the security stamp, so stale tokens never reach here.
func RequireApprovedDoctor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if principal.Role != domain.RoleDoctor {
			return fiber.NewError(http.StatusForbidden, "doctor role required")
		}
		if principal.VerificationStatus != string(domain.VerificationApproved) {
			return fiber.NewError(http.StatusForbidden, "doctor account not approved")
		}
		return c.Next()
	}
}

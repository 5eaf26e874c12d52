package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// RefreshCookieName carries the raw refresh token between browser and API.
const RefreshCookieName = "refreshToken"

// RefreshCookie builds the cookie holding a refresh token: http-only and
// secure with SameSite=None, since the SPA lives on a different origin.
func RefreshCookie(token string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteNoneMode,
	}
}

// ClearRefreshCookie expires the refresh cookie immediately.
func ClearRefreshCookie() *fiber.Cookie {
	return &fiber.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteNoneMode,
	}
}

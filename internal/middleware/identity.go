package middleware

import "github.com/labstack/echo/v4"

// UserID returns the authenticated identity id, or "" when the request
// did not pass through JWTAuth.
func UserID(c echo.Context) string {
	if s, ok := c.Get(ctxUserID).(string); ok {
		return s
	}
	return ""
}

// rateSubject names the caller for rate limit keys.
func rateSubject(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}

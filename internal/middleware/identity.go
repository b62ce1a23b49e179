package middleware

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// userKey identifies the caller for rate limiting.  Authenticated staff
// are keyed by id; everyone else shares "anon" and is told apart by IP.
func userKey(c echo.Context) string {
    if uid, ok := c.Get("user_id").(uint64); ok && uid != 0 {
        return strconv.FormatUint(uid, 10)
    }
    return "anon"
}

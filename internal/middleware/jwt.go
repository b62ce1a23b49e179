package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/restaurant-reservation/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and stores the staff member's id under "user_id" (uint64) and role under
// "role".
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            uid, err := claims.UserID()
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }
            c.Set("user_id", uid)
            c.Set("role", claims.Role)
            return next(c)
        }
    }
}

// Optional returns mw when enabled is true and a pass-through otherwise.
// It lets the staff token requirement be switched on by configuration
// without changing route registration.
func Optional(enabled bool, mw echo.MiddlewareFunc) echo.MiddlewareFunc {
    if enabled {
        return mw
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
}

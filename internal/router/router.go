// Package router registers the HTTP routes of the reservation API.
package router

import (
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/restaurant-reservation/internal/handler"
    "github.com/iliyamo/restaurant-reservation/internal/middleware"
    "github.com/iliyamo/restaurant-reservation/internal/model"
    "github.com/iliyamo/restaurant-reservation/internal/validation"
)

// Clock supplies the current time and the restaurant's timezone to the
// validation chains.
type Clock struct {
    Now      func() time.Time
    Location *time.Location
}

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
    e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the staff auth routes.  Register, login, refresh
// and logout with a refresh token are open; /auth/me and /auth/logout-all
// need a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    g := e.Group("/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    g.POST("/refresh", a.Refresh)
    g.POST("/logout", a.Logout)

    staff := middleware.JWTAuth(jwtSecret)
    roles := middleware.RequireRole(model.RoleHost, model.RoleManager)
    g.GET("/me", a.Me, staff, roles)
    g.POST("/logout-all", a.Logout, staff, roles)
}

// RegisterReservations registers /reservations.  Each route runs its
// validation chain as middleware ahead of the handler; mw is applied to
// the whole group.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, clock Clock, mw ...echo.MiddlewareFunc) {
    g := e.Group("/reservations", mw...)
    exists := middleware.ReservationExists(h.Store)
    validate := func(chain func() []validation.Validator) echo.MiddlewareFunc {
        return middleware.ValidateReservation(chain, clock.Now, clock.Location)
    }

    g.GET("", h.List)
    g.POST("", h.Create, validate(validation.CreateChain))
    g.GET("/:reservation_id", h.Read, exists)
    g.PUT("/:reservation_id", h.Update, exists, validate(validation.UpdateChain))
    g.PUT("/:reservation_id/status", h.UpdateStatus, exists, validate(validation.StatusChain))
}

// RegisterTables registers /tables.  managerOnly guards table creation.
func RegisterTables(e *echo.Echo, h *handler.TableHandler, managerOnly echo.MiddlewareFunc, mw ...echo.MiddlewareFunc) {
    g := e.Group("/tables", mw...)
    g.GET("", h.List)
    g.POST("", h.Create, managerOnly)
    g.PUT("/:table_id/seat", h.Seat)
    g.DELETE("/:table_id/seat", h.Finish)
}

package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/reservaplay/facility-booking/internal/config"
	"github.com/reservaplay/facility-booking/internal/handler"
	"github.com/reservaplay/facility-booking/internal/middleware"
)

// Handlers bundles every handler the API mounts.
type Handlers struct {
	Blocks       *handler.BlockHandler
	Templates    *handler.TemplateHandler
	Reservations *handler.ReservationHandler
	Payments     *handler.PaymentHandler
}

// RegisterRoutes wires the full HTTP surface onto the Echo instance.
// Booking routes require a valid JWT; administrative routes require
// the ADMIN role on top. Payment callbacks stay public because the
// provider redirects the payer's browser to them without a token of
// ours. When a redis client is available the availability listing is
// response-cached and all routes are rate limited.
func RegisterRoutes(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	if rdb != nil {
		e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	}

	v1 := e.Group("/v1")

	// Availability is read by anonymous browsers picking a slot.
	var availabilityMW []echo.MiddlewareFunc
	if rdb != nil {
		availabilityMW = append(availabilityMW, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	}
	v1.GET("/facilities/:id/availability/:date", h.Blocks.Availability, availabilityMW...)
	v1.GET("/payments/confirm", h.Payments.Confirm)
	v1.POST("/payments/confirm", h.Payments.Confirm)
	v1.GET("/payments/status", h.Payments.Status)

	authed := v1.Group("")
	authed.Use(middleware.JWTAuth(cfg.JWTSecret))
	authed.POST("/reservations", h.Reservations.Create)
	authed.GET("/reservations/:id", h.Reservations.Get)
	authed.PATCH("/reservations/:id", h.Reservations.Modify)
	authed.DELETE("/reservations/:id", h.Reservations.Cancel)
	authed.GET("/reservations/user/:id/date/:date", h.Reservations.UserDateCount)
	authed.POST("/payments/start", h.Payments.Start)
	authed.GET("/facilities/:id/blocks", h.Blocks.ListByFacility)

	admin := v1.Group("")
	admin.Use(middleware.JWTAuth(cfg.JWTSecret))
	admin.Use(middleware.RequireRole("ADMIN"))
	admin.POST("/blocks/generate-range", h.Blocks.GenerateRange)
	admin.POST("/facilities/:id/blocks/hold", h.Blocks.Hold)
	admin.DELETE("/facilities/:id/blocks", h.Blocks.DeleteForDate)
	admin.POST("/reservations/expire-pending", h.Reservations.ExpirePending)
	admin.POST("/block-templates", h.Templates.Create)
	admin.GET("/block-templates", h.Templates.List)
	admin.PUT("/block-templates/:id", h.Templates.Update)
	admin.DELETE("/block-templates/:id", h.Templates.Delete)
}

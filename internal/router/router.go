// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/theater-seat-reservation/internal/handler"
)

// Register wires all routes on the provided Echo instance. The rate
// limiter, when non-nil, guards the /v1 group; health and metrics stay
// unthrottled so probes and scrapes always get through.
func Register(e *echo.Echo, res *handler.ReservationHandler, avail *handler.AvailabilityHandler, ratelimit echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/v1")
	if ratelimit != nil {
		v1.Use(ratelimit)
	}
	v1.POST("/reservations", res.Create)
	v1.GET("/reservations/:id", res.Get)
	v1.DELETE("/reservations/:id", res.Cancel)
	v1.GET("/plays/:playID/seats/:seat", avail.SeatStatus)
}

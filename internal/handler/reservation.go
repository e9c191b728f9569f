// Package handler contains the HTTP handlers exposing the reservation
// coordinator and the materialized seat view. Authentication happens
// upstream at the gateway, which forwards the acting user as the opaque
// X-User-ID header.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theater-seat-reservation/internal/coordinator"
	"github.com/iliyamo/theater-seat-reservation/internal/ledger"
	"github.com/iliyamo/theater-seat-reservation/internal/model"
)

// userHeader carries the upstream-authenticated user id.
const userHeader = "X-User-ID"

// ReservationService is the coordinator surface the HTTP layer consumes.
type ReservationService interface {
	CreateReservation(ctx context.Context, playID, seatNumber, userID int64) (*model.Reservation, error)
	GetReservation(ctx context.Context, id uint64) (*model.Reservation, error)
	CancelReservation(ctx context.Context, id uint64, userID int64) error
}

// ReservationHandler serves the /v1/reservations endpoints.
type ReservationHandler struct {
	svc ReservationService
}

// NewReservationHandler constructs a ReservationHandler over the given
// service.
func NewReservationHandler(svc ReservationService) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{svc: svc}
}

// Create handles POST /v1/reservations. The body names the play, seat and
// user; the response is the confirmed reservation or an error naming the
// outcome precisely enough for the client to tell "seat genuinely taken"
// from "indeterminate, re-check".
func (h *ReservationHandler) Create(c echo.Context) error {
	var body struct {
		PlayID     int64 `json:"play_id"`
		SeatNumber int64 `json:"seat_number"`
		UserID     int64 `json:"user_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.UserID <= 0 {
		if uid, ok := headerUserID(c); ok {
			body.UserID = uid
		}
	}
	if body.UserID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id is required"})
	}

	res, err := h.svc.CreateReservation(c.Request().Context(), body.PlayID, body.SeatNumber, body.UserID)
	if err != nil {
		return reservationError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	res, err := h.svc.GetReservation(c.Request().Context(), id)
	if err != nil {
		return reservationError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Cancel handles DELETE /v1/reservations/:id. The requesting user must be
// the log-confirmed owner of the seat; the user id is taken from the
// X-User-ID header set by the gateway.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	userID, ok := headerUserID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing " + userHeader + " header"})
	}
	if err := h.svc.CancelReservation(c.Request().Context(), id, userID); err != nil {
		return reservationError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// headerUserID parses the upstream user id header.
func headerUserID(c echo.Context) (int64, bool) {
	raw := c.Request().Header.Get(userHeader)
	if raw == "" {
		return 0, false
	}
	uid, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || uid <= 0 {
		return 0, false
	}
	return uid, true
}

// reservationError maps the coordinator's error taxonomy onto HTTP
// responses. SeatTaken and VerificationTimeout get distinct statuses so
// clients can retry the right way: a taken seat is final, a timeout means
// re-check the existing claim rather than claiming again.
func reservationError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, coordinator.ErrNoPlaySelected):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no_play_selected", "message": coordinator.ErrNoPlaySelected.Error()})
	case errors.Is(err, coordinator.ErrSeatTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat_taken", "message": coordinator.ErrSeatTaken.Error()})
	case errors.Is(err, coordinator.ErrVerificationTimeout):
		return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "verification_timeout", "message": coordinator.ErrVerificationTimeout.Error(), "retryable": true})
	case errors.Is(err, coordinator.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found"})
	case errors.Is(err, coordinator.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, coordinator.ErrStoreFailure):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store_failure", "retryable": true})
	case errors.Is(err, ledger.ErrBrokerUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "event_log_unavailable", "retryable": true})
	default:
		c.Logger().Errorf("reservation: unhandled error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
	}
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// SeatView is the read surface of the materialized view consumed by the
// availability endpoint. Answers are advisory: the view may lag the log,
// and the coordinator re-derives ground truth before admitting any claim.
type SeatView interface {
	IsAvailable(playID, seatNumber int64) bool
	IsHeldBy(playID, seatNumber, userID int64) bool
}

// AvailabilityHandler serves fast seat-occupancy reads from the
// materialized view without touching the log or the store.
type AvailabilityHandler struct {
	view SeatView
}

// NewAvailabilityHandler constructs an AvailabilityHandler over the given
// view.
func NewAvailabilityHandler(view SeatView) *AvailabilityHandler {
	if view == nil {
		panic("nil view passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{view: view}
}

// SeatStatus handles GET /v1/plays/:playID/seats/:seat. It reports whether
// the seat is currently free; when the caller identifies themselves via
// X-User-ID, the response also says whether they are the current holder.
func (h *AvailabilityHandler) SeatStatus(c echo.Context) error {
	playID, err := strconv.ParseInt(c.Param("playID"), 10, 64)
	if err != nil || playID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid play id"})
	}
	seat, err := strconv.ParseInt(c.Param("seat"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat number"})
	}

	resp := echo.Map{
		"play_id":     playID,
		"seat_number": seat,
		"available":   h.view.IsAvailable(playID, seat),
	}
	if uid, ok := headerUserID(c); ok {
		resp["held_by_user"] = h.view.IsHeldBy(playID, seat, uid)
	}
	return c.JSON(http.StatusOK, resp)
}

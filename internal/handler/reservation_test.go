package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/theater-seat-reservation/internal/coordinator"
	"github.com/iliyamo/theater-seat-reservation/internal/model"
)

// stubService scripts coordinator outcomes per test.
type stubService struct {
	createRes *model.Reservation
	createErr error
	getRes    *model.Reservation
	getErr    error
	cancelErr error

	cancelledID   uint64
	cancelledUser int64
}

func (s *stubService) CreateReservation(_ context.Context, playID, seatNumber, userID int64) (*model.Reservation, error) {
	return s.createRes, s.createErr
}

func (s *stubService) GetReservation(_ context.Context, id uint64) (*model.Reservation, error) {
	return s.getRes, s.getErr
}

func (s *stubService) CancelReservation(_ context.Context, id uint64, userID int64) error {
	s.cancelledID = id
	s.cancelledUser = userID
	return s.cancelErr
}

func doCreate(t *testing.T, svc ReservationService, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/reservations", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, NewReservationHandler(svc).Create(c))
	return rec
}

func TestCreateReturnsReservation(t *testing.T) {
	svc := &stubService{createRes: &model.Reservation{
		ID: 1, PlayID: 7, SeatNumber: 10, UserID: 100, ReservedAt: time.Now().UTC(),
	}}

	rec := doCreate(t, svc, `{"play_id":7,"seat_number":10,"user_id":100}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"play_id":7`)
}

func TestCreateOutcomeStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"no play", coordinator.ErrNoPlaySelected, http.StatusBadRequest, "no_play_selected"},
		{"seat taken", coordinator.ErrSeatTaken, http.StatusConflict, "seat_taken"},
		{"timeout", coordinator.ErrVerificationTimeout, http.StatusGatewayTimeout, "verification_timeout"},
		{"store failure", coordinator.ErrStoreFailure, http.StatusInternalServerError, "store_failure"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doCreate(t, &stubService{createErr: tc.err}, `{"play_id":7,"seat_number":10,"user_id":100}`)
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.code)
		})
	}
}

func TestCreateRequiresUser(t *testing.T) {
	rec := doCreate(t, &stubService{}, `{"play_id":7,"seat_number":10}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetNotFound(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("99")

	h := NewReservationHandler(&stubService{getErr: coordinator.ErrNotFound})
	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelUsesHeaderUser(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	req.Header.Set(userHeader, "42")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("5")

	svc := &stubService{}
	require.NoError(t, NewReservationHandler(svc).Cancel(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, uint64(5), svc.cancelledID)
	assert.Equal(t, int64(42), svc.cancelledUser)
}

func TestCancelWithoutHeaderRejected(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("5")

	require.NoError(t, NewReservationHandler(&stubService{}).Cancel(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelForbidden(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	req.Header.Set(userHeader, "9")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("5")

	h := NewReservationHandler(&stubService{cancelErr: coordinator.ErrForbidden})
	require.NoError(t, h.Cancel(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// stubView scripts view answers for the availability endpoint.
type stubView struct {
	available bool
	heldBy    int64
}

func (v *stubView) IsAvailable(playID, seatNumber int64) bool { return v.available }
func (v *stubView) IsHeldBy(playID, seatNumber, userID int64) bool {
	return userID == v.heldBy
}

func TestSeatStatus(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(userHeader, "42")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("playID", "seat")
	c.SetParamValues("7", "10")

	h := NewAvailabilityHandler(&stubView{available: false, heldBy: 42})
	require.NoError(t, h.SeatStatus(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available":false`)
	assert.Contains(t, rec.Body.String(), `"held_by_user":true`)
}

func TestSeatStatusInvalidPlay(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("playID", "seat")
	c.SetParamValues("0", "10")

	h := NewAvailabilityHandler(&stubView{})
	require.NoError(t, h.SeatStatus(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

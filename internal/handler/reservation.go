package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/reservaplay/facility-booking/internal/model"
	"github.com/reservaplay/facility-booking/internal/payment"
	"github.com/reservaplay/facility-booking/internal/repository"
	"github.com/reservaplay/facility-booking/internal/service"
)

// ReservationHandler exposes the reservation lifecycle: create,
// inspect, move to another block, cancel and the administrative
// expiry sweep. JWT middleware populates the user identity for the
// authenticated routes.
type ReservationHandler struct {
	Booking *service.BookingService
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(booking *service.BookingService) *ReservationHandler {
	if booking == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{Booking: booking}
}

// Create handles POST /v1/reservations. The body names the block
// instance to book. Standard facilities confirm immediately and
// return 201; premium facilities return 201 with a payment redirect
// and the reservation in PENDING_PAYMENT.
func (h *ReservationHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		BlockInstanceID uint64 `json:"block_instance_id"`
	}
	if err := c.Bind(&body); err != nil || body.BlockInstanceID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "block_instance_id is required"})
	}
	result, err := h.Booking.CreateReservation(c.Request().Context(), userID, body.BlockInstanceID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBlockNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "block not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "block is not available"})
		case errors.Is(err, service.ErrQuotaExceeded):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "daily reservation limit reached"})
		}
		var gwErr *payment.GatewayError
		if errors.As(err, &gwErr) {
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider unavailable"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	resp := echo.Map{"reservation": result.Reservation}
	if result.Payment != nil {
		resp["payment"] = result.Payment
	}
	return c.JSON(http.StatusCreated, resp)
}

// Get handles GET /v1/reservations/:id and returns the joined detail
// view: facility, date and slot times alongside the status.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	detail, err := h.Booking.GetReservation(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, detail)
}

// Modify handles PATCH /v1/reservations/:id. The body names the new
// block instance; on conflict the reservation keeps its current slot.
func (h *ReservationHandler) Modify(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var body struct {
		BlockInstanceID uint64 `json:"block_instance_id"`
	}
	if err := c.Bind(&body); err != nil || body.BlockInstanceID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "block_instance_id is required"})
	}
	res, err := h.Booking.ModifyReservation(c.Request().Context(), id, body.BlockInstanceID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrReservationNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		case errors.Is(err, repository.ErrBlockNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "block not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "block is not available"})
		case errors.Is(err, service.ErrReservationNotActive):
			return c.JSON(http.StatusConflict, echo.Map{"error": "reservation is not active"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, res)
}

// Cancel handles DELETE /v1/reservations/:id. An active reservation
// moves to CANCELLED and its block returns to the pool; cancelling a
// terminal reservation yields 404.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	if err := h.Booking.CancelReservation(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": model.ReservationCancelled})
}

// UserDateCount handles GET /v1/reservations/user/:id/date/:date and
// reports how many active reservations the user holds on the date,
// the figure compared against the daily limit.
func (h *ReservationHandler) UserDateCount(c echo.Context) error {
	userID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	date := c.Param("date")
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	count, err := h.Booking.CountUserReservations(c.Request().Context(), userID, date)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": userID, "date": date, "count": count})
}

// ExpirePending handles POST /v1/reservations/expire-pending. It
// fails every PENDING_PAYMENT reservation past the configured TTL and
// releases its block. Admin only; safe to run repeatedly.
func (h *ReservationHandler) ExpirePending(c echo.Context) error {
	expired, err := h.Booking.ExpirePending(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"expired": expired})
}

package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/reservaplay/facility-booking/internal/payment"
	"github.com/reservaplay/facility-booking/internal/repository"
	"github.com/reservaplay/facility-booking/internal/service"
)

// PaymentHandler bridges the payment provider's checkout flow: it
// opens transactions for pending reservations and receives the
// redirect callback carrying the token_ws parameter.
type PaymentHandler struct {
	Booking *service.BookingService
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(booking *service.BookingService) *PaymentHandler {
	if booking == nil {
		panic("nil service passed to NewPaymentHandler")
	}
	return &PaymentHandler{Booking: booking}
}

// Start handles POST /v1/payments/start. The body names a
// PENDING_PAYMENT reservation with no transaction in flight; the
// response carries the checkout URL and token for the payer.
func (h *PaymentHandler) Start(c echo.Context) error {
	var body struct {
		ReservationID uint64 `json:"reservation_id"`
	}
	if err := c.Bind(&body); err != nil || body.ReservationID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation_id is required"})
	}
	redirect, err := h.Booking.StartPayment(c.Request().Context(), body.ReservationID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrReservationNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		case errors.Is(err, service.ErrReservationNotActive):
			return c.JSON(http.StatusConflict, echo.Map{"error": "reservation is not awaiting payment"})
		case errors.Is(err, service.ErrPaymentOpen):
			return c.JSON(http.StatusConflict, echo.Map{"error": "reservation already has an open payment"})
		}
		var gwErr *payment.GatewayError
		if errors.As(err, &gwErr) {
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider unavailable"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, redirect)
}

// Confirm handles the provider redirect on GET or POST
// /v1/payments/confirm. The provider sends token_ws as a query
// parameter on GET and as a form field on POST; either way the token
// is committed and the reservation finalized. A replayed callback
// returns the recorded outcome without touching the provider again.
func (h *PaymentHandler) Confirm(c echo.Context) error {
	token := c.QueryParam("token_ws")
	if token == "" {
		token = c.FormValue("token_ws")
	}
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token_ws is required"})
	}
	outcome, err := h.Booking.ConfirmPayment(c.Request().Context(), token)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
		}
		var gwErr *payment.GatewayError
		if errors.As(err, &gwErr) {
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider unavailable"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	status := http.StatusOK
	if !outcome.Authorized && !outcome.Replayed {
		status = http.StatusPaymentRequired
	}
	return c.JSON(status, outcome)
}

// Status handles GET /v1/payments/status?token_ws=... and relays the
// provider-side state of a transaction without finalizing it.
func (h *PaymentHandler) Status(c echo.Context) error {
	token := c.QueryParam("token_ws")
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token_ws is required"})
	}
	result, err := h.Booking.PaymentStatus(c.Request().Context(), token)
	if err != nil {
		var gwErr *payment.GatewayError
		if errors.As(err, &gwErr) {
			if gwErr.StatusCode == http.StatusNotFound {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found"})
			}
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider unavailable"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "payment provider error"})
	}
	return c.JSON(http.StatusOK, result)
}

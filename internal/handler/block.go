package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/reservaplay/facility-booking/internal/repository"
	"github.com/reservaplay/facility-booking/internal/service"
)

// BlockHandler exposes the availability grid: bulk generation of
// block instances from templates, per-date availability listings and
// administrative holds. Admin-only routes assume JWT and role
// middleware already ran.
type BlockHandler struct {
	Blocks    *service.BlockService
	Instances *repository.BlockInstanceRepo
}

// NewBlockHandler constructs a BlockHandler. All dependencies must be
// non-nil.
func NewBlockHandler(blocks *service.BlockService, instances *repository.BlockInstanceRepo) *BlockHandler {
	if blocks == nil || instances == nil {
		panic("nil dependency passed to NewBlockHandler")
	}
	return &BlockHandler{Blocks: blocks, Instances: instances}
}

// GenerateRange handles POST /v1/blocks/generate-range. The body
// carries facility_id, start_date and end_date (YYYY-MM-DD). The run
// is idempotent: dates already materialized are reported as skipped.
func (h *BlockHandler) GenerateRange(c echo.Context) error {
	var body struct {
		FacilityID uint64 `json:"facility_id"`
		StartDate  string `json:"start_date"`
		EndDate    string `json:"end_date"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.FacilityID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "facility_id is required"})
	}
	report, err := h.Blocks.GenerateRange(c.Request().Context(), body.FacilityID, body.StartDate, body.EndDate)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRange):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_date and end_date must be YYYY-MM-DD with start_date <= end_date"})
		case errors.Is(err, service.ErrNoTemplates):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "no block templates defined"})
		case errors.Is(err, repository.ErrFacilityNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "facility not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, report)
}

// Availability handles GET /v1/facilities/:id/availability/:date.
// It returns every block for the facility on that date in start-time
// order, with its availability flag, so clients can render the full
// grid.
func (h *BlockHandler) Availability(c echo.Context) error {
	facilityID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid facility id"})
	}
	date := c.Param("date")
	slots, err := h.Blocks.Availability(c.Request().Context(), facilityID, date)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRange) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"facility_id": facilityID,
		"date":        date,
		"blocks":      slots,
	})
}

// ListByFacility handles GET /v1/facilities/:id/blocks and returns
// every materialized instance for the facility across all dates.
func (h *BlockHandler) ListByFacility(c echo.Context) error {
	facilityID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid facility id"})
	}
	instances, err := h.Instances.ListByFacility(c.Request().Context(), facilityID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"facility_id": facilityID, "blocks": instances})
}

// Hold handles POST /v1/facilities/:id/blocks/hold. It marks a block
// instance unavailable without a reservation, for maintenance windows
// or walk-in bookings taken outside the system.
func (h *BlockHandler) Hold(c echo.Context) error {
	if _, ok := pathID(c, "id"); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid facility id"})
	}
	var body struct {
		BlockInstanceID uint64 `json:"block_instance_id"`
	}
	if err := c.Bind(&body); err != nil || body.BlockInstanceID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "block_instance_id is required"})
	}
	if err := h.Blocks.Hold(c.Request().Context(), body.BlockInstanceID); err != nil {
		switch {
		case errors.Is(err, repository.ErrBlockNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "block not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "block is not available"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"block_instance_id": body.BlockInstanceID, "available": false})
}

// DeleteForDate handles DELETE /v1/facilities/:id/blocks?date=...
// and removes the facility's instances for one date. Instances with
// reservations are protected by the schema's foreign key.
func (h *BlockHandler) DeleteForDate(c echo.Context) error {
	facilityID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid facility id"})
	}
	date := c.QueryParam("date")
	deleted, err := h.Blocks.PruneDate(c.Request().Context(), facilityID, date)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRange):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "date has reserved blocks"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"facility_id": facilityID, "date": date, "deleted": deleted})
}

package handler

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"

	"github.com/reservaplay/facility-booking/internal/model"
	"github.com/reservaplay/facility-booking/internal/repository"
)

var timeOfDay = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// TemplateHandler exposes CRUD over the block template registry, the
// standard daily slots block generation expands into concrete
// instances. All routes are admin only.
type TemplateHandler struct {
	Templates *repository.BlockTemplateRepo
}

// NewTemplateHandler constructs a TemplateHandler.
func NewTemplateHandler(templates *repository.BlockTemplateRepo) *TemplateHandler {
	if templates == nil {
		panic("nil repository passed to NewTemplateHandler")
	}
	return &TemplateHandler{Templates: templates}
}

// Create handles POST /v1/block-templates. The body carries the slot
// index and HH:MM start and end times.
func (h *TemplateHandler) Create(c echo.Context) error {
	var body struct {
		Slot      uint32 `json:"slot"`
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if !timeOfDay.MatchString(body.StartTime) || !timeOfDay.MatchString(body.EndTime) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time and end_time must be HH:MM"})
	}
	if body.EndTime <= body.StartTime {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_time must be after start_time"})
	}
	tpl := &model.BlockTemplate{Slot: body.Slot, StartTime: body.StartTime, EndTime: body.EndTime}
	if err := h.Templates.Create(c.Request().Context(), tpl); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "slot already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, tpl)
}

// List handles GET /v1/block-templates and returns every template in
// slot order.
func (h *TemplateHandler) List(c echo.Context) error {
	templates, err := h.Templates.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"templates": templates})
}

// Update handles PUT /v1/block-templates/:id and changes a template's
// start and end times. Already materialized instances keep pointing
// at the template and pick up the new times.
func (h *TemplateHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid template id"})
	}
	var body struct {
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if !timeOfDay.MatchString(body.StartTime) || !timeOfDay.MatchString(body.EndTime) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time and end_time must be HH:MM"})
	}
	if body.EndTime <= body.StartTime {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_time must be after start_time"})
	}
	if err := h.Templates.UpdateTimes(c.Request().Context(), id, body.StartTime, body.EndTime); err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "template not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "start_time": body.StartTime, "end_time": body.EndTime})
}

// Delete handles DELETE /v1/block-templates/:id. Templates referenced
// by existing instances are protected by the foreign key and the
// delete fails.
func (h *TemplateHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid template id"})
	}
	if err := h.Templates.Delete(c.Request().Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrTemplateNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "template not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "template has materialized blocks"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.NoContent(http.StatusNoContent)
}

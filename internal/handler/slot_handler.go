package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentor-scheduling-api/internal/dto"
	appErrors "github.com/noah-isme/mentor-scheduling-api/pkg/errors"
	"github.com/noah-isme/mentor-scheduling-api/pkg/response"
)

type slotGenerator interface {
	Generate(ctx context.Context, query dto.SlotQuery) (*dto.SlotListResponse, error)
}

// SlotHandler exposes the public slot search.
type SlotHandler struct {
	slots slotGenerator
}

// NewSlotHandler constructs the handler.
func NewSlotHandler(slots slotGenerator) *SlotHandler {
	return &SlotHandler{slots: slots}
}

// List godoc
// @Summary List bookable slots of a mentor
// @Tags Slots
// @Produce json
// @Param id path string true "Tutor ID"
// @Param from query string true "Window start (RFC3339)"
// @Param to query string true "Window end (RFC3339)"
// @Param duration_minutes query int false "Slot length in minutes"
// @Param step_minutes query int false "Grid step in minutes"
// @Success 200 {object} response.Envelope
// @Router /tutors/{id}/slots [get]
func (h *SlotHandler) List(c *gin.Context) {
	tutorID := strings.TrimSpace(c.Param("id"))
	if tutorID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "tutor id is required"))
		return
	}
	from, ok := queryTime(c, "from", true)
	if !ok {
		return
	}
	to, ok := queryTime(c, "to", true)
	if !ok {
		return
	}
	duration, ok := queryInt(c, "duration_minutes")
	if !ok {
		return
	}
	step, ok := queryInt(c, "step_minutes")
	if !ok {
		return
	}

	result, err := h.slots.Generate(c.Request.Context(), dto.SlotQuery{
		TutorID:         tutorID,
		From:            *from,
		To:              *to,
		DurationMinutes: duration,
		StepMinutes:     step,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result, map[string]interface{}{"count": len(result.Slots)})
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentor-scheduling-api/internal/dto"
	"github.com/noah-isme/mentor-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/mentor-scheduling-api/pkg/errors"
	"github.com/noah-isme/mentor-scheduling-api/pkg/response"
)

type timeBlockService interface {
	List(ctx context.Context, userID string, from, to *time.Time) ([]models.TutorTimeBlock, error)
	Create(ctx context.Context, userID string, req dto.TimeBlockRequest) (*models.TutorTimeBlock, error)
	Update(ctx context.Context, userID, id string, req dto.TimeBlockRequest) (*models.TutorTimeBlock, error)
	Delete(ctx context.Context, userID, id string) error
}

// TimeBlockHandler manages the caller's ad-hoc unavailable intervals.
type TimeBlockHandler struct {
	service timeBlockService
}

// NewTimeBlockHandler constructs the handler.
func NewTimeBlockHandler(service timeBlockService) *TimeBlockHandler {
	return &TimeBlockHandler{service: service}
}

// List godoc
// @Summary List the caller's time blocks
// @Tags Time Blocks
// @Produce json
// @Security BearerAuth
// @Param from query string false "Window start (RFC3339)"
// @Param to query string false "Window end (RFC3339)"
// @Success 200 {object} response.Envelope
// @Router /tutors/me/time-blocks [get]
func (h *TimeBlockHandler) List(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	from, ok := queryTime(c, "from", false)
	if !ok {
		return
	}
	to, ok := queryTime(c, "to", false)
	if !ok {
		return
	}
	blocks, err := h.service.List(c.Request.Context(), claims.UserID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, blocks, map[string]interface{}{"count": len(blocks)})
}

// Create godoc
// @Summary Create a time block
// @Tags Time Blocks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.TimeBlockRequest true "Block payload"
// @Success 201 {object} response.Envelope
// @Router /tutors/me/time-blocks [post]
func (h *TimeBlockHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.TimeBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid time block payload"))
		return
	}
	block, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, block)
}

// Update godoc
// @Summary Update a time block
// @Tags Time Blocks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Time block ID"
// @Param payload body dto.TimeBlockRequest true "Block payload"
// @Success 200 {object} response.Envelope
// @Router /tutors/me/time-blocks/{id} [put]
func (h *TimeBlockHandler) Update(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.TimeBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid time block payload"))
		return
	}
	block, err := h.service.Update(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, block)
}

// Delete godoc
// @Summary Delete a time block
// @Tags Time Blocks
// @Security BearerAuth
// @Param id path string true "Time block ID"
// @Success 204
// @Router /tutors/me/time-blocks/{id} [delete]
func (h *TimeBlockHandler) Delete(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.service.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentor-scheduling-api/internal/dto"
	appErrors "github.com/noah-isme/mentor-scheduling-api/pkg/errors"
	"github.com/noah-isme/mentor-scheduling-api/pkg/response"
)

type availabilityService interface {
	Get(ctx context.Context, tutorID string) (*dto.AvailabilityResponse, error)
	GetOwn(ctx context.Context, userID string) (*dto.AvailabilityResponse, error)
	Replace(ctx context.Context, userID string, req dto.ReplaceWeeklyRulesRequest) (*dto.AvailabilityResponse, error)
	UpdateTimezone(ctx context.Context, userID string, req dto.UpdateTimezoneRequest) (*dto.AvailabilityResponse, error)
}

// AvailabilityHandler manages weekly rules and mentor timezones.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler constructs the handler.
func NewAvailabilityHandler(service availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

// Get godoc
// @Summary Get a mentor's weekly availability
// @Tags Availability
// @Produce json
// @Param id path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Router /tutors/{id}/availability [get]
func (h *AvailabilityHandler) Get(c *gin.Context) {
	resp, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resp)
}

// GetOwn godoc
// @Summary Get the caller's weekly availability
// @Tags Availability
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /tutors/me/availability [get]
func (h *AvailabilityHandler) GetOwn(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	resp, err := h.service.GetOwn(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resp)
}

// Replace godoc
// @Summary Replace the caller's weekly availability rules
// @Tags Availability
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ReplaceWeeklyRulesRequest true "Complete rule set"
// @Success 200 {object} response.Envelope
// @Router /tutors/me/availability [put]
func (h *AvailabilityHandler) Replace(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.ReplaceWeeklyRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}
	resp, err := h.service.Replace(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resp)
}

// UpdateTimezone godoc
// @Summary Set the caller's timezone
// @Tags Availability
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.UpdateTimezoneRequest true "IANA timezone"
// @Success 200 {object} response.Envelope
// @Router /tutors/me/timezone [put]
func (h *AvailabilityHandler) UpdateTimezone(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.UpdateTimezoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timezone payload"))
		return
	}
	resp, err := h.service.UpdateTimezone(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resp)
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cuongbtq/appointment-service/internal/api/dto"
	"github.com/cuongbtq/appointment-service/internal/domain"
)

// CreateAppointment handles POST /api/v1/appointments
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req dto.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Invalid request body", slog.String("error", err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed"})
		return
	}

	if _, err := uuid.Parse(req.ProviderID); err != nil {
		h.respondError(c, domain.NewValidationError("provider_id", "must be a valid UUID"))
		return
	}

	date, err := domain.ParseDateIn(req.Date, h.location)
	if err != nil {
		h.respondError(c, err)
		return
	}

	appointment, err := h.service.Book(c.Request.Context(), currentUser(c), req.ProviderID, date)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromAppointment(appointment))
}

// ListAppointments handles GET /api/v1/appointments
func (h *AppointmentHandler) ListAppointments(c *gin.Context) {
	var req dto.PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.respondError(c, domain.NewValidationError("page", "must be a number"))
		return
	}

	items, err := h.service.List(c.Request.Context(), currentUser(c), req.Page)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// CancelAppointment handles DELETE /api/v1/appointments/:id
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		h.respondError(c, domain.NewValidationError("id", "must be a valid UUID"))
		return
	}

	detail, err := h.service.Cancel(c.Request.Context(), id, currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromDetail(detail))
}

// ListNotifications handles GET /api/v1/notifications
func (h *AppointmentHandler) ListNotifications(c *gin.Context) {
	var req dto.PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.respondError(c, domain.NewValidationError("page", "must be a number"))
		return
	}

	items, err := h.service.Notifications(c.Request.Context(), currentUser(c), req.Page)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromNotifications(items))
}

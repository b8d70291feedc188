package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/appointment-service/internal/api/dto"
	"github.com/cuongbtq/appointment-service/internal/domain"
)

const internalErrorMessage = "Internal server error"

// StatusFor maps a service error to its HTTP status
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrSelfBooking),
		errors.Is(err, domain.ErrNotAProvider),
		errors.Is(err, domain.ErrPastDate),
		errors.Is(err, domain.ErrTooLate):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSlotTaken),
		errors.Is(err, domain.ErrAlreadyCanceled):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// InternalError writes the generic 500 body, adding err's text in development
func InternalError(c *gin.Context, err error, development bool) {
	body := dto.ErrorResponse{Error: internalErrorMessage}
	if development && err != nil {
		body.Details = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, body)
}

func (h *AppointmentHandler) respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			slog.String("path", c.Request.URL.Path),
			slog.Any("error", err),
		)
		InternalError(c, err, h.development)
		return
	}

	c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: err.Error()})
}

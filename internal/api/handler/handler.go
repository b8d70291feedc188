package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/appointment-service/internal/model"
)

// UserIDKey is the gin context key holding the authenticated user id
const UserIDKey = "user_id"

// AppointmentService is the booking core as seen by the HTTP layer
type AppointmentService interface {
	Book(ctx context.Context, requesterID, providerID string, date time.Time) (*model.Appointment, error)
	List(ctx context.Context, requesterID string, page int) ([]model.AppointmentListing, error)
	Cancel(ctx context.Context, appointmentID, actingUserID string) (*model.AppointmentDetail, error)
	Notifications(ctx context.Context, userID string, page int) ([]model.Notification, error)
}

// HealthChecker reports whether a backing service is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	Service     AppointmentService
	Database    HealthChecker
	Development bool
	// Location reads zone-less request dates; nil means time.Local
	Location *time.Location
}

// AppointmentHandler handles appointment and notification HTTP requests
type AppointmentHandler struct {
	logger      *slog.Logger
	service     AppointmentService
	development bool
	location    *time.Location
}

// NewAppointmentHandler creates a new AppointmentHandler instance
func NewAppointmentHandler(deps *Dependencies) *AppointmentHandler {
	return &AppointmentHandler{
		logger:      deps.Logger,
		service:     deps.Service,
		development: deps.Development,
		location:    deps.Location,
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

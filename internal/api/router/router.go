package router

import (
	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/appointment-service/internal/api/handler"
)

// Config holds the router's transport settings
type Config struct {
	JWTSecret      string
	AllowedOrigins []string
	RateLimit      RateLimitConfig
}

// RateLimitConfig configures the per-client limiter on write routes
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, cfg Config) *gin.Engine {
	r := gin.New()

	r.Use(RecoveryMiddleware(deps.Logger, deps.Development))
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", handler.Health(deps))

	appointmentHandler := handler.NewAppointmentHandler(deps)

	var limiter *RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}
	limited := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if limiter == nil {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{limiter.Middleware(), h}
	}

	v1 := r.Group("/api/v1")
	v1.Use(AuthMiddleware(cfg.JWTSecret))
	{
		appointments := v1.Group("/appointments")
		{
			// POST /api/v1/appointments - Book a slot with a provider
			appointments.POST("", limited(appointmentHandler.CreateAppointment)...)

			// GET /api/v1/appointments - List the caller's upcoming appointments
			appointments.GET("", appointmentHandler.ListAppointments)

			// DELETE /api/v1/appointments/:id - Cancel an appointment
			appointments.DELETE("/:id", limited(appointmentHandler.CancelAppointment)...)
		}

		// GET /api/v1/notifications - List the provider's notifications
		v1.GET("/notifications", appointmentHandler.ListNotifications)
	}

	return r
}

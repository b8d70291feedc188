// Package service implements booking, listing and cancellation of
// appointments on top of the stores and the job queue.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/appointment-service/internal/api/cache"
	"github.com/cuongbtq/appointment-service/internal/clock"
	"github.com/cuongbtq/appointment-service/internal/domain"
	"github.com/cuongbtq/appointment-service/internal/i18n"
	"github.com/cuongbtq/appointment-service/internal/model"
	"github.com/cuongbtq/appointment-service/internal/queue"
)

// AppointmentStore persists appointments. CreateWithNotification must
// reject a second active appointment for the same provider and date with
// domain.ErrSlotTaken, and Cancel must return domain.ErrAlreadyCanceled
// when the appointment is no longer active.
type AppointmentStore interface {
	FindConflicting(ctx context.Context, providerID string, date time.Time) (*model.Appointment, error)
	CreateWithNotification(ctx context.Context, appointment *model.Appointment, notification *model.Notification) error
	FindDetail(ctx context.Context, id string) (*model.AppointmentDetail, error)
	Cancel(ctx context.Context, id string, at time.Time) error
	ListActiveByRequester(ctx context.Context, requesterID string, limit, offset int) ([]model.AppointmentListing, error)
}

// NotificationStore reads provider notifications
type NotificationStore interface {
	ListNotifications(ctx context.Context, recipientID string, limit, offset int) ([]model.Notification, error)
}

// UserDirectory answers who a user is and whether they are a provider
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
}

// URLResolver turns a stored file path into a fetchable URL
type URLResolver interface {
	URL(ctx context.Context, path string) (string, error)
}

// ListCache caches appointment pages per requester. Get also returns the
// requester's generation, which Invalidate advances; Set must drop a page
// whose generation is no longer current.
type ListCache interface {
	Get(ctx context.Context, requesterID string, page int) ([]model.AppointmentListing, int64, bool)
	Set(ctx context.Context, requesterID string, page int, generation int64, items []model.AppointmentListing)
	Invalidate(ctx context.Context, requesterID string)
}

// Dependencies holds the collaborators of Service
type Dependencies struct {
	Appointments  AppointmentStore
	Notifications NotificationStore
	Users         UserDirectory
	Queue         queue.Enqueuer
	Clock         clock.Clock
	Formatter     *i18n.Formatter
	Files         URLResolver
	Cache         ListCache
	Logger        *slog.Logger
}

// Config holds service settings
type Config struct {
	PageSize int
	// Location is the server time zone slots are aligned to; nil means time.Local
	Location *time.Location
}

// Service is the booking core. It is safe for concurrent use; slot
// uniqueness is enforced by the AppointmentStore.
type Service struct {
	appointments  AppointmentStore
	notifications NotificationStore
	users         UserDirectory
	queue         queue.Enqueuer
	clock         clock.Clock
	formatter     *i18n.Formatter
	files         URLResolver
	cache         ListCache
	logger        *slog.Logger
	pageSize      int
	location      *time.Location
}

// New wires a Service. Clock, Cache, Logger, PageSize and Location fall
// back to the system clock, no caching, slog.Default, DefaultPageSize and
// time.Local. Formatter is rebound to Location.
func New(deps Dependencies, cfg Config) *Service {
	s := &Service{
		appointments:  deps.Appointments,
		notifications: deps.Notifications,
		users:         deps.Users,
		queue:         deps.Queue,
		clock:         deps.Clock,
		formatter:     deps.Formatter,
		files:         deps.Files,
		cache:         deps.Cache,
		logger:        deps.Logger,
		pageSize:      cfg.PageSize,
		location:      cfg.Location,
	}
	if s.clock == nil {
		s.clock = clock.System{}
	}
	if s.cache == nil {
		s.cache = cache.Nop{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.pageSize <= 0 {
		s.pageSize = domain.DefaultPageSize
	}
	if s.location == nil {
		s.location = time.Local
	}
	if s.formatter != nil {
		s.formatter = s.formatter.In(s.location)
	}
	return s
}

// offset converts a 1-based page number, clamping anything below 1
func (s *Service) offset(page int) (int, int) {
	if page < 1 {
		page = 1
	}
	return page, (page - 1) * s.pageSize
}

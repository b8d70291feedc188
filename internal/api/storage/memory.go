package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cuongbtq/appointment-service/internal/domain"
	"github.com/cuongbtq/appointment-service/internal/model"
)

// Memory is a process-local store with the same contract as Storage
type Memory struct {
	mu            sync.RWMutex
	users         map[string]model.User
	files         map[string]model.File
	appointments  map[string]model.Appointment
	notifications []model.Notification
}

func NewMemory() *Memory {
	return &Memory{
		users:        make(map[string]model.User),
		files:        make(map[string]model.File),
		appointments: make(map[string]model.Appointment),
	}
}

// SeedUser inserts or replaces a user
func (m *Memory) SeedUser(user model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

// SeedFile inserts or replaces a file
func (m *Memory) SeedFile(file model.File) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[file.ID] = file
}

func (m *Memory) GetUser(_ context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %w", domain.ErrNotFound)
	}
	return &user, nil
}

func (m *Memory) FindConflicting(_ context.Context, providerID string, date time.Time) (*model.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if a, ok := m.activeSlot(providerID, date); ok {
		return &a, nil
	}
	return nil, nil
}

func (m *Memory) CreateWithNotification(_ context.Context, appointment *model.Appointment, notification *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if appointment.Active() {
		if _, taken := m.activeSlot(appointment.ProviderID, appointment.Date); taken {
			return domain.ErrSlotTaken
		}
	}

	m.appointments[appointment.ID] = *appointment
	m.notifications = append(m.notifications, *notification)
	return nil
}

func (m *Memory) FindDetail(_ context.Context, id string) (*model.AppointmentDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.appointments[id]
	if !ok {
		return nil, fmt.Errorf("appointment %w", domain.ErrNotFound)
	}

	provider := m.users[a.ProviderID]
	requester := m.users[a.RequesterID]
	return &model.AppointmentDetail{
		Appointment: a,
		Provider:    model.Party{ID: a.ProviderID, Name: provider.Name, Email: provider.Email},
		Requester:   model.Party{ID: a.RequesterID, Name: requester.Name, Email: requester.Email},
	}, nil
}

func (m *Memory) Cancel(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok {
		return fmt.Errorf("appointment %w", domain.ErrNotFound)
	}
	if !a.Active() {
		return domain.ErrAlreadyCanceled
	}

	a.CanceledAt = &at
	m.appointments[id] = a
	return nil
}

func (m *Memory) ListActiveByRequester(_ context.Context, requesterID string, limit, offset int) ([]model.AppointmentListing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var active []model.Appointment
	for _, a := range m.appointments {
		if a.RequesterID == requesterID && a.Active() {
			active = append(active, a)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].Date.Equal(active[j].Date) {
			return active[i].ID < active[j].ID
		}
		return active[i].Date.Before(active[j].Date)
	})

	listings := make([]model.AppointmentListing, 0, limit)
	for _, a := range window(active, limit, offset) {
		provider := m.users[a.ProviderID]
		item := model.AppointmentListing{
			ID:       a.ID,
			Date:     a.Date,
			Provider: model.ProviderSummary{ID: provider.ID, Name: provider.Name},
		}
		if provider.AvatarID != nil {
			if f, ok := m.files[*provider.AvatarID]; ok {
				item.Provider.Avatar = &model.AvatarRef{ID: f.ID, Path: f.Path}
			}
		}
		listings = append(listings, item)
	}
	return listings, nil
}

func (m *Memory) ListNotifications(_ context.Context, recipientID string, limit, offset int) ([]model.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var mine []model.Notification
	for i := len(m.notifications) - 1; i >= 0; i-- {
		if m.notifications[i].RecipientID == recipientID {
			mine = append(mine, m.notifications[i])
		}
	}
	sort.SliceStable(mine, func(i, j int) bool {
		return mine[i].CreatedAt.After(mine[j].CreatedAt)
	})

	out := make([]model.Notification, 0, limit)
	return append(out, window(mine, limit, offset)...), nil
}

// activeSlot must be called with the lock held
func (m *Memory) activeSlot(providerID string, date time.Time) (model.Appointment, bool) {
	for _, a := range m.appointments {
		if a.ProviderID == providerID && a.Active() && a.Date.Equal(date) {
			return a, true
		}
	}
	return model.Appointment{}, false
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

package dto

import (
	"time"

	"github.com/cuongbtq/appointment-service/internal/model"
)

type CreateAppointmentRequest struct {
	ProviderID string `json:"provider_id" binding:"required"`
	Date       string `json:"date" binding:"required"`
}

type PageRequest struct {
	Page int `form:"page"`
}

type AppointmentDTO struct {
	ID          string    `json:"id"`
	RequesterID string    `json:"requester_id"`
	ProviderID  string    `json:"provider_id"`
	Date        string    `json:"date"`
	CanceledAt  *string   `json:"canceled_at"`
	CreatedAt   string    `json:"created_at"`
	Provider    *PartyDTO `json:"provider,omitempty"`
	Requester   *PartyDTO `json:"requester,omitempty"`
}

type PartyDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type NotificationDTO struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func FromAppointment(a *model.Appointment) AppointmentDTO {
	out := AppointmentDTO{
		ID:          a.ID,
		RequesterID: a.RequesterID,
		ProviderID:  a.ProviderID,
		Date:        a.Date.Format(time.RFC3339),
		CreatedAt:   a.CreatedAt.Format(time.RFC3339),
	}
	if a.CanceledAt != nil {
		canceled := a.CanceledAt.Format(time.RFC3339)
		out.CanceledAt = &canceled
	}
	return out
}

// FromDetail includes both parties' names but never their email addresses
func FromDetail(d *model.AppointmentDetail) AppointmentDTO {
	out := FromAppointment(&d.Appointment)
	out.Provider = &PartyDTO{ID: d.Provider.ID, Name: d.Provider.Name}
	out.Requester = &PartyDTO{ID: d.Requester.ID, Name: d.Requester.Name}
	return out
}

func FromNotifications(items []model.Notification) []NotificationDTO {
	out := make([]NotificationDTO, len(items))
	for i, n := range items {
		out[i] = NotificationDTO{
			ID:        n.ID,
			Content:   n.Content,
			Read:      n.Read,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		}
	}
	return out
}

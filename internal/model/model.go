package model

import "time"

// User is a person that can book appointments or, when Provider is set, receive them
type User struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Provider  bool      `db:"provider" json:"provider"`
	AvatarID  *string   `db:"avatar_id" json:"avatar_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// File is an uploaded object referenced by users as their avatar
type File struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Path string `db:"path" json:"path"`
}

// Appointment is a booked hour slot between a requester and a provider
type Appointment struct {
	ID          string     `db:"id" json:"id"`
	RequesterID string     `db:"requester_id" json:"requester_id"`
	ProviderID  string     `db:"provider_id" json:"provider_id"`
	Date        time.Time  `db:"date" json:"date"`
	CanceledAt  *time.Time `db:"canceled_at" json:"canceled_at"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Active reports whether the appointment still holds its slot
func (a *Appointment) Active() bool {
	return a.CanceledAt == nil
}

// Party is the identity of one side of an appointment
type Party struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AppointmentDetail is an appointment with both parties attached.
// It is also the payload of the cancellation mail job.
type AppointmentDetail struct {
	Appointment
	Provider  Party `json:"provider"`
	Requester Party `json:"requester"`
}

// AvatarRef points to a provider avatar
type AvatarRef struct {
	ID   string `json:"id"`
	Path string `json:"path"`
	URL  string `json:"url"`
}

// ProviderSummary is the provider projection used by listings
type ProviderSummary struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Avatar *AvatarRef `json:"avatar"`
}

// AppointmentListing is one entry of the upcoming appointments page
type AppointmentListing struct {
	ID       string          `json:"id"`
	Date     time.Time       `json:"date"`
	Provider ProviderSummary `json:"provider"`
}

// Notification is an in-app message for a recipient
type Notification struct {
	ID          string    `db:"id" json:"id"`
	RecipientID string    `db:"recipient_id" json:"recipient_id"`
	Content     string    `db:"content" json:"content"`
	Read        bool      `db:"read" json:"read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Package i18n formats dates and user-facing messages for the configured locale.
package i18n

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

type messages struct {
	months        [12]string
	date          func(t time.Time, month string) string
	bookingFmt    string
	cancelSubject string
}

var catalog = []messages{
	{
		months: [12]string{
			"janeiro", "fevereiro", "março", "abril", "maio", "junho",
			"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
		},
		date: func(t time.Time, month string) string {
			return fmt.Sprintf("dia %02d de %s, às %d:%02dh", t.Day(), month, t.Hour(), t.Minute())
		},
		bookingFmt:    "Novo agendamento de %s para %s",
		cancelSubject: "Agendamento cancelado",
	},
	{
		months: [12]string{
			"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December",
		},
		date: func(t time.Time, month string) string {
			return fmt.Sprintf("%s %02d, at %d:%02d", month, t.Day(), t.Hour(), t.Minute())
		},
		bookingFmt:    "New appointment from %s on %s",
		cancelSubject: "Appointment canceled",
	},
}

// order must match catalog
var (
	supported = []language.Tag{language.BrazilianPortuguese, language.AmericanEnglish}
	matcher   = language.NewMatcher(supported)
)

// Formatter renders text for one locale. Dates are shown in its location,
// time.Local unless set with In.
type Formatter struct {
	tag language.Tag
	msg messages
	loc *time.Location
}

// New picks the closest supported locale for tag; unknown tags fall back to pt-BR.
func New(tag string) (*Formatter, error) {
	var requested language.Tag
	if tag != "" {
		parsed, err := language.Parse(tag)
		if err != nil {
			return nil, fmt.Errorf("invalid locale %q: %w", tag, err)
		}
		requested = parsed
	}

	_, index, _ := matcher.Match(requested)
	return &Formatter{tag: supported[index], msg: catalog[index], loc: time.Local}, nil
}

// In returns a copy of f that renders dates in loc
func (f *Formatter) In(loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.Local
	}
	c := *f
	c.loc = loc
	return &c
}

// Locale returns the BCP 47 tag in use
func (f *Formatter) Locale() string {
	return f.tag.String()
}

// Date formats t for humans, e.g. "dia 02 de março, às 10:00h"
func (f *Formatter) Date(t time.Time) string {
	t = t.In(f.loc)
	return f.msg.date(t, f.msg.months[t.Month()-1])
}

// BookingNotice is the provider notification content for a new appointment
func (f *Formatter) BookingNotice(requesterName string, date time.Time) string {
	return fmt.Sprintf(f.msg.bookingFmt, requesterName, f.Date(date))
}

// CancellationSubject is the subject line of the cancellation email
func (f *Formatter) CancellationSubject() string {
	return f.msg.cancelSubject
}

package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    time.Time
		wantErr bool
	}{
		{
			name: "rfc3339 with offset",
			raw:  "2026-10-20T10:15:00-03:00",
			want: time.Date(2026, 10, 20, 13, 15, 0, 0, time.UTC),
		},
		{
			name: "rfc3339 with fraction",
			raw:  "2026-10-20T10:15:00.123Z",
			want: time.Date(2026, 10, 20, 10, 15, 0, 123000000, time.UTC),
		},
		{
			name: "local without seconds",
			raw:  "2026-10-20T10:15",
			want: time.Date(2026, 10, 20, 10, 15, 0, 0, time.Local),
		},
		{
			name: "local with space separator",
			raw:  " 2026-10-20 10:15:30 ",
			want: time.Date(2026, 10, 20, 10, 15, 30, 0, time.Local),
		},
		{name: "empty", raw: "", wantErr: true},
		{name: "garbage", raw: "tomorrow at ten", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				var vErr *ValidationError
				require.True(t, errors.As(err, &vErr))
				assert.Equal(t, "date", vErr.Field)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestParseDateIn(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*3600)

	tests := []struct {
		name string
		raw  string
		loc  *time.Location
		want time.Time
	}{
		{
			name: "zone-less read in loc",
			raw:  "2026-10-20T10:15",
			loc:  saoPaulo,
			want: time.Date(2026, 10, 20, 13, 15, 0, 0, time.UTC),
		},
		{
			name: "offset wins over loc",
			raw:  "2026-10-20T10:40:00+05:30",
			loc:  saoPaulo,
			want: time.Date(2026, 10, 20, 5, 10, 0, 0, time.UTC),
		},
		{
			name: "nil loc is local",
			raw:  "2026-10-20 10:15:30",
			want: time.Date(2026, 10, 20, 10, 15, 30, 0, time.Local),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDateIn(tt.raw, tt.loc)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

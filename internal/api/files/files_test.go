package files

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic_URL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		path    string
		want    string
	}{
		{name: "plain", baseURL: "http://localhost:3333", path: "abc.png", want: "http://localhost:3333/files/abc.png"},
		{name: "trailing slash", baseURL: "https://cdn.example.com/", path: "abc.png", want: "https://cdn.example.com/files/abc.png"},
		{name: "escaped", baseURL: "http://localhost:3333", path: "my avatar.png", want: "http://localhost:3333/files/my%20avatar.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewStatic(tt.baseURL).URL(context.Background(), tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMinIO_URL(t *testing.T) {
	resolver, err := NewMinIO(MinIOConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "avatars",
		URLExpiry: 10 * time.Minute,
	})
	require.NoError(t, err)

	got, err := resolver.URL(context.Background(), "abc.png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "http://localhost:9000/avatars/abc.png?"))
	assert.Contains(t, got, "X-Amz-Expires=600")
}

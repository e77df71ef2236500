package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToken_IsExpiredAt(t *testing.T) {
	obtained := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	token := &Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ObtainedAt:   obtained,
		ExpiresIn:    600,
	}

	tests := []struct {
		name    string
		at      time.Time
		expired bool
	}{
		{"fresh token", obtained.Add(1 * time.Second), false},
		{"well before margin", obtained.Add(9 * time.Minute), false},
		{"just inside margin", obtained.Add(600*time.Second - 31*time.Second), false},
		{"exactly at margin", obtained.Add(600*time.Second - 30*time.Second), true},
		{"past expiry", obtained.Add(11 * time.Minute), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, token.IsExpiredAt(tt.at))
		})
	}
}

func TestToken_IsExpiredAt_DefaultLifetime(t *testing.T) {
	obtained := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	token := &Token{ObtainedAt: obtained}

	// Zero ExpiresIn falls back to the 600 second default.
	assert.False(t, token.IsExpiredAt(obtained.Add(5*time.Minute)))
	assert.True(t, token.IsExpiredAt(obtained.Add(10*time.Minute)))
}

package rooms

import (
	"strings"
	"testing"
)

const testSecret = "0123456789abcdef0123456789abcdef" // 32 chars

func TestGenerateRoomTokenValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		appID  uint32
		secret string
	}{
		{"missing app id", 0, testSecret},
		{"missing secret", 1, ""},
		{"short secret", 1, "too-short"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := GenerateRoomToken(tt.appID, tt.secret, "room", "user", 60); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestGenerateRoomToken(t *testing.T) {
	t.Parallel()
	token, err := GenerateRoomToken(1, testSecret, "room-1", "user-1", 3600)
	if err != nil {
		t.Fatalf("GenerateRoomToken: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}
	// token04 tokens are versioned "04" + base64.
	if !strings.HasPrefix(token, "04") {
		t.Fatalf("token %q lacks version prefix", token)
	}
}

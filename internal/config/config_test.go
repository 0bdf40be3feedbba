package config

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": exp.Unix(),
	})

	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestValidate(t *testing.T) {
	validToken := signedToken(t, "7", time.Now().Add(time.Hour))

	tcases := []struct {
		name string
		cfg  Config
		err  string
	}{
		{
			name: "valid config",
			cfg:  Config{ServerURL: "http://localhost:8000", UserId: 7, Token: validToken, HistoryLimit: 50},
		},
		{
			name: "empty server URL",
			cfg:  Config{UserId: 7, Token: validToken},
			err:  "server URL cannot be empty",
		},
		{
			name: "non-http scheme",
			cfg:  Config{ServerURL: "ftp://host", UserId: 7, Token: validToken},
			err:  "must be http or https",
		},
		{
			name: "missing user id",
			cfg:  Config{ServerURL: "http://localhost:8000", Token: validToken},
			err:  "user id must be positive",
		},
		{
			name: "empty token",
			cfg:  Config{ServerURL: "http://localhost:8000", UserId: 7},
			err:  "session token cannot be empty",
		},
		{
			name: "garbage token",
			cfg:  Config{ServerURL: "http://localhost:8000", UserId: 7, Token: "not-a-jwt"},
			err:  "session token",
		},
		{
			name: "expired token",
			cfg: Config{
				ServerURL: "http://localhost:8000", UserId: 7,
				Token: signedToken(t, "7", time.Now().Add(-time.Hour)),
			},
			err: "token is expired",
		},
		{
			name: "token for another user",
			cfg: Config{
				ServerURL: "http://localhost:8000", UserId: 7,
				Token: signedToken(t, "8", time.Now().Add(time.Hour)),
			},
			err: "token subject does not match",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.err == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.err)
			}
		})
	}
}

func TestValidate_DefaultHistoryLimit(t *testing.T) {
	cfg := Config{
		ServerURL: "http://localhost:8000",
		UserId:    7,
		Token:     signedToken(t, "7", time.Now().Add(time.Hour)),
	}

	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultHistoryLimit, cfg.HistoryLimit)
}

func TestWSURL(t *testing.T) {
	cfg := Config{ServerURL: "http://localhost:8000", UserId: 7, Token: "abc"}
	assert.Equal(t, "ws://localhost:8000/api/v1/chat/ws/7?token=abc", cfg.WSURL())

	cfg.ServerURL = "https://market.example.com"
	assert.Equal(t, "wss://market.example.com/api/v1/chat/ws/7?token=abc", cfg.WSURL())
}

func TestFromEnv(t *testing.T) {
	t.Setenv("CHAT_SERVER_URL", "https://market.example.com")
	t.Setenv("CHAT_USER_ID", "7")
	t.Setenv("CHAT_TOKEN", "abc")
	t.Setenv("CHAT_RECONNECT", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "https://market.example.com", cfg.ServerURL)
	assert.Equal(t, 7, cfg.UserId)
	assert.Equal(t, "abc", cfg.Token)
	assert.True(t, cfg.Reconnect)
	assert.Equal(t, 50, cfg.HistoryLimit, "expected the default history limit")
}

package config

import (
	"testing"
	"time"

	v "github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupViper(t *testing.T, values map[string]any) {
	t.Helper()
	v.Reset()
	t.Cleanup(v.Reset)

	defaults := map[string]any{
		"app.log_level":    "info",
		"host.port":        8080,
		"host.domain":      "http://localhost:8080/",
		"host.rate_limit":  5,
		"session.secret":   "secret",
		"database.driver":  "sqlite",
		"database.dsn":     "test.db",
		"mail.workers":     2,
		"mail.queue_size":  16,
		"mail.timeout":     "5s",
		"cache.render_ttl": "1m",
	}
	for k, val := range defaults {
		v.Set(k, val)
	}
	for k, val := range values {
		v.Set(k, val)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setupViper(t, map[string]any{
		"host.cors":         "http://a.com, http://b.com",
		"backoffice.emails": "staff@app.com",
	})

	c, err := load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", c.Domain)
	assert.Equal(t, []string{"http://a.com", "http://b.com"}, c.CORSOrigins)
	assert.Equal(t, []string{"staff@app.com"}, c.BackofficeEmails)
	assert.Equal(t, 5*time.Second, c.Mail.Timeout)
	assert.Equal(t, time.Minute, c.RenderCacheTTL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
	}{
		{"log level", map[string]any{"app.log_level": "loud"}},
		{"port", map[string]any{"host.port": 0}},
		{"secret", map[string]any{"session.secret": ""}},
		{"driver", map[string]any{"database.driver": "mysql"}},
		{"queue size", map[string]any{"mail.queue_size": 0}},
		{"timeout", map[string]any{"mail.timeout": "0s"}},
		{"rate limit", map[string]any{"host.rate_limit": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupViper(t, tt.values)
			_, err := load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_RateLimitDisabled(t *testing.T) {
	setupViper(t, map[string]any{"host.rate_limit": 0})

	c, err := load()
	require.NoError(t, err)
	assert.Zero(t, c.RateLimit)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList(" a ,, b "))
}

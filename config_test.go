package memclient

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/longbridgeapp/assert"

	"github.com/hyp3rd/memclient/internal/constants"
	"github.com/hyp3rd/memclient/internal/sentinel"
	"github.com/hyp3rd/memclient/pkg/retry"
)

func TestConfig_RedactsAPIKey(t *testing.T) {
	cfg := NewConfig("agents", "https://memory.example.com", "sk-very-secret")
	cfg.Retries = &retry.Policy{Attempts: 3, Delay: 200 * time.Millisecond}

	for _, out := range []string{cfg.String(), fmt.Sprintf("%v", cfg), fmt.Sprintf("%+v", *cfg), fmt.Sprintf("%#v", *cfg)} {
		assert.False(t, strings.Contains(out, "sk-very-secret"))
	}

	assert.True(t, strings.Contains(cfg.String(), "[REDACTED]"))
	assert.True(t, strings.Contains(cfg.String(), "3 attempts"))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
		want error
	}{
		{name: "valid", cfg: NewConfig("ns", "https://x.example", "k")},
		{name: "no namespace", cfg: NewConfig(" ", "https://x.example", "k"), want: sentinel.ErrParamCannotBeEmpty},
		{name: "no api key", cfg: NewConfig("ns", "https://x.example", ""), want: sentinel.ErrParamCannotBeEmpty},
		{name: "no base url", cfg: NewConfig("ns", "", "k"), want: sentinel.ErrParamCannotBeEmpty},
		{name: "relative base url", cfg: NewConfig("ns", "/api", "k"), want: sentinel.ErrInvalidBaseURL},
		{name: "negative timeout", cfg: &Config{Namespace: "ns", BaseURL: "https://x.example", APIKey: "k", Timeout: -1}, want: sentinel.ErrInvalidTimeout},
		{name: "bad retries", cfg: &Config{Namespace: "ns", BaseURL: "https://x.example", APIKey: "k", Retries: &retry.Policy{Attempts: 1, Delay: -time.Second}}, want: sentinel.ErrInvalidRetryPolicy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.want == nil {
				assert.Nil(t, err)

				return
			}

			assert.True(t, errors.Is(err, tt.want))
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memclient.yaml")

	err := os.WriteFile(path, []byte(`
namespace: agents
base_url: https://memory.example.com
api_key: sk-test
timeout_ms: 5000
retries:
  attempts: 3
  delay_ms: 200
`), 0o600)
	assert.Nil(t, err)

	cfg, err := LoadConfigFile(path)
	assert.Nil(t, err)
	assert.Equal(t, "agents", cfg.Namespace)
	assert.Equal(t, "https://memory.example.com", cfg.BaseURL)
	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, constants.DefaultUserAgent, cfg.UserAgent)
	assert.Equal(t, &retry.Policy{Attempts: 3, Delay: 200 * time.Millisecond}, cfg.Retries)
}

func TestParseConfig_Errors(t *testing.T) {
	_, err := ParseConfig([]byte("namespace: [unterminated"))
	assert.True(t, err != nil)

	_, err = ParseConfig([]byte("namespace: agents\nbase_url: https://x.example\n"))
	assert.True(t, errors.Is(err, sentinel.ErrParamCannotBeEmpty))

	_, err = ParseConfig([]byte("namespace: a\nbase_url: https://x.example\napi_key: k\nretries:\n  attempts: 0\n"))
	assert.True(t, errors.Is(err, sentinel.ErrInvalidRetryPolicy))

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, err != nil)
}

package memclient

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hyp3rd/ewrap"
	"gopkg.in/yaml.v3"

	"github.com/hyp3rd/memclient/internal/constants"
	"github.com/hyp3rd/memclient/internal/sentinel"
	"github.com/hyp3rd/memclient/pkg/retry"
)

// Config holds the settings of a Client.
type Config struct {
	// Namespace partitions the remote key space. Required.
	Namespace string
	// BaseURL is the root of the remote API, e.g. https://memory.example.com. Required.
	BaseURL string
	// APIKey is sent as a bearer token. Required; never logged.
	APIKey string
	// Timeout bounds each request. Zero selects constants.DefaultTimeout.
	Timeout time.Duration
	// Retries enables retrying of network, server and rate-limit failures. Nil means a single attempt.
	Retries *retry.Policy
	// UserAgent overrides the default user agent.
	UserAgent string
}

// NewConfig returns a `Config` with default values:
//   - `Timeout` is set to `constants.DefaultTimeout`
//   - `Retries` is nil (no retry)
//   - `UserAgent` is set to `constants.DefaultUserAgent`
func NewConfig(namespace, baseURL, apiKey string) *Config {
	return &Config{
		Namespace: namespace,
		BaseURL:   baseURL,
		APIKey:    apiKey,
		Timeout:   constants.DefaultTimeout,
		UserAgent: constants.DefaultUserAgent,
	}
}

// Validate checks the required fields and the retry policy.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Namespace) == "" {
		return ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "namespace")
	}

	if strings.TrimSpace(c.APIKey) == "" {
		return ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "api key")
	}

	if strings.TrimSpace(c.BaseURL) == "" {
		return ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "base url")
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ewrap.Wrap(sentinel.ErrInvalidBaseURL, c.BaseURL)
	}

	if c.Timeout < 0 {
		return sentinel.ErrInvalidTimeout
	}

	return c.Retries.Validate()
}

// String renders the configuration with the API key redacted.
func (c Config) String() string {
	retries := "none"
	if c.Retries != nil {
		retries = fmt.Sprintf("%d attempts, %s delay", c.Retries.Attempts, c.Retries.Delay)
	}

	return fmt.Sprintf("namespace=%s base_url=%s api_key=%s timeout=%s retries=%s",
		c.Namespace, c.BaseURL, redact(c.APIKey), c.Timeout, retries)
}

// GoString keeps the API key out of %#v output.
func (c Config) GoString() string { return "memclient.Config{" + c.String() + "}" }

func redact(secret string) string {
	if secret == "" {
		return ""
	}

	return "[REDACTED]"
}

// fileConfig is the YAML form of Config.
type fileConfig struct {
	Namespace string `yaml:"namespace"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	TimeoutMS int64  `yaml:"timeout_ms"`
	UserAgent string `yaml:"user_agent"`
	Retries   *struct {
		Attempts int   `yaml:"attempts"`
		DelayMS  int64 `yaml:"delay_ms"`
	} `yaml:"retries"`
}

// LoadConfigFile reads a YAML configuration file:
//
//	namespace: agents
//	base_url: https://memory.example.com
//	api_key: sk-...
//	timeout_ms: 5000
//	retries:
//	  attempts: 3
//	  delay_ms: 200
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is chosen by the operator
	if err != nil {
		return nil, ewrap.Wrapf(err, "read config %s", path)
	}

	return ParseConfig(data)
}

// ParseConfig decodes a YAML configuration and validates it.
func ParseConfig(data []byte) (*Config, error) {
	var fc fileConfig

	err := yaml.Unmarshal(data, &fc)
	if err != nil {
		return nil, ewrap.Wrap(err, "decode config")
	}

	cfg := NewConfig(fc.Namespace, fc.BaseURL, fc.APIKey)
	if fc.TimeoutMS != 0 {
		cfg.Timeout = time.Duration(fc.TimeoutMS) * time.Millisecond
	}

	if fc.UserAgent != "" {
		cfg.UserAgent = fc.UserAgent
	}

	if fc.Retries != nil {
		cfg.Retries = &retry.Policy{
			Attempts: fc.Retries.Attempts,
			Delay:    time.Duration(fc.Retries.DelayMS) * time.Millisecond,
		}
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

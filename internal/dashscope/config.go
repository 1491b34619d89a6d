package dashscope

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is DashScope's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

const (
	chatCompletionsPath = "/chat/completions"
	modelsPath          = "/models"
)

var validURL = regexp.MustCompile(`^https?://.+$`)

// IsValidURL reports whether url starts with http:// or https:// and has
// something after the scheme.
func IsValidURL(url string) bool {
	return validURL.MatchString(url)
}

// ChatCompletionsURL returns the chat completions endpoint for baseURL,
// falling back to DefaultBaseURL when baseURL is empty.
func ChatCompletionsURL(baseURL string) string {
	return normalizeBaseURL(baseURL) + chatCompletionsPath
}

// ModelsURL returns the model listing endpoint for baseURL.
func ModelsURL(baseURL string) string {
	return normalizeBaseURL(baseURL) + modelsPath
}

func normalizeBaseURL(baseURL string) string {
	if baseURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(baseURL, "/")
}

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	BaseURL string // optional, DefaultBaseURL when empty
	APIKey  string // required

	// HTTPClient overrides the default HTTP client (tests, proxies).
	HTTPClient Doer
}

// Validate checks required fields only.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("APIKey is required")
	}
	if !IsValidURL(c.BaseURL + chatCompletionsPath) {
		return errors.New("BaseURL must start with http:// or https://")
	}
	return nil
}

// WithDefaults returns a copy of Config with the base URL normalized.
func (c *Config) WithDefaults() Config {
	cfg := *c
	cfg.BaseURL = normalizeBaseURL(cfg.BaseURL)
	return cfg
}

// Client talks to one DashScope endpoint with one API key.
type Client struct {
	cfg        Config
	httpClient Doer
	logger     *zap.Logger
}

// NewClient creates a DashScope client with the given configuration.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	cfg = cfg.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("dashscope: invalid config: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = DefaultHTTPClient()
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger.Named("dashscope"),
	}, nil
}

// DefaultHTTPClient returns an HTTP client with dial and TLS timeouts but no
// overall request timeout; streams may run as long as the caller's context.
func DefaultHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// BaseURL returns the normalized base URL the client sends requests to.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

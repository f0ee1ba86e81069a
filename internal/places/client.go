package places

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/option"
)

const defaultHTTPTimeout = 10 * time.Second

var errNoAPIKey = errors.New("places: no maps api key configured")

type clientConfig struct {
	bias       LocationBias
	clientOpts []option.ClientOption
	api        placesAPI

	legacyBaseURL string
	httpClient    *http.Client
}

// ClientOption customises a provider adapter.
type ClientOption func(*clientConfig)

// WithLocationBias sets the search bias circle.
func WithLocationBias(bias LocationBias) ClientOption {
	return func(c *clientConfig) {
		c.bias = bias
	}
}

// WithClientOptions is passed to the Places API (New) client constructor,
// for example to point it at another endpoint.
func WithClientOptions(opts ...option.ClientOption) ClientOption {
	return func(c *clientConfig) {
		c.clientOpts = append(c.clientOpts, opts...)
	}
}

// WithPlacesClient uses client instead of dialing Places API (New).
func WithPlacesClient(client placesAPI) ClientOption {
	return func(c *clientConfig) {
		c.api = client
	}
}

// WithLegacyBaseURL points the legacy adapter at a different host, mainly for tests.
func WithLegacyBaseURL(baseURL string) ClientOption {
	return func(c *clientConfig) {
		if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
			c.legacyBaseURL = trimmed
		}
	}
}

// WithHTTPClient overrides the HTTP client used by the legacy adapter.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *clientConfig) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func newClientConfig(opts []ClientOption) clientConfig {
	cfg := clientConfig{httpClient: &http.Client{Timeout: defaultHTTPTimeout}}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

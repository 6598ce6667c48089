package uptimerobot

import (
	"maps"
	"net/url"
	"strings"

	"github.com/jpalmerr/uptimerobot/internal/errs"
)

// nameReplacer derives file-safe endpoint names from URLs.
var nameReplacer = strings.NewReplacer(
	"http://", "",
	"https://", "",
	"/", ".",
	"#", ".",
)

// Endpoint is one URL to monitor.
//
// Endpoint is immutable after creation via [NewEndpoint]. Its name is derived
// from the URL and keys the endpoint's log file and error marker.
type Endpoint struct {
	name  string
	url   string
	extra map[string]any
}

// Name returns the name derived from the URL, e.g. "example.com.health" for
// "https://example.com/health".
func (e Endpoint) Name() string {
	return e.name
}

// URL returns the URL that is polled.
func (e Endpoint) URL() string {
	return e.url
}

// Extra returns a copy of the additional configuration keys the endpoint was
// declared with. They are carried but not interpreted.
func (e Endpoint) Extra() map[string]any {
	return maps.Clone(e.extra)
}

func (e Endpoint) String() string {
	return e.name + " (" + e.url + ")"
}

// DeriveName returns the endpoint name for rawURL: the scheme prefix is
// dropped and every "/" and "#" becomes ".".
func DeriveName(rawURL string) string {
	return nameReplacer.Replace(rawURL)
}

// NewEndpoint creates an [Endpoint] for rawURL, which must be an absolute
// http or https URL with a host.
//
// Example:
//
//	ep, err := uptimerobot.NewEndpoint("https://example.com/health",
//	    uptimerobot.WithExtra(map[string]any{"owner": "platform"}),
//	)
func NewEndpoint(rawURL string, opts ...EndpointOption) (Endpoint, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Endpoint{}, errs.Wrap(err, errs.CodeEndpointInvalid, "invalid URL", errs.Field("url", rawURL))
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Endpoint{}, errs.New(errs.CodeEndpointInvalid, "URL scheme must be http or https", errs.Field("url", rawURL))
	}
	if parsed.Host == "" {
		return Endpoint{}, errs.New(errs.CodeEndpointInvalid, "URL must have a host", errs.Field("url", rawURL))
	}

	cfg := &endpointConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Endpoint{}, err
		}
	}

	return Endpoint{
		name:  DeriveName(rawURL),
		url:   rawURL,
		extra: cfg.extra,
	}, nil
}

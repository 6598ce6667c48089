package uptimerobot

import (
	"maps"

	"github.com/jpalmerr/uptimerobot/internal/errs"
)

// endpointConfig holds mutable state during endpoint construction.
type endpointConfig struct {
	extra map[string]any
}

// EndpointOption configures an [Endpoint] during construction.
type EndpointOption func(*endpointConfig) error

// WithExtra attaches additional configuration keys to the endpoint. The map
// is copied. The "url" key is reserved.
func WithExtra(extra map[string]any) EndpointOption {
	return func(cfg *endpointConfig) error {
		if _, ok := extra["url"]; ok {
			return errs.New(errs.CodeEndpointInvalid, `extra keys must not contain "url"`)
		}
		if len(extra) == 0 {
			return nil
		}
		if cfg.extra == nil {
			cfg.extra = make(map[string]any, len(extra))
		}
		maps.Copy(cfg.extra, extra)
		return nil
	}
}

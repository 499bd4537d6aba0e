// Package providers fetches events from external sources and runs them
// through the guards and the admission filter.
//
// A provider type registers a prototype in init(); configured instances are
// created from it by name:
//
//	func init() {
//		providers.RegisterPrototype("myfeed", &Provider{})
//	}
//
// Type is the provider kind (e.g. "jsonfeed"), Name is the configured
// instance (e.g. "visit_rome"). Guards, metrics and source labels are keyed
// by Name.
package providers

import (
	"context"

	"github.com/rubiojr/eventa/pkg/external"
)

// Provider is a source of external event records.
type Provider interface {
	// Type returns the provider kind used for registration.
	Type() string
	// Name returns the configured instance name.
	Name() string
	// ConfigType returns a pointer to a zero config value to decode into.
	ConfigType() any
	// Factory creates a configured instance from a prototype.
	Factory(name string, config any) (Provider, error)
	// Fetch returns raw records. Any error counts as a provider failure.
	Fetch(ctx context.Context) ([]external.Raw, error)
}

// Validator is implemented by configs that can check themselves.
type Validator interface {
	Validate() error
}

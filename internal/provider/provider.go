package provider

import (
	"errors"
	"fmt"
	"time"

	"noiseguard.app/engine/internal/model"
)

// ErrUnknownProvider is returned when no normalizer is registered for a
// provider key.
var ErrUnknownProvider = errors.New("unknown provider")

// NormalizedAlert is the provider-independent shape every webhook payload
// is reduced to before the engine sees it.
type NormalizedAlert struct {
	EventID     string
	Title       string
	Description string
	Severity    model.Severity
	Status      model.Status
	Tags        map[string]string
	CreatedAt   time.Time

	Configuration NormalizedConfiguration
}

// NormalizedConfiguration identifies the monitor that fired the alert.
type NormalizedConfiguration struct {
	ProviderID string
	Name       string
	Query      string
}

// Normalizer maps one provider's webhook payload to the normalized shape.
type Normalizer interface {
	Provider() string
	Normalize(payload []byte) (*NormalizedAlert, error)
}

// Registry maps provider keys to normalizers. Populated once at startup;
// lookups are read-only after that.
type Registry struct {
	normalizers map[string]Normalizer
}

func NewRegistry(normalizers ...Normalizer) *Registry {
	r := &Registry{normalizers: make(map[string]Normalizer, len(normalizers))}
	for _, n := range normalizers {
		r.normalizers[n.Provider()] = n
	}
	return r
}

func (r *Registry) Get(provider string) (Normalizer, error) {
	n, ok := r.normalizers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	return n, nil
}

// Providers returns the registered provider keys.
func (r *Registry) Providers() []string {
	keys := make([]string, 0, len(r.normalizers))
	for key := range r.normalizers {
		keys = append(keys, key)
	}
	return keys
}

// Package provider builds llm.Provider implementations by name.
package provider

import (
	"errors"
	"fmt"

	"github.com/papercomputeco/answerdesk/pkg/llm"
	"github.com/papercomputeco/answerdesk/pkg/llm/provider/gemini"
	"github.com/papercomputeco/answerdesk/pkg/llm/provider/mistral"
	"github.com/papercomputeco/answerdesk/pkg/llm/provider/ollama"
	"github.com/papercomputeco/answerdesk/pkg/llm/provider/onemin"
)

// Supported provider type constants
const (
	Gemini  = gemini.Name
	Mistral = mistral.Name
	OneMin  = onemin.Name
	Ollama  = ollama.Name
)

// ErrUnknownProvider is returned when a provider name is not recognized.
var ErrUnknownProvider = errors.New("unknown provider")

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Gemini, Mistral, OneMin, Ollama}
}

// New creates a new Provider instance for the given provider type.
func New(providerType string, c llm.Config) (llm.Provider, error) {
	switch providerType {
	case Gemini:
		return gemini.New(c)
	case Mistral:
		return mistral.New(c)
	case OneMin:
		return onemin.New(c)
	case Ollama:
		return ollama.New(c)
	default:
		return nil, fmt.Errorf("%w: %q (supported: %v)", ErrUnknownProvider, providerType, SupportedProviders())
	}
}

// NewRegistry builds every provider in configs, keyed by name. Providers that
// fail to build (usually a missing API key) are skipped and reported in the
// returned map of errors so callers can decide whether the gap matters.
func NewRegistry(configs map[string]llm.Config) (map[string]llm.Provider, map[string]error) {
	providers := make(map[string]llm.Provider, len(configs))
	failures := make(map[string]error)
	for name, c := range configs {
		p, err := New(name, c)
		if err != nil {
			failures[name] = err
			continue
		}
		providers[name] = p
	}
	return providers, failures
}

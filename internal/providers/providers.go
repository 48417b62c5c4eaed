// Package providers contains the language model clients that answer chat
// questions
package providers

import (
	"context"
	"errors"
	"sort"
)

// Registered generator names
const (
	NameGroq   = "groq"
	NameOpenAI = "openai"
)

// ErrNoChoices is returned when the upstream answered without a completion
var ErrNoChoices = errors.New("upstream returned no choices")

// Request is a single question for a Generator
type Request struct {
	// SystemPrompt is sent as the first message
	SystemPrompt string
	// Prompt is the user's text
	Prompt string
	// Image is a data URL or https URL. Empty means a text-only question.
	Image string
}

// Generator defines the interface that all language model providers must
// implement
type Generator interface {
	// Name returns the name of the provider (e.g., "groq", "openai")
	Name() string

	// Generate returns the completion for a request
	Generate(ctx context.Context, req Request) (string, error)
}

// Registry manages available generators
type Registry struct {
	generators map[string]Generator
}

// NewRegistry creates a new generator registry
func NewRegistry() *Registry {
	return &Registry{
		generators: make(map[string]Generator),
	}
}

// Register adds a generator to the registry
func (r *Registry) Register(g Generator) {
	r.generators[g.Name()] = g
}

// Get retrieves a generator by name
func (r *Registry) Get(name string) (Generator, bool) {
	g, exists := r.generators[name]
	return g, exists
}

// List returns all registered generator names, sorted
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.generators))
	for name := range r.generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

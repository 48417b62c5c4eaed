// Package chat answers ArqBot questions, serving repeated ones from the
// response cache
package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/arqbot/internal/prompt"
	"github.com/briangreenhill/arqbot/internal/providers"
)

var (
	// ErrEmptyQuestion is returned when neither a message nor an image was sent
	ErrEmptyQuestion = errors.New("message or image is required")
	// ErrNotConfigured is returned when the generator for a question has no API key
	ErrNotConfigured = errors.New("generator not configured")
)

// Question is what a visitor sent
type Question struct {
	Message string
	Image   string
}

// Answer is returned to the visitor
type Answer struct {
	ID        string
	Response  string
	FromCache bool
}

// Cache is the cache-aware lookup used by the service. *cache.ChatAdapter
// satisfies it.
type Cache interface {
	Lookup(question, imageRef string) (string, bool)
	Store(question, response, imageRef string)
}

// Service answers questions
type Service struct {
	cache      Cache
	generators *providers.Registry
	prompts    *prompt.Generator
	logger     zerolog.Logger
}

// NewService wires a Service. A nil prompts uses the built-in prompts.
func NewService(c Cache, generators *providers.Registry, prompts *prompt.Generator, logger zerolog.Logger) *Service {
	if prompts == nil {
		prompts = prompt.NewGenerator("", logger)
	}
	if generators == nil {
		generators = providers.NewRegistry()
	}
	return &Service{
		cache:      c,
		generators: generators,
		prompts:    prompts,
		logger:     logger,
	}
}

// Ask returns the cached answer for q when one exists. Otherwise the text or
// vision generator is called and a non-empty answer is cached.
func (s *Service) Ask(ctx context.Context, q Question) (Answer, error) {
	if q.Message == "" && q.Image == "" {
		return Answer{}, ErrEmptyQuestion
	}

	if cached, ok := s.cache.Lookup(q.Message, q.Image); ok {
		s.logger.Debug().Str("question", q.Message).Bool("image", q.Image != "").Msg("answer served from cache")
		return Answer{ID: uuid.NewString(), Response: cached, FromCache: true}, nil
	}

	name, req := s.request(q)
	gen, ok := s.generators.Get(name)
	if !ok {
		return Answer{}, fmt.Errorf("%w: %s", ErrNotConfigured, name)
	}

	response, err := gen.Generate(ctx, req)
	if err != nil {
		return Answer{}, fmt.Errorf("generate with %s: %w", name, err)
	}

	if response == "" {
		s.logger.Warn().Str("provider", name).Msg("empty answer not cached")
	} else {
		s.cache.Store(q.Message, response, q.Image)
	}
	s.logger.Debug().Str("question", q.Message).Str("provider", name).Msg("answer generated")
	return Answer{ID: uuid.NewString(), Response: response}, nil
}

func (s *Service) request(q Question) (string, providers.Request) {
	if q.Image == "" {
		return providers.NameGroq, providers.Request{
			SystemPrompt: s.prompts.GenerateWithFallback(),
			Prompt:       q.Message,
		}
	}

	text := q.Message
	if text == "" {
		text = prompt.DefaultImageQuestion
	}
	return providers.NameOpenAI, providers.Request{
		SystemPrompt: s.prompts.Vision(),
		Prompt:       text,
		Image:        q.Image,
	}
}

package providers

import (
	"github.com/rs/zerolog"

	"github.com/briangreenhill/arqbot/internal/config"
)

// Setup creates a registry with all configured generators, each behind a
// circuit breaker. Groq answers text questions and OpenAI analyses images.
func Setup(cfg *config.Config, logger zerolog.Logger, opts ...Option) *Registry {
	registry := NewRegistry()

	register := func(name, apiKey, baseURL, model string) {
		client, err := NewClient(name, apiKey, baseURL, model, opts...)
		if err != nil {
			logger.Error().Err(err).Str("provider", name).Msg("skipping provider")
			return
		}
		registry.Register(WithBreaker(client, DefaultBreakerSettings(), logger))
	}

	if cfg.HasGroq() {
		register(NameGroq, cfg.Groq.APIKey, cfg.Groq.BaseURL, cfg.Groq.Model)
	}
	if cfg.HasOpenAI() {
		register(NameOpenAI, cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.VisionModel)
	}

	return registry
}

// Package prompt handles the assistant system prompts
package prompt

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Generator resolves the system prompts sent to the language models
type Generator struct {
	customPath string
	logger     zerolog.Logger
}

// NewGenerator creates a prompt generator. An empty customPath means the
// built-in text prompt is used.
func NewGenerator(customPath string, logger zerolog.Logger) *Generator {
	return &Generator{customPath: customPath, logger: logger}
}

// Generate returns the text prompt content (custom or default)
func (g *Generator) Generate() (string, error) {
	if g == nil || g.customPath == "" {
		return GetDefault(), nil
	}

	data, err := os.ReadFile(g.customPath)
	if err != nil {
		return "", fmt.Errorf("read custom prompt %s: %w", g.customPath, err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return "", fmt.Errorf("custom prompt %s is empty", g.customPath)
	}
	return content, nil
}

// GenerateWithFallback returns the text prompt, falling back to the default
// when the custom file cannot be used
func (g *Generator) GenerateWithFallback() string {
	prompt, err := g.Generate()
	if err != nil {
		g.logger.Warn().Err(err).Msg("error loading assistant prompt, using default")
		return GetDefault()
	}
	return prompt
}

// Vision returns the image analysis prompt
func (g *Generator) Vision() string {
	return GetVisionDefault()
}

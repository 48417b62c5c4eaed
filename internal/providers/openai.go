package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	completionsPath = "/v1/chat/completions"

	defaultTemperature = 0.7
	defaultMaxTokens   = 1024
	defaultTimeout     = 60 * time.Second
)

// StatusError reports a non-2xx answer from the upstream
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s request failed with status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Client talks to an OpenAI-compatible chat completions endpoint. Groq and
// OpenAI both speak this protocol.
type Client struct {
	name    string
	model   string
	baseURL *url.URL
	http    *http.Client

	temperature float64
	maxTokens   int
}

var _ Generator = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient sets the base client. Bearer auth is layered on top of its
// transport.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if u, err := url.Parse(raw); err == nil && raw != "" {
			c.baseURL = u
		}
	}
}

func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// NewClient creates a client named name, authenticated with apiKey
func NewClient(name, apiKey, baseURL, model string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("apiKey required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	c := &Client{
		name:        name,
		model:       model,
		baseURL:     u,
		http:        &http.Client{Timeout: defaultTimeout},
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
	}
	for _, o := range opts {
		o(c)
	}

	base := c.http
	c.http = &http.Client{
		Timeout:       base.Timeout,
		CheckRedirect: base.CheckRedirect,
		Jar:           base.Jar,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey}),
			Base:   base.Transport,
		},
	}
	return c, nil
}

// Name implements Generator
func (c *Client) Name() string { return c.name }

// Model returns the model sent with every request
func (c *Client) Model() string { return c.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate implements Generator
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("encode %s request: %w", c.name, err)
	}

	u := *c.baseURL
	u.Path = path.Join(u.Path, completionsPath)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%s request: %w", c.name, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &StatusError{Provider: c.name, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode %s response: %w", c.name, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", c.name, ErrNoChoices)
	}
	return out.Choices[0].Message.Content, nil
}

func (c *Client) buildRequest(req Request) completionRequest {
	var messages []chatMessage
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}

	if req.Image == "" {
		messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})
	} else {
		messages = append(messages, chatMessage{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: req.Prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: req.Image}},
			},
		})
	}

	return completionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
}

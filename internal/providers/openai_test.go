package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/arqbot/internal/config"
)

// captured is what the fake upstream saw
type captured struct {
	path  string
	auth  string
	model string
	body  map[string]any
}

func fakeUpstream(t *testing.T, status int, reply string) (*httptest.Server, <-chan captured) {
	t.Helper()
	seen := make(chan captured, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := captured{
			path: r.URL.Path,
			auth: r.Header.Get("Authorization"),
		}
		_ = json.NewDecoder(r.Body).Decode(&got.body)
		got.model, _ = got.body["model"].(string)
		select {
		case seen <- got:
		default:
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

const okReply = `{"choices":[{"message":{"role":"assistant","content":"Olá! Como posso ajudar?"}}]}`

func TestClientGenerateText(t *testing.T) {
	srv, seen := fakeUpstream(t, http.StatusOK, okReply)

	c, err := NewClient(NameGroq, "gsk_test", srv.URL+"/openai", "llama3-8b-8192")
	require.NoError(t, err)

	answer, err := c.Generate(context.Background(), Request{SystemPrompt: "sys", Prompt: "Olá"})
	require.NoError(t, err)
	assert.Equal(t, "Olá! Como posso ajudar?", answer)
	got := <-seen

	assert.Equal(t, "/openai/v1/chat/completions", got.path)
	assert.Equal(t, "Bearer gsk_test", got.auth)
	assert.Equal(t, "llama3-8b-8192", got.model)
	assert.InDelta(t, 0.7, got.body["temperature"], 1e-9)
	assert.EqualValues(t, 1024, got.body["max_tokens"])

	messages := got.body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, map[string]any{"role": "system", "content": "sys"}, messages[0])
	assert.Equal(t, map[string]any{"role": "user", "content": "Olá"}, messages[1])
}

func TestClientGenerateImage(t *testing.T) {
	srv, seen := fakeUpstream(t, http.StatusOK, okReply)

	c, err := NewClient(NameOpenAI, "sk-test", srv.URL, "gpt-4-vision-preview")
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), Request{
		SystemPrompt: "vision",
		Prompt:       "O que acha?",
		Image:        "data:image/png;base64,AAAA",
	})
	require.NoError(t, err)
	got := <-seen

	messages := got.body["messages"].([]any)
	require.Len(t, messages, 2)
	user := messages[1].(map[string]any)
	parts := user["content"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, map[string]any{"type": "text", "text": "O que acha?"}, parts[0])
	assert.Equal(t, map[string]any{
		"type":      "image_url",
		"image_url": map[string]any{"url": "data:image/png;base64,AAAA"},
	}, parts[1])
}

func TestClientGenerateErrors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv, _ := fakeUpstream(t, http.StatusTooManyRequests, `{"error":"rate limited"}`)
		c, err := NewClient(NameGroq, "k", srv.URL, "m")
		require.NoError(t, err)

		_, err = c.Generate(context.Background(), Request{Prompt: "x"})
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
		assert.Contains(t, se.Error(), "rate limited")
	})

	t.Run("no choices", func(t *testing.T) {
		srv, _ := fakeUpstream(t, http.StatusOK, `{"choices":[]}`)
		c, err := NewClient(NameGroq, "k", srv.URL, "m")
		require.NoError(t, err)

		_, err = c.Generate(context.Background(), Request{Prompt: "x"})
		assert.True(t, errors.Is(err, ErrNoChoices))
	})

	t.Run("bad json", func(t *testing.T) {
		srv, _ := fakeUpstream(t, http.StatusOK, `not json`)
		c, err := NewClient(NameGroq, "k", srv.URL, "m")
		require.NoError(t, err)

		_, err = c.Generate(context.Background(), Request{Prompt: "x"})
		assert.Error(t, err)
	})

	t.Run("cancelled", func(t *testing.T) {
		srv, _ := fakeUpstream(t, http.StatusOK, okReply)
		c, err := NewClient(NameGroq, "k", srv.URL, "m")
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = c.Generate(ctx, Request{Prompt: "x"})
		assert.Error(t, err)
	})
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(NameGroq, "", "https://api.groq.com/openai", "m")
	assert.Error(t, err)
}

func TestClientOptions(t *testing.T) {
	srv, seen := fakeUpstream(t, http.StatusOK, okReply)

	c, err := NewClient(NameGroq, "k", "https://unused.invalid", "m",
		WithBaseURL(srv.URL),
		WithModel("other-model"),
		WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	assert.Equal(t, "other-model", c.Model())

	_, err = c.Generate(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	got := <-seen
	assert.Equal(t, "Bearer k", got.auth)
	assert.Equal(t, "other-model", got.model)
}

func TestSetup(t *testing.T) {
	cfg := config.Default()
	assert.Empty(t, Setup(cfg, zerolog.Nop()).List())

	cfg.Groq.APIKey = "gsk"
	assert.Equal(t, []string{NameGroq}, Setup(cfg, zerolog.Nop()).List())

	cfg.OpenAI.APIKey = "sk"
	registry := Setup(cfg, zerolog.Nop())
	assert.Equal(t, []string{NameGroq, NameOpenAI}, registry.List())

	g, ok := registry.Get(NameOpenAI)
	require.True(t, ok)
	assert.Equal(t, "gpt-4-vision-preview", g.(*Breaker).Unwrap().(*Client).Model())
}

package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/arqbot/cache"
	"github.com/briangreenhill/arqbot/internal/prompt"
	"github.com/briangreenhill/arqbot/internal/providers"
)

// fakeGenerator records requests and answers with a fixed reply
type fakeGenerator struct {
	name  string
	reply string
	err   error
	calls []providers.Request
}

func (f *fakeGenerator) Name() string { return f.name }

func (f *fakeGenerator) Generate(_ context.Context, req providers.Request) (string, error) {
	f.calls = append(f.calls, req)
	return f.reply, f.err
}

func newTestService(t *testing.T, gens ...providers.Generator) (*Service, *cache.MemoryStore) {
	t.Helper()
	store := cache.NewMemoryStore(cache.WithTTL(time.Hour))
	registry := providers.NewRegistry()
	for _, g := range gens {
		registry.Register(g)
	}
	adapter := cache.NewChatAdapter(store, nil, zerolog.Nop())
	return NewService(adapter, registry, nil, zerolog.Nop()), store
}

func TestAskCachesAnswers(t *testing.T) {
	groq := &fakeGenerator{name: providers.NameGroq, reply: "Olá! Sou o ArqBot."}
	svc, store := newTestService(t, groq)

	first, err := svc.Ask(context.Background(), Question{Message: "Olá!"})
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, "Olá! Sou o ArqBot.", first.Response)
	_, err = uuid.Parse(first.ID)
	assert.NoError(t, err)

	second, err := svc.Ask(context.Background(), Question{Message: "  olá  "})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Response, second.Response)
	assert.NotEqual(t, first.ID, second.ID)

	assert.Len(t, groq.calls, 1)
	assert.Equal(t, prompt.GetDefault(), groq.calls[0].SystemPrompt)
	assert.Equal(t, 1, store.Len())

	_, ok := store.Get(cache.GenerateKey("Olá!", ""))
	assert.True(t, ok)
}

func TestAskImageUsesVision(t *testing.T) {
	groq := &fakeGenerator{name: providers.NameGroq, reply: "text"}
	openai := &fakeGenerator{name: providers.NameOpenAI, reply: "Estilo minimalista."}
	svc, _ := newTestService(t, groq, openai)

	img := "data:image/jpeg;base64,/9j/4AAQSkZJRgABAQ"
	answer, err := svc.Ask(context.Background(), Question{Image: img})
	require.NoError(t, err)
	assert.Equal(t, "Estilo minimalista.", answer.Response)

	assert.Empty(t, groq.calls)
	require.Len(t, openai.calls, 1)
	assert.Equal(t, prompt.DefaultImageQuestion, openai.calls[0].Prompt)
	assert.Equal(t, img, openai.calls[0].Image)
	assert.Equal(t, prompt.GetVisionDefault(), openai.calls[0].SystemPrompt)

	// same image again is served from cache
	again, err := svc.Ask(context.Background(), Question{Image: img})
	require.NoError(t, err)
	assert.True(t, again.FromCache)
	assert.Len(t, openai.calls, 1)
}

func TestAskEmptyQuestion(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Ask(context.Background(), Question{})
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAskNotConfigured(t *testing.T) {
	svc, _ := newTestService(t, &fakeGenerator{name: providers.NameGroq, reply: "x"})

	_, err := svc.Ask(context.Background(), Question{Message: "veja", Image: "https://example.com/a.jpg"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAskGeneratorFailureIsNotCached(t *testing.T) {
	boom := errors.New("upstream down")
	groq := &fakeGenerator{name: providers.NameGroq, err: boom}
	svc, store := newTestService(t, groq)

	_, err := svc.Ask(context.Background(), Question{Message: "quanto custa?"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.Len())
}

func TestAskDoesNotCacheEmptyAnswers(t *testing.T) {
	groq := &fakeGenerator{name: providers.NameGroq}
	svc, store := newTestService(t, groq)

	first, err := svc.Ask(context.Background(), Question{Message: "oi"})
	require.NoError(t, err)
	assert.Empty(t, first.Response)
	assert.False(t, first.FromCache)
	assert.Equal(t, 0, store.Len())

	groq.reply = "real answer"
	second, err := svc.Ask(context.Background(), Question{Message: "oi"})
	require.NoError(t, err)
	assert.False(t, second.FromCache)
	assert.Equal(t, "real answer", second.Response)
	assert.Len(t, groq.calls, 2)
}

func TestAskTreatsEmptyCachedAnswerAsMiss(t *testing.T) {
	groq := &fakeGenerator{name: providers.NameGroq, reply: "fresh"}
	svc, store := newTestService(t, groq)
	store.Set(cache.GenerateKey("oi", ""), "")

	answer, err := svc.Ask(context.Background(), Question{Message: "oi"})
	require.NoError(t, err)
	assert.False(t, answer.FromCache)
	assert.Equal(t, "fresh", answer.Response)
	assert.Len(t, groq.calls, 1)

	got, ok := store.Get(cache.GenerateKey("oi", ""))
	require.True(t, ok)
	assert.Equal(t, "fresh", got)
}

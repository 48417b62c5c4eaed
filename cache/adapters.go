package cache

import "github.com/rs/zerolog"

// ChatAdapter adapts the store to the chat assistant's question/answer
// vocabulary. It derives keys from questions so callers never build them.
type ChatAdapter struct {
	store  ReadWriter
	keys   *KeyGenerator
	logger zerolog.Logger
}

// NewChatAdapter creates a new adapter. A nil keys uses DefaultKeyGenerator.
func NewChatAdapter(store ReadWriter, keys *KeyGenerator, logger zerolog.Logger) *ChatAdapter {
	if keys == nil {
		keys = DefaultKeyGenerator
	}
	return &ChatAdapter{store: store, keys: keys, logger: logger}
}

// Lookup returns the cached answer for a question, if any. It never fails;
// any problem inside the cache surfaces as a miss. An empty answer is a miss.
func (a *ChatAdapter) Lookup(question, imageRef string) (response string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().Interface("panic", r).Msg("cache lookup failed")
			response, ok = "", false
		}
	}()

	key := a.keys.KeyFor(question, imageRef)
	response, ok = a.store.Get(key)
	ok = ok && response != ""
	a.logger.Debug().
		Str("key", key).
		Bool("has_image", imageRef != "").
		Bool("hit", ok).
		Msg("cache lookup")
	return response, ok
}

// Store records the answer to a question. Failures are logged and dropped.
func (a *ChatAdapter) Store(question, response, imageRef string) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().Interface("panic", r).Msg("cache store failed")
		}
	}()

	a.store.Set(a.keys.KeyFor(question, imageRef), response)
}

package cache

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const (
	keyPrefix      = "chat:"
	imageSeparator = ":img:"

	// imagePrefixLen is how much of an image reference goes into a key
	// when the prefix fingerprint is used.
	imagePrefixLen = 50
)

// Fingerprint selects how an image reference is folded into a cache key
type Fingerprint string

const (
	// FingerprintPrefix keeps the first 50 characters of the reference.
	// Two images sharing that prefix collide.
	FingerprintPrefix Fingerprint = "prefix"
	// FingerprintXXHash hashes the whole reference with xxhash64
	FingerprintXXHash Fingerprint = "xxhash"
)

// ParseFingerprint maps a configuration value to a Fingerprint
func ParseFingerprint(s string) (Fingerprint, error) {
	switch Fingerprint(strings.ToLower(strings.TrimSpace(s))) {
	case "", FingerprintPrefix:
		return FingerprintPrefix, nil
	case FingerprintXXHash:
		return FingerprintXXHash, nil
	default:
		return "", fmt.Errorf("unknown key fingerprint %q", s)
	}
}

// KeyGenerator builds cache keys from chat questions
type KeyGenerator struct {
	Fingerprint Fingerprint
}

// DefaultKeyGenerator provides a shared key generator instance
var DefaultKeyGenerator = &KeyGenerator{Fingerprint: FingerprintPrefix}

// KeyFor generates a stable cache key from a question and an optional
// image reference. An empty imageRef means a text-only question.
func (kg *KeyGenerator) KeyFor(question, imageRef string) string {
	key := keyPrefix + Normalize(question)
	if imageRef == "" {
		return key
	}
	return key + imageSeparator + kg.fingerprint(imageRef)
}

func (kg *KeyGenerator) fingerprint(imageRef string) string {
	if kg.Fingerprint == FingerprintXXHash {
		return fmt.Sprintf("%016x", xxhash.Sum64String(imageRef))
	}
	return truncateRunes(imageRef, imagePrefixLen)
}

// GenerateKey builds a key with the default (prefix) fingerprint
func GenerateKey(question, imageRef string) string {
	return DefaultKeyGenerator.KeyFor(question, imageRef)
}

// Normalize canonicalizes a question so that trivially different phrasings
// share a cache key: lower-cased, punctuation removed, whitespace collapsed
// to single spaces and trimmed.
//
// Word characters are ASCII letters, digits and underscore. Everything else
// that is not whitespace is dropped, accented letters included.
func Normalize(question string) string {
	lowered := strings.ToLower(question)

	var b strings.Builder
	b.Grow(len(lowered))

	pendingSpace := false
	for _, r := range lowered {
		switch {
		case isWordRune(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			pendingSpace = true
		}
	}

	return b.String()
}

func isWordRune(r rune) bool {
	return r == '_' ||
		('a' <= r && r <= 'z') ||
		('A' <= r && r <= 'Z') ||
		('0' <= r && r <= '9')
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Package cache stores dispatch results so identical analyses skip the model.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ppiankov/codecritic/internal/model"
)

// Cache is a byte-oriented store with per-entry TTL
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

const keyPrefix = "codecritic:v1:"

// Key hashes the given parts into a namespaced cache key.
// Parts are length-prefixed so ("ab","c") and ("a","bc") differ.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(strconv.Itoa(len(p))))
		h.Write([]byte{':'})
		h.Write([]byte(p))
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// DispatchKey identifies one dispatch: both models, generation parameters and the prompt
func DispatchKey(primary, fallback string, temperature float64, maxOutputTokens int, prompt string) string {
	return Key(
		primary,
		fallback,
		strconv.FormatFloat(temperature, 'g', -1, 64),
		strconv.Itoa(maxOutputTokens),
		prompt,
	)
}

// ResultCache stores DispatchResults as JSON in an underlying Cache
type ResultCache struct {
	backend Cache
	ttl     time.Duration
}

// NewResultCache wraps backend; ttl 0 uses the backend's default
func NewResultCache(backend Cache, ttl time.Duration) *ResultCache {
	return &ResultCache{backend: backend, ttl: ttl}
}

// Get returns a cached result. Undecodable entries count as misses.
func (c *ResultCache) Get(key string) (model.DispatchResult, bool) {
	data, ok := c.backend.Get(key)
	if !ok {
		return model.DispatchResult{}, false
	}
	var result model.DispatchResult
	if err := json.Unmarshal(data, &result); err != nil {
		return model.DispatchResult{}, false
	}
	return result, true
}

// Put stores a result
func (c *ResultCache) Put(key string, result model.DispatchResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := c.backend.Set(key, data, c.ttl); err != nil {
		return fmt.Errorf("store result: %w", err)
	}
	return nil
}

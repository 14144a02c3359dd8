package identity

import "time"

// Cache stores serialized step payloads keyed by content identity. Lookups
// never block on in-flight writes from another run; last writer wins.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// NopCache is used when caching is disabled
type NopCache struct{}

func (NopCache) Get(string) ([]byte, bool)                 { return nil, false }
func (NopCache) Set(string, []byte, time.Duration) error   { return nil }
func (NopCache) Delete(string) error                       { return nil }
func (NopCache) Clear() error                              { return nil }

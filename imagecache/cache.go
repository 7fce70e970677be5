// Package imagecache provides an optional, host-level cache for bytecode
// images loaded from disk, keyed by content hash. It never imports the vm
// package: loading an image is an external concern, not part of the
// execution core.
package imagecache

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/bradfitz/gomemcache/memcache"
	"golang.org/x/crypto/blake2b"
)

// Cache is a thin wrapper around a memcached client, storing raw
// bytecode image bytes under their blake2b-256 digest.
type Cache struct {
	client *memcache.Client
}

// New connects to the given memcached address (host:port). Connection
// failures surface lazily on the first Get/Set, matching gomemcache's own
// lazy-dial behavior.
func New(addr string) *Cache {
	return &Cache{client: memcache.New(addr)}
}

func digestHex(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (c *Cache) key(digest string) string {
	return fmt.Sprintf("stackvm:image:%s", digest)
}

// Get returns the cached bytes for digest, or (nil, false) on a miss.
func (c *Cache) Get(digest string) ([]byte, bool) {
	item, err := c.client.Get(c.key(digest))
	if err != nil {
		return nil, false
	}
	return item.Value, true
}

// Set stores data under its own digest.
func (c *Cache) Set(digest string, data []byte) error {
	return c.client.Set(&memcache.Item{Key: c.key(digest), Value: data})
}

// LoadImage reads path and computes its blake2b-256 digest. The file is
// always read from disk, since the cache key is derived from its bytes.
// When cache is non-nil, those bytes are then looked up under the digest:
// a hit returns the cached bytes, a miss stores the file's bytes in the
// cache. A nil cache (the default, no -cache flag) skips the lookup.
func LoadImage(cache *Cache, path string) (data []byte, digest string, err error) {
	if cache != nil {
		// The digest of a not-yet-read file is unknown, so every call,
		// hit or miss, reads the file first.
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, "", err
		}
		digest = digestHex(data)
		if cached, ok := cache.Get(digest); ok {
			return cached, digest, nil
		}
		if err := cache.Set(digest, data); err != nil {
			return nil, "", errors.New("imagecache: failed to populate cache: " + err.Error())
		}
		return data, digest, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return data, digestHex(data), nil
}

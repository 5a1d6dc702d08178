package redis

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Cache TTL tiers. Pick the tier matching how often the underlying
// data changes, not how often it is read.
const (
	TTLShort    = 60 * time.Second     // volatile data, search results
	TTLMedium   = 5 * time.Minute      // user filters, favorites
	TTLStandard = time.Hour            // user profiles, subscription status
	TTLLong     = 24 * time.Hour       // ad details, images
	TTLExtended = 7 * 24 * time.Hour   // near-static reference data
)

// maxKeyLength is the longest key we store verbatim. Longer keys are
// replaced by prefix:md5(key) so redis keyspace stays bounded and
// pattern invalidation on the prefix still works.
const maxKeyLength = 200

// CacheKey builds a "prefix:arg1:arg2" key from the prefix and args.
func CacheKey(prefix string, args ...string) string {
	parts := append([]string{prefix}, args...)
	key := strings.Join(parts, ":")
	if len(key) > maxKeyLength {
		sum := md5.Sum([]byte(key))
		return prefix + ":" + hex.EncodeToString(sum[:])
	}
	return key
}

// GetString returns the raw cached value, "" and false on miss.
func GetString(c Client, key string) (string, bool) {
	value, err := c.Get(context.Background(), key).Result()
	if err != nil {
		return "", false
	}
	return value, true
}

// SetString stores a raw value. Cache write failures are logged, not
// returned: the caller already has the data.
func SetString(c Client, key string, value string, ttl time.Duration) {
	if err := c.Set(context.Background(), key, value, ttl).Err(); err != nil {
		logrus.Warnf("cache set failed for %s: %v", key, err)
	}
}

// GetJSON unmarshals the cached value into target, false on miss or
// corrupt payload. Corrupt payloads are dropped so the next read
// repopulates them.
func GetJSON(c Client, key string, target interface{}) bool {
	value, err := c.Get(context.Background(), key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(value), target); err != nil {
		logrus.Warnf("corrupt cache entry at %s, dropping: %v", key, err)
		c.Del(context.Background(), key)
		return false
	}
	return true
}

// SetJSON marshals value and stores it under key.
func SetJSON(c Client, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		logrus.Errorf("cache marshal failed for %s: %v", key, err)
		return
	}
	SetString(c, key, string(data), ttl)
}

// Delete removes the given keys.
func Delete(c Client, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.Del(context.Background(), keys...).Err(); err != nil {
		logrus.Warnf("cache delete failed for %v: %v", keys, err)
	}
}

// DeletePattern removes every key matching the glob pattern and
// returns how many were deleted.
func DeletePattern(c Client, pattern string) int {
	keys, err := c.Keys(context.Background(), pattern).Result()
	if err != nil {
		logrus.Warnf("cache keys scan failed for %s: %v", pattern, err)
		return 0
	}
	if len(keys) == 0 {
		return 0
	}
	Delete(c, keys...)
	return len(keys)
}

// Define a function to wrap another function in Redis cache.
func WrapInCache(c Client, key string, duration time.Duration, fn func() (string, error)) func() (string, error) {
	return func() (string, error) {
		cachedData, err := c.Get(context.Background(), key).Result()
		if err == nil {
			return cachedData, nil
		}
		// Cache miss or Redis error. Call the original function.
		data, err := fn()
		if err != nil {
			return "", err
		}
		err = c.Set(context.Background(), key, data, duration).Err()
		if err != nil {
			return "", err
		}
		return data, nil
	}
}

// Cached is the typed cache-aside read: on miss it calls fetch, stores
// the result as JSON and unmarshals into target either way.
func Cached(c Client, key string, ttl time.Duration, target interface{}, fetch func() (interface{}, error)) error {
	if GetJSON(c, key, target) {
		return nil
	}
	value, err := fetch()
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	SetString(c, key, string(data), ttl)
	return json.Unmarshal(data, target)
}

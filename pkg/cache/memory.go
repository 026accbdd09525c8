package cache

import (
	"context"
	"fmt"
	"path"
	"reflect"
	"sync"
	"time"
)

// Entries without an explicit TTL still age out eventually.
const defaultMemoryTTL = 7 * 24 * time.Hour

type memoryItem struct {
	value      interface{}
	expireAt   time.Time
	lastAccess time.Time
}

func (m *memoryItem) expired(now time.Time) bool {
	return now.After(m.expireAt)
}

// MemoryCache implements Service with a plain map. The oldest entry by
// last access is evicted when the cache is full.
type MemoryCache struct {
	data          map[string]*memoryItem
	mutex         sync.RWMutex
	maxSize       int
	cleanupTicker *time.Ticker
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		data:          make(map[string]*memoryItem),
		maxSize:       cfg.MaxSize,
		cleanupTicker: time.NewTicker(cfg.CleanupInterval),
	}

	go mc.cleanupExpired()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if len(mc.data) >= mc.maxSize {
		mc.evictOldest()
	}

	if expiration <= 0 {
		expiration = defaultMemoryTTL
	}

	now := time.Now()
	mc.data[key] = &memoryItem{
		value:      value,
		expireAt:   now.Add(expiration),
		lastAccess: now,
	}
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	now := time.Now()
	item, exists := mc.data[key]
	if !exists || item.expired(now) {
		if exists {
			delete(mc.data, key)
		}
		return ErrCacheMiss
	}
	item.lastAccess = now

	if strPtr, ok := dest.(*string); ok {
		if str, ok := item.value.(string); ok {
			*strPtr = str
			return nil
		}
	}

	// Values are stored as-is, so dest must point at the stored type.
	// A mismatch reads as a miss and the caller refetches.
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("dest must be a non-nil pointer")
	}
	iv := reflect.ValueOf(item.value)
	if !iv.IsValid() || !iv.Type().AssignableTo(rv.Elem().Type()) {
		return ErrCacheMiss
	}
	rv.Elem().Set(iv)
	return nil
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	for _, key := range keys {
		delete(mc.data, key)
	}
	return nil
}

// DeleteByPattern drops keys matching a redis-style glob.
func (mc *MemoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	for key := range mc.data {
		if ok, err := path.Match(pattern, key); err == nil && ok {
			delete(mc.data, key)
		}
	}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()

	now := time.Now()
	for _, key := range keys {
		if item, ok := mc.data[key]; ok && !item.expired(now) {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) Increment(_ context.Context, key string) (int64, error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	now := time.Now()
	item, exists := mc.data[key]
	if !exists || item.expired(now) {
		mc.data[key] = &memoryItem{value: int64(1), expireAt: now.Add(defaultMemoryTTL), lastAccess: now}
		return 1, nil
	}

	val, ok := item.value.(int64)
	if !ok {
		return 0, fmt.Errorf("value is not int64")
	}
	item.value = val + 1
	item.lastAccess = now
	return val + 1, nil
}

func (mc *MemoryCache) Expire(_ context.Context, key string, expiration time.Duration) (bool, error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if item, ok := mc.data[key]; ok {
		item.expireAt = time.Now().Add(expiration)
		return true, nil
	}
	return false, nil
}

func (mc *MemoryCache) MSet(ctx context.Context, values map[string]interface{}, expiration time.Duration) error {
	for key, value := range values {
		if err := mc.Set(ctx, key, value, expiration); err != nil {
			return err
		}
	}
	return nil
}

func (mc *MemoryCache) MGet(_ context.Context, keys ...string) (map[string]string, error) {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()

	now := time.Now()
	results := make(map[string]string)
	for _, key := range keys {
		if item, ok := mc.data[key]; ok && !item.expired(now) {
			if str, ok := item.value.(string); ok {
				results[key] = str
			}
		}
	}
	return results, nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	now := time.Now()
	if item, ok := mc.data[key]; ok && !item.expired(now) {
		return false, nil
	}

	mc.data[key] = &memoryItem{value: "locked", expireAt: now.Add(ttl), lastAccess: now}
	return true, nil
}

func (mc *MemoryCache) Unlock(ctx context.Context, key string) error {
	return mc.Delete(ctx, key)
}

func (mc *MemoryCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, item := range mc.data {
		if oldestKey == "" || item.lastAccess.Before(oldestTime) {
			oldestTime = item.lastAccess
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(mc.data, oldestKey)
	}
}

func (mc *MemoryCache) cleanupExpired() {
	for range mc.cleanupTicker.C {
		mc.mutex.Lock()
		now := time.Now()
		for key, item := range mc.data {
			if item.expired(now) {
				delete(mc.data, key)
			}
		}
		mc.mutex.Unlock()
	}
}

// Close stops the cleanup ticker.
func (mc *MemoryCache) Close() error {
	if mc.cleanupTicker != nil {
		mc.cleanupTicker.Stop()
	}
	return nil
}

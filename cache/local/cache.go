package local

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("cache: key not found")

// Config holds LocalCache settings.
type Config struct {
	GCInterval time.Duration
}

type entry struct {
	data     string
	expireAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && now.After(e.expireAt)
}

// LocalCache is an in-process key/value cache with optional per-key TTL.
type LocalCache struct {
	mu        sync.RWMutex
	kv        map[string]entry
	now       func() time.Time
	stopGC    chan struct{}
	closeOnce sync.Once
}

// NewCache creates a LocalCache and starts the background expiry sweep.
func NewCache(cfg Config) (*LocalCache, error) {
	interval := cfg.GCInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	c := &LocalCache{
		kv:     make(map[string]entry),
		now:    time.Now,
		stopGC: make(chan struct{}),
	}
	go c.runGC(interval)
	return c, nil
}

// Close stops the background sweep. It is safe to call more than once.
func (c *LocalCache) Close() error {
	c.closeOnce.Do(func() { close(c.stopGC) })
	return nil
}

func (c *LocalCache) runGC(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stopGC:
			return
		}
	}
}

func (c *LocalCache) sweep() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.kv {
		if e.expired(now) {
			delete(c.kv, k)
		}
	}
}

func (c *LocalCache) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(ttl)
}

func (c *LocalCache) Get(_ context.Context, key string) (string, error) {
	c.mu.RLock()
	e, ok := c.kv[key]
	c.mu.RUnlock()
	if !ok || e.expired(c.now()) {
		return "", ErrNotFound
	}
	return e.data, nil
}

func (c *LocalCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	c.kv[key] = entry{data: value, expireAt: c.expiry(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *LocalCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.kv, k)
	}
	c.mu.Unlock()
	return nil
}

func (c *LocalCache) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// SetNX sets key only when it is absent or expired.
func (c *LocalCache) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.kv[key]; ok && !e.expired(c.now()) {
		return false, nil
	}
	c.kv[key] = entry{data: value, expireAt: c.expiry(ttl)}
	return true, nil
}

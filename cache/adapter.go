package cache

import (
	"context"
	"errors"
	"time"

	"github.com/kasuganosora/codepals/cache/local"
	cacheredis "github.com/kasuganosora/codepals/cache/redis"
)

// Cache is the key/value surface the save store and the host need.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Close() error
}

// IsNotFound reports whether err means the key is absent, for either backend.
func IsNotFound(err error) bool {
	return errors.Is(err, local.ErrNotFound) || errors.Is(err, cacheredis.ErrNotFound)
}

// Message is a received pub/sub message.
type Message struct {
	Channel string
	Payload string
}

// PubSub defines channel publish/subscribe operations.
type PubSub interface {
	Publish(ctx context.Context, channel, message string) error
	Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error)
}

// CacheConfig holds configuration for both Redis and LocalCache.
type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

// NewCache returns a Cache backed by Redis if RedisAddr is set,
// otherwise returns an in-process LocalCache.
func NewCache(cfg CacheConfig) (Cache, error) {
	if cfg.RedisAddr != "" {
		return cacheredis.NewCache(cacheredis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return local.NewCache(local.Config{
		GCInterval: cfg.LocalGCInterval,
	})
}

// NewPubSub returns a PubSub backed by Redis if RedisAddr is set,
// otherwise an in-process fan-out.
func NewPubSub(cfg CacheConfig) (PubSub, error) {
	bufSize := cfg.LocalPubSubBuf
	if bufSize <= 0 {
		bufSize = 64
	}
	if cfg.RedisAddr != "" {
		rps, err := cacheredis.NewPubSub(cacheredis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return &pubSubAdapter[*cacheredis.RedisMessage]{
			publish:   rps.Publish,
			subscribe: rps.Subscribe,
			convert:   func(m *cacheredis.RedisMessage) *Message { return &Message{Channel: m.Channel, Payload: m.Payload} },
			bufSize:   bufSize,
		}, nil
	}
	lps := local.NewPubSub(bufSize)
	return &pubSubAdapter[*local.LocalMessage]{
		publish:   lps.Publish,
		subscribe: lps.Subscribe,
		convert:   func(m *local.LocalMessage) *Message { return &Message{Channel: m.Channel, Payload: m.Payload} },
		bufSize:   bufSize,
	}, nil
}

// pubSubAdapter bridges a backend's message type to cache.Message.
type pubSubAdapter[M any] struct {
	publish   func(ctx context.Context, channel, message string) error
	subscribe func(ctx context.Context, channels ...string) (<-chan M, func(), error)
	convert   func(M) *Message
	bufSize   int
}

func (a *pubSubAdapter[M]) Publish(ctx context.Context, channel, message string) error {
	return a.publish(ctx, channel, message)
}

func (a *pubSubAdapter[M]) Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error) {
	in, cancel, err := a.subscribe(ctx, channels...)
	if err != nil {
		return nil, nil, err
	}
	out := make(chan *Message, a.bufSize)
	go func() {
		defer close(out)
		for msg := range in {
			out <- a.convert(msg)
		}
	}()
	return out, cancel, nil
}

// Package store provides the durable key/value slots saves are written to.
package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kasuganosora/codepals/cache"
	"github.com/kasuganosora/codepals/config"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("store: key not found")

// Store is a durable byte slot keyed by string.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
}

const (
	KindDB    = "db"
	KindCache = "cache"
	KindFile  = "file"
)

// Backends are the shared handles a store may be built on. Only the ones the
// configured kinds need have to be set.
type Backends struct {
	DB    *gorm.DB
	Cache cache.Cache
}

// New builds the store of the given kind.
func New(kind string, cfg config.StoreConfig, b Backends) (Store, error) {
	switch kind {
	case KindDB:
		if b.DB == nil {
			return nil, errors.New("store: db backend not configured")
		}
		return NewDBStore(b.DB), nil
	case KindCache:
		if b.Cache == nil {
			return nil, errors.New("store: cache backend not configured")
		}
		return NewCacheStore(b.Cache), nil
	case KindFile:
		return NewFileStore(cfg.FileDir)
	default:
		return nil, fmt.Errorf("store: unknown kind %q", kind)
	}
}

package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kasuganosora/codepals/cache"
	"github.com/kasuganosora/codepals/config"
	dbadapter "github.com/kasuganosora/codepals/db"
	"github.com/kasuganosora/codepals/engine"
	"github.com/kasuganosora/codepals/journal"
	"github.com/kasuganosora/codepals/model"
	"github.com/kasuganosora/codepals/save"
	"github.com/kasuganosora/codepals/store"
)

type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	cache   cache.Cache
	pubsub  cache.PubSub
	gateway *save.Gateway
	journal *journal.Service
	now     func() time.Time
}

// wireApp builds every collaborator the commands share. The engine is not
// built here: only serve owns a live session.
func wireApp(cfgPath string, verbose bool) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.Server.Debug, verbose)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	gdb, err := dbadapter.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := model.AutoMigrate(gdb); err != nil {
		_ = dbadapter.Close(gdb)
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	cacheCfg := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheCfg)
	if err != nil {
		_ = dbadapter.Close(gdb)
		return nil, fmt.Errorf("open cache: %w", err)
	}
	pubsub, err := cache.NewPubSub(cacheCfg)
	if err != nil {
		_ = c.Close()
		_ = dbadapter.Close(gdb)
		return nil, fmt.Errorf("open pubsub: %w", err)
	}

	backends := store.Backends{DB: gdb, Cache: c}
	primary, err := store.New(cfg.Store.Primary, cfg.Store, backends)
	if err != nil {
		_ = c.Close()
		_ = dbadapter.Close(gdb)
		return nil, fmt.Errorf("primary store: %w", err)
	}
	backup, err := store.New(cfg.Store.Backup, cfg.Store, backends)
	if err != nil {
		_ = c.Close()
		_ = dbadapter.Close(gdb)
		return nil, fmt.Errorf("backup store: %w", err)
	}

	now := time.Now
	return &app{
		cfg:     cfg,
		logger:  logger,
		db:      gdb,
		cache:   c,
		pubsub:  pubsub,
		gateway: save.NewGateway(primary, backup, cfg.Store.MaxBackups, now, logger),
		journal: journal.New(gdb, journal.Config{
			Buffer:        cfg.Engine.JournalBuffer,
			BatchSize:     cfg.Engine.JournalBatch,
			FlushInterval: cfg.Engine.JournalFlush,
		}, logger),
		now: now,
	}, nil
}

func newLogger(debug, verbose bool) (*zap.Logger, error) {
	switch {
	case debug:
		return zap.NewDevelopment()
	case verbose:
		return zap.NewProduction()
	default:
		return zap.NewNop(), nil
	}
}

func (a *app) newEngine() *engine.Engine {
	return engine.New(engine.Options{
		Gateway: a.gateway,
		Journal: a.journal,
		PubSub:  a.pubsub,
		Config:  a.cfg.Engine,
		Now:     a.now,
		Logger:  a.logger,
	})
}

// Close flushes the journal and releases the cache and database.
func (a *app) Close(ctx context.Context) {
	a.journal.Stop(ctx)
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("cache close failed", zap.Error(err))
	}
	if err := dbadapter.Close(a.db); err != nil {
		a.logger.Warn("database close failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

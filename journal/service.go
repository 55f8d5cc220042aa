// Package journal records progression events (level-ups, encounters, saves)
// to the database in the background.
package journal

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kasuganosora/codepals/model"
)

// Entry is one event to be recorded.
type Entry struct {
	TraceID     string
	PlayerID    string
	CompanionID string
	Kind        string
	Zone        string
	Detail      interface{}
}

// Config tunes the background writer.
type Config struct {
	Buffer        int
	BatchSize     int
	FlushInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Buffer <= 0 {
		c.Buffer = 256
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 5 * time.Second
	}
	return c
}

// Service writes entries asynchronously in batches. Record never blocks the
// caller; entries are dropped with a warning when the buffer is full.
type Service struct {
	db       *gorm.DB
	cfg      Config
	ch       chan *model.ActivityLog
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	logger   *zap.Logger
}

// New creates a Service and starts its background worker.
func New(db *gorm.DB, cfg Config, logger *zap.Logger) *Service {
	cfg = cfg.withDefaults()
	svc := &Service{
		db:     db,
		cfg:    cfg,
		ch:     make(chan *model.ActivityLog, cfg.Buffer),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Record enqueues an entry for the background writer.
func (svc *Service) Record(entry Entry) {
	detail, err := json.Marshal(entry.Detail)
	if err != nil {
		svc.logger.Warn("journal detail not encodable", zap.String("kind", entry.Kind), zap.Error(err))
		detail = []byte("null")
	}
	row := &model.ActivityLog{
		TraceID:     entry.TraceID,
		PlayerID:    entry.PlayerID,
		CompanionID: entry.CompanionID,
		Kind:        entry.Kind,
		Zone:        entry.Zone,
		Detail:      datatypes.JSON(detail),
	}
	select {
	case <-svc.stopCh:
		svc.logger.Debug("journal stopped, dropping entry", zap.String("kind", entry.Kind))
	case svc.ch <- row:
	default:
		svc.logger.Warn("journal channel full, dropping entry",
			zap.String("kind", entry.Kind))
	}
}

// Recent returns the newest entries of a player, newest first.
func (svc *Service) Recent(ctx context.Context, playerID string, limit int) ([]model.ActivityLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var rows []model.ActivityLog
	err := svc.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished or ctx is done.
func (svc *Service) Stop(ctx context.Context) {
	svc.stopOnce.Do(func() { close(svc.stopCh) })
	done := make(chan struct{})
	go func() {
		svc.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		svc.logger.Warn("journal stop timed out", zap.Error(ctx.Err()))
	}
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(svc.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]*model.ActivityLog, 0, svc.cfg.BatchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("journal batch write failed", zap.Int("entries", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case row := <-svc.ch:
			batch = append(batch, row)
			if len(batch) >= svc.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			for {
				select {
				case row := <-svc.ch:
					batch = append(batch, row)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Package scheduler runs named periodic and one-shot background jobs.
package scheduler

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// TaskFn is the function signature for scheduled tasks. ctx is canceled when
// the task is removed or the scheduler stops.
type TaskFn func(ctx context.Context)

// Scheduler manages periodic and delayed tasks.
type Scheduler struct {
	mu      sync.Mutex
	tickers map[string]*tickerEntry
	timers  map[string]*time.Timer
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

type tickerEntry struct {
	ticker  *time.Ticker
	cancel  context.CancelFunc
	running atomic.Bool
	skipped atomic.Int64
}

// New creates a new Scheduler.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		tickers: make(map[string]*tickerEntry),
		timers:  make(map[string]*time.Timer),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// AddTicker registers a task to run on a fixed interval.
// If a task with the same name exists, it is replaced. A tick that arrives
// while the previous run is still going is skipped.
func (s *Scheduler) AddTicker(name string, interval time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return
	}

	if old, ok := s.tickers[name]; ok {
		old.cancel()
		delete(s.tickers, name)
	}

	ctx, cancel := context.WithCancel(s.ctx)
	entry := &tickerEntry{ticker: time.NewTicker(interval), cancel: cancel}
	s.tickers[name] = entry

	go func() {
		defer entry.ticker.Stop()
		for {
			select {
			case <-entry.ticker.C:
				if !entry.running.CompareAndSwap(false, true) {
					entry.skipped.Add(1)
					s.logger.Debug("scheduler tick skipped, previous run busy", zap.String("task", name))
					continue
				}
				go func() {
					defer entry.running.Store(false)
					s.run(ctx, name, fn)
				}()
			case <-ctx.Done():
				return
			}
		}
	}()
	s.logger.Info("scheduler task registered", zap.String("name", name), zap.Duration("interval", interval))
}

// AddDelay runs fn once after the given delay. Re-adding a pending name
// restarts its delay with the new fn.
func (s *Scheduler) AddDelay(name string, delay time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return
	}

	if old, ok := s.timers[name]; ok {
		old.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.timers[name] == t {
			delete(s.timers, name)
		}
		s.mu.Unlock()
		s.run(s.ctx, name, fn)
	})
	s.timers[name] = t
}

func (s *Scheduler) run(ctx context.Context, name string, fn TaskFn) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler task panicked",
				zap.String("task", name),
				zap.Any("recover", r))
		}
	}()
	if ctx.Err() != nil {
		return
	}
	fn(ctx)
}

// Remove stops and removes a ticker or delay task by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.tickers[name]; ok {
		entry.cancel()
		delete(s.tickers, name)
	}
	if t, ok := s.timers[name]; ok {
		t.Stop()
		delete(s.timers, name)
	}
}

// Skipped reports how many ticks of name were dropped because the task was
// still running.
func (s *Scheduler) Skipped(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.tickers[name]; ok {
		return entry.skipped.Load()
	}
	return 0
}

// Stop stops all tasks. Runs already in progress see their context canceled.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	for name, t := range s.timers {
		t.Stop()
		delete(s.timers, name)
	}
	for name := range s.tickers {
		delete(s.tickers, name)
	}
}

// ListTickers returns the names of all registered ticker tasks, sorted.
func (s *Scheduler) ListTickers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tickers))
	for name := range s.tickers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

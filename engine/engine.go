// Package engine hosts one game session for a running process. It serializes
// access from the HTTP handlers and the scheduler, persists through the save
// gateway and reports noteworthy events to the journal and the notification
// channel.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kasuganosora/codepals/cache"
	"github.com/kasuganosora/codepals/config"
	"github.com/kasuganosora/codepals/game/ledger"
	"github.com/kasuganosora/codepals/game/session"
	"github.com/kasuganosora/codepals/journal"
	"github.com/kasuganosora/codepals/model"
	"github.com/kasuganosora/codepals/save"
	"github.com/kasuganosora/codepals/scheduler"
)

// Scheduler task names.
const (
	TaskTick         = "engine.tick"
	TaskAutosave     = "engine.autosave"
	TaskSaveDebounce = "engine.save_debounce"
)

const saveDebounceDelay = 2 * time.Second

var (
	ErrDisposed    = errors.New("engine: disposed")
	ErrUnknownZone = errors.New("engine: unknown zone")
)

// LoadSource tells how InitializeOrLoad obtained the session.
type LoadSource string

const (
	SourceLoaded    LoadSource = "loaded"
	SourceFresh     LoadSource = "fresh"
	SourceRecovered LoadSource = "recovered"
)

// LoadOutcome describes the result of InitializeOrLoad.
type LoadOutcome struct {
	Source      LoadSource `json:"source"`
	IdleMinutes int64      `json:"idle_minutes"`
	IdleCredit  int64      `json:"idle_credit"`
	BackupKey   string     `json:"backup_key,omitempty"`
	Warning     string     `json:"warning,omitempty"`
	Saved       bool       `json:"saved"`
}

// Options are the collaborators of an Engine. Gateway is required; the rest
// may be nil.
type Options struct {
	Gateway *save.Gateway
	Journal *journal.Service
	PubSub  cache.PubSub
	Config  config.EngineConfig
	Now     func() time.Time
	Rand    session.Rand
	Logger  *zap.Logger
}

// Engine wraps a session.Coordinator for concurrent callers. Every domain
// operation runs under mu. Store I/O runs under writeMu and never under mu;
// a caller needing both takes writeMu first.
type Engine struct {
	mu      sync.Mutex
	writeMu sync.Mutex
	coord   *session.Coordinator
	gateway *save.Gateway
	journal *journal.Service
	pubsub  cache.PubSub
	cfg     config.EngineConfig
	now     func() time.Time
	logger  *zap.Logger

	saves       singleflight.Group
	sched       *scheduler.Scheduler
	disposeOnce sync.Once
	disposed    bool
}

// New returns an Engine holding an uninitialized session. Call
// InitializeOrLoad before Start.
func New(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Config.NotifyChannel == "" {
		opts.Config.NotifyChannel = "codepals:notify"
	}
	if opts.Config.TickInterval <= 0 {
		opts.Config.TickInterval = 30 * time.Second
	}
	if opts.Config.IdleNotifyMinutes <= 0 {
		opts.Config.IdleNotifyMinutes = 60
	}
	logger := opts.Logger.With(zap.String("component", "engine"))
	return &Engine{
		coord:   session.NewCoordinator(session.New(opts.Now), opts.Now, opts.Rand, logger),
		gateway: opts.Gateway,
		journal: opts.Journal,
		pubsub:  opts.PubSub,
		cfg:     opts.Config,
		now:     opts.Now,
		logger:  logger,
	}
}

// InitializeOrLoad loads the saved game and reconciles idle time. With no
// save it starts a fresh game. An unreadable save is copied to a timestamped
// backup key and replaced by a fresh game; the failure is reported as a
// load_warning, never returned.
func (e *Engine) InitializeOrLoad(ctx context.Context) LoadOutcome {
	var (
		out   LoadOutcome
		notes []Notification
	)
	e.writeMu.Lock()
	sess, err := e.gateway.Load(ctx)
	var backupKey string
	if err != nil && !errors.Is(err, save.ErrNoSave) {
		var berr error
		backupKey, berr = e.gateway.CreateBackup(ctx)
		if berr != nil {
			e.logger.Warn("could not preserve unusable save", zap.Error(berr))
		}
	}
	e.mu.Lock()
	switch {
	case err == nil:
		e.coord.Replace(sess)
		out.Source = SourceLoaded
		out.IdleMinutes = e.coord.ProcessElapsedTime()
		report := e.coord.LastIdleReport()
		out.IdleCredit = report.Currency
		if out.IdleMinutes > 0 {
			e.record(ctx, model.ActivityIdle, "", map[string]any{
				"minutes":    report.Minutes,
				"currency":   report.Currency,
				"friendship": report.Friendship,
			})
		}
		if out.IdleMinutes >= e.cfg.IdleNotifyMinutes && report.Currency > 0 {
			notes = append(notes, Notification{
				Kind:     NotifyIdle,
				Message:  fmt.Sprintf("While you were away for %d minutes your companion gathered %d crystals.", report.Minutes, report.Currency),
				Minutes:  report.Minutes,
				Currency: report.Currency,
			})
		}
	case errors.Is(err, save.ErrNoSave):
		e.startFresh()
		out.Source = SourceFresh
		notes = append(notes, e.welcome())
	default:
		e.logger.Warn("saved game unusable, starting fresh", zap.Error(err))
		out.Source = SourceRecovered
		out.Warning = err.Error()
		out.BackupKey = backupKey
		e.startFresh()
		e.record(ctx, model.ActivityLoadWarning, "", map[string]any{"error": err.Error(), "backup_key": backupKey})
		notes = append(notes, Notification{
			Kind:    NotifyLoadWarning,
			Message: "Your saved game could not be loaded, a new game was started.",
		})
	}
	e.mu.Unlock()
	e.writeMu.Unlock()

	if out.Source != SourceLoaded {
		if err := e.Save(ctx); err == nil {
			out.Saved = true
		}
	}
	e.publish(ctx, e.stamp(notes))
	e.logger.Info("session ready",
		zap.String("source", string(out.Source)),
		zap.Int64("idle_minutes", out.IdleMinutes))
	return out
}

func (e *Engine) startFresh() {
	e.coord.Replace(session.New(e.now))
	e.coord.Initialize()
}

func (e *Engine) welcome() Notification {
	n := Notification{Kind: NotifyWelcome, Message: "Welcome! Your first companion is ready to code with you."}
	if a := e.coord.Session().ActiveCompanion(); a != nil {
		n.CompanionID = a.ID
		n.Species = a.Species.Name
	}
	return n
}

func (e *Engine) stamp(notes []Notification) []Notification {
	t := e.now()
	for i := range notes {
		if notes[i].At.IsZero() {
			notes[i].At = t
		}
	}
	return notes
}

// Start registers the live tick and the autosave task. Call it once after
// InitializeOrLoad so idle time is never counted twice.
func (e *Engine) Start(sched *scheduler.Scheduler) {
	e.mu.Lock()
	e.sched = sched
	interval := e.cfg.TickInterval
	e.mu.Unlock()

	sched.AddTicker(TaskTick, interval, func(context.Context) {
		e.Advance(interval.Minutes())
	})
	e.scheduleAutosave()
}

// scheduleAutosave (re)registers the autosave task from the current settings.
func (e *Engine) scheduleAutosave() {
	e.mu.Lock()
	sched := e.sched
	st := e.coord.Session().Settings
	e.mu.Unlock()
	if sched == nil {
		return
	}
	if !st.AutoSave || st.AutoSaveInterval <= 0 {
		sched.Remove(TaskAutosave)
		return
	}
	every := time.Duration(st.AutoSaveInterval * float64(time.Minute))
	sched.AddTicker(TaskAutosave, every, func(ctx context.Context) {
		e.autosave(ctx)
	})
}

func (e *Engine) autosave(ctx context.Context) {
	e.mu.Lock()
	ready := e.coord.Session().Initialized
	e.mu.Unlock()
	if !ready {
		return
	}
	if err := e.Save(ctx); err != nil {
		e.logger.Warn("autosave failed", zap.Error(err))
	}
}

// Advance applies one live tick.
func (e *Engine) Advance(deltaMinutes float64) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coord.Advance(deltaMinutes)
}

// ResumeFromBackground reconciles the time the host spent suspended.
func (e *Engine) ResumeFromBackground(ctx context.Context) session.IdleReport {
	e.mu.Lock()
	idle := e.coord.ProcessElapsedTime()
	report := e.coord.LastIdleReport()
	var notes []Notification
	if idle > 0 {
		e.record(ctx, model.ActivityIdle, "", map[string]any{"minutes": idle, "currency": report.Currency})
	}
	if idle >= e.cfg.IdleNotifyMinutes && report.Currency > 0 {
		notes = append(notes, Notification{
			Kind:     NotifyIdle,
			Message:  fmt.Sprintf("Welcome back! %d crystals were gathered in %d minutes.", report.Currency, idle),
			Minutes:  idle,
			Currency: report.Currency,
		})
	}
	e.mu.Unlock()
	e.publish(ctx, e.stamp(notes))
	return report
}

// Snapshot returns the read-only view rendered by display collaborators.
func (e *Engine) Snapshot() session.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coord.Snapshot()
}

// Companions lists every owned companion.
func (e *Engine) Companions() []session.CompanionView {
	e.mu.Lock()
	defer e.mu.Unlock()
	list := e.coord.Session().Companions()
	out := make([]session.CompanionView, 0, len(list))
	for _, c := range list {
		out = append(out, session.ViewOf(c))
	}
	return out
}

// Zones lists the progress of every zone.
func (e *Engine) Zones() []ledger.ZoneProgress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coord.Session().Player.Zones()
}

// Achievements lists the player's achievements.
func (e *Engine) Achievements() []ledger.Achievement {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coord.Session().Player.Achievements()
}

// PlayerID returns the id of the current player.
func (e *Engine) PlayerID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coord.Session().Player.PlayerID
}

// OnEditEvent handles one content edit in the host.
func (e *Engine) OnEditEvent(ctx context.Context) session.ActivityResult {
	return e.activity(ctx, "edit", e.coord.OnEditEvent)
}

// OnDocumentChange handles an edit to a named file, moving to the zone the
// file's type belongs to.
func (e *Engine) OnDocumentChange(ctx context.Context, fileName string) session.ActivityResult {
	return e.activity(ctx, "edit", func() session.ActivityResult {
		return e.coord.OnDocumentChange(fileName)
	})
}

// OnSaveEvent handles a file save in the host and schedules a persist
// shortly after, coalescing bursts of saves into one write.
func (e *Engine) OnSaveEvent(ctx context.Context) session.ActivityResult {
	res := e.activity(ctx, "save", e.coord.OnSaveEvent)

	e.mu.Lock()
	sched, ready := e.sched, e.coord.Session().Initialized
	e.mu.Unlock()
	if sched != nil && ready {
		sched.AddDelay(TaskSaveDebounce, saveDebounceDelay, func(ctx context.Context) {
			if err := e.Save(ctx); err != nil {
				e.logger.Warn("deferred save failed", zap.Error(err))
			}
		})
	}
	return res
}

// OnFileCreatedEvent handles the creation of a new file in the host.
func (e *Engine) OnFileCreatedEvent(ctx context.Context) session.ActivityResult {
	return e.activity(ctx, "file_created", e.coord.OnFileCreatedEvent)
}

// OnCommitEvent counts a version-control commit.
func (e *Engine) OnCommitEvent(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.coord.OnCommitEvent()
}

func (e *Engine) activity(ctx context.Context, source string, apply func() session.ActivityResult) session.ActivityResult {
	e.mu.Lock()
	res := apply()
	var notes []Notification
	a := e.coord.Session().ActiveCompanion()
	if a != nil && res.LevelsGained > 0 {
		e.record(ctx, model.ActivityLevelUp, a.ID, map[string]any{
			"source": source,
			"levels": res.LevelsGained,
			"level":  a.Level(),
		})
	}
	if a != nil && res.EvolutionReady {
		e.record(ctx, model.ActivityEvolutionReady, a.ID, map[string]any{"level": a.Level()})
		notes = append(notes, Notification{
			Kind:        NotifyEvolution,
			Message:     fmt.Sprintf("%s is ready to evolve!", a.DisplayName()),
			CompanionID: a.ID,
			Species:     a.Species.Name,
		})
	}
	if res.Encounter {
		e.record(ctx, model.ActivityEncounter, "", map[string]any{"zone": res.Zone})
		notes = append(notes, Notification{
			Kind:    NotifyEncounter,
			Message: "A wild companion appeared while you were coding!",
			Zone:    res.Zone,
		})
	}
	e.mu.Unlock()
	e.publish(ctx, e.stamp(notes))
	return res
}

// ChangeZone moves the session to zone id. It reports false when id is
// already current.
func (e *Engine) ChangeZone(id string) (bool, error) {
	if !ledger.KnownZone(id) {
		return false, ErrUnknownZone
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coord.ChangeZone(id), nil
}

// SetActiveCompanion makes the owned companion id active.
func (e *Engine) SetActiveCompanion(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coord.SetActiveCompanion(id)
}

// Catch adds a companion of the given species to the collection.
func (e *Engine) Catch(ctx context.Context, speciesID int, nickname string) (session.CompanionView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.coord.AddCompanion(speciesID, nickname)
	if err != nil {
		return session.CompanionView{}, err
	}
	e.record(ctx, model.ActivityCapture, c.ID, map[string]any{
		"species": c.Species.Name,
		"zone":    e.coord.Session().CurrentZone,
	})
	return session.ViewOf(c), nil
}

// Save persists the session to both slots. Concurrent calls share one write.
func (e *Engine) Save(ctx context.Context) error {
	_, err, _ := e.saves.Do("save", func() (any, error) {
		// The copy is taken only once writeMu is held, so no Reset or
		// Import can land between serializing and writing.
		e.writeMu.Lock()
		defer e.writeMu.Unlock()
		e.mu.Lock()
		if e.disposed {
			e.mu.Unlock()
			return nil, ErrDisposed
		}
		r := save.Serialize(e.coord.Session(), e.now())
		e.mu.Unlock()
		return r, e.gateway.Write(ctx, r)
	})
	if err != nil && !errors.Is(err, ErrDisposed) {
		e.saveFailed(ctx, err)
		return err
	}
	if err == nil {
		e.logger.Debug("game saved")
	}
	return err
}

// ExportText saves the live session, then returns it as indented JSON.
func (e *Engine) ExportText(ctx context.Context) (string, error) {
	if err := e.Save(ctx); err != nil {
		return "", err
	}
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	return e.gateway.ExportText(ctx)
}

// ImportText replaces the live session with the game in text. On any error
// both the stores and the live session are left as they were.
func (e *Engine) ImportText(ctx context.Context, text string) (session.Snapshot, error) {
	e.writeMu.Lock()
	sess, err := e.gateway.ImportText(ctx, text)
	if err != nil {
		e.writeMu.Unlock()
		return session.Snapshot{}, err
	}
	e.mu.Lock()
	// Idle time is not credited for the span between the export and the import.
	sess.LastActivity = e.now()
	e.coord.Replace(sess)
	e.record(ctx, model.ActivityImport, "", map[string]any{"companions": sess.CompanionCount()})
	snap := e.coord.Snapshot()
	e.mu.Unlock()
	e.writeMu.Unlock()

	e.scheduleAutosave()
	e.logger.Info("game imported", zap.String("player_id", sess.Player.PlayerID))
	return snap, nil
}

// Reset deletes the saved game and starts over. Settings are kept.
func (e *Engine) Reset(ctx context.Context) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	e.mu.Lock()
	disposed := e.disposed
	e.mu.Unlock()
	if disposed {
		return ErrDisposed
	}
	if err := e.gateway.Clear(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	e.coord.Reset()
	e.record(ctx, model.ActivityReset, "", nil)
	note := e.welcome()
	r := save.Serialize(e.coord.Session(), e.now())
	e.mu.Unlock()

	// Written here rather than through Save: a save already in flight holds
	// a copy of the discarded game and must not be joined.
	if err := e.gateway.Write(ctx, r); err != nil {
		e.saveFailed(ctx, err)
		return err
	}
	e.publish(ctx, e.stamp([]Notification{note}))
	return nil
}

func (e *Engine) saveFailed(ctx context.Context, err error) {
	e.logger.Error("save failed", zap.Error(err))
	e.publish(ctx, e.stamp([]Notification{{Kind: NotifySaveFailed, Message: "Saving your game failed."}}))
}

// SaveInfo reports what the stores currently hold.
func (e *Engine) SaveInfo(ctx context.Context) (save.Info, error) {
	return e.gateway.Info(ctx)
}

// Journal returns the newest journal entries of the current player.
func (e *Engine) Journal(ctx context.Context, limit int) ([]model.ActivityLog, error) {
	if e.journal == nil {
		return []model.ActivityLog{}, nil
	}
	return e.journal.Recent(ctx, e.PlayerID(), limit)
}

// Dispose cancels the engine's scheduled tasks, saves one last time and
// flushes the journal. Later calls do nothing.
func (e *Engine) Dispose(ctx context.Context) {
	e.disposeOnce.Do(func() {
		e.mu.Lock()
		sched := e.sched
		e.sched = nil
		ready := e.coord.Session().Initialized
		e.mu.Unlock()

		if sched != nil {
			sched.Remove(TaskTick)
			sched.Remove(TaskAutosave)
			sched.Remove(TaskSaveDebounce)
		}
		if ready {
			if err := e.Save(ctx); err != nil {
				e.logger.Warn("final save failed", zap.Error(err))
			}
		}

		e.mu.Lock()
		e.disposed = true
		e.mu.Unlock()

		if e.journal != nil {
			e.journal.Stop(ctx)
		}
		e.logger.Info("engine disposed")
	})
}

// record must be called with mu held.
func (e *Engine) record(ctx context.Context, kind, companionID string, detail map[string]any) {
	if e.journal == nil {
		return
	}
	s := e.coord.Session()
	e.journal.Record(journal.Entry{
		TraceID:     journal.TraceID(ctx),
		PlayerID:    s.Player.PlayerID,
		CompanionID: companionID,
		Kind:        kind,
		Zone:        s.CurrentZone,
		Detail:      detail,
	})
}

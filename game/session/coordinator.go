package session

import (
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/kasuganosora/codepals/game/companion"
	"github.com/kasuganosora/codepals/game/ledger"
)

const (
	editLines       = 1
	editMinutes     = 0.1
	editMinExp      = 1
	editExpSpread   = 3
	saveExp         = 10
	saveCurrency    = 5
	saveHappiness   = 2
	fileCreatedExp  = 25
	fileFriendship  = 1
	liveFriendship  = 0.1
	zoneVisitMinute = 1
	idleFriendStep  = 10
)

var ErrUnknownSpecies = errors.New("session: unknown species")

// Rand is the random source used for experience rolls and encounters.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

type defaultRand struct{}

func (defaultRand) IntN(n int) int   { return rand.IntN(n) }
func (defaultRand) Float64() float64 { return rand.Float64() }

// IdleReport describes what the last idle reconciliation produced.
type IdleReport struct {
	Minutes    int64
	Currency   int64
	Friendship float64
}

// ActivityResult describes the effect of one host activity event.
type ActivityResult struct {
	Experience     int64
	LevelsGained   int
	EvolutionReady bool // set when this event's level-up reached the evolution level
	Encounter      bool
	Zone           string
}

// Coordinator applies host events and elapsed time to a Session. It is not
// safe for concurrent use.
type Coordinator struct {
	sess     *Session
	now      func() time.Time
	rnd      Rand
	logger   *zap.Logger
	lastIdle IdleReport
}

// NewCoordinator wraps s. A nil clock, random source or logger falls back to
// time.Now, math/rand/v2 and a no-op logger.
func NewCoordinator(s *Session, now func() time.Time, rnd Rand, logger *zap.Logger) *Coordinator {
	if now == nil {
		now = time.Now
	}
	if rnd == nil {
		rnd = defaultRand{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if s == nil {
		s = New(now)
	}
	return &Coordinator{sess: s, now: now, rnd: rnd, logger: logger}
}

// Session returns the live aggregate.
func (c *Coordinator) Session() *Session { return c.sess }

// Replace swaps in a session produced by a load or import.
func (c *Coordinator) Replace(s *Session) {
	c.sess = s
	c.lastIdle = IdleReport{}
}

// Initialize seeds the starter companion on first activation.
func (c *Coordinator) Initialize() {
	s := c.sess
	if s.Initialized {
		return
	}
	if s.Player.ActiveCompanionID == "" || s.CompanionCount() == 0 {
		starter := companion.New(companion.StarterSpecies(), "", c.now())
		s.AddCompanion(starter)
		s.SetActiveCompanion(starter.ID)
		c.logger.Info("starter companion created",
			zap.String("companion_id", starter.ID),
			zap.String("species", starter.Species.Name))
	}
	s.Initialized = true
}

// ProcessElapsedTime credits production for the whole minutes elapsed since
// the last recorded activity. The timestamp is reset even when nothing was
// credited, so the same idle time is never consumed twice.
func (c *Coordinator) ProcessElapsedTime() int64 {
	s := c.sess
	now := c.now()
	idle := int64(now.Sub(s.LastActivity) / time.Minute)
	if idle < 0 {
		c.logger.Warn("clock moved backwards, discarding idle time", zap.Time("last_activity", s.LastActivity))
		idle = 0
	}

	report := IdleReport{Minutes: idle}
	if idle > 0 && s.Settings.EnableIdleProgression {
		if a := s.ActiveCompanion(); a != nil {
			report.Currency = a.GenerateCurrency(float64(idle) * s.Settings.CrystalGenerationRate)
			s.Player.AddCurrency(report.Currency)
			report.Friendship = math.Floor(float64(idle) / idleFriendStep)
			a.AdjustFriendship(report.Friendship)
			a.RecomputeMood()
		}
	}
	s.LastActivity = now
	c.lastIdle = report

	if idle > 0 {
		c.logger.Info("idle time reconciled",
			zap.Int64("minutes", idle),
			zap.Int64("currency", report.Currency),
			zap.Float64("friendship", report.Friendship))
	}
	return idle
}

// LastIdleReport returns the amounts produced by the last ProcessElapsedTime.
func (c *Coordinator) LastIdleReport() IdleReport { return c.lastIdle }

// Advance applies deltaMinutes of live production to the active companion.
func (c *Coordinator) Advance(deltaMinutes float64) int64 {
	s := c.sess
	var gained int64
	if s.Initialized {
		if a := s.ActiveCompanion(); a != nil {
			gained = a.GenerateCurrency(deltaMinutes)
			s.Player.AddCurrency(gained)
			a.RecomputeMood()
			a.AdjustFriendship(liveFriendship)
		}
	}
	s.LastActivity = c.now()
	return gained
}

func (c *Coordinator) scaled(exp int64) int64 {
	rate := c.sess.Settings.ExperienceRate
	if rate <= 0 || math.IsNaN(rate) {
		return 0
	}
	return int64(math.Floor(float64(exp) * rate))
}

func (c *Coordinator) grant(a *companion.Companion, exp int64, res *ActivityResult) {
	if exp <= 0 {
		return
	}
	g := a.GrantExperience(exp)
	c.sess.Player.AddExperience(exp)
	res.Experience += exp
	res.LevelsGained += g.LevelsGained
	if g.LevelsGained > 0 && g.EvolutionReady {
		res.EvolutionReady = true
	}
	if g.LevelsGained > 0 {
		c.logger.Info("companion leveled up",
			zap.String("companion_id", a.ID),
			zap.Int("level", a.Level()),
			zap.Bool("evolution_ready", g.EvolutionReady))
	}
}

// OnEditEvent records one unit of coding activity.
func (c *Coordinator) OnEditEvent() ActivityResult {
	s := c.sess
	res := ActivityResult{Zone: s.CurrentZone}
	if !s.Initialized {
		return res
	}
	s.Player.TrackCodingActivity(editLines, editMinutes)
	if a := s.ActiveCompanion(); a != nil {
		c.grant(a, c.scaled(int64(editMinExp+c.rnd.IntN(editExpSpread))), &res)
	}
	// encounterRate is per minute; applying rate/60 per edit is an approximation
	// kept for compatibility with existing saves' balance.
	if c.rnd.Float64() < s.Settings.EncounterRate/60 {
		s.Player.RecordEncounter(s.CurrentZone, false)
		res.Encounter = true
		c.logger.Debug("wild encounter", zap.String("zone", s.CurrentZone))
	}
	return res
}

// OnDocumentChange moves to the zone of the edited file and records the edit.
func (c *Coordinator) OnDocumentChange(fileName string) ActivityResult {
	if !c.sess.Initialized {
		return ActivityResult{Zone: c.sess.CurrentZone}
	}
	c.ChangeZone(ZoneForFile(fileName))
	return c.OnEditEvent()
}

// OnSaveEvent rewards a document save.
func (c *Coordinator) OnSaveEvent() ActivityResult {
	s := c.sess
	res := ActivityResult{Zone: s.CurrentZone}
	if !s.Initialized {
		return res
	}
	if a := s.ActiveCompanion(); a != nil {
		c.grant(a, c.scaled(saveExp), &res)
		s.Player.AddCurrency(saveCurrency)
		a.AdjustHappiness(saveHappiness)
	}
	return res
}

// OnFileCreatedEvent rewards creating a file.
func (c *Coordinator) OnFileCreatedEvent() ActivityResult {
	s := c.sess
	res := ActivityResult{Zone: s.CurrentZone}
	if !s.Initialized {
		return res
	}
	s.Player.TrackFileCreated()
	if a := s.ActiveCompanion(); a != nil {
		c.grant(a, c.scaled(fileCreatedExp), &res)
		a.AdjustFriendship(fileFriendship)
	}
	return res
}

// OnCommitEvent counts a commit made in the host.
func (c *Coordinator) OnCommitEvent() {
	if !c.sess.Initialized {
		return
	}
	c.sess.Player.TrackCommit()
}

// ChangeZone switches the current zone and records a visit. It returns false
// when id is empty or already current.
func (c *Coordinator) ChangeZone(id string) bool {
	s := c.sess
	if id == "" || id == s.CurrentZone {
		return false
	}
	s.CurrentZone = id
	s.Player.TrackZoneActivity(id, zoneVisitMinute)
	return true
}

func (c *Coordinator) SetActiveCompanion(id string) bool {
	return c.sess.SetActiveCompanion(id)
}

// AddCompanion adds a newly caught companion and records the capture in the
// current zone. The first companion of an empty collection becomes active.
func (c *Coordinator) AddCompanion(speciesID int, nickname string) (*companion.Companion, error) {
	sp, ok := companion.SpeciesByID(speciesID)
	if !ok {
		return nil, ErrUnknownSpecies
	}
	s := c.sess
	nc := companion.New(sp, nickname, c.now())
	s.AddCompanion(nc)
	s.Player.RecordEncounter(s.CurrentZone, true)
	if s.ActiveCompanion() == nil {
		s.SetActiveCompanion(nc.ID)
	}
	c.logger.Info("companion caught",
		zap.String("companion_id", nc.ID),
		zap.String("species", sp.Name),
		zap.String("zone", s.CurrentZone))
	return nc, nil
}

// Reset discards every companion and the ledger, then reseeds. Settings are kept.
func (c *Coordinator) Reset() {
	s := c.sess
	s.Player = ledger.New(c.now)
	s.companions = make(map[string]*companion.Companion)
	s.Initialized = false
	s.CurrentZone = ledger.DefaultZone
	s.LastActivity = c.now()
	c.lastIdle = IdleReport{}
	c.Initialize()
	c.logger.Info("session reset", zap.String("player_id", s.Player.PlayerID))
}

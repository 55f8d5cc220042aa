// Package companion implements the progression rules of a single companion
// creature: the leveling curve, currency generation and mood derivation.
// It performs no I/O and holds no locks; callers serialize access.
package companion

import (
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxLevel bounds restored and earned levels so the experience curve
	// stays far inside int64.
	MaxLevel = 10000

	MaxAffinity     = 100.0
	levelUpHappy    = 5.0
	startHappiness  = 100.0
	expCurveBase    = 100.0
	expCurveExp     = 1.5
	friendshipStep  = 10.0
	friendshipBonus = 0.1
)

// Stats is the mutable progression state of a companion.
type Stats struct {
	Level                  int
	Experience             int64
	ExperienceToNext       int64
	Happiness              float64
	Friendship             float64
	TotalCurrencyGenerated int64
	CurrencyRate           int64
}

// GrantResult describes the outcome of an experience grant.
type GrantResult struct {
	LevelsGained   int
	EvolutionReady bool
}

// Companion is one owned creature.
type Companion struct {
	ID       string
	Species  Species
	Nickname string
	CaughtAt time.Time

	active bool
	stats  Stats
	mood   Mood
}

// RequiredExperience is the experience needed to advance from level to level+1.
func RequiredExperience(level int) int64 {
	if level < 1 {
		level = 1
	}
	return saturate(math.Floor(expCurveBase * math.Pow(float64(level), expCurveExp)))
}

// CurrencyRateFor is the base currency generated per minute at the given level.
func CurrencyRateFor(level int) int64 {
	if level < 1 {
		level = 1
	}
	// floor(1 + level*0.1) without float rounding surprises
	return 1 + int64(level)/10
}

// New creates a level 1 companion of the given species.
func New(species Species, nickname string, now time.Time) *Companion {
	c := &Companion{
		ID:       uuid.New().String(),
		Species:  species,
		Nickname: nickname,
		CaughtAt: now,
		stats: Stats{
			Level:            1,
			ExperienceToNext: RequiredExperience(1),
			Happiness:        startHappiness,
			CurrencyRate:     CurrencyRateFor(1),
		},
	}
	c.RecomputeMood()
	return c
}

// Restore rebuilds a companion from persisted values. Fields derived from the
// level (experience threshold, currency rate) and the mood are recomputed; the
// remaining values are taken as-is and get clamped by the next mutation.
func Restore(id string, species Species, nickname string, caughtAt time.Time, active bool, stats Stats) *Companion {
	stats.Level = min(max(stats.Level, 1), MaxLevel)
	stats.ExperienceToNext = RequiredExperience(stats.Level)
	stats.CurrencyRate = CurrencyRateFor(stats.Level)
	c := &Companion{
		ID:       id,
		Species:  species,
		Nickname: nickname,
		CaughtAt: caughtAt,
		active:   active,
		stats:    stats,
	}
	c.RecomputeMood()
	return c
}

// Stats returns a copy of the progression state.
func (c *Companion) Stats() Stats { return c.stats }

func (c *Companion) Level() int { return c.stats.Level }

func (c *Companion) Mood() Mood { return c.mood }

func (c *Companion) IsActive() bool { return c.active }

// SetActive is owned by the session; the collection guarantees at most one
// active companion.
func (c *Companion) SetActive(active bool) { c.active = active }

// DisplayName returns the nickname, falling back to the species name.
func (c *Companion) DisplayName() string {
	if c.Nickname != "" {
		return c.Nickname
	}
	return c.Species.Name
}

// GrantExperience adds experience and folds any overflow into level-ups.
func (c *Companion) GrantExperience(amount int64) GrantResult {
	var res GrantResult
	if amount <= 0 {
		res.EvolutionReady = c.CanEvolve()
		return res
	}
	if c.stats.Experience > math.MaxInt64-amount {
		c.stats.Experience = math.MaxInt64
	} else {
		c.stats.Experience += amount
	}
	for c.stats.Level < MaxLevel && c.stats.Experience >= c.stats.ExperienceToNext {
		c.stats.Experience -= c.stats.ExperienceToNext
		c.levelUp()
		res.LevelsGained++
	}
	if c.stats.Level >= MaxLevel && c.stats.Experience >= c.stats.ExperienceToNext {
		c.stats.Experience = c.stats.ExperienceToNext - 1
	}
	res.EvolutionReady = c.CanEvolve()
	return res
}

func (c *Companion) levelUp() {
	c.stats.Level++
	c.stats.ExperienceToNext = RequiredExperience(c.stats.Level)
	c.stats.CurrencyRate = CurrencyRateFor(c.stats.Level)
	c.AdjustHappiness(levelUpHappy)
}

// CanEvolve reports whether the companion has reached its species' evolution level.
func (c *Companion) CanEvolve() bool {
	return c.Species.EvolutionLevel > 0 && c.stats.Level >= c.Species.EvolutionLevel
}

// GenerateCurrency computes the yield for timeMultiplier minutes of activity and
// adds it to the lifetime counter. Crediting the player is up to the caller.
func (c *Companion) GenerateCurrency(timeMultiplier float64) int64 {
	if timeMultiplier < 0 || math.IsNaN(timeMultiplier) {
		timeMultiplier = 0
	}
	happiness := c.stats.Happiness / MaxAffinity
	bonus := 1 + math.Floor(c.stats.Friendship/friendshipStep)*friendshipBonus
	yield := saturate(math.Floor(float64(c.stats.CurrencyRate) * happiness * bonus * timeMultiplier))
	c.stats.TotalCurrencyGenerated += yield
	return yield
}

// AdjustFriendship adds amount, clamped to [0, 100].
func (c *Companion) AdjustFriendship(amount float64) {
	c.stats.Friendship = clamp(c.stats.Friendship + amount)
}

// AdjustHappiness adds amount, clamped to [0, 100], and refreshes the mood.
func (c *Companion) AdjustHappiness(amount float64) {
	c.stats.Happiness = clamp(c.stats.Happiness + amount)
	c.RecomputeMood()
}

// RecomputeMood derives the mood from the current happiness.
func (c *Companion) RecomputeMood() {
	c.mood = MoodFor(c.stats.Happiness)
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > MaxAffinity:
		return MaxAffinity
	}
	return v
}

// saturate converts a non-negative float to int64, pinning values the type
// cannot hold instead of letting the conversion wrap.
func saturate(v float64) int64 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	default:
		return int64(v)
	}
}

// Package ledger keeps the player's cross-session totals: currency balance,
// lifetime counters, per-zone progress and achievements.
package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Stats are the lifetime counters of a player.
type Stats struct {
	Balance         int64
	TotalGenerated  int64
	TotalExperience int64
	CodingMinutes   float64
	LinesWritten    int64
	FilesCreated    int64
	Commits         int64
	StartDate       time.Time
	LastActiveDate  time.Time
}

// Preferences are per-player display toggles. The engine stores them and
// hands them to the host untouched.
type Preferences struct {
	Animations    bool
	Sounds        bool
	StatusBar     bool
	Notifications bool
}

// DefaultPreferences returns the toggles a new player starts with.
func DefaultPreferences() Preferences {
	return Preferences{Animations: true, Sounds: false, StatusBar: true, Notifications: true}
}

// Ledger is the aggregate record of one player.
type Ledger struct {
	PlayerID          string
	ActiveCompanionID string
	Preferences       Preferences

	stats        Stats
	achievements []*Achievement
	zones        map[string]*ZoneProgress
	now          func() time.Time
}

// New returns a ledger with a fresh player id, zero counters and the default
// zone set.
func New(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	t := now()
	return &Ledger{
		PlayerID:    uuid.New().String(),
		Preferences: DefaultPreferences(),
		stats:       Stats{StartDate: t, LastActiveDate: t},
		zones:       defaultZones(),
		now:         now,
	}
}

// Restore rebuilds a ledger from persisted values. Persisted zones replace the
// matching defaults; zones missing from the input keep their default state.
func Restore(now func() time.Time, playerID string, stats Stats, achievements []Achievement, zones []ZoneProgress, activeID string, prefs Preferences) *Ledger {
	if now == nil {
		now = time.Now
	}
	l := &Ledger{
		PlayerID:          playerID,
		ActiveCompanionID: activeID,
		Preferences:       prefs,
		stats:             stats,
		zones:             defaultZones(),
		now:               now,
	}
	if l.PlayerID == "" {
		l.PlayerID = uuid.New().String()
	}
	for _, z := range zones {
		if z.ZoneID == "" {
			continue
		}
		zc := z
		if zc.Name == "" {
			if d, ok := l.zones[zc.ZoneID]; ok {
				zc.Name = d.Name
			}
		}
		l.zones[zc.ZoneID] = &zc
	}
	for _, a := range achievements {
		ac := a
		l.achievements = append(l.achievements, &ac)
	}
	return l
}

// Stats returns a copy of the counters.
func (l *Ledger) Stats() Stats { return l.stats }

func (l *Ledger) Balance() int64 { return l.stats.Balance }

func (l *Ledger) touch() { l.stats.LastActiveDate = l.now() }

// AddCurrency credits n to the balance and the lifetime total.
func (l *Ledger) AddCurrency(n int64) {
	if n > 0 {
		l.stats.Balance += n
		l.stats.TotalGenerated += n
	}
	l.touch()
}

// SpendCurrency debits n. It returns false and leaves the balance unchanged
// when the balance is insufficient.
func (l *Ledger) SpendCurrency(n int64) bool {
	if n < 0 || l.stats.Balance < n {
		return false
	}
	l.stats.Balance -= n
	l.touch()
	return true
}

func (l *Ledger) AddExperience(n int64) {
	if n > 0 {
		l.stats.TotalExperience += n
	}
	l.touch()
}

// TrackCodingActivity records written lines and minutes spent coding.
func (l *Ledger) TrackCodingActivity(lines int64, minutes float64) {
	if lines > 0 {
		l.stats.LinesWritten += lines
	}
	if minutes > 0 {
		l.stats.CodingMinutes += minutes
	}
	l.touch()
}

func (l *Ledger) TrackFileCreated() {
	l.stats.FilesCreated++
	l.touch()
}

func (l *Ledger) TrackCommit() {
	l.stats.Commits++
	l.touch()
}

// TotalPlayTime is the number of whole minutes since the player started.
func (l *Ledger) TotalPlayTime() int64 {
	d := l.now().Sub(l.stats.StartDate)
	if d < 0 {
		return 0
	}
	return int64(d / time.Minute)
}

// Achievements returns copies in insertion order.
func (l *Ledger) Achievements() []Achievement {
	out := make([]Achievement, 0, len(l.achievements))
	for _, a := range l.achievements {
		out = append(out, a.copy())
	}
	return out
}

func (l *Ledger) UnlockedAchievements() []Achievement {
	var out []Achievement
	for _, a := range l.achievements {
		if a.Unlocked {
			out = append(out, a.copy())
		}
	}
	return out
}

// AddAchievement registers a new achievement. Duplicate ids are rejected.
// Progress is clamped to [0, MaxProgress] and the achievement is unlocked
// when progress already reached the max.
func (l *Ledger) AddAchievement(a Achievement) bool {
	if a.ID == "" {
		return false
	}
	for _, cur := range l.achievements {
		if cur.ID == a.ID {
			return false
		}
	}
	ac := a
	ac.Unlocked = false
	ac.UnlockedAt = nil
	ac.setProgress(a.Progress, l.now())
	l.achievements = append(l.achievements, &ac)
	l.touch()
	return true
}

// UpdateAchievementProgress sets the progress of an existing achievement.
// It returns false for unknown ids.
func (l *Ledger) UpdateAchievementProgress(id string, progress int64) bool {
	for _, a := range l.achievements {
		if a.ID == id {
			a.setProgress(progress, l.now())
			l.touch()
			return true
		}
	}
	return false
}

// Zone returns a copy of one zone's progress.
func (l *Ledger) Zone(id string) (ZoneProgress, bool) {
	z, ok := l.zones[id]
	if !ok {
		return ZoneProgress{}, false
	}
	return *z, true
}

// Zones returns every zone ordered by id.
func (l *Ledger) Zones() []ZoneProgress {
	out := make([]ZoneProgress, 0, len(l.zones))
	for _, z := range l.zones {
		out = append(out, *z)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ZoneID < out[j].ZoneID })
	return out
}

func (l *Ledger) UnlockedZones() []ZoneProgress {
	var out []ZoneProgress
	for _, z := range l.Zones() {
		if z.Unlocked {
			out = append(out, z)
		}
	}
	return out
}

// TrackZoneActivity adds minutes to a zone's time spent.
func (l *Ledger) TrackZoneActivity(id string, minutes float64) {
	if z, ok := l.zones[id]; ok && minutes > 0 {
		z.MinutesSpent += minutes
	}
	l.touch()
}

// RecordEncounter counts an encounter in a zone, and a capture when caught.
func (l *Ledger) RecordEncounter(id string, caught bool) {
	if z, ok := l.zones[id]; ok {
		z.Encounters++
		if caught {
			z.Captures++
		}
	}
	l.touch()
}

// UnlockZone unlocks a zone. Nothing ever locks it again.
func (l *Ledger) UnlockZone(id string) bool {
	z, ok := l.zones[id]
	if !ok || z.Unlocked {
		return false
	}
	z.Unlocked = true
	l.touch()
	return true
}

// Package session holds the live aggregate (companions, ledger, settings) and
// the coordinator that turns host activity and elapsed time into progression.
package session

import (
	"sort"
	"time"

	"github.com/kasuganosora/codepals/game/companion"
	"github.com/kasuganosora/codepals/game/ledger"
)

// Settings are the feature toggles and rate multipliers of a session.
type Settings struct {
	AutoSave              bool
	AutoSaveInterval      float64 // minutes
	EnableIdleProgression bool
	EncounterRate         float64 // per minute of coding
	CrystalGenerationRate float64
	ExperienceRate        float64
}

func DefaultSettings() Settings {
	return Settings{
		AutoSave:              true,
		AutoSaveInterval:      5,
		EnableIdleProgression: true,
		EncounterRate:         0.1,
		CrystalGenerationRate: 1.0,
		ExperienceRate:        1.0,
	}
}

// Session is the aggregate root. The active companion is referenced by id
// through Player.ActiveCompanionID; companions are never linked to each other.
type Session struct {
	Player       *ledger.Ledger
	Settings     Settings
	Initialized  bool
	CurrentZone  string
	LastActivity time.Time

	companions map[string]*companion.Companion
}

// New returns an uninitialized session with an empty collection.
func New(now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{
		Player:       ledger.New(now),
		Settings:     DefaultSettings(),
		CurrentZone:  ledger.DefaultZone,
		LastActivity: now(),
		companions:   make(map[string]*companion.Companion),
	}
}

// AddCompanion inserts c, replacing any companion with the same id.
func (s *Session) AddCompanion(c *companion.Companion) {
	s.companions[c.ID] = c
}

// RemoveCompanion deletes a companion. The active companion cannot be removed.
func (s *Session) RemoveCompanion(id string) bool {
	c, ok := s.companions[id]
	if !ok || c.IsActive() || id == s.Player.ActiveCompanionID {
		return false
	}
	delete(s.companions, id)
	return true
}

func (s *Session) Companion(id string) (*companion.Companion, bool) {
	c, ok := s.companions[id]
	return c, ok
}

// Companions returns the collection ordered by capture time, then id.
func (s *Session) Companions() []*companion.Companion {
	out := make([]*companion.Companion, 0, len(s.companions))
	for _, c := range s.companions {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CaughtAt.Equal(out[j].CaughtAt) {
			return out[i].CaughtAt.Before(out[j].CaughtAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ActiveCompanion resolves the active reference. It returns nil when no
// companion is active.
func (s *Session) ActiveCompanion() *companion.Companion {
	if s.Player.ActiveCompanionID == "" {
		return nil
	}
	return s.companions[s.Player.ActiveCompanionID]
}

// SetActiveCompanion moves the active flag to id. Unknown ids are refused.
func (s *Session) SetActiveCompanion(id string) bool {
	next, ok := s.companions[id]
	if !ok {
		return false
	}
	if cur := s.ActiveCompanion(); cur != nil {
		cur.SetActive(false)
	}
	next.SetActive(true)
	s.Player.ActiveCompanionID = id
	return true
}

func (s *Session) CompanionsBySpecies(speciesID int) []*companion.Companion {
	var out []*companion.Companion
	for _, c := range s.Companions() {
		if c.Species.ID == speciesID {
			out = append(out, c)
		}
	}
	return out
}

func (s *Session) CompanionCount() int { return len(s.companions) }

func (s *Session) UniqueSpeciesCount() int {
	seen := make(map[int]struct{}, len(s.companions))
	for _, c := range s.companions {
		seen[c.Species.ID] = struct{}{}
	}
	return len(seen)
}

// ReconcileActive makes the active reference and the active flags agree.
// A reference that does not resolve is replaced by the first companion
// flagged active, if any. Used after a load, where the persisted flags and
// reference may disagree.
func (s *Session) ReconcileActive() {
	if _, ok := s.companions[s.Player.ActiveCompanionID]; !ok {
		s.Player.ActiveCompanionID = ""
		for _, c := range s.Companions() {
			if c.IsActive() {
				s.Player.ActiveCompanionID = c.ID
				break
			}
		}
	}
	for id, c := range s.companions {
		c.SetActive(id == s.Player.ActiveCompanionID)
	}
}

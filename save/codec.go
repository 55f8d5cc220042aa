// Package save converts sessions to and from the versioned save document and
// moves those documents in and out of durable stores.
package save

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/mod/semver"

	"github.com/kasuganosora/codepals/game/companion"
	"github.com/kasuganosora/codepals/game/ledger"
	"github.com/kasuganosora/codepals/game/session"
)

// CurrentVersion is stamped on every record this package writes.
const CurrentVersion = "1.0.0"

// timeLayout matches the millisecond ISO-8601 form existing saves use.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string, fallback time.Time) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fallback
	}
	return t
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// newerThanCurrent reports whether v is a semantic version above CurrentVersion.
// Versions that are not semver are left to the migration hook.
func newerThanCurrent(v string) bool {
	cv := canonical(v)
	return semver.IsValid(cv) && semver.Compare(cv, canonical(CurrentVersion)) > 0
}

// Serialize flattens s into a record stamped with now.
func Serialize(s *session.Session, now time.Time) *Record {
	st := s.Player.Stats()
	p := &PlayerRecord{
		PlayerID: s.Player.PlayerID,
		Stats: PlayerStatsRecord{
			TotalCodeCrystals:      st.Balance,
			TotalCrystalsGenerated: st.TotalGenerated,
			TotalExperienceGained:  st.TotalExperience,
			TotalCodingTime:        st.CodingMinutes,
			TotalLinesWritten:      st.LinesWritten,
			TotalFilesCreated:      st.FilesCreated,
			TotalCommits:           st.Commits,
			StartDate:              formatTime(st.StartDate),
			LastActiveDate:         formatTime(st.LastActiveDate),
		},
		Achievements:    []AchievementRecord{},
		Biomes:          []BiomeEntry{},
		ActivePokemonID: s.Player.ActiveCompanionID,
		Settings: PreferencesRecord{
			EnableAnimations:    s.Player.Preferences.Animations,
			EnableSounds:        s.Player.Preferences.Sounds,
			ShowInStatusBar:     s.Player.Preferences.StatusBar,
			EnableNotifications: s.Player.Preferences.Notifications,
		},
	}
	for _, a := range s.Player.Achievements() {
		ar := AchievementRecord{
			ID:          a.ID,
			Name:        a.Name,
			Description: a.Description,
			Icon:        a.Icon,
			Progress:    a.Progress,
			MaxProgress: a.MaxProgress,
			IsUnlocked:  a.Unlocked,
		}
		if a.UnlockedAt != nil {
			ts := formatTime(*a.UnlockedAt)
			ar.UnlockedAt = &ts
		}
		p.Achievements = append(p.Achievements, ar)
	}
	for _, z := range s.Player.Zones() {
		p.Biomes = append(p.Biomes, BiomeEntry{ZoneID: z.ZoneID, Progress: BiomeRecord{
			BiomeID:         z.ZoneID,
			BiomeName:       z.Name,
			TimeSpent:       z.MinutesSpent,
			EncountersTotal: z.Encounters,
			PokemonCaught:   z.Captures,
			IsUnlocked:      z.Unlocked,
		}})
	}

	companions := s.Companions()
	pokemon := make([]CompanionRecord, 0, len(companions))
	for _, c := range companions {
		pokemon = append(pokemon, companionRecord(c))
	}

	gs := settingsRecord(s.Settings)
	return &Record{
		Version:      CurrentVersion,
		Player:       p,
		Pokemon:      pokemon,
		GameSettings: &gs,
		LastSaved:    formatTime(now),
		CurrentBiome: s.CurrentZone,
	}
}

func companionRecord(c *companion.Companion) CompanionRecord {
	st := c.Stats()
	sp := c.Species
	return CompanionRecord{
		ID: c.ID,
		Species: SpeciesRecord{
			ID:    sp.ID,
			Name:  sp.Name,
			Types: append([]string{}, sp.Types...),
			BaseStats: BaseStatsRecord{
				HP:             sp.BaseStats.HP,
				Attack:         sp.BaseStats.Attack,
				Defense:        sp.BaseStats.Defense,
				SpecialAttack:  sp.BaseStats.SpecialAttack,
				SpecialDefense: sp.BaseStats.SpecialDefense,
				Speed:          sp.BaseStats.Speed,
			},
			EvolutionLevel:  sp.EvolutionLevel,
			EvolutionTarget: sp.EvolutionTarget,
			SpriteURL:       sp.SpriteURL,
			Rarity:          string(sp.Rarity),
			Biomes:          append([]string{}, sp.Biomes...),
		},
		Stats: CompanionStatsRecord{
			Level:                      st.Level,
			Experience:                 st.Experience,
			ExperienceToNext:           st.ExperienceToNext,
			Happiness:                  st.Happiness,
			Friendship:                 st.Friendship,
			TotalCodeCrystalsGenerated: st.TotalCurrencyGenerated,
			CrystalGenerationRate:      st.CurrencyRate,
		},
		Nickname: c.Nickname,
		CaughtAt: formatTime(c.CaughtAt),
		IsActive: c.IsActive(),
		Mood:     string(c.Mood()),
	}
}

// Parse decodes and validates a save document. Text that is not JSON yields
// an *ImportParseError; JSON of the wrong shape yields a *ValidationError.
func Parse(data []byte) (*Record, error) {
	if !json.Valid(data) {
		var v any
		err := json.Unmarshal(data, &v)
		if err == nil {
			err = errors.New("invalid JSON")
		}
		return nil, &ImportParseError{Err: err}
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, decodeError(err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func decodeError(err error) error {
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		return &ValidationError{Field: te.Field, Reason: fmt.Sprintf("expected %s, got %s", te.Type, te.Value)}
	}
	return &ValidationError{Reason: err.Error()}
}

// Validate performs the structural check only. Field values inside the
// player and companion blocks are not range checked; they are clamped by
// the first mutation after load.
func (r *Record) Validate() error {
	switch {
	case r == nil:
		return &ValidationError{Reason: "empty record"}
	case r.Version == "":
		return &ValidationError{Field: "version", Reason: "must be a non-empty string"}
	case newerThanCurrent(r.Version):
		return &ValidationError{Field: "version", Reason: fmt.Sprintf("%s is newer than supported %s", r.Version, CurrentVersion)}
	case r.Player == nil:
		return &ValidationError{Field: "player", Reason: "missing"}
	case r.Pokemon == nil:
		return &ValidationError{Field: "pokemon", Reason: "must be a list"}
	case r.GameSettings == nil:
		return &ValidationError{Field: "gameSettings", Reason: "missing"}
	case r.LastSaved == "":
		return &ValidationError{Field: "lastSaved", Reason: "must be a timestamp string"}
	}
	return nil
}

// Migrate brings r to target. No schema change exists yet, so this only
// stamps the version.
func Migrate(r *Record, target string) *Record {
	r.Version = target
	return r
}

// Deserialize rebuilds an initialized session from r. now supplies the
// fallback for unparsable timestamps and becomes the session clock.
func Deserialize(r *Record, now func() time.Time) (*session.Session, error) {
	if err := r.Validate(); err != nil {
		return nil, &DeserializationError{Err: err}
	}
	if now == nil {
		now = time.Now
	}
	t := now()

	ps := r.Player.Stats
	stats := ledger.Stats{
		Balance:         max(ps.TotalCodeCrystals, 0),
		TotalGenerated:  ps.TotalCrystalsGenerated,
		TotalExperience: ps.TotalExperienceGained,
		CodingMinutes:   ps.TotalCodingTime,
		LinesWritten:    ps.TotalLinesWritten,
		FilesCreated:    ps.TotalFilesCreated,
		Commits:         ps.TotalCommits,
		StartDate:       parseTime(ps.StartDate, t),
		LastActiveDate:  parseTime(ps.LastActiveDate, t),
	}
	achievements := make([]ledger.Achievement, 0, len(r.Player.Achievements))
	for _, a := range r.Player.Achievements {
		la := ledger.Achievement{
			ID:          a.ID,
			Name:        a.Name,
			Description: a.Description,
			Icon:        a.Icon,
			Progress:    a.Progress,
			MaxProgress: a.MaxProgress,
			Unlocked:    a.IsUnlocked,
		}
		if a.UnlockedAt != nil {
			ts := parseTime(*a.UnlockedAt, t)
			la.UnlockedAt = &ts
		}
		achievements = append(achievements, la)
	}
	zones := make([]ledger.ZoneProgress, 0, len(r.Player.Biomes))
	for _, b := range r.Player.Biomes {
		zones = append(zones, ledger.ZoneProgress{
			ZoneID:       b.ZoneID,
			Name:         b.Progress.BiomeName,
			MinutesSpent: b.Progress.TimeSpent,
			Encounters:   b.Progress.EncountersTotal,
			Captures:     b.Progress.PokemonCaught,
			Unlocked:     b.Progress.IsUnlocked,
		})
	}
	prefs := ledger.Preferences{
		Animations:    r.Player.Settings.EnableAnimations,
		Sounds:        r.Player.Settings.EnableSounds,
		StatusBar:     r.Player.Settings.ShowInStatusBar,
		Notifications: r.Player.Settings.EnableNotifications,
	}

	s := session.New(now)
	s.Player = ledger.Restore(now, r.Player.PlayerID, stats, achievements, zones, r.Player.ActivePokemonID, prefs)
	s.Settings = r.GameSettings.settings()
	if r.CurrentBiome != "" {
		s.CurrentZone = r.CurrentBiome
	}
	for _, cr := range r.Pokemon {
		s.AddCompanion(restoreCompanion(cr, t))
	}
	s.ReconcileActive()
	s.LastActivity = parseTime(r.LastSaved, t)
	s.Initialized = true
	return s, nil
}

func restoreCompanion(cr CompanionRecord, now time.Time) *companion.Companion {
	sr := cr.Species
	sp := companion.Species{
		ID:    sr.ID,
		Name:  sr.Name,
		Types: append([]string(nil), sr.Types...),
		BaseStats: companion.BaseStats{
			HP:             sr.BaseStats.HP,
			Attack:         sr.BaseStats.Attack,
			Defense:        sr.BaseStats.Defense,
			SpecialAttack:  sr.BaseStats.SpecialAttack,
			SpecialDefense: sr.BaseStats.SpecialDefense,
			Speed:          sr.BaseStats.Speed,
		},
		EvolutionLevel:  sr.EvolutionLevel,
		EvolutionTarget: sr.EvolutionTarget,
		SpriteURL:       sr.SpriteURL,
		Rarity:          companion.Rarity(sr.Rarity),
		Biomes:          append([]string(nil), sr.Biomes...),
	}
	id := cr.ID
	if id == "" {
		id = uuid.New().String()
	}
	st := cr.Stats
	return companion.Restore(id, sp, cr.Nickname, parseTime(cr.CaughtAt, now), cr.IsActive, companion.Stats{
		Level:                  st.Level,
		Experience:             st.Experience,
		Happiness:              st.Happiness,
		Friendship:             st.Friendship,
		TotalCurrencyGenerated: st.TotalCodeCrystalsGenerated,
	})
}

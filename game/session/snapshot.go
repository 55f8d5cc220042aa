package session

import "github.com/kasuganosora/codepals/game/companion"

// CompanionView is a read-only copy of one companion.
type CompanionView struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	SpeciesID        int            `json:"species_id"`
	SpeciesName      string         `json:"species_name"`
	SpriteURL        string         `json:"sprite_url,omitempty"`
	Level            int            `json:"level"`
	Experience       int64          `json:"experience"`
	ExperienceToNext int64          `json:"experience_to_next"`
	Happiness        float64        `json:"happiness"`
	Friendship       float64        `json:"friendship"`
	Mood             companion.Mood `json:"mood"`
	CurrencyRate     int64          `json:"currency_rate"`
	TotalCurrency    int64          `json:"total_currency"`
	CanEvolve        bool           `json:"can_evolve"`
	Active           bool           `json:"active"`
}

// ViewOf copies c into a CompanionView.
func ViewOf(c *companion.Companion) CompanionView {
	st := c.Stats()
	return CompanionView{
		ID:               c.ID,
		Name:             c.DisplayName(),
		SpeciesID:        c.Species.ID,
		SpeciesName:      c.Species.Name,
		SpriteURL:        c.Species.SpriteURL,
		Level:            st.Level,
		Experience:       st.Experience,
		ExperienceToNext: st.ExperienceToNext,
		Happiness:        st.Happiness,
		Friendship:       st.Friendship,
		Mood:             c.Mood(),
		CurrencyRate:     st.CurrencyRate,
		TotalCurrency:    st.TotalCurrencyGenerated,
		CanEvolve:        c.CanEvolve(),
		Active:           c.IsActive(),
	}
}

// Snapshot is what display collaborators render.
type Snapshot struct {
	Initialized     bool           `json:"initialized"`
	Active          *CompanionView `json:"active,omitempty"`
	Balance         int64          `json:"balance"`
	TotalGenerated  int64          `json:"total_generated"`
	TotalExperience int64          `json:"total_experience"`
	CodingMinutes   float64        `json:"coding_minutes"`
	LinesWritten    int64          `json:"lines_written"`
	FilesCreated    int64          `json:"files_created"`
	Commits         int64          `json:"commits"`
	CurrentZone     string         `json:"current_zone"`
	UnlockedZones   []string       `json:"unlocked_zones"`
	CompanionCount  int            `json:"companion_count"`
	UniqueSpecies   int            `json:"unique_species"`
	PlayTimeMinutes int64          `json:"play_time_minutes"`
}

func (c *Coordinator) Snapshot() Snapshot {
	s := c.sess
	st := s.Player.Stats()
	snap := Snapshot{
		Initialized:     s.Initialized,
		Balance:         st.Balance,
		TotalGenerated:  st.TotalGenerated,
		TotalExperience: st.TotalExperience,
		CodingMinutes:   st.CodingMinutes,
		LinesWritten:    st.LinesWritten,
		FilesCreated:    st.FilesCreated,
		Commits:         st.Commits,
		CurrentZone:     s.CurrentZone,
		UnlockedZones:   []string{},
		CompanionCount:  s.CompanionCount(),
		UniqueSpecies:   s.UniqueSpeciesCount(),
		PlayTimeMinutes: s.Player.TotalPlayTime(),
	}
	if a := s.ActiveCompanion(); a != nil {
		v := ViewOf(a)
		snap.Active = &v
	}
	for _, z := range s.Player.UnlockedZones() {
		snap.UnlockedZones = append(snap.UnlockedZones, z.ZoneID)
	}
	return snap
}

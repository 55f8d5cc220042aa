package save

import (
	"encoding/json"
	"fmt"

	"github.com/kasuganosora/codepals/game/ledger"
	"github.com/kasuganosora/codepals/game/session"
)

// Record is the persisted save document. Field names are the wire names
// used by every save ever written, including the misspelled
// crystallGenerationRate.
type Record struct {
	Version      string            `json:"version"`
	Player       *PlayerRecord     `json:"player"`
	Pokemon      []CompanionRecord `json:"pokemon"`
	GameSettings *SettingsRecord   `json:"gameSettings"`
	LastSaved    string            `json:"lastSaved"`
	CurrentBiome string            `json:"currentBiome,omitempty"`
}

type PlayerRecord struct {
	PlayerID        string              `json:"playerId"`
	Stats           PlayerStatsRecord   `json:"stats"`
	Achievements    []AchievementRecord `json:"achievements"`
	Biomes          []BiomeEntry        `json:"biomes"`
	ActivePokemonID string              `json:"activePokemonId,omitempty"`
	Settings        PreferencesRecord   `json:"settings"`
}

type PlayerStatsRecord struct {
	TotalCodeCrystals      int64   `json:"totalCodeCrystals"`
	TotalCrystalsGenerated int64   `json:"totalCrystalsGenerated"`
	TotalExperienceGained  int64   `json:"totalExperienceGained"`
	TotalCodingTime        float64 `json:"totalCodingTime"`
	TotalLinesWritten      int64   `json:"totalLinesWritten"`
	TotalFilesCreated      int64   `json:"totalFilesCreated"`
	TotalCommits           int64   `json:"totalCommits"`
	StartDate              string  `json:"startDate"`
	LastActiveDate         string  `json:"lastActiveDate"`
}

type AchievementRecord struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	UnlockedAt  *string `json:"unlockedAt,omitempty"`
	Progress    int64   `json:"progress"`
	MaxProgress int64   `json:"maxProgress"`
	IsUnlocked  bool    `json:"isUnlocked"`
}

type BiomeRecord struct {
	BiomeID         string  `json:"biomeId"`
	BiomeName       string  `json:"biomeName"`
	TimeSpent       float64 `json:"timeSpent"`
	EncountersTotal int64   `json:"encountersTotal"`
	PokemonCaught   int64   `json:"pokemonCaught"`
	IsUnlocked      bool    `json:"isUnlocked"`
}

// BiomeEntry is encoded as a two element array: [zoneId, progress].
type BiomeEntry struct {
	ZoneID   string
	Progress BiomeRecord
}

func (e BiomeEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.ZoneID, e.Progress})
}

func (e *BiomeEntry) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("biome entry: want [id, progress], got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.ZoneID); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &e.Progress)
}

type PreferencesRecord struct {
	EnableAnimations    bool `json:"enableAnimations"`
	EnableSounds        bool `json:"enableSounds"`
	ShowInStatusBar     bool `json:"showInStatusBar"`
	EnableNotifications bool `json:"enableNotifications"`
}

// UnmarshalJSON starts from the default preferences so partial blocks keep
// the defaults for missing keys.
func (p *PreferencesRecord) UnmarshalJSON(b []byte) error {
	type plain PreferencesRecord
	d := ledger.DefaultPreferences()
	v := plain{
		EnableAnimations:    d.Animations,
		EnableSounds:        d.Sounds,
		ShowInStatusBar:     d.StatusBar,
		EnableNotifications: d.Notifications,
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*p = PreferencesRecord(v)
	return nil
}

type CompanionRecord struct {
	ID       string               `json:"id"`
	Species  SpeciesRecord        `json:"species"`
	Stats    CompanionStatsRecord `json:"stats"`
	Nickname string               `json:"nickname,omitempty"`
	CaughtAt string               `json:"caughtAt"`
	IsActive bool                 `json:"isActive"`
	Mood     string               `json:"mood"`
}

type SpeciesRecord struct {
	ID              int             `json:"id"`
	Name            string          `json:"name"`
	Types           []string        `json:"types"`
	BaseStats       BaseStatsRecord `json:"baseStats"`
	EvolutionLevel  int             `json:"evolutionLevel,omitempty"`
	EvolutionTarget int             `json:"evolutionTarget,omitempty"`
	SpriteURL       string          `json:"spriteUrl,omitempty"`
	Rarity          string          `json:"rarity"`
	Biomes          []string        `json:"biomes"`
}

type BaseStatsRecord struct {
	HP             int `json:"hp"`
	Attack         int `json:"attack"`
	Defense        int `json:"defense"`
	SpecialAttack  int `json:"specialAttack"`
	SpecialDefense int `json:"specialDefense"`
	Speed          int `json:"speed"`
}

type CompanionStatsRecord struct {
	Level                      int     `json:"level"`
	Experience                 int64   `json:"experience"`
	ExperienceToNext           int64   `json:"experienceToNext"`
	Happiness                  float64 `json:"happiness"`
	Friendship                 float64 `json:"friendship"`
	TotalCodeCrystalsGenerated int64   `json:"totalCodeCrystalsGenerated"`
	CrystalGenerationRate      int64   `json:"crystallGenerationRate"`
}

type SettingsRecord struct {
	AutoSave              bool    `json:"autoSave"`
	AutoSaveInterval      float64 `json:"autoSaveInterval"`
	EnableIdleProgression bool    `json:"enableIdleProgression"`
	EncounterRate         float64 `json:"encounterRate"`
	CrystalGenerationRate float64 `json:"crystalGenerationRate"`
	ExperienceRate        float64 `json:"experienceRate"`
}

// UnmarshalJSON fills keys missing from the document with the defaults.
func (s *SettingsRecord) UnmarshalJSON(b []byte) error {
	type plain SettingsRecord
	v := plain(settingsRecord(session.DefaultSettings()))
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = SettingsRecord(v)
	return nil
}

func settingsRecord(s session.Settings) SettingsRecord {
	return SettingsRecord{
		AutoSave:              s.AutoSave,
		AutoSaveInterval:      s.AutoSaveInterval,
		EnableIdleProgression: s.EnableIdleProgression,
		EncounterRate:         s.EncounterRate,
		CrystalGenerationRate: s.CrystalGenerationRate,
		ExperienceRate:        s.ExperienceRate,
	}
}

func (s SettingsRecord) settings() session.Settings {
	return session.Settings{
		AutoSave:              s.AutoSave,
		AutoSaveInterval:      s.AutoSaveInterval,
		EnableIdleProgression: s.EnableIdleProgression,
		EncounterRate:         s.EncounterRate,
		CrystalGenerationRate: s.CrystalGenerationRate,
		ExperienceRate:        s.ExperienceRate,
	}
}

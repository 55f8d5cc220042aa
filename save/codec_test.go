package save

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/codepals/game/companion"
	"github.com/kasuganosora/codepals/game/ledger"
	"github.com/kasuganosora/codepals/game/session"
)

var epoch = time.Date(2026, 4, 1, 8, 30, 0, 0, time.UTC)

type fixedRand struct{}

func (fixedRand) IntN(n int) int   { return n - 1 }
func (fixedRand) Float64() float64 { return 0 }

func playedSession(t *testing.T) *session.Session {
	t.Helper()
	now := func() time.Time { return epoch }
	c := session.NewCoordinator(session.New(now), now, fixedRand{}, nil)
	c.Initialize()
	for i := 0; i < 40; i++ {
		c.OnEditEvent()
	}
	c.OnSaveEvent()
	c.OnFileCreatedEvent()
	c.OnCommitEvent()
	_, err := c.AddCompanion(7, "Shelly")
	require.NoError(t, err)
	c.ChangeZone("ocean")

	s := c.Session()
	s.Player.UnlockZone("ocean")
	s.Player.AddAchievement(ledger.Achievement{ID: "first-steps", Name: "First steps", MaxProgress: 1, Progress: 1})
	s.Player.AddAchievement(ledger.Achievement{ID: "collector", Name: "Collector", MaxProgress: 10, Progress: 2})
	s.Player.Preferences.Sounds = true
	s.Settings.EncounterRate = 0.25
	return s
}

func roundTrip(t *testing.T, s *session.Session) *session.Session {
	t.Helper()
	data, err := json.Marshal(Serialize(s, epoch.Add(time.Hour)))
	require.NoError(t, err)
	r, err := Parse(data)
	require.NoError(t, err)
	out, err := Deserialize(r, func() time.Time { return epoch.Add(2 * time.Hour) })
	require.NoError(t, err)
	return out
}

func TestRoundTrip(t *testing.T) {
	in := playedSession(t)
	out := roundTrip(t, in)

	assert.True(t, out.Initialized)
	assert.Equal(t, in.Settings, out.Settings)
	assert.Equal(t, in.CurrentZone, out.CurrentZone)
	assert.Equal(t, in.Player.PlayerID, out.Player.PlayerID)
	assert.Equal(t, in.Player.ActiveCompanionID, out.Player.ActiveCompanionID)
	assert.Equal(t, in.Player.Preferences, out.Player.Preferences)
	assert.Equal(t, in.Player.Zones(), out.Player.Zones())

	is, os := in.Player.Stats(), out.Player.Stats()
	is.StartDate, is.LastActiveDate, os.StartDate, os.LastActiveDate = time.Time{}, time.Time{}, time.Time{}, time.Time{}
	assert.Equal(t, is, os)

	ia, oa := in.Player.Achievements(), out.Player.Achievements()
	require.Len(t, oa, len(ia))
	for i := range ia {
		assert.Equal(t, ia[i].ID, oa[i].ID)
		assert.Equal(t, ia[i].Progress, oa[i].Progress)
		assert.Equal(t, ia[i].Unlocked, oa[i].Unlocked)
		assert.Equal(t, ia[i].UnlockedAt == nil, oa[i].UnlockedAt == nil)
	}

	ic, oc := in.Companions(), out.Companions()
	require.Len(t, oc, len(ic))
	for i := range ic {
		assert.Equal(t, ic[i].ID, oc[i].ID)
		assert.Equal(t, ic[i].Nickname, oc[i].Nickname)
		assert.Equal(t, ic[i].Species, oc[i].Species)
		assert.Equal(t, ic[i].Stats(), oc[i].Stats())
		assert.Equal(t, ic[i].Mood(), oc[i].Mood())
		assert.Equal(t, ic[i].IsActive(), oc[i].IsActive())
	}
}

func TestRoundTrip_Twice(t *testing.T) {
	once := roundTrip(t, playedSession(t))
	twice := roundTrip(t, once)

	a, _ := json.Marshal(Serialize(once, epoch))
	b, _ := json.Marshal(Serialize(twice, epoch))
	assert.JSONEq(t, string(a), string(b))
}

func TestSerialize_Stamps(t *testing.T) {
	r := Serialize(playedSession(t), epoch)
	assert.Equal(t, CurrentVersion, r.Version)
	assert.Equal(t, "2026-04-01T08:30:00.000Z", r.LastSaved)
	assert.Len(t, r.Pokemon, 2)
	assert.Len(t, r.Player.Biomes, 6)
	require.NoError(t, r.Validate())
}

func TestParse_NotJSON(t *testing.T) {
	_, err := Parse([]byte("{not json"))
	var pe *ImportParseError
	require.ErrorAs(t, err, &pe)
}

func TestParse_WrongShape(t *testing.T) {
	cases := map[string]string{
		"version":      `{"version":1,"player":{},"pokemon":[],"gameSettings":{},"lastSaved":"x"}`,
		"pokemon":      `{"version":"1.0.0","player":{},"pokemon":{},"gameSettings":{},"lastSaved":"x"}`,
		"player":       `{"version":"1.0.0","pokemon":[],"gameSettings":{},"lastSaved":"x"}`,
		"gameSettings": `{"version":"1.0.0","player":{},"pokemon":[],"lastSaved":"x"}`,
		"lastSaved":    `{"version":"1.0.0","player":{},"pokemon":[],"gameSettings":{}}`,
		"":             `[1,2,3]`,
	}
	for field, doc := range cases {
		_, err := Parse([]byte(doc))
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, field)
		if field != "" {
			assert.Contains(t, ve.Field, field)
		}
	}
}

func TestParse_MissingPokemonList(t *testing.T) {
	_, err := Parse([]byte(`{"version":"1.0.0","player":{},"gameSettings":{},"lastSaved":"x"}`))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "pokemon", ve.Field)
}

func TestParse_NewerVersionRejected(t *testing.T) {
	_, err := Parse([]byte(`{"version":"2.1.0","player":{},"pokemon":[],"gameSettings":{},"lastSaved":"x"}`))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "version", ve.Field)
}

func TestParse_LenientValues(t *testing.T) {
	doc := `{"version":"1.0.0","player":{"playerId":"p"},"pokemon":[{"id":"x","species":{"id":25,"name":"Pikachu"},
		"stats":{"level":3,"experience":10,"happiness":250,"friendship":-4},"caughtAt":"garbage","isActive":true,"mood":"sad"}],
		"gameSettings":{"autoSave":false},"lastSaved":"not a date"}`
	r, err := Parse([]byte(doc))
	require.NoError(t, err)

	now := epoch
	s, err := Deserialize(r, func() time.Time { return now })
	require.NoError(t, err)

	a := s.ActiveCompanion()
	require.NotNil(t, a, "flagged companion adopted as active")
	assert.Equal(t, int64(519), a.Stats().ExperienceToNext)
	assert.Equal(t, companion.MoodJoyful, a.Mood(), "mood derives from happiness, not the stored value")
	assert.Equal(t, now, a.CaughtAt)
	assert.Equal(t, now, s.LastActivity)

	// Partial settings keep the defaults for missing keys.
	assert.False(t, s.Settings.AutoSave)
	assert.Equal(t, 5.0, s.Settings.AutoSaveInterval)
	assert.Equal(t, 0.1, s.Settings.EncounterRate)

	// Out-of-range values correct themselves on the next clamp.
	a.AdjustHappiness(0)
	a.AdjustFriendship(0)
	assert.Equal(t, 100.0, a.Stats().Happiness)
	assert.Equal(t, 0.0, a.Stats().Friendship)
}

func TestDeserialize_HugeLevelStaysUsable(t *testing.T) {
	doc := `{"version":"1.0.0","player":{"playerId":"p","activePokemonId":"x"},"pokemon":[{"id":"x",
		"species":{"id":25,"name":"Pikachu"},"stats":{"level":300000000000,"experience":10,"happiness":80},
		"caughtAt":"2026-03-01T10:00:00.000Z","isActive":true}],"lastSaved":"2026-03-31T18:00:00.000Z"}`
	r, err := Parse([]byte(doc))
	require.NoError(t, err)
	now := func() time.Time { return epoch }
	s, err := Deserialize(r, now)
	require.NoError(t, err)

	a := s.ActiveCompanion()
	require.NotNil(t, a)
	assert.Equal(t, companion.MaxLevel, a.Level())
	assert.Positive(t, a.Stats().ExperienceToNext)

	c := session.NewCoordinator(s, now, fixedRand{}, nil)
	done := make(chan session.ActivityResult, 1)
	go func() { done <- c.OnSaveEvent() }()
	select {
	case res := <-done:
		assert.Zero(t, res.LevelsGained)
	case <-time.After(3 * time.Second):
		t.Fatal("save event did not return")
	}
	st := a.Stats()
	assert.Less(t, st.Experience, st.ExperienceToNext)
}

// A save written by an earlier client: millisecond timestamps, tuple biomes,
// legacy mood names, the misspelled rate key.
const legacySave = `{
  "version": "1.0.0",
  "player": {
    "playerId": "player_1700000000000_abc123def",
    "stats": {
      "totalCodeCrystals": 340, "totalCrystalsGenerated": 400, "totalExperienceGained": 1200,
      "totalCodingTime": 95.5, "totalLinesWritten": 955, "totalFilesCreated": 4, "totalCommits": 0,
      "startDate": "2026-03-01T10:00:00.000Z", "lastActiveDate": "2026-03-31T18:00:00.000Z"
    },
    "achievements": [],
    "biomes": [
      ["forest", {"biomeId":"forest","biomeName":"Forest","timeSpent":12,"encountersTotal":3,"pokemonCaught":0,"isUnlocked":true}],
      ["cave", {"biomeId":"cave","biomeName":"Cave","timeSpent":2,"encountersTotal":0,"pokemonCaught":0,"isUnlocked":false}]
    ],
    "activePokemonId": "pokemon_1700000000000_xyz",
    "settings": {"enableAnimations": true, "enableSounds": false, "showInStatusBar": true, "enableNotifications": true}
  },
  "pokemon": [
    {
      "id": "pokemon_1700000000000_xyz",
      "species": {"id":25,"name":"Pikachu","types":["Electric"],
        "baseStats":{"hp":35,"attack":55,"defense":40,"specialAttack":50,"specialDefense":50,"speed":90},
        "evolutionLevel":16,"evolutionTarget":26,"rarity":"common","biomes":["forest","laboratory"]},
      "stats": {"level":5,"experience":40,"experienceToNext":1118,"happiness":72,"friendship":33,
        "totalCodeCrystalsGenerated":400,"crystallGenerationRate":1},
      "caughtAt": "2026-03-01T10:00:00.000Z",
      "isActive": true,
      "mood": "happy"
    }
  ],
  "gameSettings": {"autoSave":true,"autoSaveInterval":5,"enableIdleProgression":true,"encounterRate":0.1,
    "crystalGenerationRate":1,"experienceRate":1},
  "lastSaved": "2026-03-31T18:00:00.000Z"
}`

func TestDeserialize_LegacySave(t *testing.T) {
	r, err := Parse([]byte(legacySave))
	require.NoError(t, err)
	s, err := Deserialize(r, func() time.Time { return epoch })
	require.NoError(t, err)

	assert.Equal(t, "player_1700000000000_abc123def", s.Player.PlayerID)
	assert.Equal(t, int64(340), s.Player.Balance())
	assert.Equal(t, "forest", s.CurrentZone)
	assert.Equal(t, time.Date(2026, 3, 31, 18, 0, 0, 0, time.UTC), s.LastActivity)

	forest, _ := s.Player.Zone("forest")
	assert.Equal(t, int64(3), forest.Encounters)
	_, ok := s.Player.Zone("garden")
	assert.True(t, ok, "zones missing from the save keep their defaults")

	a := s.ActiveCompanion()
	require.NotNil(t, a)
	assert.Equal(t, 5, a.Level())
	assert.Equal(t, companion.MoodContent, a.Mood())
	assert.Equal(t, int64(companion.RequiredExperience(5)), a.Stats().ExperienceToNext)
}

func TestDeserialize_Invalid(t *testing.T) {
	_, err := Deserialize(&Record{Version: "1.0.0"}, nil)
	var de *DeserializationError
	require.ErrorAs(t, err, &de)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestMigrate_Stamps(t *testing.T) {
	r := &Record{Version: "0.9.0"}
	assert.Equal(t, "1.0.0", Migrate(r, "1.0.0").Version)
}

func TestNewerThanCurrent(t *testing.T) {
	assert.False(t, newerThanCurrent("1.0.0"))
	assert.False(t, newerThanCurrent("0.9.3"))
	assert.False(t, newerThanCurrent("legacy"))
	assert.True(t, newerThanCurrent("1.0.1"))
	assert.True(t, newerThanCurrent("v2.0.0"))
}

func TestBiomeEntry_Wire(t *testing.T) {
	raw, err := json.Marshal(BiomeEntry{ZoneID: "cave", Progress: BiomeRecord{BiomeID: "cave", IsUnlocked: true}})
	require.NoError(t, err)
	assert.JSONEq(t, `["cave",{"biomeId":"cave","biomeName":"","timeSpent":0,"encountersTotal":0,"pokemonCaught":0,"isUnlocked":true}]`, string(raw))

	var e BiomeEntry
	assert.Error(t, json.Unmarshal([]byte(`["cave"]`), &e))
}

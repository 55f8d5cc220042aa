package companion

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newStarter() *Companion {
	return New(StarterSpecies(), "", t0)
}

func TestNew_Defaults(t *testing.T) {
	c := New(StarterSpecies(), "Sparky", t0)
	s := c.Stats()

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Sparky", c.DisplayName())
	assert.Equal(t, 1, s.Level)
	assert.Equal(t, int64(0), s.Experience)
	assert.Equal(t, int64(100), s.ExperienceToNext)
	assert.Equal(t, 100.0, s.Happiness)
	assert.Equal(t, 0.0, s.Friendship)
	assert.Equal(t, int64(1), s.CurrencyRate)
	assert.Equal(t, MoodJoyful, c.Mood())
	assert.False(t, c.IsActive())
	assert.Equal(t, t0, c.CaughtAt)
}

func TestNew_UniqueIDs(t *testing.T) {
	assert.NotEqual(t, newStarter().ID, newStarter().ID)
}

func TestDisplayName_FallsBackToSpecies(t *testing.T) {
	assert.Equal(t, "Pikachu", newStarter().DisplayName())
}

func TestRequiredExperience_Curve(t *testing.T) {
	assert.Equal(t, int64(100), RequiredExperience(1))
	assert.Equal(t, int64(282), RequiredExperience(2))
	assert.Equal(t, int64(519), RequiredExperience(3))
	assert.Equal(t, int64(800), RequiredExperience(4))
	assert.Equal(t, int64(100), RequiredExperience(0), "levels below 1 use level 1")
}

func TestCurrencyRateFor(t *testing.T) {
	assert.Equal(t, int64(1), CurrencyRateFor(1))
	assert.Equal(t, int64(1), CurrencyRateFor(9))
	assert.Equal(t, int64(2), CurrencyRateFor(10))
	assert.Equal(t, int64(3), CurrencyRateFor(25))
}

// Level 1 → 250 exp: one level-up (100), remaining 150 < 282.
func TestGrantExperience_CarriesOverflow(t *testing.T) {
	c := newStarter()
	res := c.GrantExperience(250)

	s := c.Stats()
	assert.Equal(t, 1, res.LevelsGained)
	assert.Equal(t, 2, s.Level)
	assert.Equal(t, int64(150), s.Experience)
	assert.Equal(t, int64(282), s.ExperienceToNext)
}

func TestGrantExperience_MultipleLevels(t *testing.T) {
	c := newStarter()
	res := c.GrantExperience(100 + 282 + 519 + 10)

	s := c.Stats()
	assert.Equal(t, 3, res.LevelsGained)
	assert.Equal(t, 4, s.Level)
	assert.Equal(t, int64(10), s.Experience)
	assert.Equal(t, int64(800), s.ExperienceToNext)
}

func TestGrantExperience_ZeroIsNoop(t *testing.T) {
	c := newStarter()
	c.AdjustHappiness(-45)
	before := c.Stats()
	mood := c.Mood()

	res := c.GrantExperience(0)
	assert.Equal(t, 0, res.LevelsGained)
	assert.Equal(t, before, c.Stats())
	assert.Equal(t, mood, c.Mood())

	c.GrantExperience(-10)
	assert.Equal(t, before, c.Stats())
}

func TestGrantExperience_LevelUpRaisesHappinessAndRate(t *testing.T) {
	c := newStarter()
	c.AdjustHappiness(-50)
	require.Equal(t, MoodNeutral, c.Mood())

	c.GrantExperience(100)
	assert.Equal(t, 55.0, c.Stats().Happiness)
	assert.Equal(t, MoodNeutral, c.Mood())

	c.GrantExperience(282 + 519)
	assert.Equal(t, 65.0, c.Stats().Happiness)
	assert.Equal(t, MoodContent, c.Mood(), "mood follows happiness on level-up")
}

func TestGrantExperience_HappinessBonusClamped(t *testing.T) {
	c := newStarter()
	c.GrantExperience(100)
	assert.Equal(t, 100.0, c.Stats().Happiness)
}

func TestGrantExperience_EvolutionSignal(t *testing.T) {
	c := Restore("c1", StarterSpecies(), "", t0, false, Stats{Level: 15, Happiness: 100})
	res := c.GrantExperience(RequiredExperience(15))
	assert.True(t, res.EvolutionReady)
	assert.True(t, c.CanEvolve())

	// No evolution level configured → never ready.
	sp, ok := SpeciesByID(137)
	require.True(t, ok)
	p := Restore("c2", sp, "", t0, false, Stats{Level: 99, Happiness: 100})
	assert.False(t, p.GrantExperience(10).EvolutionReady)
}

func TestGrantExperience_InvariantsHoldUnderRandomGrants(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	c := newStarter()
	prevLevel := c.Level()
	for i := 0; i < 2000; i++ {
		c.GrantExperience(int64(r.IntN(600)))
		s := c.Stats()
		require.GreaterOrEqual(t, s.Experience, int64(0))
		require.Less(t, s.Experience, s.ExperienceToNext)
		require.GreaterOrEqual(t, s.Level, prevLevel)
		require.Equal(t, RequiredExperience(s.Level), s.ExperienceToNext)
		prevLevel = s.Level
	}
}

func TestGenerateCurrency_Formula(t *testing.T) {
	c := newStarter()
	assert.Equal(t, int64(10), c.GenerateCurrency(10))
	assert.Equal(t, int64(10), c.Stats().TotalCurrencyGenerated)
}

func TestGenerateCurrency_HappinessAndFriendship(t *testing.T) {
	c := Restore("c", StarterSpecies(), "", t0, false, Stats{Level: 10, Happiness: 50, Friendship: 35})
	// floor(2 * 0.5 * (1 + 3*0.1) * 10) = floor(13.0..) = 13
	assert.Equal(t, int64(13), c.GenerateCurrency(10))
}

func TestGenerateCurrency_ZeroMultiplier(t *testing.T) {
	c := newStarter()
	for i := 0; i < 3; i++ {
		assert.Equal(t, int64(0), c.GenerateCurrency(0))
	}
	assert.Equal(t, int64(0), c.Stats().TotalCurrencyGenerated)
	assert.Equal(t, int64(0), c.GenerateCurrency(-5))
}

func TestGenerateCurrency_FractionalFloors(t *testing.T) {
	c := newStarter()
	assert.Equal(t, int64(0), c.GenerateCurrency(0.5))
}

func TestAffinity_Clamped(t *testing.T) {
	c := newStarter()
	c.AdjustFriendship(1e6)
	assert.Equal(t, 100.0, c.Stats().Friendship)
	c.AdjustFriendship(-1e6)
	assert.Equal(t, 0.0, c.Stats().Friendship)

	c.AdjustHappiness(1e6)
	assert.Equal(t, 100.0, c.Stats().Happiness)
	c.AdjustHappiness(-1e6)
	assert.Equal(t, 0.0, c.Stats().Happiness)
	assert.Equal(t, MoodUnhappy, c.Mood())
}

func TestMoodFor_Thresholds(t *testing.T) {
	cases := []struct {
		happiness float64
		want      Mood
	}{
		{100, MoodJoyful},
		{80, MoodJoyful},
		{79.9, MoodContent},
		{60, MoodContent},
		{59, MoodNeutral},
		{30, MoodNeutral},
		{29.5, MoodUnhappy},
		{0, MoodUnhappy},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MoodFor(tc.happiness), "happiness %v", tc.happiness)
	}
}

func TestRestore_RecomputesDerivedFields(t *testing.T) {
	c := Restore("id-1", StarterSpecies(), "Zap", t0, true, Stats{
		Level:            3,
		Experience:       40,
		ExperienceToNext: 1,
		Happiness:        70,
		CurrencyRate:     99,
	})
	s := c.Stats()
	assert.Equal(t, "id-1", c.ID)
	assert.True(t, c.IsActive())
	assert.Equal(t, int64(519), s.ExperienceToNext)
	assert.Equal(t, int64(1), s.CurrencyRate)
	assert.Equal(t, MoodContent, c.Mood())
}

func TestRestore_OutOfRangeSelfCorrects(t *testing.T) {
	c := Restore("id", StarterSpecies(), "", t0, false, Stats{Level: 0, Happiness: 140, Friendship: -3})
	assert.Equal(t, 1, c.Level())
	assert.Equal(t, 140.0, c.Stats().Happiness, "lenient until the next clamp")

	c.AdjustHappiness(0)
	c.AdjustFriendship(0)
	assert.Equal(t, 100.0, c.Stats().Happiness)
	assert.Equal(t, 0.0, c.Stats().Friendship)
}

func TestRequiredExperience_Saturates(t *testing.T) {
	assert.Positive(t, RequiredExperience(MaxLevel))
	assert.Equal(t, int64(math.MaxInt64), RequiredExperience(math.MaxInt))
}

func TestRestore_ClampsLevel(t *testing.T) {
	c := Restore("id", StarterSpecies(), "", t0, true, Stats{Level: 300000000000, Happiness: 50})
	s := c.Stats()
	assert.Equal(t, MaxLevel, s.Level)
	assert.Equal(t, RequiredExperience(MaxLevel), s.ExperienceToNext)
	assert.Positive(t, s.ExperienceToNext)
}

func TestGrantExperience_StopsAtMaxLevel(t *testing.T) {
	c := Restore("id", StarterSpecies(), "", t0, true, Stats{Level: MaxLevel, Happiness: 50})
	res := c.GrantExperience(math.MaxInt64 / 2)
	s := c.Stats()
	assert.Zero(t, res.LevelsGained)
	assert.Equal(t, MaxLevel, s.Level)
	assert.Less(t, s.Experience, s.ExperienceToNext)
}

func TestGrantExperience_NoOverflow(t *testing.T) {
	c := Restore("id", StarterSpecies(), "", t0, true, Stats{Level: 1, Experience: math.MaxInt64 - 1, Happiness: 50})
	c.GrantExperience(25)
	s := c.Stats()
	assert.Equal(t, MaxLevel, s.Level)
	assert.GreaterOrEqual(t, s.Experience, int64(0))
	assert.Less(t, s.Experience, s.ExperienceToNext)
}

func TestCatalog(t *testing.T) {
	s := StarterSpecies()
	assert.Equal(t, StarterSpeciesID, s.ID)
	assert.True(t, s.AppearsIn("forest"))
	assert.False(t, s.AppearsIn("ocean"))

	ocean := SpeciesForZone("ocean")
	require.Len(t, ocean, 1)
	assert.Equal(t, "Squirtle", ocean[0].Name)

	_, ok := SpeciesByID(-1)
	assert.False(t, ok)

	// Lookups hand out copies.
	s.Biomes[0] = "moon"
	assert.True(t, StarterSpecies().AppearsIn("forest"))
}

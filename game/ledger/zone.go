package ledger

import "time"

const DefaultZone = "forest"

// ZoneProgress tracks the player's activity in one zone.
type ZoneProgress struct {
	ZoneID       string
	Name         string
	MinutesSpent float64
	Encounters   int64
	Captures     int64
	Unlocked     bool
}

var zoneDefaults = []ZoneProgress{
	{ZoneID: "forest", Name: "Forest", Unlocked: true},
	{ZoneID: "cave", Name: "Cave"},
	{ZoneID: "ocean", Name: "Ocean"},
	{ZoneID: "laboratory", Name: "Laboratory"},
	{ZoneID: "library", Name: "Library"},
	{ZoneID: "garden", Name: "Garden"},
}

// KnownZone reports whether id is one of the built-in zones.
func KnownZone(id string) bool {
	for _, z := range zoneDefaults {
		if z.ZoneID == id {
			return true
		}
	}
	return false
}

func defaultZones() map[string]*ZoneProgress {
	m := make(map[string]*ZoneProgress, len(zoneDefaults))
	for _, z := range zoneDefaults {
		zc := z
		m[z.ZoneID] = &zc
	}
	return m
}

// Achievement is a progress counter that unlocks once it reaches MaxProgress.
type Achievement struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Progress    int64
	MaxProgress int64
	Unlocked    bool
	UnlockedAt  *time.Time
}

func (a *Achievement) setProgress(p int64, now time.Time) {
	if p < 0 {
		p = 0
	}
	if p > a.MaxProgress {
		p = a.MaxProgress
	}
	a.Progress = p
	if !a.Unlocked && a.Progress >= a.MaxProgress {
		a.Unlocked = true
		t := now
		a.UnlockedAt = &t
	}
}

func (a *Achievement) copy() Achievement {
	c := *a
	if a.UnlockedAt != nil {
		t := *a.UnlockedAt
		c.UnlockedAt = &t
	}
	return c
}

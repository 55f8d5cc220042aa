package companion

// Mood is a classification of happiness. It is always derived, never stored
// independently of the happiness value it came from.
type Mood string

const (
	MoodJoyful  Mood = "joyful"
	MoodContent Mood = "content"
	MoodNeutral Mood = "neutral"
	MoodUnhappy Mood = "unhappy"
)

// MoodFor maps a happiness value to its mood tier.
func MoodFor(happiness float64) Mood {
	switch {
	case happiness >= 80:
		return MoodJoyful
	case happiness >= 60:
		return MoodContent
	case happiness >= 30:
		return MoodNeutral
	default:
		return MoodUnhappy
	}
}

// Valid reports whether m is one of the known tiers.
func (m Mood) Valid() bool {
	switch m {
	case MoodJoyful, MoodContent, MoodNeutral, MoodUnhappy:
		return true
	}
	return false
}

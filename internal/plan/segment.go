package plan

import "strings"

// Energy describes the pacing of a segment's visuals. It is advisory
// metadata set by upstream script generation; the compiler uses it to
// pick caption styling.
type Energy string

const (
	EnergyLow    Energy = "low"
	EnergyMedium Energy = "medium"
	EnergyHigh   Energy = "high"
)

// ContentSegment is one narrated beat of the ad script. NominalDuration
// is advisory until reconciliation; zero means "estimate from the text".
type ContentSegment struct {
	ID              string  `yaml:"id"`
	Narration       string  `yaml:"narration"`
	VisualHint      string  `yaml:"visual_hint"`
	NominalDuration float64 `yaml:"nominal_duration"`
	Energy          Energy  `yaml:"energy"`
}

// Reference speaking rate for duration estimation, in words per second.
const speakingRate = 2.5

// minEstimatedDuration keeps very short lines from producing unusably
// brief scenes.
const minEstimatedDuration = 2.0

// EstimateDuration converts narration text into an estimated spoken
// duration at the reference speaking rate. Used when no measured audio
// exists yet.
func EstimateDuration(narration string) float64 {
	words := float64(WordCount(narration))
	est := words / speakingRate
	if est < minEstimatedDuration {
		return minEstimatedDuration
	}
	return est
}

// WordCount counts whitespace-separated words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

package captions

import (
	"math"
	"strings"
)

// Chunk is one on-screen caption unit: at most three words with the
// time window they are displayed in. Windows are contiguous; the last
// chunk ends exactly at the measured audio duration.
type Chunk struct {
	Text  string
	Start float64
	End   float64
}

const (
	chunkWords       = 3
	interChunkGap    = 0.05
	minChunkDuration = 0.5
)

// Filler tokens stripped during normalization. Captions read as
// continuous phrases, not transcripts.
var fillerWords = map[string]struct{}{
	"um": {}, "umm": {}, "uh": {}, "uhh": {}, "er": {}, "ah": {}, "hmm": {},
}

// Normalize splits narration into caption words: whitespace collapsed,
// filler tokens removed, terminal punctuation dropped.
func Normalize(narration string) []string {
	fields := strings.Fields(narration)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.TrimRight(f, ".,!?;:…")
		if w == "" {
			continue
		}
		if _, filler := fillerWords[strings.ToLower(w)]; filler {
			continue
		}
		words = append(words, w)
	}
	return words
}

// Synchronize splits narration into 3-word chunks and assigns each a
// time window derived from the measured audio duration. The schedule is
// independent of the video timeline: chunk times are local to the
// segment's audio.
func Synchronize(narration string, measuredDuration float64) []Chunk {
	words := Normalize(narration)
	if len(words) == 0 || measuredDuration <= 0 {
		return nil
	}

	var groups [][]string
	for i := 0; i < len(words); i += chunkWords {
		end := i + chunkWords
		if end > len(words) {
			end = len(words)
		}
		groups = append(groups, words[i:end])
	}
	n := len(groups)

	// Proportional duration per chunk at the measured speaking rate.
	wps := float64(len(words)) / measuredDuration
	durations := make([]float64, n)
	for i, g := range groups {
		durations[i] = float64(len(g)) / wps
	}

	// Fold the inter-chunk gap forward; the budget would overflow, so
	// the last chunk pays for it.
	if n > 1 {
		for i := 0; i < n-1; i++ {
			durations[i] += interChunkGap
		}
		durations[n-1] -= interChunkGap * float64(n-1)
		if durations[n-1] < 0 {
			durations[n-1] = 0
		}
	}

	// Enforce the minimum display duration by borrowing from later
	// chunks. A chunk only grows by what could actually be funded, so
	// the running total never overflows the measured duration.
	for i := 0; i < n; i++ {
		if durations[i] >= minChunkDuration {
			continue
		}
		need := minChunkDuration - durations[i]
		for j := i + 1; j < n && need > 0; j++ {
			avail := durations[j] - minChunkDuration
			if avail <= 0 {
				continue
			}
			take := math.Min(avail, need)
			durations[j] -= take
			need -= take
		}
		durations[i] = minChunkDuration - need
	}

	chunks := make([]Chunk, n)
	start := 0.0
	for i, g := range groups {
		end := start + durations[i]
		if i == n-1 {
			end = measuredDuration
		}
		chunks[i] = Chunk{Text: strings.Join(g, " "), Start: start, End: end}
		start = end
	}
	return chunks
}

package plan

import (
	"hash/fnv"
	"strings"
)

// TransitionKind names a visual transition between two scenes.
type TransitionKind string

const (
	TransitionFade      TransitionKind = "fade"
	TransitionCrossfade TransitionKind = "crossfade"
	TransitionDissolve  TransitionKind = "dissolve"
	TransitionWipe      TransitionKind = "wipe"
	TransitionSlide     TransitionKind = "slide"
	TransitionZoom      TransitionKind = "zoom"
	TransitionRotate    TransitionKind = "rotate"
)

// Fixed per-kind durations in seconds.
var transitionDurations = map[TransitionKind]float64{
	TransitionFade:      0.5,
	TransitionCrossfade: 0.8,
	TransitionDissolve:  0.6,
	TransitionWipe:      0.4,
	TransitionSlide:     0.3,
	TransitionZoom:      0.7,
	TransitionRotate:    0.5,
}

// Duration returns the fixed duration of the transition kind.
func (k TransitionKind) Duration() float64 {
	return transitionDurations[k]
}

type hintClass int

const (
	classProduct hintClass = iota
	classHuman
	classAction
	classLifestyle
	classGeneric
)

// Keyword sets for hint classification. Matching is case-insensitive
// substring membership; first class with a hit wins.
var hintKeywords = []struct {
	class    hintClass
	keywords []string
}{
	{classProduct, []string{"product", "packshot", "bottle", "device", "close-up", "closeup", "packaging", "logo", "label"}},
	{classHuman, []string{"person", "face", "woman", "man", "people", "customer", "portrait", "smile", "hands", "testimonial"}},
	{classAction, []string{"running", "jump", "sport", "workout", "drive", "fast", "action", "motion", "dynamic"}},
	{classLifestyle, []string{"home", "kitchen", "office", "beach", "city", "morning", "family", "friends", "cafe"}},
}

func classifyHint(hint string) hintClass {
	h := strings.ToLower(hint)
	for _, set := range hintKeywords {
		for _, kw := range set.keywords {
			if strings.Contains(h, kw) {
				return set.class
			}
		}
	}
	return classGeneric
}

// Kinds not produced by the explicit rule table; the hash tie-break
// selects among these.
var fallbackTransitions = []TransitionKind{
	TransitionFade,
	TransitionSlide,
	TransitionRotate,
}

// SelectTransition maps the semantics of two adjacent scenes to a
// transition kind. The function is pure: identical hints always produce
// the identical kind. The hash fallback is a stable pseudo-choice that
// spreads non-rule pairs across the remaining kinds; it is not meant to
// be uniform or random.
func SelectTransition(fromHint, toHint string) TransitionKind {
	from := classifyHint(fromHint)
	to := classifyHint(toHint)

	switch {
	case from == classProduct && to == classHuman:
		return TransitionDissolve
	case from == classHuman && to == classAction:
		return TransitionWipe
	case from == classAction && to == classProduct:
		return TransitionZoom
	case from == to:
		return TransitionCrossfade
	}

	h := fnv.New32a()
	h.Write([]byte(fromHint + toHint))
	return fallbackTransitions[int(h.Sum32())%len(fallbackTransitions)]
}

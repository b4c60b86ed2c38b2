package plan

import (
	"errors"
	"fmt"
)

// ErrEmptyTimeline is returned when there is nothing to schedule.
var ErrEmptyTimeline = errors.New("plan: timeline has no content")

// InfeasibleDurationError is returned when the target duration cannot
// accommodate the transition and trailing overhead without pushing a
// scene below the minimum scene duration. The caller must regenerate
// the plan; the reconciler never drops scenes on its own.
type InfeasibleDurationError struct {
	Target         float64
	Overhead       float64 // transitions + trailing
	MinScene       float64
	ShortestScaled float64
}

func (e *InfeasibleDurationError) Error() string {
	return fmt.Sprintf("plan: target %.2fs infeasible: %.2fs overhead leaves shortest scene at %.2fs (min %.2fs)",
		e.Target, e.Overhead, e.ShortestScaled, e.MinScene)
}

// DurationExceedsMaxError is returned when the target exceeds the
// configured maximum total duration.
type DurationExceedsMaxError struct {
	Target float64
	Max    float64
}

func (e *DurationExceedsMaxError) Error() string {
	return fmt.Sprintf("plan: target duration %.2fs exceeds maximum %.2fs", e.Target, e.Max)
}

// Reconciler turns a sequence of content segments and a hard target
// duration into a duration-exact timeline of scenes, transitions and
// the trailing end card.
type Reconciler struct {
	MinSceneDuration float64
	MaxTotalDuration float64
	TrailingDuration float64
	RequireTrailing  bool
}

// NewReconciler creates a Reconciler with default settings.
func NewReconciler() *Reconciler {
	return &Reconciler{
		MinSceneDuration: 1.0,
		MaxTotalDuration: 60.0,
		TrailingDuration: 2.0,
		RequireTrailing:  true,
	}
}

// Reconcile produces the ordered timeline for the given segments so
// that the end of the last item equals target exactly. Scene durations
// are the segments' nominal durations scaled by a single factor;
// transitions and the trailing segment keep their fixed durations.
func (r *Reconciler) Reconcile(segments []ContentSegment, target float64) ([]Item, error) {
	if len(segments) == 0 {
		return nil, ErrEmptyTimeline
	}
	if r.MaxTotalDuration > 0 && target > r.MaxTotalDuration {
		return nil, &DurationExceedsMaxError{Target: target, Max: r.MaxTotalDuration}
	}

	nominal := make([]float64, len(segments))
	allZero := true
	for i, seg := range segments {
		nominal[i] = seg.NominalDuration
		if seg.NominalDuration > 0 {
			allZero = false
		}
	}
	if allZero {
		for i, seg := range segments {
			nominal[i] = EstimateDuration(seg.Narration)
		}
	}

	rawTotal := 0.0
	for _, d := range nominal {
		rawTotal += d
	}
	if rawTotal == 0 {
		return nil, ErrEmptyTimeline
	}

	// Pick transitions for adjacent pairs up front; their durations are
	// part of the overhead the scenes must be scaled around.
	transitions := make([]TransitionKind, 0, len(segments)-1)
	transTotal := 0.0
	for i := 0; i+1 < len(segments); i++ {
		kind := SelectTransition(segments[i].VisualHint, segments[i+1].VisualHint)
		transitions = append(transitions, kind)
		transTotal += kind.Duration()
	}

	trailing := 0.0
	if r.RequireTrailing {
		trailing = r.TrailingDuration
	}

	overhead := transTotal + trailing
	k := (target - overhead) / rawTotal
	if k <= 0 {
		return nil, &InfeasibleDurationError{
			Target:   target,
			Overhead: overhead,
			MinScene: r.MinSceneDuration,
		}
	}

	scaled := make([]float64, len(nominal))
	shortest := nominal[0] * k
	for i, d := range nominal {
		scaled[i] = d * k
		if scaled[i] < shortest {
			shortest = scaled[i]
		}
	}
	if shortest < r.MinSceneDuration {
		return nil, &InfeasibleDurationError{
			Target:         target,
			Overhead:       overhead,
			MinScene:       r.MinSceneDuration,
			ShortestScaled: shortest,
		}
	}

	// Assign start times by a running offset. Transitions are explicit
	// items so the bookkeeping stays in one place; the compiler realizes
	// their overlap windows when it extends the neighbouring clips.
	items := make([]Item, 0, 2*len(segments))
	offset := 0.0
	for i, seg := range segments {
		items = append(items, Item{
			Kind:      KindScene,
			Start:     offset,
			Duration:  scaled[i],
			SegmentID: seg.ID,
			Energy:    seg.Energy,
		})
		offset += scaled[i]

		if i < len(transitions) {
			kind := transitions[i]
			items = append(items, Item{
				Kind:       KindTransition,
				Start:      offset,
				Duration:   kind.Duration(),
				Transition: kind,
				FromID:     seg.ID,
				ToID:       segments[i+1].ID,
			})
			offset += kind.Duration()
		}
	}

	if r.RequireTrailing {
		items = append(items, Item{
			Kind:      KindTrailing,
			Start:     offset,
			Duration:  trailing,
			Mandatory: true,
		})
		offset += trailing
	}

	return items, nil
}

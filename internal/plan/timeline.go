package plan

// Kind tags a timeline item. Keeping the variants closed lets the
// compiler switch exhaustively instead of probing free-form maps.
type Kind string

const (
	KindScene      Kind = "scene"
	KindTransition Kind = "transition"
	KindTrailing   Kind = "trailing"
)

// Item is one entry of a reconciled timeline. Items are contiguous and
// non-overlapping: each item starts exactly where the previous one ends.
// Transition overlap with its neighbouring scenes is realized at compile
// time, not in the timeline bookkeeping.
type Item struct {
	Kind     Kind    `yaml:"kind"`
	Start    float64 `yaml:"start"`
	Duration float64 `yaml:"duration"`

	// Scene fields.
	SegmentID string `yaml:"segment_id,omitempty"`
	Energy    Energy `yaml:"energy,omitempty"`

	// Transition fields.
	Transition TransitionKind `yaml:"transition,omitempty"`
	FromID     string         `yaml:"from_id,omitempty"`
	ToID       string         `yaml:"to_id,omitempty"`

	// Trailing fields.
	Mandatory bool `yaml:"mandatory,omitempty"`
}

// End returns the end time of the item on the timeline.
func (it Item) End() float64 {
	return it.Start + it.Duration
}

// Total returns the reconciled total duration, i.e. the end of the last
// item. An empty timeline has total zero.
func Total(items []Item) float64 {
	if len(items) == 0 {
		return 0
	}
	return items[len(items)-1].End()
}

// Scenes returns the scene items in timeline order.
func Scenes(items []Item) []Item {
	var out []Item
	for _, it := range items {
		if it.Kind == KindScene {
			out = append(out, it)
		}
	}
	return out
}

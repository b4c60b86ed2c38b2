package renderer

import (
	"fmt"
	"regexp"
	"strings"
)

// Op is a closed set of media-processing operations. The graph is built
// from typed nodes first and only serialized to ffmpeg's filtergraph
// micro-language as a final emission step, so integrity checks run
// before any text exists.
type Op string

const (
	OpScale     Op = "scale"
	OpPad       Op = "pad"
	OpDrawText  Op = "drawtext"
	OpOverlay   Op = "overlay"
	OpCrossfade Op = "crossfade"
	OpConcat    Op = "concat"
	OpVolume    Op = "volume"
	OpMix       Op = "mix"
)

// filterNames maps ops to the encoder's filter names.
var filterNames = map[Op]string{
	OpScale:     "scale",
	OpPad:       "pad",
	OpDrawText:  "drawtext",
	OpOverlay:   "overlay",
	OpCrossfade: "xfade",
	OpConcat:    "concat",
	OpVolume:    "volume",
	OpMix:       "amix",
}

// Param is one key=value filter parameter. Params are ordered so that
// emission is byte-stable for identical inputs.
type Param struct {
	Key   string
	Value string
}

// Node is a single filter invocation: it consumes input labels (either
// raw input streams like "0:v" or labels produced by earlier nodes) and
// produces exactly one labeled output.
type Node struct {
	Label  string
	Op     Op
	Inputs []string
	Params []Param
}

// Graph accumulates nodes in topological order. Label generation is the
// graph's responsibility; the counter lives on the graph, never in
// process-wide state, so concurrent compiles cannot collide.
type Graph struct {
	nodes    []Node
	counters map[string]int
}

func NewGraph() *Graph {
	return &Graph{counters: make(map[string]int)}
}

// NextLabel returns a fresh label for the prefix: v0, v1, a0, t0, ...
func (g *Graph) NextLabel(prefix string) string {
	n := g.counters[prefix]
	g.counters[prefix] = n + 1
	return fmt.Sprintf("%s%d", prefix, n)
}

// Add appends a node with a generated label and returns that label.
func (g *Graph) Add(op Op, labelPrefix string, inputs []string, params ...Param) string {
	label := g.NextLabel(labelPrefix)
	g.nodes = append(g.nodes, Node{Label: label, Op: op, Inputs: inputs, Params: params})
	return label
}

// Nodes returns the node list in insertion (topological) order.
func (g *Graph) Nodes() []Node {
	return g.nodes
}

// GraphIntegrityError reports a structurally invalid graph: duplicate
// labels, forward or dangling references, or unknown stream inputs.
type GraphIntegrityError struct {
	Label  string
	Reason string
}

func (e *GraphIntegrityError) Error() string {
	if e.Label == "" {
		return "renderer: graph integrity: " + e.Reason
	}
	return fmt.Sprintf("renderer: graph integrity at [%s]: %s", e.Label, e.Reason)
}

var streamRefPattern = regexp.MustCompile(`^(\d+):[va]$`)

// isStreamRef reports whether the label denotes a raw input stream
// ("0:v", "2:a") rather than a node output.
func isStreamRef(label string) bool {
	return streamRefPattern.MatchString(label)
}

// Validate checks the single-writer, topologically-ordered invariant:
// every node input is either a raw stream of one of the inputCount
// inputs or a label produced by an earlier node, and no two nodes share
// a label.
func (g *Graph) Validate(inputCount int) error {
	defined := make(map[string]struct{}, len(g.nodes))
	for _, n := range g.nodes {
		if n.Label == "" {
			return &GraphIntegrityError{Reason: "node without label"}
		}
		if _, dup := defined[n.Label]; dup {
			return &GraphIntegrityError{Label: n.Label, Reason: "label defined twice"}
		}
		if _, known := filterNames[n.Op]; !known {
			return &GraphIntegrityError{Label: n.Label, Reason: fmt.Sprintf("unknown op %q", n.Op)}
		}
		if len(n.Inputs) == 0 {
			return &GraphIntegrityError{Label: n.Label, Reason: "node has no inputs"}
		}
		for _, in := range n.Inputs {
			if m := streamRefPattern.FindStringSubmatch(in); m != nil {
				var idx int
				fmt.Sscanf(m[1], "%d", &idx)
				if idx >= inputCount {
					return &GraphIntegrityError{Label: n.Label, Reason: fmt.Sprintf("input stream %s beyond %d inputs", in, inputCount)}
				}
				continue
			}
			if _, ok := defined[in]; !ok {
				return &GraphIntegrityError{Label: n.Label, Reason: fmt.Sprintf("input [%s] not produced by an earlier node", in)}
			}
		}
		defined[n.Label] = struct{}{}
	}
	return nil
}

// Defines reports whether the graph produces the given label.
func (g *Graph) Defines(label string) bool {
	for _, n := range g.nodes {
		if n.Label == label {
			return true
		}
	}
	return false
}

// String emits the graph in the encoder's filtergraph micro-language:
// `;`-separated statements with `[label]` bracket syntax.
func (g *Graph) String() string {
	var b strings.Builder
	for i, n := range g.nodes {
		if i > 0 {
			b.WriteString(";")
		}
		for _, in := range n.Inputs {
			b.WriteString("[")
			b.WriteString(in)
			b.WriteString("]")
		}
		b.WriteString(filterNames[n.Op])
		for j, p := range n.Params {
			if j == 0 {
				b.WriteString("=")
			} else {
				b.WriteString(":")
			}
			b.WriteString(p.Key)
			b.WriteString("=")
			b.WriteString(p.Value)
		}
		b.WriteString("[")
		b.WriteString(n.Label)
		b.WriteString("]")
	}
	return b.String()
}

// drawTextEscaper escapes user-supplied text for a drawtext value.
// Quotes, colons and backslashes would otherwise corrupt the graph
// string; commas, semicolons, brackets and percent signs are filter
// metacharacters too.
var drawTextEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`:`, `\:`,
	`,`, `\,`,
	`;`, `\;`,
	`[`, `\[`,
	`]`, `\]`,
	`%`, `\%`,
	`=`, `\=`,
)

// EscapeText escapes arbitrary caption/brand text so it can be embedded
// in a drawtext parameter value.
func EscapeText(s string) string {
	return drawTextEscaper.Replace(s)
}

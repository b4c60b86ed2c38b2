package renderer

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/adreel/adreel/internal/assets"
	"github.com/adreel/adreel/internal/captions"
	"github.com/adreel/adreel/internal/plan"
)

func compileFixture(t *testing.T, segments []plan.ContentSegment, target float64, requireTrailing bool) ([]plan.Item, *assets.Resolved, map[string][]captions.Chunk) {
	t.Helper()
	r := plan.NewReconciler()
	r.RequireTrailing = requireTrailing
	items, err := r.Reconcile(segments, target)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	res := &assets.Resolved{
		Audio:   make(map[string]assets.AudioAsset),
		Footage: make(map[string]string),
	}
	caps := make(map[string][]captions.Chunk)
	for _, seg := range segments {
		res.Audio[seg.ID] = assets.AudioAsset{
			SegmentID:        seg.ID,
			Path:             "/assets/" + seg.ID + ".mp3",
			MeasuredDuration: seg.NominalDuration,
		}
		res.Footage[seg.ID] = "/assets/" + seg.ID + ".mp4"
		caps[seg.ID] = captions.Synchronize(seg.Narration, seg.NominalDuration)
	}
	if requireTrailing {
		res.EndCard = "/assets/endcard.png"
	}
	return items, res, caps
}

func adSegments() []plan.ContentSegment {
	return []plan.ContentSegment{
		{ID: "hook", Narration: "Stop scrolling for one second", VisualHint: "woman smiling portrait", NominalDuration: 4, Energy: plan.EnergyHigh},
		{ID: "body", Narration: "This bottle keeps drinks cold all day long", VisualHint: "product bottle close-up", NominalDuration: 5, Energy: plan.EnergyMedium},
		{ID: "cta", Narration: "Order yours today", VisualHint: "product packshot with logo", NominalDuration: 3, Energy: plan.EnergyLow},
	}
}

func TestCompileSingleSceneShortCircuits(t *testing.T) {
	segments := []plan.ContentSegment{
		{ID: "only", Narration: "Just one scene here", VisualHint: "product shot", NominalDuration: 5},
	}
	items, res, caps := compileFixture(t, segments, 10.0, false)

	prog, err := Compile(items, res, caps, DefaultOptions(), "/out/ad.mp4")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	for _, n := range prog.Graph.Nodes() {
		if n.Op == OpConcat {
			t.Errorf("Single chain must not emit a concat node, found [%s]", n.Label)
		}
		if n.Op == OpCrossfade {
			t.Errorf("Single scene must not emit transitions, found [%s]", n.Label)
		}
	}
	if prog.AudioOut != "1:a" {
		t.Errorf("Expected direct audio map 1:a, got %s", prog.AudioOut)
	}
}

func TestCompilePurity(t *testing.T) {
	items, res, caps := compileFixture(t, adSegments(), 20.0, true)

	first, err := Compile(items, res, caps, DefaultOptions(), "/out/ad.mp4")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	second, err := Compile(items, res, caps, DefaultOptions(), "/out/ad.mp4")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if strings.Join(first.Argv, "\x00") != strings.Join(second.Argv, "\x00") {
		t.Error("Compiling the same timeline twice produced different argv")
	}
}

func TestCompileCrossfadeOffsets(t *testing.T) {
	items, res, caps := compileFixture(t, adSegments(), 20.0, true)

	prog, err := Compile(items, res, caps, DefaultOptions(), "/out/ad.mp4")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	var transItems []plan.Item
	for _, it := range items {
		if it.Kind == plan.KindTransition {
			transItems = append(transItems, it)
		}
	}

	var fadeNodes []Node
	for _, n := range prog.Graph.Nodes() {
		if n.Op == OpCrossfade {
			fadeNodes = append(fadeNodes, n)
		}
	}
	if len(fadeNodes) != len(transItems) {
		t.Fatalf("Expected %d crossfade nodes, got %d", len(transItems), len(fadeNodes))
	}

	for i, n := range fadeNodes {
		var offset string
		for _, p := range n.Params {
			if p.Key == "offset" {
				offset = p.Value
			}
		}
		if offset != fmtSec(transItems[i].Start) {
			t.Errorf("Crossfade %d offset = %s, expected %s (transition start)", i, offset, fmtSec(transItems[i].Start))
		}
	}
}

func TestCompileClipExtension(t *testing.T) {
	items, res, caps := compileFixture(t, adSegments(), 20.0, true)

	prog, err := Compile(items, res, caps, DefaultOptions(), "/out/ad.mp4")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	var scenes, trans []plan.Item
	for _, it := range items {
		switch it.Kind {
		case plan.KindScene:
			scenes = append(scenes, it)
		case plan.KindTransition:
			trans = append(trans, it)
		}
	}

	// Middle scene's clip covers both adjacent transition windows.
	middle := prog.Inputs[1]
	if len(middle.Opts) != 2 || middle.Opts[0] != "-t" {
		t.Fatalf("Expected [-t dur] options for video footage, got %v", middle.Opts)
	}
	want := scenes[1].Duration + trans[0].Duration + trans[1].Duration
	if middle.Opts[1] != fmtSec(want) {
		t.Errorf("Middle clip length %s, expected %s", middle.Opts[1], fmtSec(want))
	}
}

func TestCompileTrailingConcat(t *testing.T) {
	items, res, caps := compileFixture(t, adSegments(), 20.0, true)

	prog, err := Compile(items, res, caps, DefaultOptions(), "/out/ad.mp4")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	var videoConcat *Node
	for i, n := range prog.Graph.Nodes() {
		if n.Op == OpConcat {
			for _, p := range n.Params {
				if p.Key == "v" && p.Value == "1" {
					videoConcat = &prog.Graph.Nodes()[i]
				}
			}
		}
	}
	if videoConcat == nil {
		t.Fatal("Expected a video concat joining the scene chain and end card")
	}
	if len(videoConcat.Inputs) != 2 {
		t.Errorf("Expected 2 concat inputs, got %d", len(videoConcat.Inputs))
	}

	foundEndCard := false
	for _, in := range prog.Inputs {
		if in.Path == "/assets/endcard.png" {
			foundEndCard = true
			if in.Opts[0] != "-loop" {
				t.Errorf("End card still should loop, opts: %v", in.Opts)
			}
		}
	}
	if !foundEndCard {
		t.Error("End card input missing")
	}
}

func TestCompileCaptionWindows(t *testing.T) {
	items, res, caps := compileFixture(t, adSegments(), 20.0, true)

	prog, err := Compile(items, res, caps, DefaultOptions(), "/out/ad.mp4")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	draws := 0
	for _, n := range prog.Graph.Nodes() {
		if n.Op == OpDrawText {
			draws++
			var enable string
			for _, p := range n.Params {
				if p.Key == "enable" {
					enable = p.Value
				}
			}
			if !strings.HasPrefix(enable, "'gte(t,") || !strings.Contains(enable, "*lt(t,") {
				t.Errorf("Unexpected enable gate: %s", enable)
			}
		}
	}
	if draws == 0 {
		t.Fatal("Expected drawtext nodes for caption chunks")
	}
}

func TestCompileBackgroundMusic(t *testing.T) {
	items, res, caps := compileFixture(t, adSegments(), 20.0, true)
	res.BackgroundMusic = "/assets/music.mp3"
	res.BackgroundVolume = 0.3

	prog, err := Compile(items, res, caps, DefaultOptions(), "/out/ad.mp4")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	var hasVolume, hasMix bool
	for _, n := range prog.Graph.Nodes() {
		switch n.Op {
		case OpVolume:
			hasVolume = true
		case OpMix:
			hasMix = true
			if prog.AudioOut != n.Label {
				t.Errorf("Audio output should be the mix node, got %s", prog.AudioOut)
			}
		}
	}
	if !hasVolume || !hasMix {
		t.Errorf("Expected volume envelope and amix, got volume=%v mix=%v", hasVolume, hasMix)
	}

	foundLoop := false
	for _, in := range prog.Inputs {
		if in.Path == "/assets/music.mp3" && len(in.Opts) == 2 && in.Opts[0] == "-stream_loop" {
			foundLoop = true
		}
	}
	if !foundLoop {
		t.Error("Background music input should be stream-looped")
	}
}

func TestCompileWatermarkOverlay(t *testing.T) {
	items, res, caps := compileFixture(t, adSegments(), 20.0, true)
	res.Watermark = "/assets/logo.png"

	prog, err := Compile(items, res, caps, DefaultOptions(), "/out/ad.mp4")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	found := false
	for _, n := range prog.Graph.Nodes() {
		if n.Op == OpOverlay {
			found = true
			if prog.VideoOut != n.Label {
				t.Errorf("Video output should be the overlay node, got %s", prog.VideoOut)
			}
		}
	}
	if !found {
		t.Error("Expected overlay node for watermark")
	}
}

func TestCompileMissingFootage(t *testing.T) {
	items, res, caps := compileFixture(t, adSegments(), 20.0, true)
	delete(res.Footage, "body")

	_, err := Compile(items, res, caps, DefaultOptions(), "/out/ad.mp4")
	var missing *assets.MissingAssetError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingAssetError, got %v", err)
	}
	if missing.SegmentID != "body" {
		t.Errorf("Expected segment body, got %s", missing.SegmentID)
	}
}

func TestCompileArgvShape(t *testing.T) {
	items, res, caps := compileFixture(t, adSegments(), 20.0, true)

	prog, err := Compile(items, res, caps, DefaultOptions(), "/out/ad.mp4")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	argv := prog.Argv
	if argv[0] != "ffmpeg" {
		t.Errorf("argv[0] = %s, expected encoder binary", argv[0])
	}
	if argv[len(argv)-1] != "/out/ad.mp4" {
		t.Errorf("argv must end with the output path, got %s", argv[len(argv)-1])
	}

	joined := strings.Join(argv, " ")
	for _, want := range []string{"-filter_complex", "-map", "-c:v libx264", "-pix_fmt yuv420p", "-r 30", "-c:a aac"} {
		if !strings.Contains(joined, want) {
			t.Errorf("argv missing %q: %s", want, joined)
		}
	}

	filters := 0
	for _, a := range argv {
		if a == "-filter_complex" {
			filters++
		}
	}
	if filters != 1 {
		t.Errorf("Expected exactly one -filter_complex, got %d", filters)
	}

	// 3 footage + end card + 3 voice = 7 inputs.
	inputs := 0
	for _, a := range argv {
		if a == "-i" {
			inputs++
		}
	}
	if inputs != 7 {
		t.Errorf("Expected 7 inputs, got %d", inputs)
	}

	swapped := prog.ArgvWithOutput("/tmp/partial.mp4")
	if swapped[len(swapped)-1] != "/tmp/partial.mp4" {
		t.Error("ArgvWithOutput did not replace the output path")
	}
	if argv[len(argv)-1] != "/out/ad.mp4" {
		t.Error("ArgvWithOutput mutated the original argv")
	}
}

func TestCompileTotalMatchesTarget(t *testing.T) {
	items, res, caps := compileFixture(t, adSegments(), 20.0, true)

	prog, err := Compile(items, res, caps, DefaultOptions(), "/out/ad.mp4")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	// The -t bound equals the reconciled total.
	var bound string
	for i, a := range prog.Argv {
		if a == "-t" && i > len(prog.Argv)-4 {
			bound = prog.Argv[i+1]
		}
	}
	if bound != fmtSec(20.0) {
		t.Errorf("Output duration bound %s, expected %s", bound, fmtSec(20.0))
	}
	if math.Abs(plan.Total(items)-20.0) > 1e-6 {
		t.Errorf("Reconciled total %f, expected 20", plan.Total(items))
	}
}

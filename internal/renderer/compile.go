package renderer

import (
	"fmt"
	"strconv"

	"github.com/adreel/adreel/internal/assets"
	"github.com/adreel/adreel/internal/captions"
	"github.com/adreel/adreel/internal/plan"
)

// Options fixes the output canvas and encoder invocation details.
type Options struct {
	Width  int
	Height int
	FPS    int

	FFmpegPath string
	FontFile   string

	// Background music shaping.
	BackgroundVolume float64
	BackgroundFade   float64
}

// DefaultOptions returns the standard vertical-ad canvas.
func DefaultOptions() Options {
	return Options{
		Width:            1080,
		Height:           1920,
		FPS:              30,
		FFmpegPath:       "ffmpeg",
		BackgroundVolume: 0.3,
		BackgroundFade:   1.5,
	}
}

// Input is one `-i` entry of the compiled invocation, with the
// per-input options that precede it (loop/trim bounds).
type Input struct {
	Path string
	Opts []string
}

// Program is a fully compiled, validated encoder invocation. It is
// constructed once per render request, consumed by the invoker, then
// discarded.
type Program struct {
	Inputs     []Input
	Graph      *Graph
	VideoOut   string
	AudioOut   string
	OutputPath string
	Argv       []string
}

// ArgvWithOutput returns the argument vector with the trailing output
// path swapped, so the invoker can render into a private temp path and
// rename on success.
func (p *Program) ArgvWithOutput(path string) []string {
	out := make([]string, len(p.Argv))
	copy(out, p.Argv)
	out[len(out)-1] = path
	return out
}

// Transition kinds mapped onto the encoder's xfade transitions.
var xfadeNames = map[plan.TransitionKind]string{
	plan.TransitionFade:      "fadeblack",
	plan.TransitionCrossfade: "fade",
	plan.TransitionDissolve:  "dissolve",
	plan.TransitionWipe:      "wipeleft",
	plan.TransitionSlide:     "slideleft",
	plan.TransitionZoom:      "zoomin",
	plan.TransitionRotate:    "circleopen",
}

func captionFontSize(e plan.Energy) int {
	switch e {
	case plan.EnergyHigh:
		return 72
	case plan.EnergyLow:
		return 54
	default:
		return 62
	}
}

func fmtSec(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// mapRef formats an output reference for -map: raw input streams stay
// bare, node labels get brackets.
func mapRef(label string) string {
	if isStreamRef(label) {
		return label
	}
	return "[" + label + "]"
}

// Compile turns a reconciled timeline plus resolved assets into the
// encoder program: input list, validated filter graph, output map and
// the full argument vector. Compilation is pure with respect to the
// filesystem; identical inputs produce byte-identical argv.
func Compile(timeline []plan.Item, res *assets.Resolved, caps map[string][]captions.Chunk, opts Options, outputPath string) (*Program, error) {
	var sceneItems, transItems []plan.Item
	var trailingItem *plan.Item
	for i, it := range timeline {
		switch it.Kind {
		case plan.KindScene:
			sceneItems = append(sceneItems, it)
		case plan.KindTransition:
			transItems = append(transItems, it)
		case plan.KindTrailing:
			trailingItem = &timeline[i]
		}
	}
	if len(sceneItems) == 0 {
		return nil, &GraphIntegrityError{Reason: "timeline has no scenes"}
	}
	if want := len(sceneItems) - 1; len(transItems) != want {
		return nil, &GraphIntegrityError{Reason: fmt.Sprintf("%d transitions for %d scenes", len(transItems), len(sceneItems))}
	}

	total := plan.Total(timeline)

	// A transition's window overlaps the tail of its predecessor and the
	// head of its successor by its full duration, so each scene's source
	// clip is extended over its adjacent windows. With that extension a
	// crossfade's offset equals the transition's own timeline start.
	adjBefore := make([]float64, len(sceneItems))
	adjAfter := make([]float64, len(sceneItems))
	for i, tr := range transItems {
		adjAfter[i] = tr.Duration
		adjBefore[i+1] = tr.Duration
	}

	var inputs []Input
	addInput := func(path string, iopts ...string) int {
		inputs = append(inputs, Input{Path: path, Opts: iopts})
		return len(inputs) - 1
	}

	fpsStr := strconv.Itoa(opts.FPS)
	videoIdx := make([]int, len(sceneItems))
	for i, sc := range sceneItems {
		path, ok := res.Footage[sc.SegmentID]
		if !ok {
			return nil, &assets.MissingAssetError{SegmentID: sc.SegmentID, Kind: "footage"}
		}
		clipLen := sc.Duration + adjBefore[i] + adjAfter[i]
		if assets.IsStillImage(path) {
			videoIdx[i] = addInput(path, "-loop", "1", "-framerate", fpsStr, "-t", fmtSec(clipLen))
		} else {
			videoIdx[i] = addInput(path, "-t", fmtSec(clipLen))
		}
	}

	endCardIdx := -1
	if trailingItem != nil {
		if res.EndCard == "" {
			return nil, &assets.MissingAssetError{SegmentID: "trailing", Kind: "end card"}
		}
		endCardIdx = addInput(res.EndCard, "-loop", "1", "-framerate", fpsStr, "-t", fmtSec(trailingItem.Duration))
	}

	watermarkIdx := -1
	if res.Watermark != "" {
		watermarkIdx = addInput(res.Watermark, "-loop", "1", "-framerate", fpsStr, "-t", fmtSec(total))
	}

	audioIdx := make([]int, len(sceneItems))
	for i, sc := range sceneItems {
		a, ok := res.Audio[sc.SegmentID]
		if !ok {
			return nil, &assets.MissingAssetError{SegmentID: sc.SegmentID, Kind: "audio"}
		}
		audioIdx[i] = addInput(a.Path)
	}

	backgroundIdx := -1
	if res.BackgroundMusic != "" {
		backgroundIdx = addInput(res.BackgroundMusic, "-stream_loop", "-1")
	}

	g := NewGraph()
	widthStr := strconv.Itoa(opts.Width)
	heightStr := strconv.Itoa(opts.Height)

	// Scale into the canvas preserving aspect ratio, then letterbox.
	canvasChain := func(streamRef string) string {
		lbl := g.Add(OpScale, "v", []string{streamRef},
			Param{"w", widthStr},
			Param{"h", heightStr},
			Param{"force_original_aspect_ratio", "decrease"})
		return g.Add(OpPad, "v", []string{lbl},
			Param{"w", widthStr},
			Param{"h", heightStr},
			Param{"x", "(ow-iw)/2"},
			Param{"y", "(oh-ih)/2"})
	}

	var chain string
	for i, sc := range sceneItems {
		lbl := canvasChain(fmt.Sprintf("%d:v", videoIdx[i]))

		// Caption windows are audio-local to the segment; on the clip's
		// clock the scene content starts after the leading transition
		// window, hence the adjBefore shift.
		for _, c := range caps[sc.SegmentID] {
			if c.Start >= sc.Duration+adjAfter[i] {
				continue
			}
			params := []Param{
				{"text", "'" + EscapeText(c.Text) + "'"},
			}
			if opts.FontFile != "" {
				params = append(params, Param{"fontfile", opts.FontFile})
			}
			params = append(params,
				Param{"fontsize", strconv.Itoa(captionFontSize(sc.Energy))},
				Param{"fontcolor", "white"},
				Param{"borderw", "3"},
				Param{"bordercolor", "black"},
				Param{"x", "(w-text_w)/2"},
				Param{"y", "h-h/5"},
				Param{"enable", fmt.Sprintf("'gte(t,%s)*lt(t,%s)'", fmtSec(adjBefore[i]+c.Start), fmtSec(adjBefore[i]+c.End))},
			)
			lbl = g.Add(OpDrawText, "v", []string{lbl}, params...)
		}

		if i == 0 {
			chain = lbl
			continue
		}
		tr := transItems[i-1]
		chain = g.Add(OpCrossfade, "t", []string{chain, lbl},
			Param{"transition", xfadeNames[tr.Transition]},
			Param{"duration", fmtSec(tr.Duration)},
			Param{"offset", fmtSec(tr.Start)})
	}

	chains := []string{chain}
	if endCardIdx >= 0 {
		chains = append(chains, canvasChain(fmt.Sprintf("%d:v", endCardIdx)))
	}

	videoOut := chains[0]
	if len(chains) > 1 {
		params := []Param{
			{"n", strconv.Itoa(len(chains))},
			{"v", "1"},
			{"a", "0"},
		}
		videoOut = g.Add(OpConcat, "v", chains, params...)
	}

	if watermarkIdx >= 0 {
		wm := g.Add(OpScale, "v", []string{fmt.Sprintf("%d:v", watermarkIdx)},
			Param{"w", strconv.Itoa(opts.Width / 8)},
			Param{"h", "-1"})
		videoOut = g.Add(OpOverlay, "v", []string{videoOut, wm},
			Param{"x", "main_w-overlay_w-24"},
			Param{"y", "main_h-overlay_h-24"})
	}

	voiceRefs := make([]string, len(sceneItems))
	for i := range sceneItems {
		voiceRefs[i] = fmt.Sprintf("%d:a", audioIdx[i])
	}
	audioOut := voiceRefs[0]
	if len(voiceRefs) > 1 {
		audioOut = g.Add(OpConcat, "a", voiceRefs,
			Param{"n", strconv.Itoa(len(voiceRefs))},
			Param{"v", "0"},
			Param{"a", "1"})
	}

	if backgroundIdx >= 0 {
		vol := opts.BackgroundVolume
		if res.BackgroundVolume > 0 {
			vol = res.BackgroundVolume
		}
		fade := opts.BackgroundFade
		if total < 2*fade {
			fade = total * 0.1
		}
		env := fmt.Sprintf("'%s*if(lte(t,%s),t/%s,if(gte(t,%s),(%s-t)/%s,1))'",
			fmtSec(vol), fmtSec(fade), fmtSec(fade),
			fmtSec(total-fade), fmtSec(total), fmtSec(fade))
		bg := g.Add(OpVolume, "a", []string{fmt.Sprintf("%d:a", backgroundIdx)},
			Param{"volume", env},
			Param{"eval", "frame"})
		audioOut = g.Add(OpMix, "a", []string{audioOut, bg},
			Param{"inputs", "2"},
			Param{"duration", "first"},
			Param{"dropout_transition", "3"})
	}

	if err := g.Validate(len(inputs)); err != nil {
		return nil, err
	}
	if !isStreamRef(videoOut) && !g.Defines(videoOut) {
		return nil, &GraphIntegrityError{Label: videoOut, Reason: "video output label not produced"}
	}
	if !isStreamRef(audioOut) && !g.Defines(audioOut) {
		return nil, &GraphIntegrityError{Label: audioOut, Reason: "audio output label not produced"}
	}

	argv := []string{opts.FFmpegPath, "-y"}
	for _, in := range inputs {
		argv = append(argv, in.Opts...)
		argv = append(argv, "-i", in.Path)
	}
	argv = append(argv,
		"-filter_complex", g.String(),
		"-map", mapRef(videoOut),
		"-map", mapRef(audioOut),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(opts.FPS),
		"-c:a", "aac",
		"-t", fmtSec(total),
		outputPath,
	)

	return &Program{
		Inputs:     inputs,
		Graph:      g,
		VideoOut:   videoOut,
		AudioOut:   audioOut,
		OutputPath: outputPath,
		Argv:       argv,
	}, nil
}

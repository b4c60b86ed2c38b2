// Package engine ties the pipeline together: asset resolution,
// timeline reconciliation, caption synchronization, filter graph
// compilation, and the final render.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adreel/adreel/internal/assets"
	"github.com/adreel/adreel/internal/captions"
	"github.com/adreel/adreel/internal/config"
	"github.com/adreel/adreel/internal/encoder"
	"github.com/adreel/adreel/internal/endcard"
	"github.com/adreel/adreel/internal/plan"
	"github.com/adreel/adreel/internal/renderer"
	"github.com/adreel/adreel/internal/system"
)

// Result is the outcome of one assembled request.
type Result struct {
	RequestID  string
	Success    bool
	OutputPath string
	Duration   float64
	Err        error
}

// Project assembles ads from requests under one configuration.
type Project struct {
	Config  config.Config
	Logger  *slog.Logger
	Tools   system.Tools
	Invoker *encoder.Invoker

	// Probe is swappable for tests; nil uses ffprobe.
	Probe assets.ProbeFunc
}

// NewProject wires a Project from configuration.
func NewProject(cfg config.Config, logger *slog.Logger) *Project {
	tools := system.Tools{FFmpeg: cfg.FFmpegPath, FFprobe: cfg.FFprobePath}
	iv := encoder.NewInvoker(logger)
	if cfg.RenderTimeout > 0 {
		iv.Timeout = time.Duration(cfg.RenderTimeout * float64(time.Second))
	}
	iv.Retries = cfg.RenderRetries
	return &Project{
		Config:  cfg,
		Logger:  logger,
		Tools:   tools,
		Invoker: iv,
		Probe:   tools.ProbeDuration,
	}
}

func (p *Project) reconciler() *plan.Reconciler {
	r := plan.NewReconciler()
	r.MinSceneDuration = p.Config.MinSceneDuration
	r.MaxTotalDuration = p.Config.MaxTotalDuration
	r.TrailingDuration = p.Config.TrailingDuration
	r.RequireTrailing = p.Config.RequireTrailing
	return r
}

// Plan reconciles a request's timeline without touching any assets.
func (p *Project) Plan(req *Request) ([]plan.Item, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return p.reconciler().Reconcile(req.Segments, req.TargetDuration)
}

// Assemble runs the full pipeline for one request and renders the ad.
func (p *Project) Assemble(ctx context.Context, req *Request) Result {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	log := p.Logger.With(slog.String("request", req.ID))
	res := Result{RequestID: req.ID}

	if err := req.Validate(); err != nil {
		res.Err = err
		return res
	}
	outputPath := req.OutputPath
	if outputPath == "" {
		outputPath = filepath.Join(p.Config.OutputDir, req.ID+".mp4")
	}
	res.OutputPath = outputPath
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		res.Err = err
		return res
	}

	resolved, err := assets.Resolve(ctx, req.Segments, req.Audio, req.Footage, p.Probe)
	if err != nil {
		res.Err = err
		return res
	}
	resolved.BackgroundMusic = req.BackgroundMusic
	resolved.BackgroundVolume = req.BackgroundVolume
	if resolved.BackgroundVolume <= 0 {
		resolved.BackgroundVolume = p.Config.BackgroundVolume
	}
	resolved.Watermark = req.Watermark

	if p.Config.RequireTrailing {
		cardPath := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + "_endcard.png"
		card := endcard.Card{
			Brand:      p.Config.Brand.Name,
			CTAText:    p.Config.Brand.CTAText,
			URL:        p.Config.Brand.URL,
			Background: p.Config.Brand.Background,
			Width:      p.Config.Width,
			Height:     p.Config.Height,
		}
		if err := endcard.Generate(card, cardPath); err != nil {
			res.Err = err
			return res
		}
		resolved.EndCard = cardPath
	}

	timeline, err := p.reconciler().Reconcile(req.Segments, req.TargetDuration)
	if err != nil {
		res.Err = err
		return res
	}
	log.Info("timeline reconciled",
		slog.Int("items", len(timeline)),
		slog.Float64("total", plan.Total(timeline)))

	caps := make(map[string][]captions.Chunk, len(req.Segments))
	for _, seg := range req.Segments {
		a := resolved.Audio[seg.ID]
		caps[seg.ID] = captions.Synchronize(seg.Narration, a.MeasuredDuration)
	}

	if p.Config.WritePlanFiles {
		planPath := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + "_plan.yaml"
		if err := plan.WritePlan(timeline, req.TargetDuration, planPath); err != nil {
			log.Warn("plan file not written", slog.String("error", err.Error()))
		}
	}
	if p.Config.WriteCaptions {
		srtPath := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".srt"
		if err := captions.WriteSRTFile(srtPath, timelineChunks(timeline, caps)); err != nil {
			log.Warn("captions file not written", slog.String("error", err.Error()))
		}
	}

	opts := renderer.Options{
		Width:            p.Config.Width,
		Height:           p.Config.Height,
		FPS:              p.Config.FPS,
		FFmpegPath:       p.Config.FFmpegPath,
		FontFile:         p.Config.FontFile,
		BackgroundVolume: resolved.BackgroundVolume,
		BackgroundFade:   p.Config.BackgroundFade,
	}
	prog, err := renderer.Compile(timeline, resolved, caps, opts, outputPath)
	if err != nil {
		res.Err = err
		return res
	}
	log.Info("filter graph compiled",
		slog.Int("inputs", len(prog.Inputs)),
		slog.Int("nodes", len(prog.Graph.Nodes())))

	rr := p.Invoker.Render(ctx, prog, outputPath)
	if rr.Err != nil {
		res.Err = fmt.Errorf("render %s: %w", req.ID, rr.Err)
		return res
	}
	res.Success = true
	res.Duration = plan.Total(timeline)
	if p.Probe != nil {
		if d, err := p.Probe(ctx, outputPath); err == nil && d > 0 {
			res.Duration = d
		}
	}
	log.Info("ad assembled",
		slog.String("output", outputPath),
		slog.Float64("duration", res.Duration))
	return res
}

// timelineChunks projects the per-segment caption windows onto the
// final ad's clock for the sidecar subtitle file. Each scene's chunks
// start at the scene's timeline offset and windows past the scene slot
// are dropped, matching what the burned-in captions show.
func timelineChunks(timeline []plan.Item, caps map[string][]captions.Chunk) []captions.Chunk {
	var out []captions.Chunk
	for _, it := range timeline {
		if it.Kind != plan.KindScene {
			continue
		}
		for _, c := range caps[it.SegmentID] {
			if c.Start >= it.Duration {
				break
			}
			end := c.End
			if end > it.Duration {
				end = it.Duration
			}
			out = append(out, captions.Chunk{
				Text:  c.Text,
				Start: it.Start + c.Start,
				End:   it.Start + end,
			})
		}
	}
	return out
}

package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/adreel/adreel/internal/plan"
)

// AudioAsset is a synthesized narration track for one segment. The
// pipeline only reads MeasuredDuration; a zero value is filled in by
// probing the file during resolution.
type AudioAsset struct {
	SegmentID        string  `yaml:"segment_id"`
	Path             string  `yaml:"file_path"`
	MeasuredDuration float64 `yaml:"measured_duration"`
	Checksum         string  `yaml:"checksum,omitempty"`
}

// FootageRef points a segment at its resolved visual clip or still.
type FootageRef struct {
	SegmentID string `yaml:"segment_id"`
	Path      string `yaml:"file_path"`
}

// Resolved holds every file the compiler may reference, fully verified:
// paths exist, audio durations are measured, checksums computed.
type Resolved struct {
	Audio   map[string]AudioAsset
	Footage map[string]string

	// EndCard is the trailing segment's still, generated per request.
	EndCard string

	BackgroundMusic  string
	BackgroundVolume float64

	Watermark string
}

// MissingAssetError reports a segment whose audio or footage could not
// be found on disk.
type MissingAssetError struct {
	SegmentID string
	Kind      string // "audio" or "footage"
	Path      string
}

func (e *MissingAssetError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("assets: no %s resolved for segment %q", e.Kind, e.SegmentID)
	}
	return fmt.Sprintf("assets: %s for segment %q missing at %s", e.Kind, e.SegmentID, e.Path)
}

// ProbeFunc measures a media file's duration in seconds.
type ProbeFunc func(ctx context.Context, path string) (float64, error)

// Resolve verifies that every segment has audio and footage on disk,
// measures any unmeasured audio duration, and computes content
// checksums. Per-asset probing and hashing run concurrently; the first
// failure wins.
func Resolve(ctx context.Context, segments []plan.ContentSegment, audio []AudioAsset, footage []FootageRef, probe ProbeFunc) (*Resolved, error) {
	byAudio := make(map[string]AudioAsset, len(audio))
	for _, a := range audio {
		byAudio[a.SegmentID] = a
	}
	byFootage := make(map[string]string, len(footage))
	for _, f := range footage {
		byFootage[f.SegmentID] = f.Path
	}

	res := &Resolved{
		Audio:   make(map[string]AudioAsset, len(segments)),
		Footage: make(map[string]string, len(segments)),
	}

	for _, seg := range segments {
		a, ok := byAudio[seg.ID]
		if !ok {
			return nil, &MissingAssetError{SegmentID: seg.ID, Kind: "audio"}
		}
		if _, err := os.Stat(a.Path); err != nil {
			return nil, &MissingAssetError{SegmentID: seg.ID, Kind: "audio", Path: a.Path}
		}
		fp, ok := byFootage[seg.ID]
		if !ok {
			return nil, &MissingAssetError{SegmentID: seg.ID, Kind: "footage"}
		}
		if _, err := os.Stat(fp); err != nil {
			return nil, &MissingAssetError{SegmentID: seg.ID, Kind: "footage", Path: fp}
		}
		res.Audio[seg.ID] = a
		res.Footage[seg.ID] = fp
	}

	// The goroutines write into a per-segment slice slot; the shared map
	// is only touched after Wait.
	measured := make([]AudioAsset, len(segments))
	g, gctx := errgroup.WithContext(ctx)
	for i, seg := range segments {
		i, seg := i, seg
		g.Go(func() error {
			a := res.Audio[seg.ID]
			if a.MeasuredDuration <= 0 {
				if probe == nil {
					return fmt.Errorf("assets: audio for segment %q has no measured duration and no prober is available", seg.ID)
				}
				dur, err := probe(gctx, a.Path)
				if err != nil {
					return fmt.Errorf("assets: probe %s: %w", a.Path, err)
				}
				a.MeasuredDuration = dur
			}
			if a.Checksum == "" {
				sum, err := Checksum(a.Path)
				if err != nil {
					return fmt.Errorf("assets: checksum %s: %w", a.Path, err)
				}
				a.Checksum = sum
			}
			measured[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, seg := range segments {
		res.Audio[seg.ID] = measured[i]
	}
	return res, nil
}

// Checksum returns the SHA-256 hex digest of the file contents.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

var stillExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".bmp": {}, ".webp": {},
}

// IsStillImage reports whether the path looks like a still image, which
// the compiler must loop rather than trim.
func IsStillImage(path string) bool {
	_, ok := stillExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

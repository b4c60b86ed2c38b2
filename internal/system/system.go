package system

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Tools holds the binary paths for the external media toolchain.
type Tools struct {
	FFmpeg  string
	FFprobe string
}

// DefaultTools resolves the toolchain from PATH.
func DefaultTools() Tools {
	return Tools{FFmpeg: "ffmpeg", FFprobe: "ffprobe"}
}

// ProbeDuration returns the duration of a media file in seconds.
func (t Tools) ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, t.FFprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", path, err)
	}
	return parseProbeDuration(string(out))
}

func parseProbeDuration(out string) (float64, error) {
	s := strings.TrimSpace(out)
	if s == "" || s == "N/A" {
		return 0, fmt.Errorf("probe: no duration reported")
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("probe: bad duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("probe: negative duration %f", d)
	}
	return d, nil
}

// FilterSupported checks whether the encoder build ships a filter.
func (t Tools) FilterSupported(ctx context.Context, name string) bool {
	cmd := exec.CommandContext(ctx, t.FFmpeg, "-hide_banner", "-filters")
	out, err := cmd.Output()
	if err != nil {
		return false
	}
	return containsWord(out, name)
}

// EncoderSupported checks whether the encoder build ships a codec
// encoder such as libx264.
func (t Tools) EncoderSupported(ctx context.Context, name string) bool {
	cmd := exec.CommandContext(ctx, t.FFmpeg, "-hide_banner", "-encoders")
	out, err := cmd.Output()
	if err != nil {
		return false
	}
	return containsWord(out, name)
}

// containsWord scans the -filters/-encoders listing, where the name is
// the second column after the capability flags.
func containsWord(out []byte, name string) bool {
	for _, line := range bytes.Split(out, []byte("\n")) {
		fields := strings.Fields(string(line))
		if len(fields) >= 2 && fields[1] == name {
			return true
		}
	}
	return false
}

// requiredFilters are the filters every compiled program may emit.
var requiredFilters = []string{"scale", "pad", "drawtext", "overlay", "xfade", "concat", "volume", "amix"}

// Preflight verifies the toolchain before any request is accepted:
// both binaries resolvable plus every filter the compiler can emit.
func (t Tools) Preflight(ctx context.Context) error {
	if _, err := exec.LookPath(t.FFmpeg); err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}
	if _, err := exec.LookPath(t.FFprobe); err != nil {
		return fmt.Errorf("ffprobe not found: %w", err)
	}
	for _, f := range requiredFilters {
		if !t.FilterSupported(ctx, f) {
			return fmt.Errorf("ffmpeg build missing filter %q", f)
		}
	}
	if !t.EncoderSupported(ctx, "libx264") {
		return fmt.Errorf("ffmpeg build missing libx264 encoder")
	}
	return nil
}

const (
	memoryPerWorker = 1536 << 20 // bytes each concurrent encode is budgeted
	maxWorkers      = 4
)

// RenderWorkers sizes the render pool from the host: one worker per
// logical CPU, bounded by available memory and a hard cap. Encoding is
// already internally threaded, so more workers than this just thrash.
func RenderWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		n = 1
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		byMemory := int(vm.Available / memoryPerWorker)
		if byMemory < 1 {
			byMemory = 1
		}
		if byMemory < n {
			n = byMemory
		}
	}
	if n > maxWorkers {
		n = maxWorkers
	}
	return n
}

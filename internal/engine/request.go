package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/adreel/adreel/internal/assets"
	"github.com/adreel/adreel/internal/plan"
)

// Request is one ad assembly job: the content segments, the externally
// produced narration tracks and footage, and the target duration.
type Request struct {
	ID             string                `yaml:"id"`
	TargetDuration float64               `yaml:"target_duration"`
	Segments       []plan.ContentSegment `yaml:"segments"`
	Audio          []assets.AudioAsset   `yaml:"audio"`
	Footage        []assets.FootageRef   `yaml:"footage"`

	BackgroundMusic  string  `yaml:"background_music"`
	BackgroundVolume float64 `yaml:"background_volume"`
	Watermark        string  `yaml:"watermark"`

	OutputPath string `yaml:"output_path"`
}

// LoadRequest reads a request file.
func LoadRequest(path string) (*Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	var req Request
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("request: parse %s: %w", path, err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// Validate rejects requests the pipeline cannot plan.
func (r *Request) Validate() error {
	if len(r.Segments) == 0 {
		return fmt.Errorf("request: no segments")
	}
	if r.TargetDuration <= 0 {
		return fmt.Errorf("request: target_duration must be positive")
	}
	seen := make(map[string]bool, len(r.Segments))
	for i, seg := range r.Segments {
		if seg.ID == "" {
			return fmt.Errorf("request: segment %d has no id", i)
		}
		if seen[seg.ID] {
			return fmt.Errorf("request: duplicate segment id %q", seg.ID)
		}
		seen[seg.ID] = true
		if seg.Narration == "" {
			return fmt.Errorf("request: segment %q has no narration", seg.ID)
		}
	}
	return nil
}

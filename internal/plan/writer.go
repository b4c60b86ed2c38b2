package plan

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Document is the on-disk form of a reconciled timeline. Writing the
// plan out lets a reviewer inspect or hand-tune the schedule before
// rendering.
type Document struct {
	Version string  `yaml:"version"`
	Target  float64 `yaml:"target_duration"`
	Items   []Item  `yaml:"items"`
}

// WritePlan writes a reconciled timeline to a YAML file.
func WritePlan(items []Item, target float64, path string) error {
	doc := Document{Version: "1.0", Target: target, Items: items}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadPlan reads a timeline document from a YAML file.
func ReadPlan(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

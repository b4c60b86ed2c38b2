package assets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/adreel/adreel/internal/plan"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	audioPath := writeTemp(t, dir, "s1.mp3", "fake audio bytes")
	footagePath := writeTemp(t, dir, "s1.mp4", "fake footage bytes")

	segments := []plan.ContentSegment{{ID: "s1", Narration: "hello"}}
	audio := []AudioAsset{{SegmentID: "s1", Path: audioPath}}
	footage := []FootageRef{{SegmentID: "s1", Path: footagePath}}

	probed := 0
	probe := func(ctx context.Context, path string) (float64, error) {
		probed++
		return 3.25, nil
	}

	res, err := Resolve(context.Background(), segments, audio, footage, probe)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	a := res.Audio["s1"]
	if a.MeasuredDuration != 3.25 {
		t.Errorf("Expected probed duration 3.25, got %f", a.MeasuredDuration)
	}
	if probed != 1 {
		t.Errorf("Expected 1 probe call, got %d", probed)
	}
	if a.Checksum == "" {
		t.Error("Expected checksum to be computed")
	}
	if res.Footage["s1"] != footagePath {
		t.Errorf("Footage path mismatch: %s", res.Footage["s1"])
	}
}

func TestResolveKeepsMeasuredDuration(t *testing.T) {
	dir := t.TempDir()
	audioPath := writeTemp(t, dir, "s1.mp3", "audio")
	footagePath := writeTemp(t, dir, "s1.mp4", "footage")

	segments := []plan.ContentSegment{{ID: "s1"}}
	audio := []AudioAsset{{SegmentID: "s1", Path: audioPath, MeasuredDuration: 2.5}}
	footage := []FootageRef{{SegmentID: "s1", Path: footagePath}}

	res, err := Resolve(context.Background(), segments, audio, footage, func(ctx context.Context, path string) (float64, error) {
		t.Error("probe should not be called for measured audio")
		return 0, nil
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Audio["s1"].MeasuredDuration != 2.5 {
		t.Errorf("Measured duration overwritten: %f", res.Audio["s1"].MeasuredDuration)
	}
}

func TestResolveMissingAsset(t *testing.T) {
	dir := t.TempDir()
	audioPath := writeTemp(t, dir, "s1.mp3", "audio")

	segments := []plan.ContentSegment{{ID: "s1"}}
	audio := []AudioAsset{{SegmentID: "s1", Path: audioPath, MeasuredDuration: 1}}

	// No footage at all.
	_, err := Resolve(context.Background(), segments, audio, nil, nil)
	var missing *MissingAssetError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingAssetError, got %v", err)
	}
	if missing.Kind != "footage" || missing.SegmentID != "s1" {
		t.Errorf("Unexpected error detail: %+v", missing)
	}

	// Footage path that does not exist.
	footage := []FootageRef{{SegmentID: "s1", Path: filepath.Join(dir, "gone.mp4")}}
	_, err = Resolve(context.Background(), segments, audio, footage, nil)
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingAssetError for dead path, got %v", err)
	}
	if missing.Path == "" {
		t.Error("Expected path in error for dead file")
	}
}

func TestChecksum(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "data", "hello")

	sum, err := Checksum(path)
	if err != nil {
		t.Fatalf("Checksum failed: %v", err)
	}
	// sha256("hello")
	expected := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if sum != expected {
		t.Errorf("Checksum = %s, expected %s", sum, expected)
	}
}

func TestIsStillImage(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"endcard.png", true},
		{"photo.JPG", true},
		{"clip.mp4", false},
		{"clip.mov", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := IsStillImage(tt.path); got != tt.expected {
			t.Errorf("IsStillImage(%q) = %v, expected %v", tt.path, got, tt.expected)
		}
	}
}

package plan

import (
	"path/filepath"
	"testing"
)

func TestPlanWriteRead(t *testing.T) {
	r := NewReconciler()
	items, err := r.Reconcile(testSegments(), 20.0)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := WritePlan(items, 20.0, path); err != nil {
		t.Fatalf("WritePlan failed: %v", err)
	}

	doc, err := ReadPlan(path)
	if err != nil {
		t.Fatalf("ReadPlan failed: %v", err)
	}

	if doc.Version != "1.0" {
		t.Errorf("Expected version 1.0, got %s", doc.Version)
	}
	if doc.Target != 20.0 {
		t.Errorf("Expected target 20.0, got %f", doc.Target)
	}
	if len(doc.Items) != len(items) {
		t.Fatalf("Item count mismatch: expected %d, got %d", len(items), len(doc.Items))
	}
	for i := range items {
		if doc.Items[i].Kind != items[i].Kind || doc.Items[i].SegmentID != items[i].SegmentID {
			t.Errorf("Item %d mismatch: wrote %+v, read %+v", i, items[i], doc.Items[i])
		}
	}
}

package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andresmejia3/playbook/internal/types"
)

func TestLoadConfigFlagOverrides(t *testing.T) {
	if err := analyzeCmd.ParseFlags([]string{"--interval", "1.5", "--similarity", "0.8", "--workers", "4"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}

	cfg := loadConfig(analyzeCmd, analyzeOpts)

	if cfg.Extraction.Interval != 1.5 {
		t.Errorf("Extraction.Interval = %v, want flag value 1.5", cfg.Extraction.Interval)
	}
	if cfg.Mapping.SimilarityThreshold != 0.8 {
		t.Errorf("Mapping.SimilarityThreshold = %v, want flag value 0.8", cfg.Mapping.SimilarityThreshold)
	}
	if cfg.Detection.Workers != 4 {
		t.Errorf("Detection.Workers = %d, want flag value 4", cfg.Detection.Workers)
	}
	// Flags the user did not touch keep the config defaults.
	if cfg.Actions.ClickThreshold != 0.8 {
		t.Errorf("Actions.ClickThreshold = %v, want default 0.8", cfg.Actions.ClickThreshold)
	}
	if cfg.Extraction.MaxFrames != 10000 {
		t.Errorf("Extraction.MaxFrames = %d, want default 10000", cfg.Extraction.MaxFrames)
	}
}

func TestStoredWorkflowID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkout_flow.mp4")
	if err := os.WriteFile(path, []byte("not a real recording"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	first, ok := storedWorkflowID(path)
	if !ok {
		t.Fatal("storedWorkflowID failed for an existing file")
	}
	if !strings.HasPrefix(first, "workflow_") || len(first) != len("workflow_")+8 {
		t.Errorf("id = %q, want workflow_ prefix and 8 hash chars", first)
	}

	// Saving the same recording again must target the same row.
	second, ok := storedWorkflowID(path)
	if !ok || second != first {
		t.Errorf("second derivation = %q, want %q", second, first)
	}

	if _, ok := storedWorkflowID(filepath.Join(dir, "missing.mp4")); ok {
		t.Error("storedWorkflowID succeeded for a missing file")
	}
}

// crashingDetector fails every call after the first n, like a worker whose
// subprocess exited mid-run.
type crashingDetector struct {
	calls     int
	failAfter int
}

func (d *crashingDetector) Detect(jpegData []byte) ([]types.UIElement, error) {
	d.calls++
	if d.calls > d.failAfter {
		return nil, errors.New("broken pipe")
	}
	return []types.UIElement{{ID: "elem_btn", Type: types.ElementButton}}, nil
}

func TestConsumeTasksDegradesOnWorkerDeath(t *testing.T) {
	const frames = 5
	jpegs := make([][]byte, frames)
	detections := make([][]types.UIElement, frames)
	tasks := make(chan int, frames)
	for i := 0; i < frames; i++ {
		tasks <- i
	}
	close(tasks)

	progressed := 0
	consumeTasks(0, &crashingDetector{failAfter: 2}, tasks, jpegs, detections, func() { progressed++ })

	for i := 0; i < 2; i++ {
		if len(detections[i]) != 1 {
			t.Errorf("detections[%d] = %v, want one element from before the crash", i, detections[i])
		}
	}
	// Frames after the crash degrade to empty element sets.
	for i := 2; i < frames; i++ {
		if detections[i] != nil {
			t.Errorf("detections[%d] = %v, want nil after worker death", i, detections[i])
		}
	}
	if progressed != frames {
		t.Errorf("progress ticks = %d, want %d (queue fully drained)", progressed, frames)
	}
	if _, open := <-tasks; open {
		t.Error("task queue not drained after worker death")
	}
}

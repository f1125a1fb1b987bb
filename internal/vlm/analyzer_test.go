package vlm

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/andresmejia3/playbook/internal/types"
)

// scriptedClient answers screen prompts and action prompts from canned maps
// keyed by the first image's byte marker. It records concurrency to verify
// batching behavior.
type scriptedClient struct {
	mu        sync.Mutex
	inFlight  int
	maxSeen   int
	screenFor map[byte]string
	actionFor map[byte]string
	failOn    map[byte]bool
}

func (c *scriptedClient) Describe(ctx context.Context, images [][]byte, prompt string) (string, error) {
	c.mu.Lock()
	c.inFlight++
	if c.inFlight > c.maxSeen {
		c.maxSeen = c.inFlight
	}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.inFlight--
		c.mu.Unlock()
	}()

	time.Sleep(5 * time.Millisecond)

	key := images[0][0]
	if c.failOn[key] {
		return "", fmt.Errorf("scripted failure for frame %d", key)
	}
	if len(images) == 2 {
		return c.actionFor[key], nil
	}
	return c.screenFor[key], nil
}

func frameSeq(n int) []FrameImage {
	frames := make([]FrameImage, n)
	for i := range frames {
		frames[i] = FrameImage{
			Index:     i,
			Timestamp: float64(i) * 2.0,
			Width:     1280,
			Height:    720,
			JPEG:      []byte{byte(i)},
		}
	}
	return frames
}

func TestAnalyzeWorkflow(t *testing.T) {
	client := &scriptedClient{
		screenFor: map[byte]string{
			0: `{"screen_name": "Login", "elements": [{"type": "input", "label": "Username", "bounds": {"x": 10, "y": 20, "width": 200, "height": 30}}]}`,
			1: `{"screen_name": "Login"}`,
			2: `{"screen_name": "Dashboard"}`,
		},
		actionFor: map[byte]string{
			0: `{"action_detected": true, "action": {"type": "type", "value": "admin"}, "confidence": 0.95}`,
			1: `{"action_detected": true, "action": {"type": "click", "target_bounds": {"x": 100, "y": 200, "width": 80, "height": 40}}}`,
		},
	}

	a := NewAnalyzer(client, 8, time.Second)
	def, err := a.AnalyzeWorkflow(context.Background(), frameSeq(3), "demo.mp4")
	if err != nil {
		t.Fatalf("AnalyzeWorkflow failed: %v", err)
	}

	// Frames 0 and 1 report the same screen name and must merge.
	if len(def.Screens) != 2 {
		t.Fatalf("got %d screens, want 2", len(def.Screens))
	}
	if def.Screens[0].Name != "Login" || def.Screens[1].Name != "Dashboard" {
		t.Errorf("screen names = %q, %q", def.Screens[0].Name, def.Screens[1].Name)
	}
	if len(def.Screens[0].Elements) != 1 || def.Screens[0].Elements[0].Type != types.ElementTextInput {
		t.Errorf("login elements = %+v", def.Screens[0].Elements)
	}
	if def.StartScreenID != def.Screens[0].ID {
		t.Errorf("start screen = %q, want %q", def.StartScreenID, def.Screens[0].ID)
	}

	if len(def.Actions) != 2 {
		t.Fatalf("got %d actions, want 2", len(def.Actions))
	}

	typing := def.Actions[0]
	if typing.Type != types.ActionInput || typing.Value != "admin" {
		t.Errorf("first action = %+v, want typing of admin", typing)
	}
	if typing.Confidence != 0.95 {
		t.Errorf("typing confidence = %v, want 0.95", typing.Confidence)
	}
	// Both frames of the pair show Login, so no navigation edge.
	if typing.NextScreenID != "" {
		t.Errorf("typing.NextScreenID = %q, want empty", typing.NextScreenID)
	}

	click := def.Actions[1]
	if click.Type != types.ActionClick {
		t.Errorf("second action type = %s, want click", click.Type)
	}
	// Default confidence when the model omits it.
	if click.Confidence != 0.8 {
		t.Errorf("click confidence = %v, want 0.8", click.Confidence)
	}
	// The pair crosses Login -> Dashboard.
	if click.NextScreenID != def.Screens[1].ID {
		t.Errorf("click.NextScreenID = %q, want %q", click.NextScreenID, def.Screens[1].ID)
	}
	if click.X != 140 || click.Y != 220 {
		t.Errorf("click point = (%d, %d), want target bounds center (140, 220)", click.X, click.Y)
	}
	if click.DelayBefore != 0.5 {
		t.Errorf("DelayBefore = %v, want 0.5", click.DelayBefore)
	}
}

func TestAnalyzeWorkflowToleratesFailures(t *testing.T) {
	client := &scriptedClient{
		screenFor: map[byte]string{
			0: `{"screen_name": "Login"}`,
			2: `{"screen_name": "Dashboard"}`,
		},
		actionFor: map[byte]string{},
		failOn:    map[byte]bool{1: true}, // frame 1 calls all fail
	}

	a := NewAnalyzer(client, 8, time.Second)
	def, err := a.AnalyzeWorkflow(context.Background(), frameSeq(3), "demo.mp4")
	if err != nil {
		t.Fatalf("AnalyzeWorkflow failed: %v", err)
	}

	// The failed frame is simply absent; the others still produce screens.
	if len(def.Screens) != 2 {
		t.Errorf("got %d screens, want 2", len(def.Screens))
	}
	if len(def.Actions) != 0 {
		t.Errorf("got %d actions, want 0", len(def.Actions))
	}
}

func TestAnalyzeWorkflowBatchLimit(t *testing.T) {
	client := &scriptedClient{
		screenFor: map[byte]string{},
		actionFor: map[byte]string{},
	}

	a := NewAnalyzer(client, 2, time.Second)
	if _, err := a.AnalyzeWorkflow(context.Background(), frameSeq(6), "demo.mp4"); err != nil {
		t.Fatalf("AnalyzeWorkflow failed: %v", err)
	}

	if client.maxSeen > 2 {
		t.Errorf("observed %d concurrent calls, batch size is 2", client.maxSeen)
	}
}

func TestAnalyzeWorkflowCancelled(t *testing.T) {
	client := &scriptedClient{
		screenFor: map[byte]string{},
		actionFor: map[byte]string{},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewAnalyzer(client, 2, time.Second)
	if _, err := a.AnalyzeWorkflow(ctx, frameSeq(4), "demo.mp4"); err == nil {
		t.Error("expected error from cancelled context")
	}
}

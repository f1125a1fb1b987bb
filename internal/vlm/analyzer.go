package vlm

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/andresmejia3/playbook/internal/types"
)

// FrameImage is one frame handed to the analyzer: the raw JPEG bytes plus
// the metadata needed to place results on a timeline.
type FrameImage struct {
	Index     int
	Timestamp float64
	Width     int
	Height    int
	JPEG      []byte
}

// result is one per-call outcome. A failed call keeps OK=false and an empty
// Data so indices stay aligned with the input frames.
type result struct {
	OK   bool
	Data map[string]any
}

// Analyzer drives a VLM client over a frame sequence and assembles the
// answers into a workflow definition. It is the model-based alternative to
// the heuristic pipeline.
type Analyzer struct {
	client      Client
	batchSize   int
	callTimeout time.Duration
}

// NewAnalyzer wraps a client with batching. batchSize bounds how many model
// calls run concurrently; callTimeout bounds each individual call.
func NewAnalyzer(client Client, batchSize int, callTimeout time.Duration) *Analyzer {
	if batchSize <= 0 {
		batchSize = 8
	}
	if callTimeout <= 0 {
		callTimeout = 120 * time.Second
	}
	return &Analyzer{client: client, batchSize: batchSize, callTimeout: callTimeout}
}

// AnalyzeWorkflow runs screen analysis over every frame and action detection
// over every consecutive pair, then builds a workflow from the results.
// Individual call failures degrade to empty results; only cancellation stops
// the run early.
func (a *Analyzer) AnalyzeWorkflow(ctx context.Context, frames []FrameImage, sourceLabel string) (types.WorkflowDefinition, error) {
	screenResults := a.runBatched(ctx, len(frames), func(ctx context.Context, i int) (string, error) {
		return a.client.Describe(ctx, [][]byte{frames[i].JPEG}, screenPrompt)
	})

	pairs := 0
	if len(frames) >= 2 {
		pairs = len(frames) - 1
	}
	actionResults := a.runBatched(ctx, pairs, func(ctx context.Context, i int) (string, error) {
		return a.client.Describe(ctx, [][]byte{frames[i].JPEG, frames[i+1].JPEG}, actionPrompt)
	})

	if err := ctx.Err(); err != nil {
		return types.WorkflowDefinition{}, err
	}
	return a.buildWorkflow(frames, screenResults, actionResults, sourceLabel), nil
}

// runBatched executes n calls in batches of batchSize. Results land at their
// input index. Cancellation stops new batches from being dispatched; calls
// already in flight run to completion or timeout.
func (a *Analyzer) runBatched(ctx context.Context, n int, call func(ctx context.Context, i int) (string, error)) []result {
	results := make([]result, n)

	for start := 0; start < n; start += a.batchSize {
		if ctx.Err() != nil {
			break
		}
		end := start + a.batchSize
		if end > n {
			end = n
		}

		g := new(errgroup.Group)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
				defer cancel()

				text, err := call(callCtx, i)
				if err != nil {
					fmt.Fprintf(os.Stderr, "⚠️  vlm call %d failed: %v\n", i, err)
					return nil
				}
				results[i] = result{OK: true, Data: ExtractJSON(text)}
				return nil
			})
		}
		g.Wait()
	}
	return results
}

func (a *Analyzer) buildWorkflow(frames []FrameImage, screenResults, actionResults []result, sourceLabel string) types.WorkflowDefinition {
	var screens []types.Screen
	screenMap := make(map[int]string) // frame index -> screen id

	for i, res := range screenResults {
		if !res.OK || len(res.Data) == 0 {
			continue
		}
		screenMap[i] = findOrCreateScreen(&screens, res.Data, frames[i])
	}

	var actions []types.Action
	for i, res := range actionResults {
		if !res.OK || len(res.Data) == 0 {
			continue
		}
		detected, _ := res.Data["action_detected"].(bool)
		if !detected {
			continue
		}

		actionData, _ := res.Data["action"].(map[string]any)
		typeLabel, _ := actionData["type"].(string)

		screenID := screenMap[i]
		if screenID == "" {
			if len(screens) == 0 {
				continue
			}
			screenID = screens[0].ID
		}

		confidence := 0.8
		if c, ok := res.Data["confidence"].(float64); ok {
			confidence = c
		}

		action := types.Action{
			ID:          types.NewID("action"),
			Type:        types.ParseActionType(typeLabel),
			ScreenID:    screenID,
			Timestamp:   frames[i].Timestamp,
			Confidence:  confidence,
			DelayBefore: 0.5,
		}
		if v, ok := actionData["value"].(string); ok {
			action.Value = v
		}
		if next, ok := screenMap[i+1]; ok && next != screenID {
			action.NextScreenID = next
		}
		if bounds, ok := actionData["target_bounds"].(map[string]any); ok {
			action.X = jsonInt(bounds["x"]) + jsonInt(bounds["width"])/2
			action.Y = jsonInt(bounds["y"]) + jsonInt(bounds["height"])/2
		}

		actions = append(actions, action)
	}

	startScreen := ""
	if len(screens) > 0 {
		startScreen = screens[0].ID
	}

	now := time.Now().UTC()
	return types.WorkflowDefinition{
		ID:            types.NewID("workflow"),
		Name:          "Extracted Workflow",
		Description:   "Workflow automatically extracted from video recording",
		SourceLabel:   sourceLabel,
		Screens:       screens,
		Actions:       actions,
		StartScreenID: startScreen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// findOrCreateScreen groups frames by the model-reported screen name. The
// model sees each frame in isolation, so the name is the only identity
// signal available on this path.
func findOrCreateScreen(screens *[]types.Screen, data map[string]any, frame FrameImage) string {
	name, _ := data["screen_name"].(string)
	if name == "" {
		name = fmt.Sprintf("Screen %d", len(*screens)+1)
	}

	for _, s := range *screens {
		if s.Name == name {
			return s.ID
		}
	}

	screen := types.Screen{
		ID:               types.NewID("screen"),
		Name:             name,
		Width:            frame.Width,
		Height:           frame.Height,
		Elements:         parseElements(data["elements"]),
		SourceFrameIndex: frame.Index,
		Timestamp:        frame.Timestamp,
	}
	*screens = append(*screens, screen)
	return screen.ID
}

func parseElements(raw any) []types.UIElement {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}

	var elements []types.UIElement
	for _, item := range items {
		data, ok := item.(map[string]any)
		if !ok {
			continue
		}
		typeLabel, _ := data["type"].(string)

		elem := types.UIElement{
			ID:         types.NewID("elem"),
			Type:       types.ParseElementType(typeLabel),
			Bounds:     types.Rect{Width: 100, Height: 30},
			Confidence: 1.0,
		}
		if text, ok := data["label"].(string); ok {
			elem.Text = text
		} else if text, ok := data["text"].(string); ok {
			elem.Text = text
		}
		if v, ok := data["value"].(string); ok {
			elem.Value = v
		}
		if p, ok := data["placeholder"].(string); ok {
			elem.Placeholder = p
		}
		if bounds, ok := data["bounds"].(map[string]any); ok {
			elem.Bounds.X = jsonInt(bounds["x"])
			elem.Bounds.Y = jsonInt(bounds["y"])
			if w := jsonInt(bounds["width"]); w > 0 {
				elem.Bounds.Width = w
			}
			if h := jsonInt(bounds["height"]); h > 0 {
				elem.Bounds.Height = h
			}
		}
		elements = append(elements, elem)
	}
	return elements
}

// jsonInt narrows a decoded JSON number (always float64) to int, tolerating
// absent or mistyped values.
func jsonInt(v any) int {
	f, _ := v.(float64)
	return int(f)
}

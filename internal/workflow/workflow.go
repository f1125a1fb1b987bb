// Package workflow turns screens and deduplicated candidate actions into the
// final workflow definition, including inferred navigation edges.
package workflow

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/andresmejia3/playbook/internal/types"
)

// Transition is one entry of the timestamp-ordered screen timeline: the
// screen a frame was assigned to and when that frame was captured.
type Transition struct {
	Timestamp float64
	ScreenID  string
}

// Timeline builds the ordered transition list from frames and the
// frame-to-screen map produced by clustering.
func Timeline(frames []types.Frame, frameScreens []string) []Transition {
	var out []Transition
	for i, frame := range frames {
		if i < len(frameScreens) && frameScreens[i] != "" {
			out = append(out, Transition{Timestamp: frame.Timestamp, ScreenID: frameScreens[i]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// InferNavigation labels every click action with the screen it leads to: the
// first transition after the action's timestamp whose screen differs from
// the action's own. Actions with no later differing transition keep an empty
// NextScreenID. The scan is a naive forward walk per action; frame and
// action counts stay in the low thousands, so the quadratic worst case is
// acceptable.
func InferNavigation(actions []types.Action, timeline []Transition) {
	for i := range actions {
		if actions[i].Type != types.ActionClick {
			continue
		}
		for _, tr := range timeline {
			if tr.Timestamp > actions[i].Timestamp && tr.ScreenID != actions[i].ScreenID {
				actions[i].NextScreenID = tr.ScreenID
				break
			}
		}
	}
}

// Assemble combines screens and finalized actions into a workflow
// definition, assigning the workflow identifier, name, start screen, and
// timestamps.
func Assemble(screens []types.Screen, actions []types.Action, sourceLabel string) types.WorkflowDefinition {
	var description string
	if sourceLabel != "" {
		description = fmt.Sprintf("Workflow extracted from %s", sourceLabel)
	}

	startScreen := ""
	if len(screens) > 0 {
		startScreen = screens[0].ID
	}

	now := time.Now().UTC()
	return types.WorkflowDefinition{
		ID:            types.NewID("workflow"),
		Name:          Name(sourceLabel),
		Description:   description,
		SourceLabel:   sourceLabel,
		Screens:       screens,
		Actions:       actions,
		StartScreenID: startScreen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// MapActions converts candidates into screen-anchored actions with
// identifiers and inter-action delays. Candidates that cannot be anchored
// (no screens were discovered) are dropped, since an action without a valid
// screen reference would break the schema invariant.
func MapActions(candidates []types.CandidateAction, frameScreens []string) []types.Action {
	var actions []types.Action
	for _, c := range candidates {
		if c.FrameIndex < 0 || c.FrameIndex >= len(frameScreens) || frameScreens[c.FrameIndex] == "" {
			continue
		}

		a := types.Action{
			ID:         types.NewID("action"),
			Type:       c.Type,
			ScreenID:   frameScreens[c.FrameIndex],
			ElementID:  c.TargetElementID,
			Value:      c.Text,
			Timestamp:  c.Timestamp,
			Confidence: c.Confidence,
		}
		if c.HasPoint {
			a.X = c.X
			a.Y = c.Y
		}
		if len(actions) > 0 {
			prev := actions[len(actions)-1]
			if d := c.Timestamp - prev.Timestamp; d > 0 {
				a.DelayBefore = d
			}
		}
		actions = append(actions, a)
	}
	return actions
}

var titler = cases.Title(language.English)

// Name derives a human-readable workflow name from a source label: the
// extension is stripped, separators become spaces, and the result is
// title-cased with a fixed suffix. Without a label the name falls back to
// the current wall-clock time.
func Name(sourceLabel string) string {
	if sourceLabel == "" {
		return fmt.Sprintf("Workflow %s", time.Now().Format("20060102_150405"))
	}
	base := filepath.Base(sourceLabel)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.ReplaceAll(stem, "_", " ")
	stem = strings.ReplaceAll(stem, "-", " ")
	return titler.String(stem) + " Workflow"
}

// Package pipeline wires the inference stages together: clustering, action
// detection, deduplication, navigation inference, and workflow assembly.
// The whole run is a single forward pass over ordered input with no
// cross-run state.
package pipeline

import (
	"github.com/andresmejia3/playbook/internal/cluster"
	"github.com/andresmejia3/playbook/internal/config"
	"github.com/andresmejia3/playbook/internal/detect"
	"github.com/andresmejia3/playbook/internal/types"
	"github.com/andresmejia3/playbook/internal/workflow"
)

// Stats summarizes what a run produced, for operator output.
type Stats struct {
	Frames     int
	Screens    int
	Candidates int
	Actions    int
}

// Run executes the full inference pipeline over an ordered frame sequence
// and its per-frame detections. Missing detections for a frame are treated
// as an empty element set; a sequence with fewer than two frames yields a
// workflow with no actions rather than an error.
func Run(frames []types.Frame, detections [][]types.UIElement, sourceLabel string, cfg config.Config) (types.WorkflowDefinition, Stats) {
	clustered := cluster.Cluster(frames, detections, cluster.Config{
		SimilarityThreshold: cfg.Mapping.SimilarityThreshold,
		MergeSimilar:        cfg.Mapping.MergeSimilarScreens,
	})

	detector := detect.New(detect.Config{
		ClickThreshold:  cfg.Actions.ClickThreshold,
		MinActionGap:    cfg.Actions.MinActionGap,
		TypingDetection: cfg.Actions.TypingDetection,
		ScrollDetection: cfg.Actions.ScrollDetection,
	})
	candidates := detector.Detect(frames, detections)
	filtered := detect.Deduplicate(candidates, cfg.Actions.MinActionGap)

	actions := workflow.MapActions(filtered, clustered.FrameScreens)
	if cfg.Mapping.InferNavigation {
		workflow.InferNavigation(actions, workflow.Timeline(frames, clustered.FrameScreens))
	}

	def := workflow.Assemble(clustered.Screens, actions, sourceLabel)

	return def, Stats{
		Frames:     len(frames),
		Screens:    len(def.Screens),
		Candidates: len(candidates),
		Actions:    len(def.Actions),
	}
}

// Package cluster groups visually-equivalent frames into canonical screens.
package cluster

import (
	"fmt"

	"github.com/andresmejia3/playbook/internal/imaging"
	"github.com/andresmejia3/playbook/internal/types"
)

// Config controls screen clustering.
type Config struct {
	// SimilarityThreshold is the minimum similarity score for a frame to
	// join an existing screen instead of founding a new one.
	SimilarityThreshold float64
	// MergeSimilar disables clustering entirely when false: every frame
	// becomes its own screen.
	MergeSimilar bool
}

// DefaultConfig matches the thresholds the pipeline ships with.
func DefaultConfig() Config {
	return Config{SimilarityThreshold: 0.9, MergeSimilar: true}
}

// Result holds the discovered screens and the final frame-to-screen map.
// FrameScreens is indexed by frame sequence position and is total: every
// frame maps to a screen id, unless no screens were produced at all.
type Result struct {
	Screens      []types.Screen
	FrameScreens []string
}

// Cluster partitions frames into screens with two passes.
//
// Pass one is greedy and first-fit: each frame is compared against every
// existing screen's representative frame in creation order, joins the first
// screen scoring at or above the threshold, and otherwise founds a new
// screen with itself as representative and its detections as the element
// snapshot. Membership decisions never revisit earlier frames.
//
// Pass two independently recomputes, for every frame, the similarity against
// every representative and assigns the arg-max. This can disagree with the
// screen a frame was grouped into during pass one when a later screen's
// representative matches better; the disagreement is intentional and kept.
func Cluster(frames []types.Frame, detections [][]types.UIElement, cfg Config) Result {
	if len(frames) == 0 {
		return Result{}
	}

	var screens []types.Screen
	var reps []int // representative frame index per screen

	for i, frame := range frames {
		matched := -1
		if cfg.MergeSimilar {
			for j := range screens {
				sim := imaging.Similarity(frame.Image, frames[reps[j]].Image)
				if sim >= cfg.SimilarityThreshold {
					matched = j
					break
				}
			}
		}
		if matched >= 0 {
			continue
		}

		var elements []types.UIElement
		if i < len(detections) {
			elements = append(elements, detections[i]...)
		}
		screens = append(screens, types.Screen{
			ID:               types.NewID("screen"),
			Name:             fmt.Sprintf("Screen %d", len(screens)+1),
			Width:            frame.Width,
			Height:           frame.Height,
			Elements:         elements,
			SourceFrameIndex: frame.Index,
			Timestamp:        frame.Timestamp,
		})
		reps = append(reps, i)
	}

	return Result{
		Screens:      screens,
		FrameScreens: assign(frames, screens, reps),
	}
}

// assign builds the final frame-to-screen map by taking, for each frame, the
// best-matching representative across all screens.
func assign(frames []types.Frame, screens []types.Screen, reps []int) []string {
	if len(screens) == 0 {
		return nil
	}
	out := make([]string, len(frames))
	for i, frame := range frames {
		best := 0
		bestSim := -1.0
		for j := range screens {
			sim := imaging.Similarity(frame.Image, frames[reps[j]].Image)
			if sim > bestSim {
				bestSim = sim
				best = j
			}
		}
		out[i] = screens[best].ID
	}
	return out
}

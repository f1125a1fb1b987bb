// Package detect derives candidate user actions from frame-to-frame changes.
// Each heuristic is independent and stateless with respect to the others; a
// coordinator merges their output into one time-ordered candidate list.
package detect

import (
	"sort"

	"github.com/andresmejia3/playbook/internal/imaging"
	"github.com/andresmejia3/playbook/internal/types"
)

// Heuristic infers one class of user action from a frame sequence and its
// per-frame detections.
type Heuristic interface {
	Detect(frames []types.Frame, detections [][]types.UIElement) []types.CandidateAction
}

// Config controls action detection.
type Config struct {
	// ClickThreshold is the minimum normalized pixel-difference magnitude
	// for a frame pair to count as a click effect.
	ClickThreshold float64
	// MinActionGap is the smallest time gap (seconds) between two kept
	// actions; closer candidates are resolved by confidence.
	MinActionGap float64
	// TypingDetection and ScrollDetection toggle the respective heuristics.
	TypingDetection bool
	ScrollDetection bool
}

// DefaultConfig matches the thresholds the pipeline ships with.
func DefaultConfig() Config {
	return Config{
		ClickThreshold:  0.8,
		MinActionGap:    0.1,
		TypingDetection: true,
		ScrollDetection: true,
	}
}

// Detector composes heuristics and merges their candidates.
type Detector struct {
	heuristics []Heuristic
}

// New builds a detector with the heuristics enabled by cfg, in click,
// typing, scroll order. That order is also the tie-break order for
// candidates sharing a timestamp.
func New(cfg Config) *Detector {
	hs := []Heuristic{&ClickHeuristic{Threshold: cfg.ClickThreshold}}
	if cfg.TypingDetection {
		hs = append(hs, &TypingHeuristic{})
	}
	if cfg.ScrollDetection {
		hs = append(hs, &ScrollHeuristic{})
	}
	return &Detector{heuristics: hs}
}

// Detect runs every heuristic over the sequence and returns the combined
// candidate list sorted by timestamp. A stable sort preserves the relative
// heuristic order for equal timestamps. Fewer than two frames yields an
// empty list.
func (d *Detector) Detect(frames []types.Frame, detections [][]types.UIElement) []types.CandidateAction {
	if len(frames) < 2 {
		return nil
	}

	var all []types.CandidateAction
	for _, h := range d.heuristics {
		all = append(all, h.Detect(frames, detections)...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp < all[j].Timestamp
	})
	return all
}

// ClickHeuristic detects clicks from sudden local pixel changes between
// consecutive frames.
type ClickHeuristic struct {
	Threshold float64
}

// Detect emits a click candidate for every consecutive frame pair whose
// normalized difference magnitude exceeds the threshold and has a locatable
// change region. A pair of mismatched shape counts as maximally changed but
// has no centroid, so no candidate is produced for it.
func (h *ClickHeuristic) Detect(frames []types.Frame, detections [][]types.UIElement) []types.CandidateAction {
	var clicks []types.CandidateAction

	prev := imaging.ToGray(frames[0].Image)
	for i := 1; i < len(frames); i++ {
		curr := imaging.ToGray(frames[i].Image)

		magnitude := imaging.DiffMagnitude(prev, curr)
		if magnitude > h.Threshold {
			if x, y, ok := imaging.ChangeCentroid(prev, curr); ok {
				c := types.CandidateAction{
					Type:       types.ActionClick,
					Timestamp:  frames[i].Timestamp,
					FrameIndex: frames[i].Index,
					X:          x,
					Y:          y,
					HasPoint:   true,
					Confidence: min(magnitude, 1.0),
				}
				// The click target lives in the frame before the effect.
				if i-1 < len(detections) {
					if el := types.ElementAt(detections[i-1], x, y); el != nil {
						c.TargetElementID = el.ID
					}
				}
				clicks = append(clicks, c)
			}
		}
		prev = curr
	}
	return clicks
}

// TypingHeuristic detects typing by tracking the text value of input-like
// elements across frames.
type TypingHeuristic struct{}

// typingConfidence is fixed: value tracking either observed a change or it
// did not, there is no graded signal.
const typingConfidence = 0.9

// Detect emits a type candidate whenever a tracked element's value changes.
// If the new value extends the old one, only the typed suffix is reported;
// otherwise the full new value is.
func (h *TypingHeuristic) Detect(frames []types.Frame, detections [][]types.UIElement) []types.CandidateAction {
	var actions []types.CandidateAction
	lastValue := make(map[string]string)

	for i, frame := range frames {
		if i >= len(detections) {
			break
		}
		for _, el := range detections[i] {
			if !el.Type.IsTextual() {
				continue
			}
			current := el.Value
			if prev, seen := lastValue[el.ID]; seen && current != prev {
				text := current
				if len(current) > len(prev) && current[:len(prev)] == prev {
					text = current[len(prev):]
				}
				cx, cy := el.Bounds.Center()
				actions = append(actions, types.CandidateAction{
					Type:            types.ActionInput,
					Timestamp:       frame.Timestamp,
					FrameIndex:      frame.Index,
					X:               cx,
					Y:               cy,
					HasPoint:        true,
					Text:            text,
					TargetElementID: el.ID,
					Confidence:      typingConfidence,
				})
			}
			lastValue[el.ID] = current
		}
	}
	return actions
}

// ScrollHeuristic detects vertical scrolling by matching a strip of the
// earlier frame against the later frame.
type ScrollHeuristic struct{}

const (
	scrollConfidence = 0.8
	// scrollNoiseFloor discards tiny offsets that are more likely jitter
	// than a deliberate scroll.
	scrollNoiseFloor = 10
)

// Detect emits a scroll candidate for every consecutive frame pair whose
// content moved vertically by more than the noise floor.
func (h *ScrollHeuristic) Detect(frames []types.Frame, detections [][]types.UIElement) []types.CandidateAction {
	var actions []types.CandidateAction

	prev := imaging.ToGray(frames[0].Image)
	for i := 1; i < len(frames); i++ {
		curr := imaging.ToGray(frames[i].Image)

		delta := imaging.ScrollDelta(prev, curr)
		if delta > scrollNoiseFloor || delta < -scrollNoiseFloor {
			actions = append(actions, types.CandidateAction{
				Type:         types.ActionScroll,
				Timestamp:    frames[i].Timestamp,
				FrameIndex:   frames[i].Index,
				ScrollDeltaY: delta,
				Confidence:   scrollConfidence,
			})
		}
		prev = curr
	}
	return actions
}

// Deduplicate collapses candidates that are too close in time. The first
// candidate is always kept; each later one is compared against the last kept
// candidate only, replacing it when strictly more confident within the
// minimum gap, and appended otherwise. Runs of three or more clustered
// candidates are resolved pairwise, never jointly.
func Deduplicate(actions []types.CandidateAction, minGap float64) []types.CandidateAction {
	if len(actions) == 0 {
		return nil
	}

	kept := []types.CandidateAction{actions[0]}
	for _, a := range actions[1:] {
		last := kept[len(kept)-1]
		if a.Timestamp-last.Timestamp < minGap {
			if a.Confidence > last.Confidence {
				kept[len(kept)-1] = a
			}
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

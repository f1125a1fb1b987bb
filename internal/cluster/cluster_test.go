package cluster

import (
	"image"
	"image/color"
	"testing"

	"github.com/andresmejia3/playbook/internal/types"
)

func pattern(inverted bool) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			on := (x/50+y/50)%2 == 0
			if inverted {
				on = !on
			}
			if on {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func frame(index int, ts float64, inverted bool) types.Frame {
	return types.Frame{
		Index:     index,
		Timestamp: ts,
		Width:     200,
		Height:    200,
		Image:     pattern(inverted),
	}
}

func TestClusterEmpty(t *testing.T) {
	res := Cluster(nil, nil, DefaultConfig())
	if len(res.Screens) != 0 || res.FrameScreens != nil {
		t.Errorf("Cluster(nil) = %+v, want empty result", res)
	}
}

func TestClusterAlternatingScreens(t *testing.T) {
	// Two visually distinct screens alternating over five frames.
	frames := []types.Frame{
		frame(0, 0.0, false),
		frame(1, 0.5, true),
		frame(2, 1.0, false),
		frame(3, 1.5, true),
		frame(4, 2.0, false),
	}

	res := Cluster(frames, nil, DefaultConfig())

	if len(res.Screens) != 2 {
		t.Fatalf("got %d screens, want 2", len(res.Screens))
	}
	if res.Screens[0].Name != "Screen 1" || res.Screens[1].Name != "Screen 2" {
		t.Errorf("screen names = %q, %q", res.Screens[0].Name, res.Screens[1].Name)
	}
	if res.Screens[0].SourceFrameIndex != 0 || res.Screens[1].SourceFrameIndex != 1 {
		t.Errorf("source frames = %d, %d, want 0, 1",
			res.Screens[0].SourceFrameIndex, res.Screens[1].SourceFrameIndex)
	}

	if len(res.FrameScreens) != len(frames) {
		t.Fatalf("FrameScreens has %d entries, want %d", len(res.FrameScreens), len(frames))
	}
	s1, s2 := res.Screens[0].ID, res.Screens[1].ID
	want := []string{s1, s2, s1, s2, s1}
	for i, id := range res.FrameScreens {
		if id != want[i] {
			t.Errorf("frame %d assigned to %s, want %s", i, id, want[i])
		}
	}
}

func TestClusterElementSnapshot(t *testing.T) {
	frames := []types.Frame{
		frame(0, 0.0, false),
		frame(1, 0.5, false), // same screen, different detections
	}
	detections := [][]types.UIElement{
		{{ID: "elem_a", Type: types.ElementButton}},
		{{ID: "elem_b", Type: types.ElementLink}},
	}

	res := Cluster(frames, detections, DefaultConfig())

	if len(res.Screens) != 1 {
		t.Fatalf("got %d screens, want 1", len(res.Screens))
	}
	// The snapshot comes from the founding frame and is never updated.
	elems := res.Screens[0].Elements
	if len(elems) != 1 || elems[0].ID != "elem_a" {
		t.Errorf("elements = %+v, want the founding frame's snapshot", elems)
	}
}

func TestClusterMergeDisabled(t *testing.T) {
	frames := []types.Frame{
		frame(0, 0.0, false),
		frame(1, 0.5, false),
		frame(2, 1.0, false),
	}

	res := Cluster(frames, nil, Config{SimilarityThreshold: 0.9, MergeSimilar: false})

	if len(res.Screens) != 3 {
		t.Errorf("got %d screens with merging disabled, want 3", len(res.Screens))
	}
}

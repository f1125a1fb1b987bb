package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"
)

// checkerboard produces a non-uniform image so normalization has variance to
// work with.
func checkerboard(w, h, cell int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/cell+y/cell)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func solid(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestSimilaritySelf(t *testing.T) {
	img := checkerboard(400, 400, 50)
	got := Similarity(img, img)
	if got < 0.99 {
		t.Errorf("Similarity(img, img) = %v, want ~1.0", got)
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	a := checkerboard(400, 400, 50)
	b := checkerboard(400, 400, 25)
	if d := math.Abs(Similarity(a, b) - Similarity(b, a)); d > 1e-9 {
		t.Errorf("Similarity is asymmetric, diff = %v", d)
	}
}

func TestSimilarityRange(t *testing.T) {
	a := checkerboard(400, 400, 50)
	// Inverted checkerboard: anti-correlated, score should approach 0.
	b := image.NewGray(a.Bounds())
	for i := range a.Pix {
		b.Pix[i] = 255 - a.Pix[i]
	}
	got := Similarity(a, b)
	if got < 0 || got > 0.1 {
		t.Errorf("Similarity of inverted image = %v, want near 0", got)
	}
}

func TestSimilarityAcrossResolutions(t *testing.T) {
	// The same pattern at two resolutions should still score high.
	a := checkerboard(400, 400, 100)
	b := checkerboard(200, 200, 50)
	got := Similarity(a, b)
	if got < 0.9 {
		t.Errorf("Similarity across resolutions = %v, want >= 0.9", got)
	}
}

func TestDiffMagnitude(t *testing.T) {
	tests := []struct {
		name string
		a, b *image.Gray
		want float64
	}{
		{"identical", solid(10, 10, 128), solid(10, 10, 128), 0.0},
		{"maximal", solid(10, 10, 0), solid(10, 10, 255), 1.0},
		{"shape mismatch", solid(10, 10, 0), solid(20, 20, 0), 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DiffMagnitude(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("DiffMagnitude() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChangeCentroid(t *testing.T) {
	// 50x50 white square appearing at (100,100) on a 400x400 black frame.
	// The centroid of the changed region is the square's center.
	a := solid(400, 400, 0)
	b := solid(400, 400, 0)
	for y := 100; y < 150; y++ {
		for x := 100; x < 150; x++ {
			b.SetGray(x, y, color.Gray{Y: 255})
		}
	}

	x, y, ok := ChangeCentroid(a, b)
	if !ok {
		t.Fatal("ChangeCentroid found no change")
	}
	if x < 120 || x > 129 || y < 120 || y > 129 {
		t.Errorf("centroid = (%d, %d), want ~(124, 124)", x, y)
	}
}

func TestChangeCentroidNoChange(t *testing.T) {
	a := solid(100, 100, 77)
	b := solid(100, 100, 77)
	if _, _, ok := ChangeCentroid(a, b); ok {
		t.Error("ChangeCentroid reported a change between identical frames")
	}
}

func TestChangeCentroidShapeMismatch(t *testing.T) {
	a := solid(100, 100, 0)
	b := solid(50, 50, 255)
	if _, _, ok := ChangeCentroid(a, b); ok {
		t.Error("ChangeCentroid reported a centroid for mismatched shapes")
	}
}

// gradient paints horizontal bands so each row is distinctive, which gives
// the strip matcher real content to lock onto.
func gradient(w, h, shift int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		v := uint8(((y + shift) * 7) % 251)
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func TestScrollDelta(t *testing.T) {
	a := gradient(200, 400, 0)
	b := gradient(200, 400, -40) // content moved down by 40px

	delta := ScrollDelta(a, b)
	if delta != 40 {
		t.Errorf("ScrollDelta = %d, want 40", delta)
	}
}

func TestScrollDeltaNoMovement(t *testing.T) {
	a := gradient(200, 400, 0)
	if delta := ScrollDelta(a, a); delta != 0 {
		t.Errorf("ScrollDelta on identical frames = %d, want 0", delta)
	}
}

func TestScrollDeltaNoMatch(t *testing.T) {
	// Uniform target frame has zero variance everywhere, so no window can
	// produce a convincing match.
	a := gradient(200, 400, 0)
	b := solid(200, 400, 128)
	if delta := ScrollDelta(a, b); delta != 0 {
		t.Errorf("ScrollDelta with no match = %d, want 0", delta)
	}
}

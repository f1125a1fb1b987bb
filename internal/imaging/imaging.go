// Package imaging provides the generic image-comparison primitives the
// inference pipeline is built on: frame similarity, pixel-difference
// magnitude, change-region location, and vertical-shift matching. All
// operations work on single-channel intensity images.
package imaging

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// compareSize is the fixed resolution frames are downsampled to before
// computing similarity. Comparing at a small fixed size keeps the metric
// defined across resolution changes and cheap for long recordings.
const compareSize = 256

// ToGray converts an image to single-channel intensity. Images that are
// already grayscale are returned as-is.
func ToGray(src image.Image) *image.Gray {
	if g, ok := src.(*image.Gray); ok {
		return g
	}
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Set(x, y, color.GrayModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)))
		}
	}
	return dst
}

// Downsample scales an image to w x h intensity pixels.
func Downsample(src image.Image, w, h int) *image.Gray {
	gray := ToGray(src)
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), gray, gray.Bounds(), draw.Src, nil)
	return dst
}

// Similarity computes a normalized cross-correlation score in [0, 1] between
// two frames. Both images are downsampled to a fixed comparison size and
// zero-mean/unit-variance normalized, so the score stays defined even when
// the raw frames differ in resolution. The metric is symmetric.
func Similarity(a, b image.Image) float64 {
	ga := Downsample(a, compareSize, compareSize)
	gb := Downsample(b, compareSize, compareSize)

	na := normalize(ga.Pix)
	nb := normalize(gb.Pix)

	var corr float64
	for i := range na {
		corr += na[i] * nb[i]
	}
	corr /= float64(len(na))

	return (corr + 1) / 2
}

// normalize returns the pixel values shifted to zero mean and scaled to unit
// variance. A small epsilon keeps flat images from dividing by zero.
func normalize(pix []uint8) []float64 {
	n := float64(len(pix))
	var sum float64
	for _, p := range pix {
		sum += float64(p)
	}
	mean := sum / n

	var variance float64
	for _, p := range pix {
		d := float64(p) - mean
		variance += d * d
	}
	std := math.Sqrt(variance/n) + 1e-8

	out := make([]float64, len(pix))
	for i, p := range pix {
		out[i] = (float64(p) - mean) / std
	}
	return out
}

// DiffMagnitude computes the normalized pixel-difference magnitude between
// two intensity images: the sum of absolute differences divided by the
// maximum possible difference. Frames of mismatched shape are defined as
// maximally different (1.0).
func DiffMagnitude(a, b *image.Gray) float64 {
	if !a.Bounds().Eq(b.Bounds()) {
		return 1.0
	}
	var total float64
	for i := range a.Pix {
		total += math.Abs(float64(a.Pix[i]) - float64(b.Pix[i]))
	}
	return total / (255 * float64(len(a.Pix)))
}

// ChangeCentroid locates the center of the changed region between two
// intensity images: the mean position of all pixels whose absolute
// difference exceeds half the pair's maximum difference. It reports ok=false
// when the images differ in shape or nothing changed at all.
func ChangeCentroid(a, b *image.Gray) (x, y int, ok bool) {
	if !a.Bounds().Eq(b.Bounds()) {
		return 0, 0, false
	}
	w := a.Bounds().Dx()
	h := a.Bounds().Dy()

	diff := make([]float64, len(a.Pix))
	var maxDiff float64
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			i := row*a.Stride + col
			d := math.Abs(float64(a.Pix[i]) - float64(b.Pix[i]))
			diff[row*w+col] = d
			if d > maxDiff {
				maxDiff = d
			}
		}
	}
	if maxDiff == 0 {
		return 0, 0, false
	}

	threshold := maxDiff * 0.5
	var sumX, sumY float64
	var count int
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			if diff[row*w+col] > threshold {
				sumX += float64(col)
				sumY += float64(row)
				count++
			}
		}
	}
	if count == 0 {
		return 0, 0, false
	}
	return int(sumX / float64(count)), int(sumY / float64(count)), true
}

// minMatchScore is the minimum normalized template-match score for a strip
// match to count as real content movement rather than a coincidence.
const minMatchScore = 0.7

// ScrollDelta estimates vertical content movement between two frames. A
// horizontal strip (one tenth of the frame height) is taken from the
// vertical middle of the earlier frame and matched against every vertical
// position in the later frame using normalized cross-correlation. The
// returned delta is the offset between the strip's original and matched
// position; 0 means no convincing match was found.
func ScrollDelta(a, b *image.Gray) int {
	if !a.Bounds().Eq(b.Bounds()) {
		return 0
	}
	w := a.Bounds().Dx()
	h := a.Bounds().Dy()

	stripH := h / 10
	if stripH < 1 || w < 1 {
		return 0
	}
	stripStart := h/2 - stripH/2

	template := extractRows(a, stripStart, stripH, w)
	tVec, tLen := meanCentered(template)
	if tLen == 0 {
		return 0
	}

	bestScore := -2.0
	bestY := stripStart
	window := make([]float64, stripH*w)
	for y := 0; y+stripH <= h; y++ {
		copyRows(b, y, stripH, w, window)
		wVec, wLen := meanCentered(window)
		if wLen == 0 {
			continue
		}
		var dot float64
		for i := range tVec {
			dot += tVec[i] * wVec[i]
		}
		score := dot / (tLen * wLen)
		if score > bestScore {
			bestScore = score
			bestY = y
		}
	}

	if bestScore < minMatchScore {
		return 0
	}
	return bestY - stripStart
}

func extractRows(img *image.Gray, start, rows, w int) []float64 {
	out := make([]float64, rows*w)
	copyRows(img, start, rows, w, out)
	return out
}

func copyRows(img *image.Gray, start, rows, w int, dst []float64) {
	for r := 0; r < rows; r++ {
		base := (start + r) * img.Stride
		for c := 0; c < w; c++ {
			dst[r*w+c] = float64(img.Pix[base+c])
		}
	}
}

// meanCentered returns the values shifted to zero mean along with the L2
// norm of the centered vector.
func meanCentered(v []float64) ([]float64, float64) {
	var sum float64
	for _, x := range v {
		sum += x
	}
	mean := sum / float64(len(v))

	out := make([]float64, len(v))
	var sq float64
	for i, x := range v {
		d := x - mean
		out[i] = d
		sq += d * d
	}
	return out, math.Sqrt(sq)
}

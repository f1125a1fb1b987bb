// Package video streams timestamped frames out of a screen recording via
// ffmpeg. An unreadable source is a hard error; everything downstream of
// frame extraction degrades softly instead.
package video

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/jpeg"
	"os/exec"
	"strconv"

	"github.com/andresmejia3/playbook/internal/types"
)

var (
	jpegSOI = []byte{0xFF, 0xD8} // Start of Image
	jpegEOI = []byte{0xFF, 0xD9} // End of Image
)

const megabyte = 1024 * 1024

// SplitJpeg is a bufio.Scanner split function that extracts complete JPEG
// frames from an MJPEG byte stream by locating the SOI/EOI markers.
func SplitJpeg(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	start := bytes.Index(data, jpegSOI)
	if start == -1 {
		return 0, nil, nil
	}
	end := bytes.Index(data[start:], jpegEOI)
	if end == -1 {
		return 0, nil, nil
	}
	return start + end + 2, data[start : start+end+2], nil
}

// Meta describes the source recording, probed before extraction.
type Meta struct {
	Width    int
	Height   int
	Duration float64
}

// Probe inspects the recording with ffprobe. A probe failure is not fatal:
// it only costs the progress estimate, so the zero Meta is returned.
func Probe(path string) Meta {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return Meta{}
	}

	type probeOutput struct {
		Streams []struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}

	cmd := exec.Command("ffprobe", "-v", "error", "-select_streams", "v:0",
		"-show_entries", "stream=width,height", "-show_entries", "format=duration",
		"-of", "json", path)
	out, err := cmd.Output()
	if err != nil {
		return Meta{}
	}

	var res probeOutput
	if json.Unmarshal(out, &res) != nil {
		return Meta{}
	}

	var m Meta
	if len(res.Streams) > 0 {
		m.Width = res.Streams[0].Width
		m.Height = res.Streams[0].Height
	}
	if d, err := strconv.ParseFloat(res.Format.Duration, 64); err == nil {
		m.Duration = d
	}
	return m
}

// ExpectedFrames estimates how many frames extraction will yield at the
// given sampling interval, for the progress bar. Returns -1 when the source
// duration is unknown.
func (m Meta) ExpectedFrames(interval float64, maxFrames int) int {
	if m.Duration <= 0 || interval <= 0 {
		return -1
	}
	n := int(m.Duration/interval) + 1
	if n > maxFrames {
		n = maxFrames
	}
	return n
}

// Handler receives each extracted frame along with its raw JPEG bytes (which
// downstream detector workers consume without re-encoding).
type Handler func(frame types.Frame, raw []byte) error

// Extract decodes the recording with ffmpeg, sampling one frame per interval
// seconds, and invokes fn for each frame in order. Frame timestamps are
// index*interval. Extraction stops after maxFrames. Failure to start or run
// ffmpeg is returned as a hard error.
func Extract(ctx context.Context, path string, interval float64, maxFrames int, fn Handler) error {
	if interval <= 0 {
		return fmt.Errorf("invalid sampling interval: %v", interval)
	}

	// fps=1/interval makes ffmpeg do the sampling so only kept frames
	// cross the pipe.
	ffmpeg := exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-loglevel", "error",
		"-i", path,
		"-vf", fmt.Sprintf("fps=1/%g", interval),
		"-f", "image2pipe", "-vcodec", "mjpeg", "-")

	var stderrBuf bytes.Buffer
	ffmpeg.Stderr = &stderrBuf

	out, err := ffmpeg.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create ffmpeg stdout pipe: %w", err)
	}

	if err := ffmpeg.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	scanner := bufio.NewScanner(out)
	scanner.Buffer(make([]byte, megabyte), 64*megabyte)
	scanner.Split(SplitJpeg)

	index := 0
	for index < maxFrames && scanner.Scan() {
		raw := make([]byte, len(scanner.Bytes()))
		copy(raw, scanner.Bytes())

		img, err := jpeg.Decode(bytes.NewReader(raw))
		if err != nil {
			// A torn frame at the end of a stream is not worth
			// failing the whole run for.
			continue
		}

		frame := types.Frame{
			Index:     index,
			Timestamp: float64(index) * interval,
			Width:     img.Bounds().Dx(),
			Height:    img.Bounds().Dy(),
			Image:     img,
		}
		if err := fn(frame, raw); err != nil {
			ffmpeg.Process.Kill()
			ffmpeg.Wait()
			return err
		}
		index++
	}

	if err := scanner.Err(); err != nil {
		ffmpeg.Process.Kill()
		ffmpeg.Wait()
		return fmt.Errorf("frame scanner failed: %w", err)
	}

	// Reaching maxFrames leaves ffmpeg writing into a closed pipe; kill it
	// rather than report its exit status.
	if index >= maxFrames {
		ffmpeg.Process.Kill()
		ffmpeg.Wait()
		return nil
	}

	if err := ffmpeg.Wait(); err != nil {
		if stderrBuf.Len() > 0 {
			return fmt.Errorf("ffmpeg failed: %w\n%s", err, stderrBuf.String())
		}
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	return nil
}

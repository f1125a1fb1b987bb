// Package worker manages the Python UI-detector subprocesses. Each worker
// speaks a length-prefixed protocol: Go writes [uint32 len][jpeg bytes] on
// stdin, Python replies [uint32 len][json] on a dedicated FD-3 pipe so that
// stray prints on stdout can never corrupt the data stream.
package worker

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/andresmejia3/playbook/internal/types"
	"github.com/andresmejia3/playbook/internal/utils"
)

// DetectorWorker is one running Python detector process.
type DetectorWorker struct {
	ID       int
	Cmd      *utils.SafeCommand
	Stdin    io.WriteCloser
	DataPipe io.ReadCloser

	// MinConfidence filters detector output before it enters the pipeline.
	MinConfidence float64
}

// NewDetectorWorker spawns a detector process and wires up its pipes.
func NewDetectorWorker(id int, minConfidence float64) (*DetectorWorker, error) {
	py := utils.NewSafeCommand("python3", "-u", "python/detector.py")

	// Side-channel pipe for results. It appears as FD 3 in the child.
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	py.Cmd.ExtraFiles = []*os.File{w}

	stdin, err := py.StdinPipe()
	if err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := py.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("worker %d failed to start: %w", id, err)
	}

	// Close the write-end in the parent so only the child holds it
	w.Close()

	return &DetectorWorker{
		ID:            id,
		Cmd:           py,
		Stdin:         stdin,
		DataPipe:      r,
		MinConfidence: minConfidence,
	}, nil
}

// Communicate sends one JPEG frame and reads back the raw JSON reply.
func (w *DetectorWorker) Communicate(data []byte) ([]byte, error) {
	// Protocol: [Length][Data]
	if err := binary.Write(w.Stdin, binary.BigEndian, uint32(len(data))); err != nil {
		return nil, err
	}
	if _, err := w.Stdin.Write(data); err != nil {
		return nil, err
	}

	// A failed ReadFull here usually means the Python side crashed; the
	// crash log lives in Cmd.Stderr.
	header := make([]byte, 4)
	if _, err := io.ReadFull(w.DataPipe, header); err != nil {
		return nil, err
	}

	respLen := binary.BigEndian.Uint32(header)
	respBody := make([]byte, respLen)
	_, err := io.ReadFull(w.DataPipe, respBody)
	return respBody, err
}

// detectorReply is the JSON the Python side writes per frame.
type detectorReply struct {
	Elements []struct {
		Type        string  `json:"type"`
		X           int     `json:"x"`
		Y           int     `json:"y"`
		Width       int     `json:"width"`
		Height      int     `json:"height"`
		Confidence  float64 `json:"confidence"`
		Text        string  `json:"text"`
		Value       string  `json:"value"`
		Placeholder string  `json:"placeholder"`
	} `json:"elements"`
	Error string `json:"error"`
}

// Detect runs the detector on one frame and returns its elements, filtered
// by confidence and normalized into pipeline types. A detector-side failure
// is soft: it is logged and an empty set is returned, so one bad frame never
// aborts a run. Transport failures (dead process) are returned as errors.
func (w *DetectorWorker) Detect(jpegData []byte) ([]types.UIElement, error) {
	raw, err := w.Communicate(jpegData)
	if err != nil {
		return nil, fmt.Errorf("worker %d communication failed: %w", w.ID, err)
	}

	var reply detectorReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		utils.ShowError(fmt.Sprintf("worker %d returned malformed output", w.ID), err)
		return nil, nil
	}
	if reply.Error != "" {
		utils.ShowError(fmt.Sprintf("worker %d detection failed", w.ID), fmt.Errorf("%s", reply.Error))
		return nil, nil
	}

	elements := make([]types.UIElement, 0, len(reply.Elements))
	for _, e := range reply.Elements {
		if e.Confidence < w.MinConfidence {
			continue
		}
		elements = append(elements, types.UIElement{
			ID:   types.NewID("elem"),
			Type: types.ParseElementType(e.Type),
			Bounds: types.Rect{
				X:      e.X,
				Y:      e.Y,
				Width:  e.Width,
				Height: e.Height,
			},
			Confidence:  e.Confidence,
			Text:        e.Text,
			Value:       e.Value,
			Placeholder: e.Placeholder,
		})
	}
	return elements, nil
}

// Close shuts the worker down and reaps the process.
func (w *DetectorWorker) Close() {
	w.Stdin.Close()
	w.DataPipe.Close()
	w.Cmd.Wait()
}

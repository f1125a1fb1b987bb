package worker

import (
	"encoding/binary"
	"io"
	"testing"
)

// fakeDetector speaks the worker protocol over in-memory pipes: it reads one
// length-prefixed frame from its stdin end and writes the canned JSON reply,
// length-prefixed, to the data-pipe end.
func fakeDetector(t *testing.T, reply string) *DetectorWorker {
	t.Helper()

	stdinR, stdinW := io.Pipe()
	dataR, dataW := io.Pipe()

	go func() {
		defer dataW.Close()

		header := make([]byte, 4)
		if _, err := io.ReadFull(stdinR, header); err != nil {
			return
		}
		frame := make([]byte, binary.BigEndian.Uint32(header))
		if _, err := io.ReadFull(stdinR, frame); err != nil {
			return
		}

		binary.Write(dataW, binary.BigEndian, uint32(len(reply)))
		dataW.Write([]byte(reply))
	}()

	return &DetectorWorker{
		ID:            0,
		Stdin:         stdinW,
		DataPipe:      dataR,
		MinConfidence: 0.7,
	}
}

func TestDetect(t *testing.T) {
	reply := `{"elements": [
		{"type": "button", "x": 10, "y": 20, "width": 100, "height": 40, "confidence": 0.92, "text": "Sign In"},
		{"type": "text_input", "x": 10, "y": 70, "width": 200, "height": 30, "confidence": 0.85, "value": "admin"},
		{"type": "label", "x": 0, "y": 0, "width": 50, "height": 20, "confidence": 0.4}
	]}`
	w := fakeDetector(t, reply)

	elements, err := w.Detect([]byte{0xFF, 0xD8, 0xFF, 0xD9})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	// The 0.4-confidence label falls below the 0.7 threshold.
	if len(elements) != 2 {
		t.Fatalf("got %d elements, want 2", len(elements))
	}

	btn := elements[0]
	if btn.Type != "button" || btn.Text != "Sign In" {
		t.Errorf("first element = %+v", btn)
	}
	if btn.Bounds.X != 10 || btn.Bounds.Width != 100 {
		t.Errorf("button bounds = %+v", btn.Bounds)
	}
	if btn.ID == "" || btn.ID == elements[1].ID {
		t.Errorf("element ids not unique: %q, %q", btn.ID, elements[1].ID)
	}

	if elements[1].Type != "text_input" || elements[1].Value != "admin" {
		t.Errorf("second element = %+v", elements[1])
	}
}

func TestDetectReportedError(t *testing.T) {
	w := fakeDetector(t, `{"error": "model failed to load"}`)

	elements, err := w.Detect([]byte{0xFF, 0xD8})
	if err != nil {
		t.Fatalf("Detect returned a transport error for a soft failure: %v", err)
	}
	if len(elements) != 0 {
		t.Errorf("got %d elements from a failed detection, want 0", len(elements))
	}
}

func TestDetectMalformedReply(t *testing.T) {
	w := fakeDetector(t, `this is not json`)

	elements, err := w.Detect([]byte{0xFF, 0xD8})
	if err != nil {
		t.Fatalf("Detect returned a transport error for malformed output: %v", err)
	}
	if len(elements) != 0 {
		t.Errorf("got %d elements from malformed output, want 0", len(elements))
	}
}

func TestDetectDeadPipe(t *testing.T) {
	stdinR, stdinW := io.Pipe()
	dataR, dataW := io.Pipe()
	stdinR.Close()
	dataW.Close()

	w := &DetectorWorker{Stdin: stdinW, DataPipe: dataR}
	if _, err := w.Detect([]byte{0xFF, 0xD8}); err == nil {
		t.Error("expected a transport error from a dead pipe")
	}
}

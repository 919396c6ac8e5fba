package detector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"
)

type stubEngine struct {
	out Output
	err error
}

func (e *stubEngine) Detect(ctx context.Context, img image.Image) (Output, error) {
	return e.out, e.err
}

func testImage(w, h int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

func annotatedJPEG(t *testing.T) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.White)
		}
	}
	if err := jpeg.Encode(buf, img, nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestInvokeFiltersBelowThreshold(t *testing.T) {
	engine := &stubEngine{out: Output{
		Detections: []RawDetection{
			{Label: "dent", Confidence: 0.42, Box: [4]float64{100, 120, 260, 300}},
			{Label: "scratch", Confidence: 0.1, Box: [4]float64{5, 5, 10, 10}},
			{Label: "crack", Confidence: 0.3, Box: [4]float64{1, 1, 2, 2}},
		},
		Annotated: annotatedJPEG(t),
	}}

	invoker := NewInvoker(engine, 0.3, 0)
	detections, annotated, err := invoker.Invoke(context.Background(), testImage(640, 480))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(annotated) == 0 {
		t.Fatalf("expected annotated bytes")
	}
	if len(detections) != 2 {
		t.Fatalf("expected 2 detections, got %d", len(detections))
	}
	if detections[0].Label != "dent" || detections[1].Label != "crack" {
		t.Fatalf("unexpected labels or order: %+v", detections)
	}
}

func TestInvokeRoundsConfidenceAndBox(t *testing.T) {
	engine := &stubEngine{out: Output{
		Detections: []RawDetection{
			{Label: "dent", Confidence: 0.42044, Box: [4]float64{100.04, 120.05, 260.94, 300.96}},
		},
		Annotated: annotatedJPEG(t),
	}}

	invoker := NewInvoker(engine, 0.3, 0)
	detections, _, err := invoker.Invoke(context.Background(), testImage(640, 480))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	d := detections[0]
	if d.Confidence != 0.42 {
		t.Fatalf("expected confidence 0.42, got %v", d.Confidence)
	}
	want := [4]float64{100.0, 120.1, 260.9, 301.0}
	if d.BBox != want {
		t.Fatalf("expected bbox %v, got %v", want, d.BBox)
	}
}

func TestInvokeClampsBoxToImageBounds(t *testing.T) {
	engine := &stubEngine{out: Output{
		Detections: []RawDetection{
			{Label: "dent", Confidence: 0.8, Box: [4]float64{-5, -2, 700, 500}},
			{Label: "scratch", Confidence: 0.8, Box: [4]float64{200, 300, 100, 120}},
		},
		Annotated: annotatedJPEG(t),
	}}

	invoker := NewInvoker(engine, 0.3, 0)
	detections, _, err := invoker.Invoke(context.Background(), testImage(640, 480))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	for _, d := range detections {
		x1, y1, x2, y2 := d.BBox[0], d.BBox[1], d.BBox[2], d.BBox[3]
		if x1 < 0 || x1 > x2 || x2 > 640 {
			t.Fatalf("x bounds violated: %+v", d)
		}
		if y1 < 0 || y1 > y2 || y2 > 480 {
			t.Fatalf("y bounds violated: %+v", d)
		}
	}
}

func TestInvokeWrapsEngineFailure(t *testing.T) {
	engine := &stubEngine{err: fmt.Errorf("cuda out of memory")}
	invoker := NewInvoker(engine, 0.3, time.Second)

	_, _, err := invoker.Invoke(context.Background(), testImage(64, 48))
	if !errors.Is(err, ErrEngine) {
		t.Fatalf("expected ErrEngine, got %v", err)
	}
}

func TestInvokeRejectsMalformedAnnotatedOutput(t *testing.T) {
	for name, annotated := range map[string][]byte{
		"empty":       nil,
		"undecodable": []byte("not a jpeg"),
	} {
		engine := &stubEngine{out: Output{Annotated: annotated}}
		invoker := NewInvoker(engine, 0.3, 0)
		_, _, err := invoker.Invoke(context.Background(), testImage(64, 48))
		if !errors.Is(err, ErrEngine) {
			t.Fatalf("%s: expected ErrEngine, got %v", name, err)
		}
	}
}

package detector

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	_ "image/jpeg" // annotated output validation
)

// Invoker wraps the engine handle with the per-request policy: one call per
// request, confidence filtering, coordinate clamping and rounding. Calls to
// the engine are serialized because model handles are not assumed safe for
// concurrent inference; this mutex is the only contention point in the
// pipeline.
type Invoker struct {
	mu        sync.Mutex
	engine    Engine
	threshold float64
	timeout   time.Duration
}

// NewInvoker constructs an Invoker around an engine handle.
func NewInvoker(engine Engine, threshold float64, timeout time.Duration) *Invoker {
	return &Invoker{engine: engine, threshold: threshold, timeout: timeout}
}

// Threshold returns the configured minimum confidence.
func (v *Invoker) Threshold() float64 {
	return v.threshold
}

// Invoke runs the engine once on img and maps its output into filtered
// Detections plus the annotated JPEG. All failures wrap ErrEngine.
func (v *Invoker) Invoke(ctx context.Context, img image.Image) ([]Detection, []byte, error) {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	v.mu.Lock()
	out, err := v.engine.Detect(ctx, img)
	v.mu.Unlock()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrEngine, err)
	}

	if len(out.Annotated) == 0 {
		return nil, nil, fmt.Errorf("%w: empty annotated image", ErrEngine)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(out.Annotated)); err != nil {
		return nil, nil, fmt.Errorf("%w: undecodable annotated image: %v", ErrEngine, err)
	}

	bounds := img.Bounds()
	width := float64(bounds.Dx())
	height := float64(bounds.Dy())

	detections := make([]Detection, 0, len(out.Detections))
	for _, raw := range out.Detections {
		if raw.Confidence < v.threshold {
			continue
		}
		box := normalizeBox(raw.Box, width, height)
		detections = append(detections, Detection{
			Label:      raw.Label,
			Confidence: round(raw.Confidence, 3),
			BBox: [4]float64{
				round(box[0], 1),
				round(box[1], 1),
				round(box[2], 1),
				round(box[3], 1),
			},
		})
	}
	return detections, out.Annotated, nil
}

// normalizeBox orders corners and clamps them into the image bounds so that
// 0 <= x1 <= x2 <= width and 0 <= y1 <= y2 <= height always hold.
func normalizeBox(box [4]float64, width, height float64) [4]float64 {
	x1, y1, x2, y2 := box[0], box[1], box[2], box[3]
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return [4]float64{
		clamp(x1, 0, width),
		clamp(y1, 0, height),
		clamp(x2, 0, width),
		clamp(y2, 0, height),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}

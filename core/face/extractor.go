// Package face extracts fixed-length embeddings from normalized rasters using
// the dlib models bundled with go-face: a frontal HOG detector, the 68-point
// shape predictor for landmark refinement, and the ResNet descriptor network.
// The detector configuration is go-face's fixed default (single jitter, no
// padding) and must stay identical for registration and verification:
// embeddings from differently configured detectors are not comparable.
package face

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"sync"

	goface "github.com/Kagami/go-face"
	"golang.org/x/sync/singleflight"
)

// DescriptorLen is the length of the embedding produced by the dlib
// descriptor network.
const DescriptorLen = 128

// Quality used when re-encoding the normalized raster for the detector,
// which only accepts JPEG input.
const jpegQuality = 90

// Descriptor is a face embedding, compared by Euclidean distance.
type Descriptor []float32

// ErrNoFaceDetected is an expected outcome, not a fault: the image decoded
// fine but contains no detectable face.
var ErrNoFaceDetected = errors.New("no face detected")

// recognizer is the subset of go-face the extractor depends on.
type recognizer interface {
	Recognize(imgData []byte) ([]goface.Face, error)
	Close()
}

// Extractor wraps a lazily loaded go-face recognizer. Model loading is
// process-wide shared state: the singleflight group guarantees that N
// concurrent first calls trigger exactly one load and all wait on it.
type Extractor struct {
	modelDir string
	log      *slog.Logger
	loadFn   func(dir string) (recognizer, error)

	group singleflight.Group
	mu    sync.RWMutex
	rec   recognizer
}

func NewExtractor(modelDir string, log *slog.Logger) *Extractor {
	return &Extractor{
		modelDir: modelDir,
		log:      log,
		loadFn:   loadRecognizer,
	}
}

func loadRecognizer(dir string) (recognizer, error) {
	return goface.NewRecognizer(dir)
}

// Warmup loads the models eagerly. Call it at startup so that missing model
// files fail the process instead of the first request.
func (e *Extractor) Warmup() error {
	_, err := e.ensureLoaded()
	return err
}

func (e *Extractor) ensureLoaded() (recognizer, error) {
	e.mu.RLock()
	rec := e.rec
	e.mu.RUnlock()
	if rec != nil {
		return rec, nil
	}

	v, err, _ := e.group.Do("load", func() (any, error) {
		e.mu.RLock()
		rec := e.rec
		e.mu.RUnlock()
		if rec != nil {
			return rec, nil
		}

		e.log.Info("loading face recognition models", "dir", e.modelDir)
		loaded, err := e.loadFn(e.modelDir)
		if err != nil {
			return nil, fmt.Errorf("loading face models from %q: %w", e.modelDir, err)
		}

		e.mu.Lock()
		e.rec = loaded
		e.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(recognizer), nil
}

// Extract runs detection over the raster and returns the embedding of the
// most prominent (largest) face, or ErrNoFaceDetected when the image contains
// none.
func (e *Extractor) Extract(img image.Image) (Descriptor, error) {
	rec, err := e.ensureLoaded()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encoding raster for detection: %w", err)
	}

	faces, err := rec.Recognize(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("running face detection: %w", err)
	}
	if len(faces) == 0 {
		return nil, ErrNoFaceDetected
	}

	best := faces[0]
	for _, f := range faces[1:] {
		if rectArea(f.Rectangle) > rectArea(best.Rectangle) {
			best = f
		}
	}

	d := make(Descriptor, DescriptorLen)
	copy(d, best.Descriptor[:])
	return d, nil
}

// Close releases the loaded recognizer, if any.
func (e *Extractor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec != nil {
		e.rec.Close()
		e.rec = nil
	}
}

func rectArea(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}

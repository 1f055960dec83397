// Package recognition wraps dlib/go-face for face detection and
// descriptor extraction. Detection, landmark alignment, and embedding
// generation are all delegated to the pre-trained dlib models.
package recognition

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/Kagami/go-face"

	"github.com/facemark/facemark/pkg/logging"
)

// Descriptor is a 128-dimensional face descriptor from dlib.
type Descriptor = face.Descriptor

// Face represents a detected face in an image.
type Face struct {
	BoundingBox Rectangle
	Descriptor  Descriptor
}

// Rectangle represents a bounding box.
type Rectangle struct {
	X, Y          int
	Width, Height int
}

// ErrNoFaceDetected is returned when no face is found in the image.
var ErrNoFaceDetected = errors.New("no face detected")

// ErrModelNotLoaded is returned when models are not loaded.
var ErrModelNotLoaded = errors.New("recognition models not loaded")

// DlibRecognizer implements face detection and descriptor extraction
// using dlib via go-face.
type DlibRecognizer struct {
	rec    *face.Recognizer
	loaded bool
	mu     sync.RWMutex
}

// NewRecognizer creates a new DlibRecognizer instance.
// Models must be loaded with LoadModels before use.
func NewRecognizer() *DlibRecognizer {
	return &DlibRecognizer{}
}

// LoadModels loads the dlib face recognition models from the specified path.
// The path should contain:
// - shape_predictor_5_face_landmarks.dat
// - dlib_face_recognition_resnet_model_v1.dat
// - mmod_human_face_detector.dat
func (r *DlibRecognizer) LoadModels(modelPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loaded {
		return nil
	}

	logging.Infof("Loading face recognition models from: %s", modelPath)

	rec, err := face.NewRecognizer(modelPath)
	if err != nil {
		return fmt.Errorf("failed to load models: %w", err)
	}

	r.rec = rec
	r.loaded = true

	logging.Info("Face recognition models loaded")
	return nil
}

// IsLoaded returns true if models are loaded.
func (r *DlibRecognizer) IsLoaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Close releases the recognizer resources.
func (r *DlibRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rec != nil {
		r.rec.Close()
		r.rec = nil
	}
	r.loaded = false
	return nil
}

// DetectFaces detects all faces in a JPEG image.
func (r *DlibRecognizer) DetectFaces(imageData []byte) ([]Face, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.loaded {
		return nil, ErrModelNotLoaded
	}

	faces, err := r.rec.Recognize(imageData)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}
	if len(faces) == 0 {
		return nil, ErrNoFaceDetected
	}

	result := convertFaces(faces)
	logging.Debugf("Detected %d face(s) in image", len(result))
	return result, nil
}

// DetectFacesFile detects all faces in an image file on disk.
func (r *DlibRecognizer) DetectFacesFile(path string) ([]Face, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.loaded {
		return nil, ErrModelNotLoaded
	}

	faces, err := r.rec.RecognizeFile(path)
	if err != nil {
		return nil, fmt.Errorf("face detection failed for %s: %w", path, err)
	}
	if len(faces) == 0 {
		return nil, ErrNoFaceDetected
	}

	return convertFaces(faces), nil
}

func convertFaces(faces []face.Face) []Face {
	result := make([]Face, len(faces))
	for i, f := range faces {
		rect := f.Rectangle
		result[i] = Face{
			BoundingBox: Rectangle{
				X:      rect.Min.X,
				Y:      rect.Min.Y,
				Width:  rect.Dx(),
				Height: rect.Dy(),
			},
			Descriptor: f.Descriptor,
		}
	}
	return result
}

// EuclideanDistance calculates the Euclidean distance between two descriptors.
func EuclideanDistance(d1, d2 Descriptor) float64 {
	if len(d1) != len(d2) {
		return math.MaxFloat64
	}

	var sum float64
	for i := range d1 {
		diff := float64(d1[i] - d2[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// FindBestMatch finds the nearest descriptor in the gallery.
// Returns the index of the nearest entry, its distance, and whether the
// distance is below the tolerance. An empty gallery never matches.
func FindBestMatch(probe Descriptor, gallery []Descriptor, tolerance float64) (int, float64, bool) {
	if len(gallery) == 0 {
		return -1, math.MaxFloat64, false
	}

	bestIdx := 0
	bestDist := math.MaxFloat64

	for i, d := range gallery {
		dist := EuclideanDistance(probe, d)
		if dist < bestDist {
			bestDist = dist
			bestIdx = i
		}
	}

	return bestIdx, bestDist, bestDist < tolerance
}

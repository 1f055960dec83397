// Package enroll builds the gallery of known identities from a
// directory of reference images. The base filename of each image is the
// identity's name.
package enroll

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/facemark/facemark/pkg/logging"
	"github.com/facemark/facemark/pkg/recognition"
)

// Identity is one enrolled person: a name and the face descriptor
// computed from their reference image. Immutable after load.
type Identity struct {
	Name       string                 `json:"name"`
	Descriptor recognition.Descriptor `json:"descriptor"`
}

// ErrNoImages is returned when the reference directory holds no usable images.
var ErrNoImages = errors.New("no reference images found")

// FaceFinder extracts faces from an image file. Satisfied by
// recognition.DlibRecognizer.
type FaceFinder interface {
	DetectFacesFile(path string) ([]recognition.Face, error)
}

// Loader builds galleries from reference image directories.
type Loader struct {
	finder FaceFinder

	// OnImage, when set, is called before each image is processed.
	// Used by the CLI to drive a progress bar.
	OnImage func(index, total int, name string)
}

// NewLoader creates a Loader backed by the given face finder.
func NewLoader(finder FaceFinder) *Loader {
	return &Loader{finder: finder}
}

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// LoadDirectory reads every image in dir and returns one Identity per
// image that contains a detectable face. Images with no face, or that
// cannot be read, are skipped with a warning. Order follows the sorted
// directory listing, so repeated runs produce the same gallery.
func (l *Loader) LoadDirectory(dir string) ([]Identity, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, entry.Name())
		}
	}

	if len(files) == 0 {
		return nil, ErrNoImages
	}

	var gallery []Identity
	for i, name := range files {
		identity := strings.TrimSuffix(name, filepath.Ext(name))
		if l.OnImage != nil {
			l.OnImage(i, len(files), identity)
		}

		faces, err := l.finder.DetectFacesFile(filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, recognition.ErrNoFaceDetected) {
				logging.Warnf("No face in reference image %s, skipping", name)
			} else {
				logging.Warnf("Failed to process reference image %s: %v", name, err)
			}
			continue
		}

		if len(faces) > 1 {
			logging.Warnf("Multiple faces in reference image %s, using the first", name)
		}

		gallery = append(gallery, Identity{
			Name:       identity,
			Descriptor: faces[0].Descriptor,
		})
		logging.Debugf("Enrolled %s from %s", identity, name)
	}

	logging.Infof("Enrolled %d of %d reference image(s) from %s", len(gallery), len(files), dir)
	return gallery, nil
}

// Names returns the identity names of a gallery in order.
func Names(gallery []Identity) []string {
	names := make([]string, len(gallery))
	for i, id := range gallery {
		names[i] = id.Name
	}
	return names
}

// Descriptors returns the descriptors of a gallery in order.
func Descriptors(gallery []Identity) []recognition.Descriptor {
	descs := make([]recognition.Descriptor, len(gallery))
	for i, id := range gallery {
		descs[i] = id.Descriptor
	}
	return descs
}

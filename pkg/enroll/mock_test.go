package enroll

import (
	"github.com/facemark/facemark/pkg/recognition"
)

type MockFaceFinder struct {
	DetectFacesFileFunc func(path string) ([]recognition.Face, error)
}

func (m *MockFaceFinder) DetectFacesFile(path string) ([]recognition.Face, error) {
	if m.DetectFacesFileFunc != nil {
		return m.DetectFacesFileFunc(path)
	}
	return nil, recognition.ErrNoFaceDetected
}

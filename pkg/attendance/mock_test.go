package attendance

import (
	"time"

	"github.com/facemark/facemark/pkg/camera"
	"github.com/facemark/facemark/pkg/recognition"
)

type MockFrameSource struct {
	ReadFrameFunc func() (*camera.Frame, error)
}

func (m *MockFrameSource) ReadFrame() (*camera.Frame, error) {
	if m.ReadFrameFunc != nil {
		return m.ReadFrameFunc()
	}
	return nil, camera.ErrNoFrame
}

type MockRecognizer struct {
	DetectFacesFunc func(data []byte) ([]recognition.Face, error)
}

func (m *MockRecognizer) DetectFaces(data []byte) ([]recognition.Face, error) {
	if m.DetectFacesFunc != nil {
		return m.DetectFacesFunc(data)
	}
	return nil, recognition.ErrNoFaceDetected
}

type MockSink struct {
	Records []string
	Err     error
}

func (m *MockSink) Record(name string, at time.Time) error {
	if m.Err != nil {
		return m.Err
	}
	m.Records = append(m.Records, name)
	return nil
}

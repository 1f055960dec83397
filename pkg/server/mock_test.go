package server

import (
	"github.com/facemark/facemark/pkg/attendance"
)

type MockProcessor struct {
	ProcessFrameFunc func(data []byte, result *attendance.SessionResult) ([]attendance.Sighting, error)
	Frames           [][]byte
}

func (m *MockProcessor) ProcessFrame(data []byte, result *attendance.SessionResult) ([]attendance.Sighting, error) {
	m.Frames = append(m.Frames, data)
	if m.ProcessFrameFunc != nil {
		return m.ProcessFrameFunc(data, result)
	}
	return nil, nil
}

// Package camera provides webcam access and JPEG frame capture via gocv.
package camera

import (
	"errors"
	"time"

	"gocv.io/x/gocv"

	"github.com/facemark/facemark/pkg/logging"
)

// Frame represents a single captured camera frame, JPEG encoded.
type Frame struct {
	Data      []byte
	Width     int
	Height    int
	Timestamp time.Time
}

// ErrCameraNotFound is returned when the camera device cannot be opened.
var ErrCameraNotFound = errors.New("camera device not found")

// ErrCameraNotOpen is returned when capturing from a closed camera.
var ErrCameraNotOpen = errors.New("camera not open")

// ErrNoFrame is returned when no frame could be captured.
var ErrNoFrame = errors.New("failed to capture frame")

// Webcam captures frames from a video device.
type Webcam struct {
	cap    *gocv.VideoCapture
	device string
}

// Open opens the given video device. The device may be an index ("0")
// or a path ("/dev/video0"); gocv accepts both forms as strings.
func Open(device string) (*Webcam, error) {
	cap, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, ErrCameraNotFound
	}

	logging.Debugf("Opened camera device: %s", device)
	return &Webcam{cap: cap, device: device}, nil
}

// SetResolution requests a capture resolution from the device.
// Devices may silently fall back to the nearest supported mode.
func (w *Webcam) SetResolution(width, height int) error {
	if w.cap == nil {
		return ErrCameraNotOpen
	}
	w.cap.Set(gocv.VideoCaptureFrameWidth, float64(width))
	w.cap.Set(gocv.VideoCaptureFrameHeight, float64(height))
	return nil
}

// Warmup grabs and discards n frames so the sensor can settle exposure.
func (w *Webcam) Warmup(n int) {
	if w.cap == nil || n <= 0 {
		return
	}
	w.cap.Grab(n)
}

// ReadFrame captures a single frame and returns it JPEG encoded.
func (w *Webcam) ReadFrame() (*Frame, error) {
	if w.cap == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	defer mat.Close()

	if ok := w.cap.Read(&mat); !ok {
		return nil, ErrNoFrame
	}
	if mat.Empty() {
		return nil, ErrNoFrame
	}

	jpeg, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, ErrNoFrame
	}

	return &Frame{
		Data:      jpeg,
		Width:     mat.Cols(),
		Height:    mat.Rows(),
		Timestamp: time.Now(),
	}, nil
}

// Device returns the device identifier the camera was opened with.
func (w *Webcam) Device() string {
	return w.device
}

// Close releases the capture device.
func (w *Webcam) Close() error {
	if w.cap == nil {
		return nil
	}
	err := w.cap.Close()
	w.cap = nil
	return err
}

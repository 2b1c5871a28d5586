// Package opencv implements the vision interfaces with gocv: a camera source,
// a Haar cascade face detector and an overlay window.
package opencv

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/gwillem/faceguide/pkg/vision"
)

// Default capture size.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// ErrEmptyFrame is returned when the camera delivers no image.
var ErrEmptyFrame = errors.New("empty frame")

// Frame wraps a gocv.Mat. It must be closed by the consumer.
type Frame struct {
	mat gocv.Mat
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int { return f.mat.Cols() }

// Height returns the frame height in pixels.
func (f *Frame) Height() int { return f.mat.Rows() }

// Mat exposes the underlying image.
func (f *Frame) Mat() *gocv.Mat { return &f.mat }

// Close releases the image memory.
func (f *Frame) Close() error { return f.mat.Close() }

// CameraConfig configures a Camera.
type CameraConfig struct {
	Device int
	Width  int
	Height int
	Mirror bool // flip horizontally, so the image behaves like a mirror
}

// Camera reads frames from a local video device.
type Camera struct {
	cap    *gocv.VideoCapture
	cfg    CameraConfig
	device int
}

var _ vision.Source = (*Camera)(nil)

// OpenCamera opens the video device and requests the configured frame size.
func OpenCamera(cfg CameraConfig) (*Camera, error) {
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}

	vc, err := gocv.VideoCaptureDevice(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open camera %d: device not available", cfg.Device)
	}
	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))

	return &Camera{cap: vc, cfg: cfg, device: cfg.Device}, nil
}

// Read captures the next frame.
func (c *Camera) Read() (vision.Frame, error) {
	mat := gocv.NewMat()
	if ok := c.cap.Read(&mat); !ok {
		mat.Close()
		return nil, fmt.Errorf("camera %d: read failed", c.device)
	}
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("camera %d: %w", c.device, ErrEmptyFrame)
	}
	if c.cfg.Mirror {
		gocv.Flip(mat, &mat, 1)
	}
	return &Frame{mat: mat}, nil
}

// Close releases the device.
func (c *Camera) Close() error {
	return c.cap.Close()
}

// ProbeResult describes a camera that delivered a frame.
type ProbeResult struct {
	Device int
	Width  int
	Height int
}

// Probe opens device, reads one frame and releases it.
func Probe(device int) (ProbeResult, error) {
	cam, err := OpenCamera(CameraConfig{Device: device})
	if err != nil {
		return ProbeResult{}, err
	}
	defer cam.Close()

	f, err := cam.Read()
	if err != nil {
		return ProbeResult{}, err
	}
	defer f.(*Frame).Close()

	return ProbeResult{Device: device, Width: f.Width(), Height: f.Height()}, nil
}

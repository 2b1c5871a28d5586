// Package vision defines the camera and face detector boundaries used by the guidance loop.
// Implementations backed by OpenCV live in vision/opencv.
package vision

import (
	"errors"
	"image"
)

// ErrUnsupportedFrame is returned by a Detector handed a frame from another backend.
var ErrUnsupportedFrame = errors.New("unsupported frame type")

// BoundingBox is a face region in frame pixel coordinates.
type BoundingBox struct {
	X, Y          int
	Width, Height int
}

// FromRect converts an image rectangle to a BoundingBox.
func FromRect(r image.Rectangle) BoundingBox {
	return BoundingBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Rect returns the box as an image rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Center returns the box center using integer division.
func (b BoundingBox) Center() (x, y int) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Frame is a captured video frame.
type Frame interface {
	Width() int
	Height() int
}

// Source yields frames. A Read error is terminal for the caller's loop.
type Source interface {
	Read() (Frame, error)
	Close() error
}

// Detector finds faces in a frame. Box order is unspecified.
type Detector interface {
	Detect(f Frame) ([]BoundingBox, error)
	Close() error
}

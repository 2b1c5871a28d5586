// Package guidance turns detected faces into robot motion commands.
//
// Each frame tick a face bounding box is classified by width (distance) and by
// horizontal offset from the frame center (position). Each classification maps to
// at most one corrective command, which is offered to a Dispatcher that enforces
// a minimum interval between sends and suppresses immediate repeats.
package guidance

import (
	"fmt"

	"github.com/gwillem/faceguide/pkg/command"
	"github.com/gwillem/faceguide/pkg/vision"
)

// Default thresholds, in frame pixels.
const (
	DefaultTooClose        = 200
	DefaultOptimalWidth    = 150 // roughly 50cm from a 640px camera
	DefaultTooFar          = 100
	DefaultCenterTolerance = 50
)

// Thresholds holds the fixed classification limits.
type Thresholds struct {
	TooClose        int `json:"too_close"`
	Optimal         int `json:"optimal"`
	TooFar          int `json:"too_far"`
	CenterTolerance int `json:"center_tolerance"`
}

// DefaultThresholds returns the stock limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TooClose:        DefaultTooClose,
		Optimal:         DefaultOptimalWidth,
		TooFar:          DefaultTooFar,
		CenterTolerance: DefaultCenterTolerance,
	}
}

// Validate requires TooClose > Optimal > TooFar > 0 and a non-negative tolerance.
func (t Thresholds) Validate() error {
	if t.TooFar <= 0 {
		return fmt.Errorf("too_far must be positive, got %d", t.TooFar)
	}
	if !(t.TooClose > t.Optimal && t.Optimal > t.TooFar) {
		return fmt.Errorf("thresholds must satisfy too_close > optimal > too_far, got %d/%d/%d",
			t.TooClose, t.Optimal, t.TooFar)
	}
	if t.CenterTolerance < 0 {
		return fmt.Errorf("center_tolerance must not be negative, got %d", t.CenterTolerance)
	}
	return nil
}

// DistanceState classifies how far the face is from the camera.
type DistanceState int

const (
	Optimal DistanceState = iota
	TooClose
	TooFar
)

func (d DistanceState) String() string {
	switch d {
	case TooClose:
		return "TOO_CLOSE"
	case TooFar:
		return "TOO_FAR"
	default:
		return "OPTIMAL"
	}
}

// Command returns the corrective motion for d, if any.
func (d DistanceState) Command() (command.Command, bool) {
	switch d {
	case TooClose:
		return command.Backward, true
	case TooFar:
		return command.Forward, true
	default:
		return "", false
	}
}

// PositionState classifies the horizontal offset of the face.
type PositionState int

const (
	Centered PositionState = iota
	TooLeft
	TooRight
)

func (p PositionState) String() string {
	switch p {
	case TooLeft:
		return "TOO_LEFT"
	case TooRight:
		return "TOO_RIGHT"
	default:
		return "CENTERED"
	}
}

// Command returns the corrective motion for p, if any. The command is the
// mirror of the face deviation: a face left of center moves the robot right.
func (p PositionState) Command() (command.Command, bool) {
	switch p {
	case TooLeft:
		return command.Right, true
	case TooRight:
		return command.Left, true
	default:
		return "", false
	}
}

// ClassifyDistance classifies a face by bounding-box width.
func (t Thresholds) ClassifyDistance(width int) DistanceState {
	switch {
	case width > t.TooClose:
		return TooClose
	case width < t.TooFar:
		return TooFar
	default:
		return Optimal
	}
}

// ClassifyPosition classifies a face center against the frame center.
func (t Thresholds) ClassifyPosition(faceCenterX, frameWidth int) PositionState {
	frameCenterX := frameWidth / 2
	switch {
	case faceCenterX < frameCenterX-t.CenterTolerance:
		return TooLeft
	case faceCenterX > frameCenterX+t.CenterTolerance:
		return TooRight
	default:
		return Centered
	}
}

// Classify returns both classifications for box in a frame of the given width.
func (t Thresholds) Classify(box vision.BoundingBox, frameWidth int) (DistanceState, PositionState) {
	cx, _ := box.Center()
	return t.ClassifyDistance(box.Width), t.ClassifyPosition(cx, frameWidth)
}

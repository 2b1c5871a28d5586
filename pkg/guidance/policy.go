package guidance

import (
	"time"

	"github.com/gwillem/faceguide/pkg/vision"
)

// Observation is the classification of one face in one frame.
type Observation struct {
	Box      vision.BoundingBox
	Distance DistanceState
	Position PositionState
}

// Policy classifies faces and offers the resulting commands to a Dispatcher.
type Policy struct {
	Thresholds Thresholds
	Dispatcher *Dispatcher
}

// NewPolicy creates a policy using t and d.
func NewPolicy(t Thresholds, d *Dispatcher) *Policy {
	return &Policy{Thresholds: t, Dispatcher: d}
}

// Process handles one frame tick. Every face is classified independently and
// may produce a distance command followed by a position command; the dispatcher
// decides which of them, if any, reach the channel. No faces means no attempts.
func (p *Policy) Process(boxes []vision.BoundingBox, frameWidth int, now time.Time) []Observation {
	if len(boxes) == 0 {
		return nil
	}

	obs := make([]Observation, 0, len(boxes))
	for _, box := range boxes {
		dist, pos := p.Thresholds.Classify(box, frameWidth)

		if cmd, ok := dist.Command(); ok {
			p.Dispatcher.TryDispatch(cmd, now)
		}
		if cmd, ok := pos.Command(); ok {
			p.Dispatcher.TryDispatch(cmd, now)
		}

		obs = append(obs, Observation{Box: box, Distance: dist, Position: pos})
	}
	return obs
}

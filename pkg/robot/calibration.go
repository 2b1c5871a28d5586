package robot

// MotorCalibration holds the usable range of the pan servo.
type MotorCalibration struct {
	ID       int  `json:"id"`
	RangeMin int  `json:"range_min"`
	RangeMax int  `json:"range_max"`
	Invert   bool `json:"invert,omitempty"` // swap rotation directions
}

// DefaultCalibration covers the full revolution of servo DefaultServoID.
func DefaultCalibration() MotorCalibration {
	return MotorCalibration{ID: DefaultServoID, RangeMin: 0, RangeMax: MaxTick}
}

// IsCalibrated returns true if a usable range has been recorded.
func (c MotorCalibration) IsCalibrated() bool {
	return c.RangeMax > c.RangeMin
}

// Normalize converts a raw servo position to a normalized value in the range [-100, 100].
func (c MotorCalibration) Normalize(raw int) float64 {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return 0
	}
	return (float64(raw-c.RangeMin)/rangeSize)*200 - 100
}

// Denormalize converts a normalized value [-100, 100] to a raw servo position.
func (c MotorCalibration) Denormalize(norm float64) int {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	return int((norm+100)/200*rangeSize) + c.RangeMin
}

// Clamp limits raw to the calibrated range, or to the servo's travel when uncalibrated.
func (c MotorCalibration) Clamp(raw int) int {
	lo, hi := c.RangeMin, c.RangeMax
	if !c.IsCalibrated() {
		lo, hi = 0, MaxTick
	}
	if raw < lo {
		return lo
	}
	if raw > hi {
		return hi
	}
	return raw
}

// Center returns the middle of the usable range.
func (c MotorCalibration) Center() int {
	if !c.IsCalibrated() {
		return CenterTick
	}
	return c.Denormalize(0)
}

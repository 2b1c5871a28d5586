// Package robot drives the optional camera pan servo mounted on the robot.
// RotateLeft and RotateRight commands turn the camera locally while the
// remaining commands travel to the robot base over the command channel.
package robot

// STS3215 servo geometry.
const (
	TicksPerRevolution = 4096
	MaxTick            = TicksPerRevolution - 1
	CenterTick         = TicksPerRevolution / 2

	DefaultServoID     = 1
	DefaultStepDegrees = 5.0
	BusBaudRate        = 1_000_000
)

// DegreesToTicks converts an angle to servo ticks, rounded to the nearest tick.
func DegreesToTicks(deg float64) int {
	t := deg * TicksPerRevolution / 360
	if t < 0 {
		return int(t - 0.5)
	}
	return int(t + 0.5)
}

// TicksToDegrees converts servo ticks to an angle.
func TicksToDegrees(ticks int) float64 {
	return float64(ticks) * 360 / TicksPerRevolution
}

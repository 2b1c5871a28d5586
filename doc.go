// Package faceguide steers a small robot by the position of a face in front
// of a camera.
//
// Each frame is searched for faces. A face that is too large (too close) or
// too small (too far) produces Backward or Forward, a face off the image
// center produces Left or Right. Commands are published to the robot over
// MQTT, at most one every 500ms and never the same command twice in a row.
// The keyboard can send any command at any time, subject to the same interval.
//
// # Installation
//
//	go install github.com/gwillem/faceguide/cmd/faceguide@latest
//
// OpenCV 4 must be installed for gocv.
//
// # Usage
//
// Configure broker, camera and the optional pan servo:
//
//	faceguide setup
//
// Then start guidance, in the terminal dashboard or an OpenCV window:
//
//	faceguide guide
//	faceguide guide --window
//
// Or drive by keyboard only:
//
//	faceguide drive
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/faceguide: CLI with setup, guide and drive commands
//   - cmd/faceguide-drive: standalone keyboard driver
//   - cmd/camera-info: camera and serial port check
//   - pkg/guidance: face classification and rate limited command dispatch
//   - pkg/channel: MQTT, serial and fan-out command channels
//   - pkg/vision: detector interfaces, with gocv backends in pkg/vision/opencv
//   - pkg/teleop: guidance loop controller and keyboard driver
//   - pkg/tui: terminal dashboard and drive screen
//   - pkg/robot: camera pan servo
package faceguide

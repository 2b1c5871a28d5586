package opencv

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/gwillem/faceguide/pkg/command"
	"github.com/gwillem/faceguide/pkg/teleop"
	"github.com/gwillem/faceguide/pkg/vision"
)

// WindowTitle is the title of the guidance window.
const WindowTitle = "Face Guidance System with MQTT"

var (
	green  = color.RGBA{0, 255, 0, 0}
	yellow = color.RGBA{255, 255, 0, 0}
	blue   = color.RGBA{0, 0, 255, 0}
	red    = color.RGBA{255, 0, 0, 0}
	white  = color.RGBA{255, 255, 255, 0}
)

// Window shows frames with the guidance overlay and polls the keyboard.
type Window struct {
	win           *gocv.Window
	optimalRadius int
}

var _ teleop.Display = (*Window)(nil)

// NewWindow opens the guidance window. optimalWidth sizes the target circle.
func NewWindow(optimalWidth int) *Window {
	return &Window{
		win:           gocv.NewWindow(WindowTitle),
		optimalRadius: optimalWidth / 2,
	}
}

// Show draws the overlay onto the frame, displays it and returns the pressed
// key code, or command.KeyNone.
func (w *Window) Show(f vision.Frame, s teleop.State) int {
	frame, ok := f.(*Frame)
	if !ok {
		return command.KeyNone
	}
	img := frame.Mat()
	width, height := frame.Width(), frame.Height()

	if len(s.Faces) == 0 {
		gocv.PutText(img, "No face detected", image.Pt(10, 30), gocv.FontHersheySimplex, 1, red, 2)
	} else {
		gocv.Line(img, image.Pt(width/2, 0), image.Pt(width/2, height), green, 1)
		gocv.Circle(img, image.Pt(width/2, height/2), w.optimalRadius, yellow, 2)

		for _, o := range s.Faces {
			gocv.Rectangle(img, o.Box.Rect(), blue, 2)
			cx, cy := o.Box.Center()
			gocv.Circle(img, image.Pt(cx, cy), 5, blue, -1)

			status := fmt.Sprintf("Distance: %s, Position: %s", o.Distance, o.Position)
			gocv.PutText(img, status, image.Pt(10, 30), gocv.FontHersheySimplex, 0.6, white, 2)
			gocv.PutText(img, fmt.Sprintf("Face Width: %dpx", o.Box.Width), image.Pt(10, 60), gocv.FontHersheySimplex, 0.6, white, 2)
		}

		if s.LastCommand != "" {
			gocv.PutText(img, "Last Command: "+s.LastCommand.String(), image.Pt(10, 90), gocv.FontHersheySimplex, 0.6, green, 2)
		}
	}

	for i, line := range command.Help() {
		gocv.PutText(img, line, image.Pt(10, height-80+i*20), gocv.FontHersheySimplex, 0.45, yellow, 1)
	}

	w.win.IMShow(*img)
	key := w.win.WaitKey(1)
	if key < 0 {
		return command.KeyNone
	}
	return key & 0xFF
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.win.Close()
}

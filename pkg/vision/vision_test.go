package vision

import (
	"image"
	"testing"
)

func TestBoundingBox_Center(t *testing.T) {
	tests := []struct {
		name  string
		box   BoundingBox
		wantX int
		wantY int
	}{
		{"even size", BoundingBox{X: 270, Y: 100, Width: 100, Height: 120}, 320, 160},
		{"odd width truncates", BoundingBox{X: 0, Y: 0, Width: 81, Height: 81}, 40, 40},
		{"origin", BoundingBox{}, 0, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			x, y := tc.box.Center()
			if x != tc.wantX || y != tc.wantY {
				t.Errorf("Center() = (%d, %d), want (%d, %d)", x, y, tc.wantX, tc.wantY)
			}
		})
	}
}

func TestFromRect(t *testing.T) {
	box := FromRect(image.Rect(10, 20, 110, 170))
	want := BoundingBox{X: 10, Y: 20, Width: 100, Height: 150}
	if box != want {
		t.Errorf("FromRect = %+v, want %+v", box, want)
	}
	if box.Rect() != image.Rect(10, 20, 110, 170) {
		t.Errorf("Rect() = %v", box.Rect())
	}
}

package opencv

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/gwillem/faceguide/pkg/vision"
)

// DefaultCascade is the frontal face model shipped with OpenCV.
const DefaultCascade = "haarcascade_frontalface_default.xml"

// Haar cascade parameters.
const (
	scaleFactor  = 1.1
	minNeighbors = 5
	scaleImage   = 2 // CASCADE_SCALE_IMAGE
)

var minFaceSize = image.Pt(30, 30)

// cascadeDirs are searched when the cascade path is not found as given.
var cascadeDirs = []string{
	"/usr/share/opencv4/haarcascades",
	"/usr/local/share/opencv4/haarcascades",
	"/usr/share/opencv/haarcascades",
	"/opt/homebrew/share/opencv4/haarcascades",
}

// CascadeDetector finds faces with a Haar cascade classifier.
type CascadeDetector struct {
	classifier gocv.CascadeClassifier
	path       string
}

var _ vision.Detector = (*CascadeDetector)(nil)

// FindCascade resolves name against the working directory and the usual OpenCV install locations.
func FindCascade(name string) (string, error) {
	if name == "" {
		name = DefaultCascade
	}
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}
	base := filepath.Base(name)
	for _, dir := range cascadeDirs {
		p := filepath.Join(dir, base)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("find cascade %s: %w", name, os.ErrNotExist)
}

// NewCascadeDetector loads the cascade at path (see FindCascade).
func NewCascadeDetector(path string) (*CascadeDetector, error) {
	p, err := FindCascade(path)
	if err != nil {
		return nil, err
	}

	c := gocv.NewCascadeClassifier()
	if !c.Load(p) {
		c.Close()
		return nil, fmt.Errorf("load cascade %s: invalid classifier file", p)
	}
	return &CascadeDetector{classifier: c, path: p}, nil
}

// Path returns the loaded cascade file.
func (d *CascadeDetector) Path() string {
	return d.path
}

// Detect converts the frame to grayscale and runs the cascade.
func (d *CascadeDetector) Detect(f vision.Frame) ([]vision.BoundingBox, error) {
	frame, ok := f.(*Frame)
	if !ok {
		return nil, vision.ErrUnsupportedFrame
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame.mat, &gray, gocv.ColorBGRToGray)

	rects := d.classifier.DetectMultiScaleWithParams(gray, scaleFactor, minNeighbors, scaleImage, minFaceSize, image.Pt(0, 0))
	boxes := make([]vision.BoundingBox, 0, len(rects))
	for _, r := range rects {
		boxes = append(boxes, vision.FromRect(r))
	}
	return boxes, nil
}

// Close releases the classifier.
func (d *CascadeDetector) Close() error {
	return d.classifier.Close()
}

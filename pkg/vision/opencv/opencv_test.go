package opencv

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/gwillem/faceguide/pkg/vision"
)

type foreignFrame struct{}

func (foreignFrame) Width() int  { return 1 }
func (foreignFrame) Height() int { return 1 }

func TestFindCascade_Missing(t *testing.T) {
	_, err := FindCascade("/nonexistent/model.xml.missing")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestCascadeDetector_BlankFrame(t *testing.T) {
	path, err := FindCascade(DefaultCascade)
	if err != nil {
		t.Skip("haar cascade not installed")
	}
	det, err := NewCascadeDetector(path)
	require.NoError(t, err)
	defer det.Close()

	mat := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	f := &Frame{mat: mat}
	defer f.Close()

	assert.Equal(t, DefaultWidth, f.Width())
	assert.Equal(t, DefaultHeight, f.Height())

	boxes, err := det.Detect(f)
	require.NoError(t, err)
	assert.Empty(t, boxes)

	_, err = det.Detect(foreignFrame{})
	assert.ErrorIs(t, err, vision.ErrUnsupportedFrame)
}

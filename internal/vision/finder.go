package vision

import (
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"

	"github.com/kozaktomas/attendance/internal/constants"
)

// FaceFinder is a pure-Go face detector used to crop uploaded training photos.
// It does not need OpenCV.
type FaceFinder struct {
	classifier *pigo.Pigo
	MinSize    int
	MaxSize    int
}

// NewFaceFinder unpacks a pigo "facefinder" cascade file.
func NewFaceFinder(cascadePath string) (*FaceFinder, error) {
	data, err := os.ReadFile(cascadePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read pigo cascade file: %w", err)
	}
	classifier, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack pigo cascade: %w", err)
	}
	return &FaceFinder{classifier: classifier, MinSize: 40, MaxSize: constants.MaxImageSize}, nil
}

// Detect returns face boxes, clipped to the image bounds, in image coordinates.
func (f *FaceFinder) Detect(img *image.Gray) []image.Rectangle {
	b := img.Bounds()
	if b.Min != (image.Point{}) {
		img = Grayscale(img)
		b = img.Bounds()
	}

	params := pigo.CascadeParams{
		MinSize:     f.MinSize,
		MaxSize:     f.MaxSize,
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		ImageParams: pigo.ImageParams{
			Pixels: img.Pix,
			Rows:   b.Dy(),
			Cols:   b.Dx(),
			Dim:    img.Stride,
		},
	}

	dets := f.classifier.RunCascade(params, 0.0)
	dets = f.classifier.ClusterDetections(dets, 0.2)

	faces := make([]image.Rectangle, 0, len(dets))
	for _, det := range dets {
		if det.Q < constants.PigoMinQuality {
			continue
		}
		x := det.Col - det.Scale/2
		y := det.Row - det.Scale/2
		r := image.Rect(x, y, x+det.Scale, y+det.Scale).Intersect(b)
		if !r.Empty() {
			faces = append(faces, r)
		}
	}
	return faces
}

// Largest returns the box with the biggest area.
func Largest(rects []image.Rectangle) (image.Rectangle, bool) {
	var best image.Rectangle
	found := false
	for _, r := range rects {
		if !found || r.Dx()*r.Dy() > best.Dx()*best.Dy() {
			best, found = r, true
		}
	}
	return best, found
}

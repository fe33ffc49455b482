//go:build opencv

package vision

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"

	"gocv.io/x/gocv"
	"gocv.io/x/gocv/contrib"

	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/constants"
)

const available = true

const escKey = 27

type opencvBackend struct {
	cascadePath string
}

// New returns the gocv backend. The cascade is loaded lazily per camera session.
func New(cfg config.VisionConfig) (Backend, error) {
	if _, err := os.Stat(cfg.CascadePath); err != nil {
		return nil, fmt.Errorf("face cascade %s: %w", cfg.CascadePath, err)
	}
	log.Infof("vision: using opencv %s", gocv.Version())
	return &opencvBackend{cascadePath: cfg.CascadePath}, nil
}

func (b *opencvBackend) Close() error {
	return nil
}

type lbphTrainer struct {
	recognizer *contrib.LBPHFaceRecognizer
	trained    bool
}

func (b *opencvBackend) NewTrainer() (Trainer, error) {
	return &lbphTrainer{recognizer: contrib.NewLBPHFaceRecognizer()}, nil
}

func (t *lbphTrainer) Train(samples []Sample) error {
	if len(samples) == 0 {
		return fmt.Errorf("no samples to train")
	}
	mats := make([]gocv.Mat, 0, len(samples))
	labels := make([]int, 0, len(samples))
	defer func() {
		for _, m := range mats {
			m.Close()
		}
	}()

	for _, s := range samples {
		m, err := gocv.ImageGrayToMatGray(s.Image)
		if err != nil {
			return fmt.Errorf("converting sample for label %d: %w", s.Label, err)
		}
		mats = append(mats, m)
		labels = append(labels, s.Label)
	}

	if err := t.recognizer.Train(mats, labels); err != nil {
		return fmt.Errorf("training recognizer: %w", err)
	}
	t.trained = true
	return nil
}

func (t *lbphTrainer) Save(path string) error {
	if !t.trained {
		return fmt.Errorf("recognizer has not been trained")
	}
	if err := t.recognizer.SaveFile(path); err != nil {
		return fmt.Errorf("saving model: %w", err)
	}
	return nil
}

func (t *lbphTrainer) Close() error {
	return t.recognizer.Close()
}

type camera struct {
	capture    *gocv.VideoCapture
	classifier gocv.CascadeClassifier
	recognizer *contrib.LBPHFaceRecognizer
	window     *gocv.Window
	frame      gocv.Mat
	gray       gocv.Mat
	opts       CameraOptions
	reads      readGuard
}

func (b *opencvBackend) OpenCamera(modelPath string, opts CameraOptions) (Observer, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelPath)
	}
	recognizer := contrib.NewLBPHFaceRecognizer()
	if err := recognizer.LoadFile(modelPath); err != nil {
		recognizer.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrModelUnreadable, modelPath, err)
	}
	if recognizer.Empty() {
		recognizer.Close()
		return nil, fmt.Errorf("%w: %s holds no trained model", ErrModelUnreadable, modelPath)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(b.cascadePath) {
		classifier.Close()
		recognizer.Close()
		return nil, fmt.Errorf("loading face cascade %s", b.cascadePath)
	}

	capture, err := gocv.OpenVideoCapture(opts.Device)
	if err != nil || !capture.IsOpened() {
		classifier.Close()
		recognizer.Close()
		if capture != nil {
			capture.Close()
		}
		return nil, fmt.Errorf("%w: device %d", ErrCameraUnavailable, opts.Device)
	}

	c := &camera{
		capture:    capture,
		classifier: classifier,
		recognizer: recognizer,
		frame:      gocv.NewMat(),
		gray:       gocv.NewMat(),
		opts:       opts,
		reads:      newReadGuard(),
	}
	if opts.Preview {
		c.window = gocv.NewWindow("Filling Attendance...")
	}
	return c, nil
}

func (c *camera) Observe(ctx context.Context) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ok := c.capture.Read(&c.frame); !ok || c.frame.Empty() {
		return nil, c.reads.fail(ctx)
	}
	c.reads.reset()

	gocv.CvtColor(c.frame, &c.gray, gocv.ColorBGRToGray)
	rects := c.classifier.DetectMultiScaleWithParams(c.gray,
		constants.DetectScaleFactor, constants.DetectMinNeighbors, 0,
		image.Pt(constants.MinFaceSize, constants.MinFaceSize), image.Point{})

	matches := make([]Match, 0, len(rects))
	for _, r := range rects {
		face := c.gray.Region(r)
		resp := c.recognizer.PredictExtendedResponse(face)
		face.Close()
		matches = append(matches, Match{
			Label:    int(resp.Label),
			Distance: float64(resp.Confidence),
			Box:      r,
		})
	}

	if c.window != nil {
		c.draw(matches)
		c.window.IMShow(c.frame)
		if c.window.WaitKey(30)&0xFF == escKey {
			return matches, ErrStopped
		}
	}
	return matches, nil
}

var (
	acceptedColor = color.RGBA{0, 255, 0, 0}
	rejectedColor = color.RGBA{255, 25, 0, 0}
)

func (c *camera) draw(matches []Match) {
	for _, m := range matches {
		col, text := rejectedColor, constants.UnknownStudentName
		if m.Distance < c.opts.Threshold {
			col = acceptedColor
			text = fmt.Sprintf("%d-%s", m.Label, c.opts.Labels[m.Label])
		}
		gocv.Rectangle(&c.frame, m.Box, col, 4)
		gocv.PutText(&c.frame, text, image.Pt(m.Box.Min.X, m.Box.Min.Y-8),
			gocv.FontHersheySimplex, 1, col, 2)
	}
}

func (c *camera) Close() error {
	if c.window != nil {
		c.window.Close()
	}
	c.frame.Close()
	c.gray.Close()
	c.classifier.Close()
	c.recognizer.Close()
	return c.capture.Close()
}

package frame

import (
	"image"
	"log/slog"

	"gocv.io/x/gocv"

	"github.com/kmmndr/motion_watch/internal/motion"
)

const (
	DefaultScale      = 0.5
	DefaultBlurKernel = 3
)

type Preprocessing struct {
	Scale      float64
	BlurKernel int
}

// Apply returns a new grayscale, downscaled and smoothed copy of src.
func (p Preprocessing) Apply(src gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	if src.Channels() > 1 {
		gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	} else {
		src.CopyTo(&gray)
	}

	if p.Scale > 0 && p.Scale != 1 {
		small := gocv.NewMat()
		gocv.Resize(gray, &small, image.Point{}, p.Scale, p.Scale, gocv.InterpolationArea)
		gray.Close()
		gray = small
	}

	if p.BlurKernel > 1 {
		gocv.GaussianBlur(gray, &gray, image.Pt(p.BlurKernel, p.BlurKernel), 0, 0, gocv.BorderDefault)
	}

	return gray
}

type matFrame interface {
	Mat() *gocv.Mat
}

// FrameBuffer keeps the previously analyzed preprocessed frame and the region
// of interest, fixed from the first frame it sees.
type FrameBuffer struct {
	preprocessing Preprocessing
	scorer        *Scorer
	roiFraction   float64
	logger        *slog.Logger

	roi      image.Rectangle
	roiReady bool
	previous gocv.Mat
}

func NewFrameBuffer(preprocessing Preprocessing, scorer *Scorer, roiFraction float64, logger *slog.Logger) *FrameBuffer {
	if logger == nil {
		logger = slog.Default()
	}

	return &FrameBuffer{
		preprocessing: preprocessing,
		scorer:        scorer,
		roiFraction:   roiFraction,
		logger:        logger,
		previous:      gocv.NewMat(),
	}
}

func (fb *FrameBuffer) ROI() image.Rectangle {
	return fb.roi
}

// Analyze implements motion.Analyzer.
func (fb *FrameBuffer) Analyze(f motion.Frame) (motion.Reading, bool) {
	mf, ok := f.(matFrame)
	if !ok || mf.Mat() == nil || mf.Mat().Empty() {
		fb.logger.Warn("skipping undecodable frame", "frame", f.FrameIndex())
		return motion.Reading{}, false
	}

	current := fb.preprocessing.Apply(*mf.Mat())

	if !fb.roiReady {
		fb.roi = motion.BottomRegion(current.Cols(), current.Rows(), fb.roiFraction)
		fb.roiReady = true
		fb.logger.Debug("region of interest set",
			"roi", fb.roi.String(),
			"width", current.Cols(),
			"height", current.Rows())
	}

	if fb.previous.Empty() {
		fb.replacePrevious(current)
		return motion.Reading{}, false
	}

	if current.Rows() != fb.previous.Rows() || current.Cols() != fb.previous.Cols() {
		fb.logger.Warn("frame size changed, restarting comparison",
			"frame", f.FrameIndex(),
			"width", current.Cols(),
			"height", current.Rows())
		fb.replacePrevious(current)
		return motion.Reading{}, false
	}

	reading := fb.scorer.Score(current, fb.previous, fb.roi)
	fb.replacePrevious(current)

	return reading, true
}

func (fb *FrameBuffer) replacePrevious(current gocv.Mat) {
	fb.previous.Close()
	fb.previous = current
}

func (fb *FrameBuffer) Close() {
	fb.previous.Close()
}

package frame

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/kmmndr/motion_watch/internal/motion"
)

const DefaultDiffThreshold = 30

// Scorer measures the fraction of changed pixels between two preprocessed
// frames of identical size. It keeps no state besides its structuring element.
type Scorer struct {
	diffThreshold float32
	wholeFrame    bool
	kernel        gocv.Mat
}

// NewScorer binarizes differences above diffThreshold (0-255). wholeFrame
// enables the unfiltered whole-frame ratio used for shock detection.
func NewScorer(diffThreshold float64, wholeFrame bool) *Scorer {
	return &Scorer{
		diffThreshold: float32(diffThreshold),
		wholeFrame:    wholeFrame,
		kernel:        gocv.GetStructuringElement(gocv.MorphCross, image.Pt(3, 3)),
	}
}

func (s *Scorer) WholeFrame() bool {
	return s.wholeFrame
}

func (s *Scorer) Score(current gocv.Mat, previous gocv.Mat, roi image.Rectangle) motion.Reading {
	reading := motion.Reading{ROIRatio: s.roiRatio(current, previous, roi)}

	if s.wholeFrame {
		reading.WholeRatio = s.wholeRatio(current, previous)
		reading.HasWhole = true
	}

	return reading
}

func (s *Scorer) roiRatio(current gocv.Mat, previous gocv.Mat, roi image.Rectangle) float64 {
	roi = roi.Intersect(image.Rect(0, 0, current.Cols(), current.Rows()))
	if roi.Empty() {
		return 0
	}

	roiCurrent := current.Region(roi)
	defer roiCurrent.Close()

	roiPrevious := previous.Region(roi)
	defer roiPrevious.Close()

	mask := s.changedMask(roiCurrent, roiPrevious)
	defer mask.Close()

	// opening drops isolated noisy pixels
	gocv.MorphologyEx(mask, &mask, gocv.MorphOpen, s.kernel)

	return motion.Ratio(gocv.CountNonZero(mask), roi.Dx()*roi.Dy())
}

func (s *Scorer) wholeRatio(current gocv.Mat, previous gocv.Mat) float64 {
	if current.Empty() {
		return 0
	}

	mask := s.changedMask(current, previous)
	defer mask.Close()

	return motion.Ratio(gocv.CountNonZero(mask), current.Rows()*current.Cols())
}

func (s *Scorer) changedMask(current gocv.Mat, previous gocv.Mat) gocv.Mat {
	diff := gocv.NewMat()
	defer diff.Close()

	gocv.AbsDiff(current, previous, &diff)

	mask := gocv.NewMat()
	gocv.Threshold(diff, &mask, s.diffThreshold, 255, gocv.ThresholdBinary)

	return mask
}

func (s *Scorer) Close() {
	s.kernel.Close()
}

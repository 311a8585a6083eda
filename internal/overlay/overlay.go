package overlay

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/kmmndr/motion_watch/internal/motion"
)

const (
	OriginalWindow  = "Original"
	DetectionWindow = "Detection"

	keyEscape = 27
)

var (
	green   = color.RGBA{0, 255, 0, 0}
	yellow  = color.RGBA{255, 255, 0, 0}
	red     = color.RGBA{255, 0, 0, 0}
	magenta = color.RGBA{255, 0, 255, 0}
)

// StatusLabel is the per-frame status written on the original view.
func StatusLabel(severity motion.Severity) (string, color.RGBA) {
	switch severity {
	case motion.SeverityShock:
		return "SHOCK", magenta
	case motion.SeverityHugeMotion:
		return "HUGE MOTION", red
	case motion.SeverityMotion:
		return "MOTION", yellow
	default:
		return "NO MOTION", green
	}
}

// AlertLabel is shown on the detection view while the alert countdown runs.
func AlertLabel(category motion.Category) string {
	if category == motion.CategoryShock {
		return "SHOCK DETECT"
	}
	return "MOTION DETECT"
}

// IsQuitKey matches ESC, q and Q.
func IsQuitKey(key int) bool {
	return key == keyEscape || key == 'q' || key == 'Q'
}

type matFrame interface {
	Mat() *gocv.Mat
}

// Windows renders the raw+status view and the alert view in two HighGUI
// windows. It must be used from the thread that created it.
type Windows struct {
	original  *gocv.Window
	detection *gocv.Window
}

func NewWindows() *Windows {
	return &Windows{
		original:  gocv.NewWindow(OriginalWindow),
		detection: gocv.NewWindow(DetectionWindow),
	}
}

func (w *Windows) Show(f motion.Frame, v motion.View) bool {
	mf, ok := f.(matFrame)
	if !ok || mf.Mat() == nil {
		return false
	}
	mat := *mf.Mat()

	original := mat.Clone()
	defer original.Close()
	if !v.Bootstrap {
		text, c := StatusLabel(v.Severity)
		gocv.PutText(&original, text, image.Pt(20, 40), gocv.FontHersheySimplex, 1.0, c, 2)
	}
	w.original.IMShow(original)

	var detection gocv.Mat
	if v.Active {
		detection = mat.Clone()
		if v.Alert {
			gocv.PutText(&detection, AlertLabel(v.Category), image.Pt(50, 80), gocv.FontHersheySimplex, 1.5, red, 3)
		}
	} else {
		detection = gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), mat.Rows(), mat.Cols(), mat.Type())
	}
	defer detection.Close()
	w.detection.IMShow(detection)

	return IsQuitKey(w.detection.WaitKey(1))
}

func (w *Windows) Close() {
	w.original.Close()
	w.detection.Close()
}

// Headless renders nothing and never asks to quit.
type Headless struct{}

func (Headless) Show(motion.Frame, motion.View) bool { return false }

func (Headless) Close() {}

package motion

const (
	DefaultMotionRatio     = 0.002
	DefaultHugeMotionRatio = 0.02
	DefaultShockRatio      = 0.30
)

// Reading is the fraction of changed pixels between two consecutive analyzed
// frames. WholeRatio is only meaningful when HasWhole is set.
type Reading struct {
	ROIRatio   float64 `json:"roi_ratio"`
	WholeRatio float64 `json:"whole_ratio"`
	HasWhole   bool    `json:"has_whole"`
}

type Thresholds struct {
	Motion     float64
	HugeMotion float64
	Shock      float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Motion:     DefaultMotionRatio,
		HugeMotion: DefaultHugeMotionRatio,
		Shock:      DefaultShockRatio,
	}
}

type Classifier struct {
	thresholds Thresholds
}

func NewClassifier(thresholds Thresholds) *Classifier {
	return &Classifier{thresholds: thresholds}
}

func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// Classify returns the first matching level: a whole-frame shock wins over
// any ROI reading.
func (c *Classifier) Classify(r Reading) Severity {
	switch {
	case r.HasWhole && r.WholeRatio > c.thresholds.Shock:
		return SeverityShock
	case r.ROIRatio > c.thresholds.HugeMotion:
		return SeverityHugeMotion
	case r.ROIRatio > c.thresholds.Motion:
		return SeverityMotion
	default:
		return SeverityNone
	}
}

// Ratio is changed/area, or 0 for an empty area.
func Ratio(changed int, area int) float64 {
	if area <= 0 || changed <= 0 {
		return 0
	}
	if changed > area {
		return 1
	}
	return float64(changed) / float64(area)
}

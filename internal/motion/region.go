package motion

import (
	"image"
	"math"
)

const (
	DefaultROIFraction = 0.30
	DefaultFPS         = 30.0
	DefaultHoldSeconds = 3.0
	DefaultIdleSkip    = 4
)

// BottomRegion is the full-width band covering the bottom fraction of a
// width x height frame. The top edge is floor(height*(1-fraction)).
// Degenerate sizes yield an empty rectangle.
func BottomRegion(width int, height int, fraction float64) image.Rectangle {
	if width <= 0 || height <= 0 {
		return image.Rectangle{}
	}
	fraction = math.Max(0, math.Min(1, fraction))
	y0 := int(float64(height) * (1 - fraction))

	return image.Rect(0, y0, width, height)
}

// EffectiveFPS substitutes fallback for an unknown (non-positive) rate.
func EffectiveFPS(fps float64, fallback float64) float64 {
	if fps > 0 {
		return fps
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultFPS
}

// HoldFrames converts the hysteresis window into frames.
func HoldFrames(fps float64, seconds float64) int {
	return int(math.Round(EffectiveFPS(fps, DefaultFPS) * seconds))
}

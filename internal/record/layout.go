package record

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kmmndr/motion_watch/internal/motion"
)

const (
	DefaultMotionDir = "recorded_motion"
	DefaultShockDir  = "recorded_shock"
)

// Layout maps recording categories to bucket directories under Root.
type Layout struct {
	Root      string
	MotionDir string
	ShockDir  string
}

func DefaultLayout(root string) Layout {
	return Layout{Root: root, MotionDir: DefaultMotionDir, ShockDir: DefaultShockDir}
}

func (l Layout) Dir(category motion.Category) string {
	dir := l.MotionDir
	if category == motion.CategoryShock {
		dir = l.ShockDir
	}
	return filepath.Join(l.Root, dir)
}

// Prepare creates every bucket directory.
func (l Layout) Prepare() error {
	for _, c := range []motion.Category{motion.CategoryMotion, motion.CategoryShock} {
		if err := os.MkdirAll(l.Dir(c), 0o755); err != nil {
			return fmt.Errorf("unable to create %s directory: %w", c, err)
		}
	}
	return nil
}

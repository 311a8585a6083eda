package httpapi

import (
	"sync"
	"time"

	"github.com/kmmndr/motion_watch/internal/motion"
)

const DefaultRecentActivations = 20

type Snapshot struct {
	Source         string          `json:"source"`
	Mode           motion.Mode     `json:"mode"`
	FrameIndex     int             `json:"frame_index"`
	FramesAnalyzed int             `json:"frames_analyzed"`
	FramesSkipped  int             `json:"frames_skipped"`
	Severity       motion.Severity `json:"severity"`
	Reading        motion.Reading  `json:"reading"`
	Activation     *motion.Report  `json:"activation,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Tracker keeps the latest loop state for the status endpoints. The loop
// writes through the motion.Listener methods, handlers read snapshots.
type Tracker struct {
	motion.NopListener

	source string
	fps    float64
	size   int
	now    func() time.Time

	mu       sync.RWMutex
	snapshot Snapshot
	recent   []*motion.Report
}

func NewTracker(source string, fps float64) *Tracker {
	return &Tracker{
		source:   source,
		fps:      fps,
		size:     DefaultRecentActivations,
		now:      time.Now,
		snapshot: Snapshot{Source: source, Mode: motion.Idle},
	}
}

func (t *Tracker) FrameAnalyzed(step motion.Step) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snapshot.Mode = step.Mode
	t.snapshot.FrameIndex = step.FrameIndex
	t.snapshot.FramesAnalyzed++
	t.snapshot.Severity = step.Severity
	t.snapshot.Reading = step.Reading
	t.snapshot.UpdatedAt = t.now()
}

func (t *Tracker) FramesSkipped(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snapshot.FramesSkipped += n
	t.snapshot.FrameIndex += n
}

func (t *Tracker) ActivationStarted(a motion.Activation) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snapshot.Mode = motion.Active
	t.snapshot.Activation = motion.NewReport(a, t.source, t.fps)
}

func (t *Tracker) ActivationEnded(a motion.Activation) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snapshot.Mode = motion.Idle
	t.snapshot.Activation = nil

	t.recent = append([]*motion.Report{motion.NewReport(a, t.source, t.fps)}, t.recent...)
	if len(t.recent) > t.size {
		t.recent = t.recent[:t.size]
	}
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := t.snapshot
	if s.Activation != nil {
		r := *s.Activation
		s.Activation = &r
	}
	return s
}

// Recent returns up to limit ended activations, newest first. limit <= 0
// returns all of them.
func (t *Tracker) Recent(limit int) []motion.Report {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if limit <= 0 || limit > len(t.recent) {
		limit = len(t.recent)
	}
	out := make([]motion.Report, 0, limit)
	for _, r := range t.recent[:limit] {
		out = append(out, *r)
	}
	return out
}

package motion

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeFrame struct {
	index  int
	closed bool
}

func (f *fakeFrame) FrameIndex() int { return f.index }
func (f *fakeFrame) Close() { f.closed = true }

type fakeRecording struct {
	path       string
	writes     []int
	closed     bool
	failWrites bool
}

func (r *fakeRecording) Write(f Frame) error {
	if r.closed {
		return errors.New("recording closed")
	}
	if r.failWrites {
		return errors.New("disk full")
	}
	r.writes = append(r.writes, f.FrameIndex())
	return nil
}

func (r *fakeRecording) Close() error {
	r.closed = true
	return nil
}

func (r *fakeRecording) Path() string { return r.path }

type fakeRecorder struct {
	fail       bool
	failWrites bool
	opened     []*fakeRecording
	dests      []Destination
}

func (r *fakeRecorder) Open(dest Destination, first Frame) (Recording, error) {
	r.dests = append(r.dests, dest)
	if r.fail {
		return nil, errors.New("codec unavailable")
	}
	rec := &fakeRecording{
		path:       fmt.Sprintf("%s/cam_%d.mp4", dest.Category, dest.FrameIndex),
		failWrites: r.failWrites,
	}
	r.opened = append(r.opened, rec)
	return rec, nil
}

type recordingListener struct {
	NopListener
	started []Activation
	ended   []Activation
	steps   []Step
	skipped int
}

func (l *recordingListener) FrameAnalyzed(s Step) { l.steps = append(l.steps, s) }
func (l *recordingListener) FramesSkipped(n int) { l.skipped += n }
func (l *recordingListener) ActivationStarted(a Activation) { l.started = append(l.started, a) }
func (l *recordingListener) ActivationEnded(a Activation) { l.ended = append(l.ended, a) }

// fakeSource serves total frames; grabs and reads both consume one.
type fakeSource struct {
	total    int
	consumed int
	grabs    int
	reads    []int
	frames   []*fakeFrame
}

func (s *fakeSource) Grab() bool {
	if s.consumed >= s.total {
		return false
	}
	s.consumed++
	s.grabs++
	return true
}

func (s *fakeSource) Read(frameIndex int) (Frame, bool) {
	if s.consumed >= s.total {
		return nil, false
	}
	s.consumed++
	s.reads = append(s.reads, frameIndex)
	f := &fakeFrame{index: frameIndex}
	s.frames = append(s.frames, f)
	return f, true
}

// scriptedAnalyzer bootstraps on the first call, then replays readings and
// repeats the last one once exhausted.
type scriptedAnalyzer struct {
	readings []Reading
	calls    int
}

func (a *scriptedAnalyzer) Analyze(Frame) (Reading, bool) {
	a.calls++
	if a.calls == 1 {
		return Reading{}, false
	}
	i := a.calls - 2
	if i >= len(a.readings) {
		if len(a.readings) == 0 {
			return Reading{}, true
		}
		return a.readings[len(a.readings)-1], true
	}
	return a.readings[i], true
}

type fakeDisplay struct {
	views  []View
	quitAt int
}

func (d *fakeDisplay) Show(f Frame, v View) bool {
	d.views = append(d.views, v)
	return d.quitAt > 0 && len(d.views) >= d.quitAt
}

func roi(ratio float64) Reading {
	return Reading{ROIRatio: ratio}
}

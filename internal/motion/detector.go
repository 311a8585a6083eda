package motion

import (
	"log/slog"
	"time"
)

type Mode int

const (
	Idle Mode = iota
	Active
)

func (m Mode) String() string {
	if m == Active {
		return "active"
	}
	return "idle"
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Step is the outcome of one analyzed frame.
type Step struct {
	FrameIndex           int
	Reading              Reading
	Severity             Severity
	Mode                 Mode
	Activated            bool
	Deactivated          bool
	ShockWhileActive     bool
	RecordingFailed      bool
	WriteFailed          bool
	FramesSinceLastEvent int
	OverlayFramesLeft    int
}

// Detector is the idle/active state machine. It owns the hysteresis counter,
// the overlay counter and the open recording, and is only driven from the
// processing loop.
type Detector struct {
	hold     int
	recorder Recorder
	listener Listener
	logger   *slog.Logger
	now      func() time.Time

	mode                 Mode
	framesSinceLastEvent int
	overlayFramesLeft    int
	lastFrameIndex       int
	recording            Recording
	activation           *Activation
}

// NewDetector keeps recordings alive for hold quiet frames after the last
// event. listener may be nil.
func NewDetector(hold int, recorder Recorder, listener Listener, logger *slog.Logger) *Detector {
	if listener == nil {
		listener = NopListener{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Detector{
		hold:     hold,
		recorder: recorder,
		listener: listener,
		logger:   logger,
		now:      time.Now,
		mode:     Idle,
	}
}

func (d *Detector) Hold() int {
	return d.hold
}

func (d *Detector) Mode() Mode {
	return d.mode
}

func (d *Detector) FramesSinceLastEvent() int {
	return d.framesSinceLastEvent
}

func (d *Detector) OverlayFramesLeft() int {
	return d.overlayFramesLeft
}

// Recording is nil while idle, and while active if the sink failed to open.
func (d *Detector) Recording() Recording {
	return d.recording
}

// Activation returns a copy of the running activation.
func (d *Detector) Activation() (Activation, bool) {
	if d.activation == nil {
		return Activation{}, false
	}
	return *d.activation, true
}

func (d *Detector) Step(severity Severity, f Frame) Step {
	frameIndex := f.FrameIndex()
	d.lastFrameIndex = frameIndex

	step := Step{FrameIndex: frameIndex, Severity: severity}

	if severity.Triggered() {
		d.framesSinceLastEvent = 0

		if d.mode == Idle {
			d.activate(severity, f, &step)
		} else {
			if d.overlayFramesLeft <= 0 {
				d.overlayFramesLeft = d.hold
			}
			d.activation.observe(severity, frameIndex)

			if severity == SeverityShock {
				step.ShockWhileActive = true
				d.logger.Info("shock during activation",
					"activation", d.activation.UUID(),
					"category", d.activation.Category,
					"frame", frameIndex)
			}
		}
	} else if d.mode == Active {
		d.framesSinceLastEvent++
		if d.framesSinceLastEvent > d.hold {
			d.deactivate(frameIndex, EndQuiet)
			step.Deactivated = true
		}
	}

	if d.overlayFramesLeft > 0 {
		d.overlayFramesLeft--
	}

	step.Mode = d.mode
	step.FramesSinceLastEvent = d.framesSinceLastEvent
	step.OverlayFramesLeft = d.overlayFramesLeft

	return step
}

// Record appends f to the open recording, whatever its severity.
func (d *Detector) Record(f Frame) error {
	if d.mode != Active || d.recording == nil {
		return nil
	}

	if err := d.recording.Write(f); err != nil {
		d.logger.Warn("unable to write frame",
			"path", d.recording.Path(),
			"frame", f.FrameIndex(),
			"error", err)
		return err
	}
	return nil
}

// Close ends a running activation and releases its recording. It must run
// before the source is released.
func (d *Detector) Close() error {
	if d.mode != Active {
		return nil
	}
	return d.deactivate(d.lastFrameIndex, EndShutdown)
}

func (d *Detector) activate(severity Severity, f Frame, step *Step) {
	frameIndex := f.FrameIndex()

	d.mode = Active
	d.overlayFramesLeft = d.hold
	d.activation = NewActivation(severity, frameIndex, d.now())
	step.Activated = true

	dest := Destination{Category: d.activation.Category, FrameIndex: frameIndex}
	recording, err := d.recorder.Open(dest, f)
	if err != nil {
		step.RecordingFailed = true
		d.logger.Warn("unable to start recording, detection continues without it",
			"activation", d.activation.UUID(),
			"category", dest.Category,
			"frame", frameIndex,
			"error", err)
	} else {
		d.recording = recording
		d.activation.RecordingPath = recording.Path()
		d.logger.Info("start recording",
			"activation", d.activation.UUID(),
			"category", dest.Category,
			"severity", severity,
			"path", recording.Path())
	}

	d.listener.ActivationStarted(*d.activation)
}

func (d *Detector) deactivate(frameIndex int, reason EndReason) error {
	var err error

	if d.recording != nil {
		if err = d.recording.Close(); err != nil {
			d.logger.Warn("unable to close recording", "path", d.recording.Path(), "error", err)
		} else {
			d.logger.Info("stop recording", "path", d.recording.Path(), "reason", reason)
		}
		d.recording = nil
	}

	d.activation.end(frameIndex, reason, d.now())
	d.listener.ActivationEnded(*d.activation)

	d.mode = Idle
	d.overlayFramesLeft = 0
	d.activation = nil

	return err
}

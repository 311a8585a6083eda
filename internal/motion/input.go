package motion

// Frame is one decoded source image, owned by a single cycle.
type Frame interface {
	FrameIndex() int
	Close()
}

// Source yields frames in stream order. Grab advances without decoding.
// Both return false at end of stream.
type Source interface {
	Grab() bool
	Read(frameIndex int) (Frame, bool)
}

// Analyzer preprocesses f and scores it against the previously analyzed
// frame. ok is false on the bootstrap cycle, when there is nothing to compare.
type Analyzer interface {
	Analyze(f Frame) (reading Reading, ok bool)
}

type Recorder interface {
	Open(dest Destination, first Frame) (Recording, error)
}

type Recording interface {
	Write(f Frame) error
	Close() error
	Path() string
}

// View is what a Display renders for one cycle.
type View struct {
	Severity  Severity
	Bootstrap bool
	Active    bool
	Alert     bool
	Category  Category
}

// Display renders a cycle and reports whether the user asked to quit.
type Display interface {
	Show(f Frame, v View) (quit bool)
}

type Listener interface {
	FrameAnalyzed(step Step)
	FramesSkipped(n int)
	ActivationStarted(a Activation)
	ActivationEnded(a Activation)
}

type Listeners []Listener

func (ls Listeners) FrameAnalyzed(step Step) {
	for _, l := range ls {
		l.FrameAnalyzed(step)
	}
}

func (ls Listeners) FramesSkipped(n int) {
	for _, l := range ls {
		l.FramesSkipped(n)
	}
}

func (ls Listeners) ActivationStarted(a Activation) {
	for _, l := range ls {
		l.ActivationStarted(a)
	}
}

func (ls Listeners) ActivationEnded(a Activation) {
	for _, l := range ls {
		l.ActivationEnded(a)
	}
}

// NopListener can be embedded to implement only part of Listener.
type NopListener struct{}

func (NopListener) FrameAnalyzed(Step) {}
func (NopListener) FramesSkipped(int) {}
func (NopListener) ActivationStarted(Activation) {}
func (NopListener) ActivationEnded(Activation) {}

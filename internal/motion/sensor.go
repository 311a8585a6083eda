package motion

import (
	"context"
	"log/slog"
)

type cycleResult int

const (
	cycleContinue cycleResult = iota
	cycleStop
)

type SensorConfig struct {
	Source     Source
	Analyzer   Analyzer
	Classifier *Classifier
	Detector   *Detector
	Display    Display
	Listener   Listener
	Logger     *slog.Logger

	// IdleSkip frames are grabbed without decoding before each analyzed
	// frame while idle.
	IdleSkip int
}

// Sensor runs the single processing loop: acquire, analyze, classify, step
// the detector, record and display, strictly in stream order.
type Sensor struct {
	source     Source
	analyzer   Analyzer
	classifier *Classifier
	detector   *Detector
	display    Display
	listener   Listener
	logger     *slog.Logger
	idleSkip   int

	frameIndex int
	analyzed   int
}

func NewSensor(cfg SensorConfig) *Sensor {
	if cfg.Listener == nil {
		cfg.Listener = NopListener{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Classifier == nil {
		cfg.Classifier = NewClassifier(DefaultThresholds())
	}
	if cfg.Display == nil {
		cfg.Display = nopDisplay{}
	}
	if cfg.IdleSkip < 0 {
		cfg.IdleSkip = 0
	}

	return &Sensor{
		source:     cfg.Source,
		analyzer:   cfg.Analyzer,
		classifier: cfg.Classifier,
		detector:   cfg.Detector,
		display:    cfg.Display,
		listener:   cfg.Listener,
		logger:     cfg.Logger,
		idleSkip:   cfg.IdleSkip,
	}
}

// FrameIndex is the index of the last frame consumed from the source.
func (s *Sensor) FrameIndex() int {
	return s.frameIndex
}

// Analyzed counts frames that went through full analysis, bootstrap included.
func (s *Sensor) Analyzed() int {
	return s.analyzed
}

// Run loops until end of stream, a quit request from the display or ctx
// cancellation. The open recording, if any, is closed on every exit path.
func (s *Sensor) Run(ctx context.Context) (err error) {
	defer func() {
		if cerr := s.detector.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for {
		if ctx.Err() != nil {
			s.logger.Info("stopping on request", "frame", s.frameIndex)
			return nil
		}

		f, result := s.advance()
		if result == cycleStop {
			s.logger.Info("end of stream", "frame", s.frameIndex, "analyzed", s.analyzed)
			return nil
		}

		quit := s.process(f)
		f.Close()

		if quit {
			s.logger.Info("quit requested", "frame", s.frameIndex)
			return nil
		}
	}
}

func (s *Sensor) advance() (Frame, cycleResult) {
	if s.detector.Mode() == Idle && s.idleSkip > 0 {
		for i := 0; i < s.idleSkip; i++ {
			if !s.source.Grab() {
				return nil, cycleStop
			}
			s.frameIndex++
		}
		s.listener.FramesSkipped(s.idleSkip)
	}

	f, ok := s.source.Read(s.frameIndex + 1)
	if !ok {
		return nil, cycleStop
	}
	s.frameIndex++

	return f, cycleContinue
}

func (s *Sensor) process(f Frame) bool {
	s.analyzed++

	reading, ok := s.analyzer.Analyze(f)
	if !ok {
		return s.display.Show(f, View{Bootstrap: true})
	}

	severity := s.classifier.Classify(reading)
	step := s.detector.Step(severity, f)
	step.Reading = reading

	if err := s.detector.Record(f); err != nil {
		step.WriteFailed = true
	}
	s.listener.FrameAnalyzed(step)

	view := View{
		Severity: severity,
		Active:   step.Mode == Active,
		Alert:    step.Mode == Active && step.OverlayFramesLeft > 0,
	}
	if a, running := s.detector.Activation(); running {
		view.Category = a.Category
	}

	return s.display.Show(f, view)
}

type nopDisplay struct{}

func (nopDisplay) Show(Frame, View) bool { return false }

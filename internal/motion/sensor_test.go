package motion

import (
	"context"
	"testing"
)

type sensorFixture struct {
	source   *fakeSource
	analyzer *scriptedAnalyzer
	recorder *fakeRecorder
	listener *recordingListener
	display  *fakeDisplay
	detector *Detector
	sensor   *Sensor
}

func newSensorFixture(total int, hold int, readings ...Reading) *sensorFixture {
	fx := &sensorFixture{
		source:   &fakeSource{total: total},
		analyzer: &scriptedAnalyzer{readings: readings},
		recorder: &fakeRecorder{},
		listener: &recordingListener{},
		display:  &fakeDisplay{},
	}
	fx.detector = NewDetector(hold, fx.recorder, fx.listener, discardLogger)
	fx.sensor = NewSensor(SensorConfig{
		Source:     fx.source,
		Analyzer:   fx.analyzer,
		Classifier: NewClassifier(DefaultThresholds()),
		Detector:   fx.detector,
		Display:    fx.display,
		Listener:   fx.listener,
		Logger:     discardLogger,
		IdleSkip:   DefaultIdleSkip,
	})
	return fx
}

func TestSensorIdleSkipAccounting(t *testing.T) {
	fx := newSensorFixture(23, 90)

	if err := fx.sensor.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []int{5, 10, 15, 20}
	if len(fx.source.reads) != len(want) {
		t.Fatalf("reads %v, want %v", fx.source.reads, want)
	}
	for i := range want {
		if fx.source.reads[i] != want[i] {
			t.Fatalf("reads %v, want %v", fx.source.reads, want)
		}
	}
	if fx.source.grabs != 19 {
		t.Errorf("grabs %d, want 19", fx.source.grabs)
	}
	if fx.source.consumed != 23 {
		t.Errorf("consumed %d, want 23", fx.source.consumed)
	}
	if fx.listener.skipped != 16 {
		t.Errorf("listener saw %d skipped frames, want 16", fx.listener.skipped)
	}
}

func TestSensorActiveReadsEveryFrame(t *testing.T) {
	fx := newSensorFixture(30, 90, roi(0.05))

	if err := fx.sensor.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// bootstrap at 5, first scored frame at 10 activates, then one per cycle
	reads := fx.source.reads
	if reads[0] != 5 || reads[1] != 10 {
		t.Fatalf("reads %v", reads)
	}
	for i := 2; i < len(reads); i++ {
		if reads[i] != reads[i-1]+1 {
			t.Fatalf("active cycle advanced by %d: %v", reads[i]-reads[i-1], reads)
		}
	}
	if reads[len(reads)-1] != 30 {
		t.Errorf("last read %d, want 30", reads[len(reads)-1])
	}
}

func TestSensorBootstrapNeverTransitions(t *testing.T) {
	fx := newSensorFixture(5, 90)

	if err := fx.sensor.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if fx.analyzer.calls != 1 {
		t.Fatalf("analyzer called %d times", fx.analyzer.calls)
	}
	if len(fx.listener.steps) != 0 || len(fx.recorder.dests) != 0 {
		t.Errorf("bootstrap cycle produced steps %v, recordings %v", fx.listener.steps, fx.recorder.dests)
	}
	if len(fx.display.views) != 1 || !fx.display.views[0].Bootstrap {
		t.Errorf("unexpected views %+v", fx.display.views)
	}
}

func TestSensorGrabFailureSkipsPendingRead(t *testing.T) {
	fx := newSensorFixture(7, 90)

	if err := fx.sensor.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(fx.source.reads) != 1 {
		t.Errorf("reads %v, want a single read", fx.source.reads)
	}
	if fx.sensor.FrameIndex() != 7 {
		t.Errorf("frame index %d, want 7", fx.sensor.FrameIndex())
	}
}

func TestSensorEndOfStreamClosesRecording(t *testing.T) {
	fx := newSensorFixture(20, 90, roi(0.01))

	if err := fx.sensor.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(fx.recorder.opened) != 1 {
		t.Fatalf("opened %d recordings", len(fx.recorder.opened))
	}
	rec := fx.recorder.opened[0]
	if !rec.closed {
		t.Errorf("recording left open at end of stream")
	}
	// frames 10..20 are analyzed while active
	if len(rec.writes) != 11 {
		t.Errorf("wrote %v", rec.writes)
	}
	if len(fx.listener.ended) != 1 || fx.listener.ended[0].EndReason != EndShutdown {
		t.Errorf("unexpected ended activations %+v", fx.listener.ended)
	}
	for _, f := range fx.source.frames {
		if !f.closed {
			t.Errorf("frame %d not released", f.index)
		}
	}
}

func TestSensorWriteFailureKeepsDetecting(t *testing.T) {
	fx := newSensorFixture(15, 90, roi(0.01))
	fx.recorder.failWrites = true

	if err := fx.sensor.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// frames 10..15 are analyzed while active, every write fails
	steps := fx.listener.steps
	if len(steps) != 6 {
		t.Fatalf("got %d steps", len(steps))
	}
	for _, step := range steps {
		if step.Mode != Active || !step.WriteFailed {
			t.Errorf("frame %d: mode %v, write failed %v", step.FrameIndex, step.Mode, step.WriteFailed)
		}
	}
	if rec := fx.recorder.opened[0]; len(rec.writes) != 0 || !rec.closed {
		t.Errorf("unexpected recording state %+v", rec)
	}
	if len(fx.listener.ended) != 1 || fx.listener.ended[0].EndReason != EndShutdown {
		t.Errorf("unexpected ended activations %+v", fx.listener.ended)
	}
}

func TestSensorQuitFromDisplay(t *testing.T) {
	fx := newSensorFixture(1000, 90, roi(0.01))
	fx.display.quitAt = 4

	if err := fx.sensor.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if fx.sensor.Analyzed() != 4 {
		t.Errorf("analyzed %d frames, want 4", fx.sensor.Analyzed())
	}
	if !fx.recorder.opened[0].closed {
		t.Errorf("recording left open after quit")
	}
}

func TestSensorStopsOnCancelledContext(t *testing.T) {
	fx := newSensorFixture(1000, 90)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := fx.sensor.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fx.source.consumed != 0 {
		t.Errorf("consumed %d frames after cancellation", fx.source.consumed)
	}
}

func TestSensorViews(t *testing.T) {
	fx := newSensorFixture(12, 1, Reading{WholeRatio: 0.5, HasWhole: true}, roi(0))

	if err := fx.sensor.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	views := fx.display.views
	if len(views) < 3 {
		t.Fatalf("views %+v", views)
	}
	if !views[0].Bootstrap {
		t.Errorf("first view should be bootstrap")
	}
	if v := views[1]; v.Severity != SeverityShock || !v.Active || v.Category != CategoryShock {
		t.Errorf("activation view %+v", v)
	}
	if v := views[2]; !v.Active || v.Alert {
		t.Errorf("quiet active view %+v", v)
	}
}

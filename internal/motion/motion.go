package motion

import (
	"time"

	uuid "github.com/gofrs/uuid/v5"
)

type EndReason string

const (
	EndQuiet    EndReason = "quiet"
	EndShutdown EndReason = "shutdown"
)

// Activation is one IDLE -> ACTIVE -> IDLE cycle, i.e. one recorded file.
type Activation struct {
	ID             uuid.UUID
	Category       Category
	StartFrame     int
	LastEventFrame int
	EndFrame       int
	PeakSeverity   Severity
	Shocks         int
	RecordingPath  string
	EndReason      EndReason
	StartedAt      time.Time
	EndedAt        time.Time
}

func NewActivation(trigger Severity, frameIndex int, now time.Time) *Activation {
	return &Activation{
		ID:             uuid.Must(uuid.NewV4()),
		Category:       DestinationFor(trigger),
		StartFrame:     frameIndex,
		LastEventFrame: frameIndex,
		PeakSeverity:   trigger,
		StartedAt:      now,
	}
}

func (a *Activation) UUID() string {
	return a.ID.String()
}

func (a *Activation) Ended() bool {
	return !a.EndedAt.IsZero()
}

func (a *Activation) Recorded() bool {
	return a.RecordingPath != ""
}

// FramesCount is the span of stream frames covered so far.
func (a *Activation) FramesCount() int {
	if a.Ended() {
		return a.EndFrame - a.StartFrame
	}
	return a.LastEventFrame - a.StartFrame
}

func (a *Activation) observe(s Severity, frameIndex int) {
	a.LastEventFrame = frameIndex
	if s > a.PeakSeverity {
		a.PeakSeverity = s
	}
	if s == SeverityShock {
		a.Shocks++
	}
}

func (a *Activation) end(frameIndex int, reason EndReason, now time.Time) {
	a.EndFrame = frameIndex
	a.EndReason = reason
	a.EndedAt = now
}

package motion

import (
	"encoding/json"
	"fmt"
	"time"
)

type ReportEvent string

const (
	ReportStarted ReportEvent = "started"
	ReportEnded   ReportEvent = "ended"
)

type Report struct {
	UUID          string      `json:"uuid"`
	Event         ReportEvent `json:"event"`
	Source        string      `json:"source"`
	Category      Category    `json:"category"`
	PeakSeverity  Severity    `json:"peak_severity"`
	StartFrame    int         `json:"start_frame"`
	EndFrame      int         `json:"end_frame,omitempty"`
	Start         string      `json:"start"`
	Duration      string      `json:"duration,omitempty"`
	Shocks        int         `json:"shocks"`
	RecordingPath string      `json:"recording_path,omitempty"`
	EndReason     EndReason   `json:"end_reason,omitempty"`
	Date          string      `json:"date"`
}

// NewReport describes a in stream time, using fps to turn frame indices into
// seconds.
func NewReport(a Activation, source string, fps float64) *Report {
	fps = EffectiveFPS(fps, DefaultFPS)

	report := &Report{
		UUID:          a.UUID(),
		Event:         ReportStarted,
		Source:        source,
		Category:      a.Category,
		PeakSeverity:  a.PeakSeverity,
		StartFrame:    a.StartFrame,
		Start:         fmt.Sprintf("%.2f", float64(a.StartFrame)/fps),
		Shocks:        a.Shocks,
		RecordingPath: a.RecordingPath,
		Date:          a.StartedAt.Format(time.RFC3339),
	}

	if a.Ended() {
		report.Event = ReportEnded
		report.EndFrame = a.EndFrame
		report.Duration = fmt.Sprintf("%.2f", float64(a.FramesCount())/fps)
		report.EndReason = a.EndReason
		report.Date = a.EndedAt.Format(time.RFC3339)
	}

	return report
}

// Key groups all reports of one activation.
func (r *Report) Key() string {
	return r.UUID
}

func (r *Report) JSON() ([]byte, error) {
	return json.Marshal(r)
}

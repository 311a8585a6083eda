package motion

import "fmt"

type Severity int

const (
	SeverityNone Severity = iota
	SeverityMotion
	SeverityHugeMotion
	SeverityShock
)

var severityNames = map[Severity]string{
	SeverityNone:       "no_event",
	SeverityMotion:     "motion",
	SeverityHugeMotion: "huge_motion",
	SeverityShock:      "shock",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	for sev, name := range severityNames {
		if name == string(text) {
			*s = sev
			return nil
		}
	}
	return fmt.Errorf("unknown severity %q", text)
}

// Triggered reports whether s starts or extends an activation.
func (s Severity) Triggered() bool {
	return s > SeverityNone
}

// Category is the destination bucket of a recording.
type Category string

const (
	CategoryMotion Category = "motion"
	CategoryShock  Category = "shock"
)

// DestinationFor maps the severity that opened an activation to its bucket.
func DestinationFor(s Severity) Category {
	if s == SeverityShock {
		return CategoryShock
	}
	return CategoryMotion
}

// Destination identifies where the recording of one activation goes.
type Destination struct {
	Category   Category
	FrameIndex int
}

// FileName is unique per activation within a run: the activation frame index
// never repeats for a given source.
func (d Destination) FileName(source string, ext string) string {
	return fmt.Sprintf("%s_%d.%s", source, d.FrameIndex, ext)
}

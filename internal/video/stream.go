package video

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/kmmndr/motion_watch/internal/frame"
	"github.com/kmmndr/motion_watch/internal/motion"
)

var ErrSourceUnavailable = errors.New("video source unavailable")

// Stream is a frame source over a gocv capture.
type Stream struct {
	Video *gocv.VideoCapture

	name     string
	seekable bool
}

func NewFileStream(videoPath string) (*Stream, error) {
	video, err := gocv.VideoCaptureFile(videoPath)
	if err != nil {
		if video != nil {
			video.Close()
		}
		return nil, fmt.Errorf("%w: unable to open video file %s: %v", ErrSourceUnavailable, videoPath, err)
	}

	return newStream(video, SourceName(videoPath), isLocalFile(videoPath))
}

func NewDeviceStream(deviceID int) (*Stream, error) {
	video, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		if video != nil {
			video.Close()
		}
		return nil, fmt.Errorf("%w: unable to open device %d: %v", ErrSourceUnavailable, deviceID, err)
	}

	return newStream(video, fmt.Sprintf("cam%d", deviceID), false)
}

func newStream(video *gocv.VideoCapture, name string, seekable bool) (*Stream, error) {
	if !video.IsOpened() {
		video.Close()
		return nil, fmt.Errorf("%w: %s is not opened", ErrSourceUnavailable, name)
	}

	return &Stream{Video: video, name: name, seekable: seekable}, nil
}

func (s *Stream) Name() string {
	return s.name
}

func (s *Stream) Close() {
	s.Video.Close()
}

// Fps may be <= 0 when the source does not report a rate.
func (s *Stream) Fps() float64 {
	return s.Video.Get(gocv.VideoCaptureFPS)
}

func (s *Stream) FrameSize() (width int, height int) {
	return int(s.Video.Get(gocv.VideoCaptureFrameWidth)), int(s.Video.Get(gocv.VideoCaptureFrameHeight))
}

func (s *Stream) TimeAtFrame(frameIndex int) float64 {
	return float64(frameIndex) / motion.EffectiveFPS(s.Fps(), motion.DefaultFPS)
}

// Grab advances one frame without decoding it. gocv does not report grab
// failures, so end of stream is detected on files by the capture position
// no longer moving. Devices and URLs always return true here: their end of
// stream is only seen by the next Read, after the skipped grabs.
func (s *Stream) Grab() bool {
	if !s.seekable {
		s.Video.Grab(1)
		return true
	}

	total := s.Video.Get(gocv.VideoCaptureFrameCount)
	before := s.Video.Get(gocv.VideoCapturePosFrames)
	if total > 0 && before >= total {
		return false
	}

	s.Video.Grab(1)

	return s.Video.Get(gocv.VideoCapturePosFrames) > before
}

func (s *Stream) Read(frameIndex int) (motion.Frame, bool) {
	mat := gocv.NewMat()
	if ok := s.Video.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, false
	}

	f, err := frame.NewFrame(frameIndex, &mat)
	if err != nil {
		mat.Close()
		return nil, false
	}

	return f, true
}

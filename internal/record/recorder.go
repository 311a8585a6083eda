package record

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/kmmndr/motion_watch/internal/motion"
)

const (
	DefaultCodec     = "mp4v"
	DefaultExtension = "mp4"
)

var (
	ErrClosed      = errors.New("recording closed")
	ErrUnsupported = errors.New("frame has no image data")
)

type matFrame interface {
	Mat() *gocv.Mat
}

// FileRecorder opens one video file per activation.
type FileRecorder struct {
	layout    Layout
	source    string
	fps       float64
	codec     string
	extension string
}

func NewFileRecorder(layout Layout, source string, fps float64, codec string, extension string) *FileRecorder {
	if codec == "" {
		codec = DefaultCodec
	}
	if extension == "" {
		extension = DefaultExtension
	}

	return &FileRecorder{
		layout:    layout,
		source:    source,
		fps:       motion.EffectiveFPS(fps, motion.DefaultFPS),
		codec:     codec,
		extension: extension,
	}
}

func (r *FileRecorder) Path(dest motion.Destination) string {
	return filepath.Join(r.layout.Dir(dest.Category), dest.FileName(r.source, r.extension))
}

// Open sizes the output after first, the frame that triggered the activation.
func (r *FileRecorder) Open(dest motion.Destination, first motion.Frame) (motion.Recording, error) {
	mf, ok := first.(matFrame)
	if !ok || mf.Mat() == nil || mf.Mat().Empty() {
		return nil, ErrUnsupported
	}
	mat := mf.Mat()

	if err := os.MkdirAll(r.layout.Dir(dest.Category), 0o755); err != nil {
		return nil, fmt.Errorf("unable to create recording directory: %w", err)
	}

	path := r.Path(dest)
	writer, err := gocv.VideoWriterFile(path, r.codec, r.fps, mat.Cols(), mat.Rows(), mat.Channels() > 1)
	if err != nil {
		return nil, fmt.Errorf("unable to open %s: %w", path, err)
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, fmt.Errorf("unable to open %s with codec %s", path, r.codec)
	}

	return &Recording{writer: writer, path: path}, nil
}

// Recording is written by a single goroutine and rejects writes once closed.
type Recording struct {
	writer *gocv.VideoWriter
	path   string
	frames int
	closed bool
}

func (r *Recording) Path() string {
	return r.path
}

func (r *Recording) Frames() int {
	return r.frames
}

func (r *Recording) Write(f motion.Frame) error {
	if r.closed {
		return ErrClosed
	}

	mf, ok := f.(matFrame)
	if !ok || mf.Mat() == nil {
		return ErrUnsupported
	}

	if err := r.writer.Write(*mf.Mat()); err != nil {
		return fmt.Errorf("unable to write frame %d: %w", f.FrameIndex(), err)
	}
	r.frames++

	return nil
}

func (r *Recording) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	return r.writer.Close()
}

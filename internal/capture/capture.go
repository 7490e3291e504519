package capture

import (
	"errors"
	"io"

	"github.com/listendoctor/go-integration-demo/internal/audio"
)

// ErrDeviceUnavailable is returned when the audio input cannot be opened or
// configured (missing device, denied permission, busy hardware).
var ErrDeviceUnavailable = errors.New("audio input device unavailable")

// Source is a live PCM input. Read blocks or returns fewer bytes when no
// samples are available yet; io.EOF ends the capture cleanly.
type Source interface {
	io.ReadCloser
}

// SourceFactory opens a fresh Source for one capture session.
type SourceFactory func(format audio.Format) (Source, error)

// Recorder owns the recording device and the backing file the live stream is
// written to. The file grows monotonically while capturing; its final length
// is unknown until Stop.
type Recorder interface {
	// StartStreamCapture configures the input for the given linear PCM
	// format, truncates the backing file, and begins continuous writing.
	StartStreamCapture(format audio.Format) error

	// Stop halts writing and releases the input. Idempotent: stopping an
	// inactive recorder logs a no-op instead of failing.
	Stop(success bool)

	// Recording reports whether a capture is active.
	Recording() bool

	// FilePath is the well-known path of the backing recording file.
	FilePath() string
}

package capture

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/listendoctor/go-integration-demo/internal/audio"
	"github.com/listendoctor/go-integration-demo/internal/capture"
)

const (
	streamFileName = "stream.wav"

	// One write per 100ms keeps the backing file fresh enough that a 1s
	// extraction tick always finds fully flushed data.
	writeInterval = 100 * time.Millisecond
)

// FileRecorder pulls PCM from a Source and appends it to a backing file,
// syncing after every write so concurrent readers observe a strictly growing
// prefix of flushed bytes.
type FileRecorder struct {
	dir       string
	newSource capture.SourceFactory

	mu        sync.Mutex
	recording bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewFileRecorder(dir string, newSource capture.SourceFactory) *FileRecorder {
	return &FileRecorder{
		dir:       dir,
		newSource: newSource,
	}
}

func (r *FileRecorder) FilePath() string {
	return filepath.Join(r.dir, streamFileName)
}

func (r *FileRecorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

func (r *FileRecorder) StartStreamCapture(format audio.Format) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return fmt.Errorf("capture already active")
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create capture directory: %w", err)
	}

	source, err := r.newSource(format)
	if err != nil {
		return fmt.Errorf("%w: %v", capture.ErrDeviceUnavailable, err)
	}

	file, err := os.Create(r.FilePath())
	if err != nil {
		_ = source.Close()
		return fmt.Errorf("create recording file: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.recording = true
	r.wg.Add(1)
	go r.captureLoop(ctx, source, file, format)

	slog.Info("capture started", "file", r.FilePath(), "sample_rate", format.SampleRate, "channels", format.Channels, "bit_depth", format.BitDepth)
	return nil
}

func (r *FileRecorder) captureLoop(ctx context.Context, source capture.Source, file *os.File, format audio.Format) {
	defer r.wg.Done()
	defer func() {
		if err := source.Close(); err != nil {
			slog.Error("failed to close audio source", "error", err)
		}
		if err := file.Close(); err != nil {
			slog.Error("failed to close recording file", "error", err)
		}
	}()

	ticker := time.NewTicker(writeInterval)
	defer ticker.Stop()

	bytesPerWrite := format.BytesPerSecond() * int(writeInterval) / int(time.Second)
	buf := make([]byte, bytesPerWrite)
	var written int64

	for {
		select {
		case <-ctx.Done():
			slog.Info("capture loop stopped", "written_bytes", written)
			return
		case <-ticker.C:
			n, err := source.Read(buf)
			if n > 0 {
				if _, werr := file.Write(buf[:n]); werr != nil {
					slog.Error("failed to append to recording file", "error", werr)
					return
				}
				// Flush so the extractor can read this range on its
				// next tick.
				if serr := file.Sync(); serr != nil {
					slog.Error("failed to sync recording file", "error", serr)
					return
				}
				written += int64(n)
			}
			if err != nil {
				slog.Warn("audio source drained", "error", err, "written_bytes", written)
				return
			}
		}
	}
}

func (r *FileRecorder) Stop(success bool) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		slog.Warn("stop requested but capture is not active")
		return
	}
	r.recording = false
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()

	cancel()
	r.wg.Wait()

	if success {
		slog.Info("recording finished", "file", r.FilePath())
	} else {
		slog.Error("recording failed", "file", r.FilePath())
	}
}

package audio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"
)

// Extractor slices a growing PCM recording file into time-boxed chunks.
// Each call to ExtractNext reads the bytes appended since the previous call,
// never more than one period's worth, so chunk byte ranges are monotonic,
// non-overlapping, and gap-free over the file.
//
// The recording file is written concurrently by the capture side; the
// extractor only reads ranges already flushed to disk.
type Extractor struct {
	filePath string
	format   Format
	period   time.Duration

	mu       sync.Mutex
	lastPos  int64
	extracts int
}

func NewExtractor(filePath string, format Format, period time.Duration) *Extractor {
	return &Extractor{
		filePath: filePath,
		format:   format,
		period:   period,
	}
}

// ChunkSize is the maximum payload size of one chunk: one period of PCM.
func (e *Extractor) ChunkSize() int {
	size := float64(e.period) / float64(time.Second) * float64(e.format.BytesPerSecond())
	return int(math.Ceil(size))
}

// ExtractNext reads the next unread byte range from the recording file.
// It returns (nil, nil) when no new data has been flushed yet; that is not an
// error, just an empty tick. The first extracted chunk is prefixed with a
// synthesized WAV header so the receiver can decode the stream as one file.
func (e *Extractor) ExtractNext() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, err := os.Open(e.filePath)
	if err != nil {
		return nil, fmt.Errorf("open recording file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat recording file: %w", err)
	}

	end := e.lastPos + int64(e.ChunkSize())
	if end > info.Size() {
		end = info.Size()
	}
	if end <= e.lastPos {
		return nil, nil
	}

	payload := make([]byte, end-e.lastPos)
	if _, err := f.ReadAt(payload, e.lastPos); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read recording file at %d: %w", e.lastPos, err)
	}

	isFirst := e.lastPos == 0
	e.lastPos = end
	e.extracts++

	if isFirst {
		chunk := make([]byte, 0, HeaderSize+len(payload))
		chunk = append(chunk, SynthesizeStreamHeader(e.format)...)
		chunk = append(chunk, payload...)
		slog.Debug("extracted first chunk with synthesized header", "payload_bytes", len(payload), "total_bytes", len(chunk))
		return chunk, nil
	}
	return payload, nil
}

// Position returns the byte offset up to which the file has been consumed.
func (e *Extractor) Position() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastPos
}

// Reset returns the extractor to the start of the file, so the next chunk is
// treated as a first chunk again.
func (e *Extractor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastPos = 0
	e.extracts = 0
}

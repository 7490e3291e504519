package capture

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/listendoctor/go-integration-demo/internal/audio"
	"github.com/listendoctor/go-integration-demo/internal/capture"
)

// FileSource replays raw PCM from a file as if it were a live input. Useful
// for demo runs and environments without a microphone.
func FileSource(path string) capture.SourceFactory {
	return func(_ audio.Format) (capture.Source, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open audio source file: %w", err)
		}
		return f, nil
	}
}

// ToneSource generates a continuous sine tone in the requested PCM format.
// It never reports EOF; capture ends when the recorder stops.
func ToneSource(frequencyHz float64) capture.SourceFactory {
	return func(format audio.Format) (capture.Source, error) {
		if format.BitDepth != 8 && format.BitDepth != 16 {
			return nil, fmt.Errorf("unsupported bit depth %d", format.BitDepth)
		}
		return &toneSource{format: format, frequency: frequencyHz}, nil
	}
}

type toneSource struct {
	format    audio.Format
	frequency float64
	sample    int64
}

func (s *toneSource) Read(p []byte) (int, error) {
	blockAlign := s.format.BlockAlign()
	frames := len(p) / blockAlign
	if frames == 0 {
		return 0, io.ErrShortBuffer
	}

	for i := 0; i < frames; i++ {
		phase := 2 * math.Pi * s.frequency * float64(s.sample) / float64(s.format.SampleRate)
		value := math.Sin(phase)
		s.sample++
		for ch := 0; ch < s.format.Channels; ch++ {
			offset := i*blockAlign + ch*(s.format.BitDepth/8)
			switch s.format.BitDepth {
			case 8:
				// 8-bit WAV PCM is unsigned, centered at 128.
				p[offset] = byte(128 + value*127)
			case 16:
				v := int16(value * math.MaxInt16)
				p[offset] = byte(v)
				p[offset+1] = byte(v >> 8)
			}
		}
	}
	return frames * blockAlign, nil
}

func (s *toneSource) Close() error { return nil }

package audio

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeRecording(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write recording file: %v", err)
	}
}

func pcmBytes(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func TestExtractNext_FirstChunkCarriesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.wav")
	writeRecording(t, path, pcmBytes(500))

	e := NewExtractor(path, DefaultFormat, time.Second)
	chunk, err := e.ExtractNext()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(chunk) != HeaderSize+500 {
		t.Fatalf("expected %d bytes, got %d", HeaderSize+500, len(chunk))
	}
	if _, err := ParseHeader(chunk); err != nil {
		t.Fatalf("first chunk header should parse, got %v", err)
	}
	if !bytes.Equal(chunk[HeaderSize:], pcmBytes(500)) {
		t.Fatal("payload after header should match file content")
	}
}

func TestExtractNext_CoversFileWithoutGapOrOverlap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.wav")
	e := NewExtractor(path, DefaultFormat, time.Second)
	chunkSize := e.ChunkSize()
	if chunkSize != 8000 {
		t.Fatalf("expected 8000 byte chunks for 8kHz mono 8-bit at 1s, got %d", chunkSize)
	}

	// Simulates 3.2 seconds of capture: the file grows between ticks and a
	// final partial chunk is drained on stop.
	total := pcmBytes(25600)
	var chunks [][]byte
	for _, grownTo := range []int{8000, 16000, 24000, 25600} {
		writeRecording(t, path, total[:grownTo])
		chunk, err := e.ExtractNext()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if chunk == nil {
			t.Fatalf("expected a chunk at size %d", grownTo)
		}
		chunks = append(chunks, chunk)
	}

	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	if len(chunks[3]) != 1600 {
		t.Fatalf("expected short final chunk of 1600 bytes, got %d", len(chunks[3]))
	}

	// Strip the first chunk's header and concatenate: must equal the file.
	var recombined []byte
	recombined = append(recombined, chunks[0][HeaderSize:]...)
	for _, c := range chunks[1:] {
		recombined = append(recombined, c...)
	}
	if !bytes.Equal(recombined, total) {
		t.Fatal("concatenated chunk payloads must exactly cover the file")
	}
	if e.Position() != int64(len(total)) {
		t.Fatalf("expected position %d, got %d", len(total), e.Position())
	}
}

func TestExtractNext_NoNewDataIsNotAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.wav")
	writeRecording(t, path, pcmBytes(100))

	e := NewExtractor(path, DefaultFormat, time.Second)
	if _, err := e.ExtractNext(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	chunk, err := e.ExtractNext()
	if err != nil {
		t.Fatalf("expected no error on empty tick, got %v", err)
	}
	if chunk != nil {
		t.Fatalf("expected no chunk when file has not grown, got %d bytes", len(chunk))
	}
}

func TestExtractNext_MissingFileIsAnError(t *testing.T) {
	e := NewExtractor(filepath.Join(t.TempDir(), "gone.wav"), DefaultFormat, time.Second)
	if _, err := e.ExtractNext(); err == nil {
		t.Fatal("expected error when recording file does not exist")
	}
}

func TestReset_RestartsFromZeroWithHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.wav")
	writeRecording(t, path, pcmBytes(200))

	e := NewExtractor(path, DefaultFormat, time.Second)
	if _, err := e.ExtractNext(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	e.Reset()
	if e.Position() != 0 {
		t.Fatalf("expected position 0 after reset, got %d", e.Position())
	}

	chunk, err := e.ExtractNext()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := ParseHeader(chunk); err != nil {
		t.Fatalf("chunk after reset should carry a header again, got %v", err)
	}
}

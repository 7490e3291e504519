package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/listendoctor/go-integration-demo/internal/audio"
	"github.com/listendoctor/go-integration-demo/internal/capture"
	"github.com/listendoctor/go-integration-demo/internal/config"
	"github.com/listendoctor/go-integration-demo/internal/stream"
)

// Manager coordinates one live streaming session: it owns neither the
// recording device nor the socket, but enforces their joint lifecycle.
// When the session starts recording, the manager starts capture and a
// periodic extraction tick; every extracted chunk is forwarded to the
// session in order and kept in an observable buffer; when the server
// finishes processing, capture is torn down and the result surfaced.
type Manager struct {
	cfg      *config.Config
	recorder capture.Recorder
	session  stream.Session

	mu         sync.Mutex
	extractor  *audio.Extractor
	cancelTick context.CancelFunc
	tickDone   chan struct{}
	buffer     [][]byte
	resultCh   chan stream.Result
}

func NewManager(cfg *config.Config, recorder capture.Recorder, session stream.Session) *Manager {
	return &Manager{
		cfg:      cfg,
		recorder: recorder,
		session:  session,
	}
}

func (m *Manager) format() audio.Format {
	return audio.Format{
		SampleRate: m.cfg.AudioSampleRate,
		Channels:   m.cfg.AudioChannels,
		BitDepth:   m.cfg.AudioBitDepth,
	}
}

// Connect opens the socket session. The manager registers itself as the
// event handler, so server events flow back into the coordinator.
func (m *Manager) Connect(ctx context.Context, token string) error {
	return m.session.Connect(ctx, token, m)
}

// StartRecording starts the session on the server, then brings up capture
// and the chunk tick. The server's recording_started acknowledgment is
// advisory; capture begins optimistically.
func (m *Manager) StartRecording(cfg stream.SessionConfig) error {
	if err := m.session.StartSession(cfg); err != nil {
		return fmt.Errorf("start stream session: %w", err)
	}

	format := m.format()
	if err := m.recorder.StartStreamCapture(format); err != nil {
		// The server was told to record but the device failed; end the
		// session so it does not wait for chunks that will never come.
		if endErr := m.session.EndSession(); endErr != nil {
			slog.Error("failed to end session after capture failure", "error", endErr)
		}
		return fmt.Errorf("start capture: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	m.mu.Lock()
	m.extractor = audio.NewExtractor(m.recorder.FilePath(), format, m.cfg.ChunkPeriod)
	m.cancelTick = cancel
	m.tickDone = done
	m.buffer = nil
	m.resultCh = make(chan stream.Result, 1)
	extractor := m.extractor
	m.mu.Unlock()

	go m.tickLoop(ctx, extractor, done)
	slog.Info("recording session started", "chunk_period", m.cfg.ChunkPeriod, "file", m.recorder.FilePath())
	return nil
}

func (m *Manager) tickLoop(ctx context.Context, extractor *audio.Extractor, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.cfg.ChunkPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("chunk tick loop stopped")
			return
		case <-ticker.C:
			m.extractAndForward(extractor)
		}
	}
}

// extractAndForward reads one tick's worth of new audio and ships it.
// Extraction failures skip the tick; chunk-send failures are logged but do
// not abort the session.
func (m *Manager) extractAndForward(extractor *audio.Extractor) {
	chunk, err := extractor.ExtractNext()
	if err != nil {
		slog.Error("failed to extract audio chunk", "error", err)
		return
	}
	if chunk == nil {
		return
	}

	m.mu.Lock()
	m.buffer = append(m.buffer, chunk)
	count := len(m.buffer)
	m.mu.Unlock()

	if err := m.session.SendChunk(chunk); err != nil {
		slog.Error("failed to send audio chunk", "error", err, "chunk_index", count-1)
		return
	}
	slog.Debug("audio chunk forwarded", "chunk_index", count-1, "bytes", len(chunk))
}

// StopRecording stops capture, drains the final partial chunk, signals the
// server to stop, and waits for the processing result until ctx expires.
func (m *Manager) StopRecording(ctx context.Context) (stream.Result, error) {
	m.mu.Lock()
	cancel := m.cancelTick
	done := m.tickDone
	extractor := m.extractor
	resultCh := m.resultCh
	m.cancelTick = nil
	m.mu.Unlock()

	if cancel == nil {
		return stream.Result{}, fmt.Errorf("no recording in progress")
	}

	cancel()
	<-done
	m.recorder.Stop(true)

	// The last tick rarely lands exactly on the file's end; drain what the
	// capture flushed after the final tick so no byte is lost.
	if extractor != nil {
		m.extractAndForwardFinal(extractor)
	}

	if err := m.session.EndSession(); err != nil {
		return stream.Result{}, fmt.Errorf("end stream session: %w", err)
	}

	select {
	case result := <-resultCh:
		return result, nil
	case <-ctx.Done():
		return stream.Result{}, fmt.Errorf("waiting for processing result: %w", ctx.Err())
	}
}

func (m *Manager) extractAndForwardFinal(extractor *audio.Extractor) {
	for {
		chunk, err := extractor.ExtractNext()
		if err != nil {
			slog.Error("failed to drain final audio chunk", "error", err)
			return
		}
		if chunk == nil {
			return
		}
		m.mu.Lock()
		m.buffer = append(m.buffer, chunk)
		m.mu.Unlock()
		if err := m.session.SendChunk(chunk); err != nil {
			slog.Error("failed to send final audio chunk", "error", err)
			return
		}
	}
}

// Abort tears the session down without waiting for a result.
func (m *Manager) Abort() {
	m.stopPipeline(false)
	m.session.Disconnect()
}

func (m *Manager) stopPipeline(success bool) {
	m.mu.Lock()
	cancel := m.cancelTick
	done := m.tickDone
	m.cancelTick = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if m.recorder.Recording() {
		m.recorder.Stop(success)
	}
}

// ChunkCount reports how many chunks have been buffered so far.
func (m *Manager) ChunkCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buffer)
}

// BufferedChunks returns a copy of the ordered chunk buffer.
func (m *Manager) BufferedChunks() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	chunks := make([][]byte, len(m.buffer))
	copy(chunks, m.buffer)
	return chunks
}

// Snapshot exposes the underlying session state for observers.
func (m *Manager) Snapshot() stream.Snapshot {
	return m.session.Snapshot()
}

// OnRoomJoined implements stream.EventHandler.
func (m *Manager) OnRoomJoined(room string) {
	slog.Info("session ready to record", "room", room)
}

// OnRecordingStarted implements stream.EventHandler. The acknowledgment is
// advisory; capture is already running.
func (m *Manager) OnRecordingStarted() {
	slog.Info("server acknowledged recording start")
}

// OnProcessingComplete implements stream.EventHandler.
func (m *Manager) OnProcessingComplete(result stream.Result) {
	// Capture is normally stopped before the server responds; stopping
	// again here covers a server that completes early.
	m.stopPipeline(true)

	m.mu.Lock()
	resultCh := m.resultCh
	m.mu.Unlock()
	if resultCh != nil {
		select {
		case resultCh <- result:
		default:
		}
	}
	slog.Info("session processing complete", "transcription_len", len(result.Transcription), "summary_len", len(result.Summary))
}

// OnTransportError implements stream.EventHandler.
func (m *Manager) OnTransportError(err error) {
	slog.Error("session transport error", "error", err)
	m.stopPipeline(false)
}

// OnDisconnect implements stream.EventHandler.
func (m *Manager) OnDisconnect() {
	slog.Info("session disconnected")
	m.stopPipeline(false)
}

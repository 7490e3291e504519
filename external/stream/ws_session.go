package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/listendoctor/go-integration-demo/internal/stream"
)

// Client→server and server→client event names of the streaming protocol.
const (
	eventJoinRoom           = "join_room"
	eventStartRecording     = "start_recording"
	eventStopRecording      = "stop_recording"
	eventRoomJoined         = "room_joined"
	eventRecordingStarted   = "recording_started"
	eventProcessingComplete = "processing_complete"
	eventAudioChunkAck      = "audio_chunk_ack"
	eventError              = "error"
)

// envelope frames every JSON control event. Audio chunks travel as raw
// binary frames instead; the server acknowledges them in frame order.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type ackPayload struct {
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// WSSession implements stream.Session over a websocket connection. All
// session state lives behind one mutex; the read loop, chunk senders, and
// callers serialize through it, and snapshots are taken under it so the
// transcription and summary always change together.
type WSSession struct {
	url        string
	ackTimeout time.Duration

	mu            sync.Mutex
	conn          *websocket.Conn
	state         stream.State
	handler       stream.EventHandler
	room          string
	transcription string
	summary       string
	chunksSent    int
	chunkSeq      uint64
	ackWaiters    []ackWaiter
	closing       bool
}

type ackWaiter struct {
	seq uint64
	ch  chan ackPayload
}

// NewWSSession builds a disconnected session. ackTimeout bounds how long a
// chunk acknowledgment is awaited; zero means wait forever, matching the
// behavior of clients that never time out chunk sends.
func NewWSSession(socketURL string, ackTimeout time.Duration) *WSSession {
	return &WSSession{
		url:        socketURL,
		ackTimeout: ackTimeout,
		state:      stream.StateDisconnected,
	}
}

func (s *WSSession) Connect(ctx context.Context, token string, handler stream.EventHandler) error {
	s.mu.Lock()
	next, err := stream.Transition(s.state, stream.EventConnectRequested)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	s.handler = handler
	s.mu.Unlock()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, s.url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		s.mu.Lock()
		s.state = stream.StateDisconnected
		s.mu.Unlock()
		return fmt.Errorf("dial socket: %w", err)
	}

	room := uuid.NewString()
	s.mu.Lock()
	s.conn = conn
	s.closing = false
	s.room = room
	s.state, _ = stream.Transition(s.state, stream.EventTransportConnected)
	s.mu.Unlock()
	slog.Info("socket connected", "url", s.url)

	go s.readLoop(conn)

	// A fresh random room is requested immediately after every connect;
	// the server confirms with room_joined.
	if err := s.emit(eventJoinRoom, map[string]string{"room": room}); err != nil {
		s.Disconnect()
		return fmt.Errorf("join room: %w", err)
	}
	slog.Info("join room requested", "room", room)
	return nil
}

func (s *WSSession) StartSession(cfg stream.SessionConfig) error {
	s.mu.Lock()
	next, err := stream.Transition(s.state, stream.EventStartRequested)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	s.mu.Unlock()

	startedAt := cfg.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	payload := map[string]any{
		"username":      cfg.Username,
		"fileExtension": cfg.FileExtension,
		"config": map[string]string{
			"language":   cfg.Language,
			"prompt":     cfg.Prompt,
			"speciality": cfg.Speciality,
			"category":   cfg.Category,
			"datetime":   startedAt.Format(stream.SessionConfigDateTimeLayout),
		},
	}
	if err := s.emit(eventStartRecording, payload); err != nil {
		s.mu.Lock()
		s.state = stream.StateInRoomIdle
		s.mu.Unlock()
		return fmt.Errorf("start recording: %w", err)
	}
	slog.Info("recording start requested", "username", cfg.Username, "speciality", cfg.Speciality, "language", cfg.Language)
	return nil
}

// SendChunk emits one audio chunk as a binary frame. It returns as soon as
// the frame is written; the per-chunk acknowledgment is awaited on a separate
// goroutine and only logged, so a slow or silent server never blocks the next
// chunk. Ack errors are protocol-level and non-fatal.
func (s *WSSession) SendChunk(chunk []byte) error {
	s.mu.Lock()
	if s.state != stream.StateRecording {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: state is %s", stream.ErrNotRecording, state)
	}
	conn := s.conn
	s.chunkSeq++
	seq := s.chunkSeq
	waiter := ackWaiter{seq: seq, ch: make(chan ackPayload, 1)}
	s.ackWaiters = append(s.ackWaiters, waiter)

	err := conn.WriteMessage(websocket.BinaryMessage, chunk)
	if err != nil {
		s.ackWaiters = s.ackWaiters[:len(s.ackWaiters)-1]
		s.mu.Unlock()
		return fmt.Errorf("write chunk %d: %w", seq, err)
	}
	s.chunksSent++
	s.mu.Unlock()

	go s.awaitAck(seq, waiter.ch)
	return nil
}

func (s *WSSession) awaitAck(seq uint64, ch chan ackPayload) {
	var timeout <-chan time.Time
	if s.ackTimeout > 0 {
		timer := time.NewTimer(s.ackTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case ack, ok := <-ch:
		if !ok {
			slog.Debug("chunk ack abandoned on disconnect", "seq", seq)
			return
		}
		if ack.Error != "" {
			slog.Error("error sending audio chunk", "seq", seq, "error", ack.Error)
			return
		}
		slog.Debug("audio chunk sent successfully", "seq", seq)
	case <-timeout:
		slog.Warn("audio chunk ack timed out", "seq", seq, "timeout", s.ackTimeout)
	}
}

func (s *WSSession) EndSession() error {
	s.mu.Lock()
	next, err := stream.Transition(s.state, stream.EventStopRequested)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	s.mu.Unlock()

	if err := s.emit(eventStopRecording, nil); err != nil {
		return fmt.Errorf("stop recording: %w", err)
	}
	slog.Info("recording stop requested; awaiting processing result")
	return nil
}

func (s *WSSession) Disconnect() {
	s.mu.Lock()
	if s.state == stream.StateDisconnected && s.conn == nil {
		s.mu.Unlock()
		return
	}
	s.closing = true
	conn := s.conn
	handler := s.handler
	s.resetLocked()
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	slog.Info("socket disconnected")
	if handler != nil {
		handler.OnDisconnect()
	}
}

// resetLocked clears every piece of accumulated session state. Caller holds
// the mutex.
func (s *WSSession) resetLocked() {
	s.state = stream.StateDisconnected
	s.conn = nil
	s.room = ""
	s.transcription = ""
	s.summary = ""
	s.chunksSent = 0
	s.chunkSeq = 0
	for _, w := range s.ackWaiters {
		close(w.ch)
	}
	s.ackWaiters = nil
}

func (s *WSSession) Snapshot() stream.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	inRoom := s.state == stream.StateInRoomIdle || s.state == stream.StateRecording || s.state == stream.StateAwaitingResult
	return stream.Snapshot{
		State:         s.state,
		Connected:     s.state == stream.StateConnected || inRoom,
		InRoom:        inRoom,
		Room:          s.room,
		ChunksSent:    s.chunksSent,
		Transcription: s.transcription,
		Summary:       s.summary,
	}
}

func (s *WSSession) emit(event string, data any) error {
	env := envelope{Event: event}
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", event, err)
		}
		env.Data = encoded
	}
	frame, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", event, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("emit %s: socket not connected", event)
	}
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

func (s *WSSession) readLoop(conn *websocket.Conn) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			s.handleReadError(conn, err)
			return
		}
		if messageType != websocket.TextMessage {
			slog.Warn("ignoring non-text frame from server", "type", messageType)
			continue
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			slog.Error("failed to decode server event", "error", err)
			continue
		}
		s.dispatch(env)
	}
}

func (s *WSSession) handleReadError(conn *websocket.Conn, err error) {
	s.mu.Lock()
	if s.closing || s.conn != conn {
		// Deliberate disconnect already reset the session.
		s.mu.Unlock()
		return
	}
	handler := s.handler

	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		// Server-initiated disconnect: same reset as a local one.
		s.closing = true
		s.resetLocked()
		s.mu.Unlock()
		_ = conn.Close()
		slog.Info("socket closed by server")
		if handler != nil {
			handler.OnDisconnect()
		}
		return
	}

	s.state, _ = stream.Transition(s.state, stream.EventTransportError)
	s.mu.Unlock()
	slog.Error("socket transport error", "error", err)
	if handler != nil {
		handler.OnTransportError(err)
	}
}

func (s *WSSession) dispatch(env envelope) {
	switch env.Event {
	case eventRoomJoined:
		s.onRoomJoined()
	case eventRecordingStarted:
		slog.Info("recording started", "data", string(env.Data))
		s.mu.Lock()
		handler := s.handler
		s.mu.Unlock()
		if handler != nil {
			handler.OnRecordingStarted()
		}
	case eventProcessingComplete:
		s.onProcessingComplete(env.Data)
	case eventAudioChunkAck:
		s.onChunkAck(env.Data)
	case eventError:
		s.onServerError(env.Data)
	default:
		slog.Warn("unknown server event", "event", env.Event)
	}
}

func (s *WSSession) onRoomJoined() {
	s.mu.Lock()
	next, err := stream.Transition(s.state, stream.EventRoomJoined)
	if err != nil {
		s.mu.Unlock()
		slog.Warn("unexpected room_joined", "error", err)
		return
	}
	alreadyInRoom := next == s.state && s.state != stream.StateConnected
	s.state = next
	room := s.room
	handler := s.handler
	s.mu.Unlock()

	if alreadyInRoom {
		slog.Debug("repeated room_joined confirmation ignored", "room", room)
		return
	}
	slog.Info("joined room", "room", room)
	if handler != nil {
		handler.OnRoomJoined(room)
	}
}

func (s *WSSession) onProcessingComplete(data json.RawMessage) {
	var result stream.Result
	if err := json.Unmarshal(data, &result); err != nil {
		slog.Error("failed to decode processing_complete", "error", err)
		return
	}

	s.mu.Lock()
	next, err := stream.Transition(s.state, stream.EventProcessingComplete)
	if err != nil {
		s.mu.Unlock()
		slog.Warn("unexpected processing_complete", "error", err)
		return
	}
	s.state = next
	// One critical section for both values: observers never see one
	// updated without the other.
	s.transcription = result.Transcription
	s.summary = result.Summary
	handler := s.handler
	s.mu.Unlock()

	slog.Info("processing complete", "transcription_len", len(result.Transcription), "summary_len", len(result.Summary))
	if handler != nil {
		handler.OnProcessingComplete(result)
	}
}

// onChunkAck correlates acknowledgments to sends in FIFO order; the
// transport preserves frame order, so the oldest outstanding chunk is always
// the one being acknowledged.
func (s *WSSession) onChunkAck(data json.RawMessage) {
	var ack ackPayload
	if err := json.Unmarshal(data, &ack); err != nil {
		slog.Error("failed to decode chunk ack", "error", err)
		return
	}

	s.mu.Lock()
	if len(s.ackWaiters) == 0 {
		s.mu.Unlock()
		slog.Warn("chunk ack with no outstanding chunk")
		return
	}
	waiter := s.ackWaiters[0]
	s.ackWaiters = s.ackWaiters[1:]
	s.mu.Unlock()

	waiter.ch <- ack
}

func (s *WSSession) onServerError(data json.RawMessage) {
	s.mu.Lock()
	s.state, _ = stream.Transition(s.state, stream.EventTransportError)
	handler := s.handler
	s.mu.Unlock()

	err := fmt.Errorf("server error event: %s", string(data))
	slog.Error("socket error", "data", string(data))
	if handler != nil {
		handler.OnTransportError(err)
	}
}

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/listendoctor/go-integration-demo/internal/stream"
)

type recordedEvent struct {
	name string
	data json.RawMessage
}

// fakeServer is a minimal streaming backend: it records everything the
// client sends and lets tests push server events back.
type fakeServer struct {
	t        *testing.T
	upgrader websocket.Upgrader
	server   *httptest.Server

	mu        sync.Mutex
	conn      *websocket.Conn
	events    []recordedEvent
	chunks    [][]byte
	gotAuth   string
	connected chan struct{}
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{t: t, connected: make(chan struct{}, 1)}
	fs.server = httptest.NewServer(http.HandlerFunc(fs.handle))
	t.Cleanup(fs.server.Close)
	return fs
}

func (fs *fakeServer) url() string {
	return "ws" + strings.TrimPrefix(fs.server.URL, "http")
}

func (fs *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	fs.gotAuth = r.Header.Get("Authorization")
	fs.mu.Unlock()

	conn, err := fs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	fs.mu.Lock()
	fs.conn = conn
	fs.mu.Unlock()
	fs.connected <- struct{}{}

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		fs.mu.Lock()
		if messageType == websocket.BinaryMessage {
			fs.chunks = append(fs.chunks, data)
		} else {
			var env envelope
			if err := json.Unmarshal(data, &env); err == nil {
				fs.events = append(fs.events, recordedEvent{name: env.Event, data: env.Data})
			}
		}
		fs.mu.Unlock()
	}
}

func (fs *fakeServer) push(t *testing.T, event string, data any) {
	t.Helper()
	env := envelope{Event: event}
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("failed to encode server event: %v", err)
		}
		env.Data = encoded
	}
	frame, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("failed to encode envelope: %v", err)
	}
	fs.mu.Lock()
	conn := fs.conn
	fs.mu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("failed to push server event: %v", err)
	}
}

func (fs *fakeServer) waitEvent(t *testing.T, name string) recordedEvent {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		fs.mu.Lock()
		for _, ev := range fs.events {
			if ev.name == name {
				fs.mu.Unlock()
				return ev
			}
		}
		fs.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for client event %q", name)
	return recordedEvent{}
}

func (fs *fakeServer) waitChunks(t *testing.T, n int) [][]byte {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		fs.mu.Lock()
		if len(fs.chunks) >= n {
			chunks := fs.chunks[:n]
			fs.mu.Unlock()
			return chunks
		}
		fs.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d chunks", n)
	return nil
}

// collectingHandler records handler callbacks for assertions.
type collectingHandler struct {
	mu            sync.Mutex
	roomsJoined   []string
	started       int
	results       []stream.Result
	transportErrs []error
	disconnects   int
}

func (h *collectingHandler) OnRoomJoined(room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.roomsJoined = append(h.roomsJoined, room)
}

func (h *collectingHandler) OnRecordingStarted() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.started++
}

func (h *collectingHandler) OnProcessingComplete(result stream.Result) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = append(h.results, result)
}

func (h *collectingHandler) OnTransportError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.transportErrs = append(h.transportErrs, err)
}

func (h *collectingHandler) OnDisconnect() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disconnects++
}

func (h *collectingHandler) roomJoinCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.roomsJoined)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func connectedSession(t *testing.T, fs *fakeServer) (*WSSession, *collectingHandler) {
	t.Helper()
	session := NewWSSession(fs.url(), time.Second)
	handler := &collectingHandler{}
	if err := session.Connect(context.Background(), "test-token", handler); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	t.Cleanup(session.Disconnect)

	fs.waitEvent(t, eventJoinRoom)
	fs.push(t, eventRoomJoined, map[string]string{"room": "ok"})
	waitFor(t, "room join", func() bool {
		return session.Snapshot().InRoom
	})
	return session, handler
}

func startRecording(t *testing.T, fs *fakeServer, session *WSSession) {
	t.Helper()
	err := session.StartSession(stream.SessionConfig{
		Username:      "Dr. Demo",
		FileExtension: "wav",
		Language:      "en",
		Prompt:        "soap",
		Speciality:    "12",
		Category:      "consultation",
	})
	if err != nil {
		t.Fatalf("start session failed: %v", err)
	}
	fs.waitEvent(t, eventStartRecording)
}

func TestConnect_SendsBearerTokenAndJoinsRoom(t *testing.T) {
	fs := newFakeServer(t)
	session, handler := connectedSession(t, fs)

	fs.mu.Lock()
	auth := fs.gotAuth
	fs.mu.Unlock()
	if auth != "Bearer test-token" {
		t.Fatalf("expected bearer handshake header, got %q", auth)
	}

	join := fs.waitEvent(t, eventJoinRoom)
	var payload map[string]string
	if err := json.Unmarshal(join.data, &payload); err != nil {
		t.Fatalf("failed to decode join payload: %v", err)
	}
	if payload["room"] == "" {
		t.Fatal("expected a generated room id")
	}

	snap := session.Snapshot()
	if !snap.Connected || !snap.InRoom {
		t.Fatalf("expected connected in-room session, got %+v", snap)
	}
	if handler.roomJoinCount() != 1 {
		t.Fatalf("expected exactly one room join callback, got %d", handler.roomJoinCount())
	}
}

func TestRoomJoined_Idempotent(t *testing.T) {
	fs := newFakeServer(t)
	session, handler := connectedSession(t, fs)

	// A duplicated confirmation must not re-trigger the join.
	fs.push(t, eventRoomJoined, map[string]string{"room": "dup"})
	time.Sleep(100 * time.Millisecond)

	if handler.roomJoinCount() != 1 {
		t.Fatalf("expected one room join despite repeated confirmations, got %d", handler.roomJoinCount())
	}
	if !session.Snapshot().InRoom {
		t.Fatal("expected session to remain in room")
	}
}

func TestStartSession_EmitsConfig(t *testing.T) {
	fs := newFakeServer(t)
	session, _ := connectedSession(t, fs)
	startRecording(t, fs, session)

	start := fs.waitEvent(t, eventStartRecording)
	var payload struct {
		Username      string            `json:"username"`
		FileExtension string            `json:"fileExtension"`
		Config        map[string]string `json:"config"`
	}
	if err := json.Unmarshal(start.data, &payload); err != nil {
		t.Fatalf("failed to decode start payload: %v", err)
	}
	if payload.Username != "Dr. Demo" || payload.FileExtension != "wav" {
		t.Fatalf("unexpected start payload: %+v", payload)
	}
	if payload.Config["speciality"] != "12" || payload.Config["language"] != "en" {
		t.Fatalf("unexpected session config: %+v", payload.Config)
	}
	if payload.Config["datetime"] == "" {
		t.Fatal("expected datetime in session config")
	}
	if session.Snapshot().State != stream.StateRecording {
		t.Fatalf("expected recording state, got %s", session.Snapshot().State)
	}
}

func TestSendChunk_RejectedOutsideRecording(t *testing.T) {
	fs := newFakeServer(t)
	session, _ := connectedSession(t, fs)

	err := session.SendChunk([]byte{1, 2, 3})
	if err == nil {
		t.Fatal("expected rejection outside recording state")
	}
	if !errors.Is(err, stream.ErrNotRecording) {
		t.Fatalf("expected ErrNotRecording, got %v", err)
	}
}

func TestSendChunk_AckErrorIsNonFatal(t *testing.T) {
	fs := newFakeServer(t)
	session, _ := connectedSession(t, fs)
	startRecording(t, fs, session)

	// Five chunks; the server acks 1,2,4,5 success and 3 with an error.
	for i := 0; i < 5; i++ {
		if err := session.SendChunk([]byte{byte(i), byte(i), byte(i)}); err != nil {
			t.Fatalf("chunk %d: expected send to return without error, got %v", i, err)
		}
	}
	chunks := fs.waitChunks(t, 5)
	for _, ack := range []ackPayload{
		{Status: "success"},
		{Status: "success"},
		{Error: "transcoding failed"},
		{Status: "success"},
		{Status: "success"},
	} {
		fs.push(t, eventAudioChunkAck, ack)
	}

	if len(chunks) != 5 {
		t.Fatalf("expected 5 chunks on the server, got %d", len(chunks))
	}
	snap := session.Snapshot()
	if snap.ChunksSent != 5 {
		t.Fatalf("expected 5 chunks counted, got %d", snap.ChunksSent)
	}
	if snap.State != stream.StateRecording {
		t.Fatalf("ack error must not leave recording state, got %s", snap.State)
	}
}

func TestProcessingComplete_AtomicResult(t *testing.T) {
	fs := newFakeServer(t)
	session, handler := connectedSession(t, fs)
	startRecording(t, fs, session)

	if err := session.EndSession(); err != nil {
		t.Fatalf("end session failed: %v", err)
	}
	fs.waitEvent(t, eventStopRecording)
	if session.Snapshot().State != stream.StateAwaitingResult {
		t.Fatalf("expected awaiting result, got %s", session.Snapshot().State)
	}

	fs.push(t, eventProcessingComplete, map[string]string{
		"transcription": "full transcript",
		"summary":       "short summary",
	})
	waitFor(t, "processing result", func() bool {
		handler.mu.Lock()
		defer handler.mu.Unlock()
		return len(handler.results) == 1
	})

	snap := session.Snapshot()
	if snap.Transcription != "full transcript" || snap.Summary != "short summary" {
		t.Fatalf("expected both result fields set together, got %+v", snap)
	}
	if snap.State != stream.StateInRoomIdle {
		t.Fatalf("expected return to idle, got %s", snap.State)
	}
}

func TestDisconnect_ResetsAllState(t *testing.T) {
	fs := newFakeServer(t)
	session, handler := connectedSession(t, fs)
	startRecording(t, fs, session)

	if err := session.SendChunk([]byte{1}); err != nil {
		t.Fatalf("send chunk failed: %v", err)
	}
	fs.waitChunks(t, 1)

	session.Disconnect()

	snap := session.Snapshot()
	if snap.Connected || snap.InRoom {
		t.Fatalf("expected disconnected state, got %+v", snap)
	}
	if snap.Transcription != "" || snap.Summary != "" || snap.ChunksSent != 0 || snap.Room != "" {
		t.Fatalf("expected all accumulated state reset, got %+v", snap)
	}
	waitFor(t, "disconnect callback", func() bool {
		handler.mu.Lock()
		defer handler.mu.Unlock()
		return handler.disconnects == 1
	})
}

func TestServerError_EntersErroredState(t *testing.T) {
	fs := newFakeServer(t)
	session, handler := connectedSession(t, fs)

	fs.push(t, eventError, map[string]string{"message": "stream backend failure"})
	waitFor(t, "errored state", func() bool {
		return session.Snapshot().State == stream.StateErrored
	})

	handler.mu.Lock()
	errCount := len(handler.transportErrs)
	handler.mu.Unlock()
	if errCount != 1 {
		t.Fatalf("expected one transport error callback, got %d", errCount)
	}

	// Errored is terminal until an explicit disconnect.
	if err := session.StartSession(stream.SessionConfig{}); err == nil {
		t.Fatal("expected start to be rejected in errored state")
	}
	session.Disconnect()
	if session.Snapshot().State != stream.StateDisconnected {
		t.Fatal("expected disconnect to recover from errored state")
	}
}

func TestConnect_FailsWhenServerUnavailable(t *testing.T) {
	session := NewWSSession("ws://127.0.0.1:1/socket", time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := session.Connect(ctx, "token", &collectingHandler{}); err == nil {
		t.Fatal("expected connect error")
	}
	if session.Snapshot().State != stream.StateDisconnected {
		t.Fatalf("expected disconnected after failed dial, got %s", session.Snapshot().State)
	}
}

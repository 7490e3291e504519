package stream

import (
	"context"
	"errors"
	"time"
)

// ErrNotRecording rejects chunk sends outside the recording state.
var ErrNotRecording = errors.New("session is not recording")

// SessionConfigDateTimeLayout formats the timestamp sent with start_recording.
// The backend expects e.g. "29 August 2026, 10:30".
const SessionConfigDateTimeLayout = "02 January 2006, 15:04"

// SessionConfig is immutable once a session starts. It carries everything the
// server needs to transcribe and summarize the stream.
type SessionConfig struct {
	Username      string
	FileExtension string
	Language      string
	Prompt        string
	Speciality    string
	Category      string
	StartedAt     time.Time
}

// Result is the final transcription and summary delivered by the server's
// processing_complete event.
type Result struct {
	Transcription string
	Summary       string
}

// Snapshot is a consistent, observer-facing view of session state. All fields
// are read under one lock, so transcription and summary always change
// together.
type Snapshot struct {
	State         State
	Connected     bool
	InRoom        bool
	Room          string
	ChunksSent    int
	Transcription string
	Summary       string
}

// EventHandler receives server-driven session events. Calls arrive from the
// session's read loop; implementations must not block for long.
type EventHandler interface {
	OnRoomJoined(room string)
	OnRecordingStarted()
	OnProcessingComplete(result Result)
	OnTransportError(err error)
	OnDisconnect()
}

// Session is a stateful streaming session over a bidirectional socket.
//
// Lifecycle: Connect (joins a fresh random room automatically) →
// StartSession → SendChunk* → EndSession → processing_complete → idle again.
// Disconnect is valid from any state and resets all accumulated state.
type Session interface {
	Connect(ctx context.Context, token string, handler EventHandler) error
	StartSession(cfg SessionConfig) error
	SendChunk(chunk []byte) error
	EndSession() error
	Disconnect()
	Snapshot() Snapshot
}

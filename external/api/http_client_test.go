package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/listendoctor/go-integration-demo/internal/api"
)

func newTestClient(t *testing.T, handler http.Handler) (*HTTPClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(server.URL, "test-api-key")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client, server
}

func TestAuthenticate_StoresToken(t *testing.T) {
	var gotBody map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/iam" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-api-key" {
			t.Fatalf("missing x-api-key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "jwt-token"})
	}))

	if err := client.Authenticate(context.Background(), "cid", "secret", "doc-1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if client.Token() != "jwt-token" {
		t.Fatalf("expected stored token, got %q", client.Token())
	}
	if gotBody["grant_type"] != "client_credentials" {
		t.Fatalf("expected client_credentials grant, got %v", gotBody["grant_type"])
	}
	if gotBody["doctor"] != "doc-1" {
		t.Fatalf("expected doctor field, got %v", gotBody["doctor"])
	}
}

func TestSpecialities_SendsBearerToken(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/iam":
			_ = json.NewEncoder(w).Encode(map[string]string{"token": "jwt-token"})
		case "/v1/specialities":
			if r.Header.Get("Authorization") != "Bearer jwt-token" {
				t.Fatalf("unexpected authorization header: %q", r.Header.Get("Authorization"))
			}
			_ = json.NewEncoder(w).Encode(map[string][]api.Speciality{
				"en": {{Code: 1, Prompt: "general", En: "General Medicine"}},
			})
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))

	if err := client.Authenticate(context.Background(), "cid", "secret", "doc-1"); err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	specs, err := client.Specialities(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(specs["en"]) != 1 || specs["en"][0].Code != 1 {
		t.Fatalf("unexpected specialities: %+v", specs)
	}
}

func TestProcessAudio_MultipartFields(t *testing.T) {
	audioPath := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(audioPath, []byte("RIFFfake-audio"), 0o644); err != nil {
		t.Fatalf("failed to write audio file: %v", err)
	}

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/process/audio" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("failed to parse multipart form: %v", err)
		}
		for field, want := range map[string]string{
			"prompt":     "soap note",
			"language":   "en",
			"speciality": "12",
			"category":   "consultation",
			"datetime":   "2026-08-29 10:30:00",
		} {
			if got := r.FormValue(field); got != want {
				t.Fatalf("field %s: expected %q, got %q", field, want, got)
			}
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		defer file.Close()
		if header.Filename != "audio.wav" {
			t.Fatalf("unexpected filename: %s", header.Filename)
		}
		content, _ := io.ReadAll(file)
		if string(content) != "RIFFfake-audio" {
			t.Fatalf("unexpected file content: %q", content)
		}
		_ = json.NewEncoder(w).Encode(api.SummaryTranscriptionResponse{
			Summary:       "patient summary",
			Transcription: "patient transcript",
		})
	}))

	resp, err := client.ProcessAudio(context.Background(), api.ProcessAudioInput{
		FilePath:   audioPath,
		Prompt:     "soap note",
		Language:   "en",
		Speciality: 12,
		Category:   "consultation",
		DateTime:   "2026-08-29 10:30:00",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Summary != "patient summary" || resp.Transcription != "patient transcript" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestNon200_ReturnsStatusError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad credentials"))
	}))

	err := client.Authenticate(context.Background(), "cid", "wrong", "doc-1")
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	var statusErr *api.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %T", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unexpected status code: %d", statusErr.StatusCode)
	}
	if statusErr.Body != "bad credentials" {
		t.Fatalf("unexpected body: %q", statusErr.Body)
	}
}

func TestDeleteTemplate_PathAndMethod(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/v1/templates/abc-123" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(api.TemplateDeletedResponse{Msg: "deleted"})
	}))

	resp, err := client.DeleteTemplate(context.Background(), "abc-123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Msg != "deleted" {
		t.Fatalf("unexpected message: %q", resp.Msg)
	}
}

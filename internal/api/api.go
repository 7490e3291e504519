package api

import (
	"context"
	"fmt"
)

// DateTimeLayout is the timestamp format the processing endpoints expect.
const DateTimeLayout = "2006-01-02 15:04:05"

// Template is a summary template record, either public or owned by the
// authenticated doctor.
type Template struct {
	GUID       string `json:"guid,omitempty"`
	Name       string `json:"name"`
	Template   string `json:"template"`
	Speciality int    `json:"speciality"`
	Category   string `json:"category"`
}

// Speciality is a medical speciality reference record with localized names
// and the prompt used when summarizing for that speciality.
type Speciality struct {
	Code   int    `json:"code"`
	Prompt string `json:"prompt"`
	En     string `json:"en"`
	Es     string `json:"es"`
	Fr     string `json:"fr"`
	De     string `json:"de"`
	It     string `json:"it"`
	Ca     string `json:"ca"`
	Pt     string `json:"pt"`
}

// Name returns the speciality name localized for the given language code,
// falling back to English.
func (s Speciality) Name(language string) string {
	names := map[string]string{
		"en": s.En,
		"es": s.Es,
		"fr": s.Fr,
		"de": s.De,
		"it": s.It,
		"ca": s.Ca,
		"pt": s.Pt,
	}
	if name, ok := names[language]; ok && name != "" {
		return name
	}
	return s.En
}

type TemplateResponse struct {
	Msg  string `json:"msg"`
	GUID string `json:"guid"`
}

type TemplateDeletedResponse struct {
	Msg string `json:"msg"`
}

type SummaryTranscriptionResponse struct {
	Summary       string `json:"summary"`
	Transcription string `json:"transcription"`
}

type SummaryResponse struct {
	Summary string `json:"summary"`
}

type ProcessAudioInput struct {
	FilePath   string
	Prompt     string
	Language   string
	Speciality int
	Category   string
	DateTime   string
}

type ProcessAgainInput struct {
	Data       string
	Prompt     string
	Language   string
	Speciality int
	DateTime   string
}

// StatusError is returned for any non-200 response. Callers decide whether
// to retry; the client never retries on its own.
type StatusError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Client is the REST boundary of the ListenDoctor API. Every request carries
// the x-api-key header; authenticated ones add the bearer token obtained by
// Authenticate. Tokens have no client-tracked expiry; re-authentication is
// manual, and the last completed Authenticate wins if calls race.
type Client interface {
	Authenticate(ctx context.Context, clientID, clientSecret, doctorID string) error
	Token() string

	PublicTemplates(ctx context.Context) (map[string][]Template, error)
	UserTemplates(ctx context.Context) (map[string][]Template, error)
	AddTemplate(ctx context.Context, t Template) (TemplateResponse, error)
	UpdateTemplate(ctx context.Context, t Template) (TemplateResponse, error)
	Template(ctx context.Context, guid string) (Template, error)
	DeleteTemplate(ctx context.Context, guid string) (TemplateDeletedResponse, error)

	Specialities(ctx context.Context) (map[string][]Speciality, error)
	Speciality(ctx context.Context, code int) (Speciality, error)

	ProcessAudio(ctx context.Context, input ProcessAudioInput) (SummaryTranscriptionResponse, error)
	ProcessLaboratory(ctx context.Context, filePath, language string) (SummaryResponse, error)
	ProcessAgain(ctx context.Context, input ProcessAgainInput) (SummaryResponse, error)
}

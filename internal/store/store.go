package store

import (
	"context"

	"github.com/listendoctor/go-integration-demo/internal/api"
)

// Preferences are the user's sticky session defaults. They feed session
// configuration; the streaming core reads them and never writes them.
type Preferences struct {
	SelectedTemplateGUID   string
	SelectedSpecialityCode int
	SelectedLanguage       string
}

// ReferenceStore caches templates and specialities fetched from the REST
// API, keyed by language, so the demo can configure sessions offline.
type ReferenceStore interface {
	SaveTemplates(ctx context.Context, language string, templates []api.Template) error
	ListTemplates(ctx context.Context, language string) ([]api.Template, error)
	SaveSpecialities(ctx context.Context, language string, specialities []api.Speciality) error
	ListSpecialities(ctx context.Context, language string) ([]api.Speciality, error)
	GetSpeciality(ctx context.Context, code int) (*api.Speciality, error)
}

// PreferenceStore persists the user's selections between runs.
type PreferenceStore interface {
	SavePreferences(ctx context.Context, p Preferences) error
	GetPreferences(ctx context.Context) (*Preferences, error)
}

type Store interface {
	ReferenceStore
	PreferenceStore
}

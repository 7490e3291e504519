package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/listendoctor/go-integration-demo/internal/api"
	"github.com/listendoctor/go-integration-demo/internal/store"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) store.Store {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) SaveTemplates(ctx context.Context, language string, templates []api.Template) error {
	for _, t := range templates {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO templates (guid, language, name, template, speciality, category)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (guid) DO UPDATE
			 SET language = $2, name = $3, template = $4, speciality = $5, category = $6, updated_at = NOW()`,
			t.GUID, language, t.Name, t.Template, t.Speciality, t.Category)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) ListTemplates(ctx context.Context, language string) ([]api.Template, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT guid, name, template, speciality, category
		 FROM templates WHERE language = $1 ORDER BY name ASC`,
		language)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []api.Template
	for rows.Next() {
		var t api.Template
		if err := rows.Scan(&t.GUID, &t.Name, &t.Template, &t.Speciality, &t.Category); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (s *PostgresStore) SaveSpecialities(ctx context.Context, language string, specialities []api.Speciality) error {
	for _, sp := range specialities {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO specialities (code, language, prompt, en, es, fr, de, it, ca, pt)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (code) DO UPDATE
			 SET language = $2, prompt = $3, en = $4, es = $5, fr = $6, de = $7, it = $8, ca = $9, pt = $10, updated_at = NOW()`,
			sp.Code, language, sp.Prompt, sp.En, sp.Es, sp.Fr, sp.De, sp.It, sp.Ca, sp.Pt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) ListSpecialities(ctx context.Context, language string) ([]api.Speciality, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT code, prompt, en, es, fr, de, it, ca, pt
		 FROM specialities WHERE language = $1 ORDER BY code ASC`,
		language)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []api.Speciality
	for rows.Next() {
		var sp api.Speciality
		if err := rows.Scan(&sp.Code, &sp.Prompt, &sp.En, &sp.Es, &sp.Fr, &sp.De, &sp.It, &sp.Ca, &sp.Pt); err != nil {
			return nil, err
		}
		list = append(list, sp)
	}
	return list, rows.Err()
}

func (s *PostgresStore) GetSpeciality(ctx context.Context, code int) (*api.Speciality, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT code, prompt, en, es, fr, de, it, ca, pt
		 FROM specialities WHERE code = $1`,
		code)
	var sp api.Speciality
	err := row.Scan(&sp.Code, &sp.Prompt, &sp.En, &sp.Es, &sp.Fr, &sp.De, &sp.It, &sp.Ca, &sp.Pt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &sp, nil
}

func (s *PostgresStore) SavePreferences(ctx context.Context, p store.Preferences) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO preferences (id, selected_template_guid, selected_speciality_code, selected_language)
		 VALUES (1, $1, $2, $3)
		 ON CONFLICT (id) DO UPDATE
		 SET selected_template_guid = $1, selected_speciality_code = $2, selected_language = $3, updated_at = NOW()`,
		p.SelectedTemplateGUID, p.SelectedSpecialityCode, p.SelectedLanguage)
	return err
}

func (s *PostgresStore) GetPreferences(ctx context.Context) (*store.Preferences, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT selected_template_guid, selected_speciality_code, selected_language
		 FROM preferences WHERE id = 1`)
	var p store.Preferences
	err := row.Scan(&p.SelectedTemplateGUID, &p.SelectedSpecialityCode, &p.SelectedLanguage)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

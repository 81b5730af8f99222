package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"gitreel/internal/profile"
	"gitreel/internal/services"
)

const profileColumns = "id, name, description, is_system, settings_json"

func (s *Store) seedSystemProfiles(ctx context.Context) error {
	systems, err := profile.SystemProfiles()
	if err != nil {
		return err
	}
	now := s.now()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, p := range systems {
			settings, err := json.Marshal(p.Settings)
			if err != nil {
				return fmt.Errorf("encode profile %s: %w", p.ID, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO profiles (id, name, description, is_system, settings_json, created_at, updated_at)
                VALUES (?, ?, ?, 1, ?, ?, ?)
                ON CONFLICT(id) DO UPDATE SET
                    name = excluded.name,
                    description = excluded.description,
                    is_system = 1,
                    settings_json = excluded.settings_json,
                    updated_at = excluded.updated_at`,
				p.ID, p.Name, nullableString(p.Description), string(settings), now, now,
			); err != nil {
				return fmt.Errorf("seed profile %s: %w", p.ID, err)
			}
		}
		return nil
	})
}

func scanProfile(row scanner) (profile.Profile, error) {
	var (
		p           profile.Profile
		description sql.NullString
		system      int
		settings    string
	)
	if err := row.Scan(&p.ID, &p.Name, &description, &system, &settings); err != nil {
		return profile.Profile{}, err
	}
	p.Description = description.String
	p.System = system != 0
	if err := json.Unmarshal([]byte(settings), &p.Settings); err != nil {
		return profile.Profile{}, fmt.Errorf("decode profile %s settings: %w", p.ID, err)
	}
	return p, nil
}

// ListProfiles returns system profiles first, then custom profiles, each
// group ordered by name.
func (s *Store) ListProfiles(ctx context.Context) ([]profile.Profile, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+profileColumns+" FROM profiles ORDER BY is_system DESC, name, id")
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []profile.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetProfile fetches a profile by ID.
func (s *Store) GetProfile(ctx context.Context, id string) (profile.Profile, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+profileColumns+" FROM profiles WHERE id = ?", id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.Profile{}, services.Wrap(services.ErrNotFound, "store", "get profile", fmt.Sprintf("profile %q does not exist", id), nil)
	}
	if err != nil {
		return profile.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// SaveProfile inserts or replaces a custom profile. System profiles are
// rejected with profile.ErrSystemProfile.
func (s *Store) SaveProfile(ctx context.Context, p profile.Profile) error {
	if err := p.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "store", "save profile", "invalid profile", err)
	}
	if p.System {
		return services.Wrap(services.ErrValidation, "store", "save profile", p.ID, profile.ErrSystemProfile)
	}
	settings, err := json.Marshal(p.Settings)
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", p.ID, err)
	}
	now := s.now()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var system int
		err := tx.QueryRowContext(ctx, "SELECT is_system FROM profiles WHERE id = ?", p.ID).Scan(&system)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("lookup profile %s: %w", p.ID, err)
		case system != 0:
			return services.Wrap(services.ErrValidation, "store", "save profile", p.ID, profile.ErrSystemProfile)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO profiles (id, name, description, is_system, settings_json, created_at, updated_at)
            VALUES (?, ?, ?, 0, ?, ?, ?)
            ON CONFLICT(id) DO UPDATE SET
                name = excluded.name,
                description = excluded.description,
                settings_json = excluded.settings_json,
                updated_at = excluded.updated_at`,
			p.ID, p.Name, nullableString(p.Description), string(settings), now, now,
		); err != nil {
			return fmt.Errorf("save profile %s: %w", p.ID, err)
		}
		return nil
	})
}

// DeleteProfile removes a custom profile.
func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	existing, err := s.GetProfile(ctx, id)
	if err != nil {
		return err
	}
	if existing.System {
		return services.Wrap(services.ErrValidation, "store", "delete profile", id, profile.ErrSystemProfile)
	}
	if _, err := s.execWithRetry(ctx, "DELETE FROM profiles WHERE id = ? AND is_system = 0", id); err != nil {
		return fmt.Errorf("delete profile %s: %w", id, err)
	}
	return nil
}

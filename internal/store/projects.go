package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"gitreel/internal/gitlog"
	"gitreel/internal/services"
)

// Project groups repositories rendered together. RepositoryIDs keeps the
// order the repositories were added in.
type Project struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	RepositoryIDs []string `json:"repositoryIds"`
}

// AddProject creates a project over already registered repositories.
func (s *Store) AddProject(ctx context.Context, name string, repositoryIDs []string) (Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Project{}, services.Wrap(services.ErrValidation, "store", "add project", "project name must be set", nil)
	}
	if len(repositoryIDs) == 0 {
		return Project{}, services.Wrap(services.ErrValidation, "store", "add project", "project needs at least one repository", nil)
	}
	if _, err := s.Repositories(ctx, repositoryIDs); err != nil {
		return Project{}, err
	}

	project := Project{ID: uuid.NewString(), Name: name}
	seen := make(map[string]struct{}, len(repositoryIDs))
	for _, id := range repositoryIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		project.RepositoryIDs = append(project.RepositoryIDs, id)
	}

	now := s.now()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO projects (id, name, created_at) VALUES (?, ?, ?)",
			project.ID, project.Name, now,
		); err != nil {
			return err
		}
		for pos, repoID := range project.RepositoryIDs {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO project_repositories (project_id, repository_id, position) VALUES (?, ?, ?)",
				project.ID, repoID, pos,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if isUniqueViolation(err) {
		return Project{}, services.Wrap(services.ErrValidation, "store", "add project", fmt.Sprintf("project %q already exists", name), nil)
	}
	if err != nil {
		return Project{}, fmt.Errorf("insert project: %w", err)
	}
	return project, nil
}

// ListProjects returns projects ordered by name.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.name, pr.repository_id
        FROM projects p
        LEFT JOIN project_repositories pr ON pr.project_id = p.id
        ORDER BY p.name, p.id, pr.position`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var (
			id, name string
			repoID   sql.NullString
		)
		if err := rows.Scan(&id, &name, &repoID); err != nil {
			return nil, err
		}
		if len(out) == 0 || out[len(out)-1].ID != id {
			out = append(out, Project{ID: id, Name: name})
		}
		if repoID.Valid {
			last := &out[len(out)-1]
			last.RepositoryIDs = append(last.RepositoryIDs, repoID.String)
		}
	}
	return out, rows.Err()
}

// GetProject fetches a project by ID or by name.
func (s *Store) GetProject(ctx context.Context, idOrName string) (Project, error) {
	ctx = ensureContext(ctx)
	var project Project
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name FROM projects WHERE id = ? OR name = ? ORDER BY id = ? DESC LIMIT 1",
		idOrName, idOrName, idOrName,
	).Scan(&project.ID, &project.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, services.Wrap(services.ErrNotFound, "store", "get project", fmt.Sprintf("project %q does not exist", idOrName), nil)
	}
	if err != nil {
		return Project{}, fmt.Errorf("get project: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT repository_id FROM project_repositories WHERE project_id = ? ORDER BY position", project.ID)
	if err != nil {
		return Project{}, fmt.Errorf("get project repositories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var repoID string
		if err := rows.Scan(&repoID); err != nil {
			return Project{}, err
		}
		project.RepositoryIDs = append(project.RepositoryIDs, repoID)
	}
	return project, rows.Err()
}

// ProjectRepositories resolves a project's repositories in project order.
func (s *Store) ProjectRepositories(ctx context.Context, idOrName string) (Project, []gitlog.Repository, error) {
	project, err := s.GetProject(ctx, idOrName)
	if err != nil {
		return Project{}, nil, err
	}
	repos, err := s.Repositories(ctx, project.RepositoryIDs)
	if err != nil {
		return Project{}, nil, err
	}
	return project, repos, nil
}

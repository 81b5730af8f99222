package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"gitreel/internal/gitlog"
	"gitreel/internal/services"
)

const repositoryColumns = "id, name, path, branch"

func scanRepository(row scanner) (gitlog.Repository, error) {
	var (
		repo   gitlog.Repository
		branch sql.NullString
	)
	if err := row.Scan(&repo.ID, &repo.Name, &repo.Path, &branch); err != nil {
		return gitlog.Repository{}, err
	}
	repo.Branch = branch.String
	return repo, nil
}

// AddRepository registers a local working copy. An empty ID is generated and
// an empty name defaults to the directory base name.
func (s *Store) AddRepository(ctx context.Context, repo gitlog.Repository) (gitlog.Repository, error) {
	repo.Path = strings.TrimSpace(repo.Path)
	if repo.Path == "" {
		return gitlog.Repository{}, services.Wrap(services.ErrValidation, "store", "add repository", "repository path must be set", nil)
	}
	repo.Path = filepath.Clean(repo.Path)
	if strings.TrimSpace(repo.ID) == "" {
		repo.ID = uuid.NewString()
	}
	if strings.TrimSpace(repo.Name) == "" {
		repo.Name = filepath.Base(repo.Path)
	}
	_, err := s.execWithRetry(ctx,
		"INSERT INTO repositories (id, name, path, branch, created_at) VALUES (?, ?, ?, ?, ?)",
		repo.ID, repo.Name, repo.Path, nullableString(repo.Branch), s.now(),
	)
	if isUniqueViolation(err) {
		return gitlog.Repository{}, services.Wrap(services.ErrValidation, "store", "add repository", fmt.Sprintf("repository %s is already registered", repo.Path), nil)
	}
	if err != nil {
		return gitlog.Repository{}, fmt.Errorf("insert repository: %w", err)
	}
	return repo, nil
}

// ListRepositories returns every registered repository ordered by name.
func (s *Store) ListRepositories(ctx context.Context) ([]gitlog.Repository, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+repositoryColumns+" FROM repositories ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	defer rows.Close()

	var out []gitlog.Repository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, repo)
	}
	return out, rows.Err()
}

// GetRepository fetches a repository by ID.
func (s *Store) GetRepository(ctx context.Context, id string) (gitlog.Repository, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+repositoryColumns+" FROM repositories WHERE id = ?", id)
	repo, err := scanRepository(row)
	if errors.Is(err, sql.ErrNoRows) {
		return gitlog.Repository{}, services.Wrap(services.ErrRepositoryNotFound, "store", "get repository", fmt.Sprintf("repository %q is not registered", id), nil)
	}
	if err != nil {
		return gitlog.Repository{}, fmt.Errorf("get repository: %w", err)
	}
	return repo, nil
}

// Repositories resolves IDs in the order given. Any unknown ID fails the
// whole lookup.
func (s *Store) Repositories(ctx context.Context, ids []string) ([]gitlog.Repository, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+repositoryColumns+" FROM repositories WHERE id IN ("+makePlaceholders(len(ids))+")", args...)
	if err != nil {
		return nil, fmt.Errorf("lookup repositories: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]gitlog.Repository, len(ids))
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, err
		}
		byID[repo.ID] = repo
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]gitlog.Repository, 0, len(ids))
	for _, id := range ids {
		repo, ok := byID[id]
		if !ok {
			return nil, services.Wrap(services.ErrRepositoryNotFound, "store", "lookup repositories", fmt.Sprintf("repository %q is not registered", id), nil)
		}
		out = append(out, repo)
	}
	return out, nil
}

// RemoveRepository deletes a repository and its project memberships.
func (s *Store) RemoveRepository(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx, "DELETE FROM repositories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete repository: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return services.Wrap(services.ErrRepositoryNotFound, "store", "remove repository", fmt.Sprintf("repository %q is not registered", id), nil)
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"gitreel/internal/jobs"
	"gitreel/internal/services"
)

const jobColumns = "id, profile_id, project_name, repository_ids_json, interactive, status, created_at, started_at, finished_at, output_path, progress_percent, error_message, error_kind, warnings_json"

// RecordJob upserts a job snapshot into render history.
func (s *Store) RecordJob(ctx context.Context, job jobs.Job) error {
	repoIDs, err := json.Marshal(job.RepositoryIDs)
	if err != nil {
		return fmt.Errorf("encode repository ids: %w", err)
	}
	var warnings any
	if len(job.Warnings) > 0 {
		data, err := json.Marshal(job.Warnings)
		if err != nil {
			return fmt.Errorf("encode warnings: %w", err)
		}
		warnings = string(data)
	}
	created := job.CreatedAt
	_, err = s.execWithRetry(ctx,
		`INSERT INTO render_jobs (`+jobColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            status = excluded.status,
            started_at = excluded.started_at,
            finished_at = excluded.finished_at,
            output_path = excluded.output_path,
            progress_percent = excluded.progress_percent,
            error_message = excluded.error_message,
            error_kind = excluded.error_kind,
            warnings_json = excluded.warnings_json`,
		job.ID,
		job.ProfileID,
		nullableString(job.ProjectName),
		string(repoIDs),
		boolToInt(job.Interactive),
		string(job.Status),
		nullableTime(&created),
		nullableTime(job.StartedAt),
		nullableTime(job.FinishedAt),
		nullableString(job.OutputPath),
		job.ProgressPercent,
		nullableString(job.ErrorMessage),
		nullableString(job.ErrorKind),
		warnings,
	)
	if err != nil {
		return fmt.Errorf("record job %s: %w", job.ID, err)
	}
	return nil
}

func scanJob(row scanner) (jobs.Job, error) {
	var (
		job          jobs.Job
		projectName  sql.NullString
		repoIDs      string
		interactive  int
		status       string
		createdRaw   string
		startedRaw   sql.NullString
		finishedRaw  sql.NullString
		outputPath   sql.NullString
		errorMessage sql.NullString
		errorKind    sql.NullString
		warnings     sql.NullString
	)
	if err := row.Scan(
		&job.ID,
		&job.ProfileID,
		&projectName,
		&repoIDs,
		&interactive,
		&status,
		&createdRaw,
		&startedRaw,
		&finishedRaw,
		&outputPath,
		&job.ProgressPercent,
		&errorMessage,
		&errorKind,
		&warnings,
	); err != nil {
		return jobs.Job{}, err
	}
	job.ProjectName = projectName.String
	job.Interactive = interactive != 0
	job.Status = jobs.Status(status)
	job.OutputPath = outputPath.String
	job.ErrorMessage = errorMessage.String
	job.ErrorKind = errorKind.String
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	job.StartedAt = parseNullableTime(startedRaw)
	job.FinishedAt = parseNullableTime(finishedRaw)
	if err := json.Unmarshal([]byte(repoIDs), &job.RepositoryIDs); err != nil {
		return jobs.Job{}, fmt.Errorf("decode repository ids for job %s: %w", job.ID, err)
	}
	if warnings.Valid {
		if err := json.Unmarshal([]byte(warnings.String), &job.Warnings); err != nil {
			return jobs.Job{}, fmt.Errorf("decode warnings for job %s: %w", job.ID, err)
		}
	}
	return job, nil
}

// ListJobs returns recorded jobs, newest first. A limit <= 0 returns all.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]jobs.Job, error) {
	query := "SELECT " + jobColumns + " FROM render_jobs ORDER BY created_at DESC, id"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []jobs.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// GetJob fetches a recorded job by ID.
func (s *Store) GetJob(ctx context.Context, id string) (jobs.Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+jobColumns+" FROM render_jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return jobs.Job{}, services.Wrap(services.ErrNotFound, "store", "get job", fmt.Sprintf("job %q has no history", id), nil)
	}
	if err != nil {
		return jobs.Job{}, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

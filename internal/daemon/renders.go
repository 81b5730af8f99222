package daemon

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"gitreel/internal/api"
	"gitreel/internal/gitlog"
	"gitreel/internal/jobs"
	"gitreel/internal/render"
	"gitreel/internal/services"
)

const defaultHistoryLimit = 50

// Submit resolves the request's profile and repositories from the store and
// hands the render to the orchestrator.
func (d *Daemon) Submit(ctx context.Context, req api.RenderRequest) (jobs.Job, error) {
	profileID := strings.TrimSpace(req.ProfileID)
	if profileID == "" {
		profileID = d.cfg.Render.DefaultProfile
	}
	prof, err := d.store.GetProfile(ctx, profileID)
	if err != nil {
		return jobs.Job{}, err
	}

	projectName := strings.TrimSpace(req.ProjectName)
	var repos []gitlog.Repository
	switch {
	case strings.TrimSpace(req.ProjectID) != "":
		project, projectRepos, err := d.store.ProjectRepositories(ctx, req.ProjectID)
		if err != nil {
			return jobs.Job{}, err
		}
		repos = projectRepos
		if projectName == "" {
			projectName = project.Name
		}
	case len(req.RepositoryIDs) > 0:
		repos, err = d.store.Repositories(ctx, req.RepositoryIDs)
		if err != nil {
			return jobs.Job{}, err
		}
	default:
		return jobs.Job{}, services.Wrap(services.ErrValidation, "daemon", "submit render", "a project or at least one repository is required", nil)
	}

	return d.orchestrator.Submit(ctx, render.Request{
		Profile:      prof,
		ProjectName:  projectName,
		Repositories: repos,
		Interactive:  req.Interactive,
		PostProcess:  req.PostProcess,
	})
}

// Wait blocks until the job reaches a terminal status.
func (d *Daemon) Wait(ctx context.Context, id string) (jobs.Job, error) {
	return d.registry.Wait(ctx, id)
}

// Jobs returns live jobs newest first, followed by up to limit recorded jobs
// that are no longer live.
func (d *Daemon) Jobs(ctx context.Context, limit int) ([]jobs.Job, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	live := d.registry.List()
	slices.Reverse(live)
	seen := make(map[string]struct{}, len(live))
	for _, job := range live {
		seen[job.ID] = struct{}{}
	}
	history, err := d.store.ListJobs(ctx, limit)
	if err != nil {
		return live, err
	}
	for _, job := range history {
		if _, ok := seen[job.ID]; ok {
			continue
		}
		live = append(live, job)
	}
	return live, nil
}

// Job returns a live job or, failing that, its recorded history.
func (d *Daemon) Job(ctx context.Context, id string) (jobs.Job, error) {
	if job, ok := d.registry.Get(id); ok {
		return job, nil
	}
	return d.store.GetJob(ctx, id)
}

// Cancel requests cancellation and reports whether a live job received it.
func (d *Daemon) Cancel(ctx context.Context, id string) (bool, jobs.Job, error) {
	cancelled := d.orchestrator.Cancel(id)
	job, err := d.Job(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return false, jobs.Job{}, services.Wrap(services.ErrNotFound, "daemon", "cancel", fmt.Sprintf("job %q does not exist", id), nil)
		}
		return false, jobs.Job{}, err
	}
	return cancelled, job, nil
}

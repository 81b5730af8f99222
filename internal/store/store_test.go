package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gitreel/internal/gitlog"
	"gitreel/internal/jobs"
	"gitreel/internal/profile"
	"gitreel/internal/services"
	"gitreel/internal/store"
	"gitreel/internal/testsupport"
)

func TestOpenSeedsSystemProfiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	profiles, err := st.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	if len(profiles) != 4 {
		t.Fatalf("expected 4 system profiles, got %d", len(profiles))
	}
	for _, p := range profiles {
		if !p.System {
			t.Fatalf("profile %s should be flagged as system", p.ID)
		}
	}

	everything, err := st.GetProfile(ctx, "everything_1m")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if v, _ := everything.Settings.Get("secondsPerDay"); v.Kind != profile.AutoDuration || v.Amount != 60 {
		t.Fatalf("settings should round-trip through the database, got %+v", v)
	}
	if everything.Settings[0].Name != "resolution" {
		t.Fatalf("settings order lost, first is %q", everything.Settings[0].Name)
	}
}

func TestReopenKeepsData(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	if _, err := st.AddRepository(ctx, repoAt(t, "api")); err != nil {
		t.Fatalf("AddRepository: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	repos, err := reopened.ListRepositories(ctx)
	if err != nil {
		t.Fatalf("ListRepositories: %v", err)
	}
	if len(repos) != 1 || repos[0].Name != "api" {
		t.Fatalf("unexpected repositories after reopen: %+v", repos)
	}
	profiles, err := reopened.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	if len(profiles) != 4 {
		t.Fatalf("reseeding should not duplicate system profiles, got %d", len(profiles))
	}
}

func TestSystemProfilesAreProtected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	err := st.DeleteProfile(ctx, "everything_1m")
	if !errors.Is(err, profile.ErrSystemProfile) {
		t.Fatalf("expected ErrSystemProfile on delete, got %v", err)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker on delete, got %v", err)
	}

	override := profile.Profile{ID: "everything_1m", Name: "Hijacked", Settings: profile.Settings{}.Set("framerate", profile.Number(30))}
	if err := st.SaveProfile(ctx, override); !errors.Is(err, profile.ErrSystemProfile) {
		t.Fatalf("expected ErrSystemProfile on overwrite, got %v", err)
	}
	got, err := st.GetProfile(ctx, "everything_1m")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got.Name == "Hijacked" {
		t.Fatal("system profile was overwritten")
	}
}

func TestCustomProfileLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	custom := profile.Profile{
		ID:   "team_recap",
		Name: "Team recap",
		Settings: profile.Settings{}.
			Set("secondsPerDay", profile.Auto(90)).
			Set("hide", profile.List("date", "mouse")).
			Set("key", profile.Bool(true)),
	}
	if err := st.SaveProfile(ctx, custom); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	got, err := st.GetProfile(ctx, "team_recap")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got.System {
		t.Fatal("custom profile flagged as system")
	}
	if hide, ok := got.Settings.Get("hide"); !ok {
		t.Fatal("hide setting lost")
	} else if items, _ := hide.ListValue(); len(items) != 2 || items[1] != "mouse" {
		t.Fatalf("unexpected hide list %+v", items)
	}

	custom.Name = "Team recap v2"
	if err := st.SaveProfile(ctx, custom); err != nil {
		t.Fatalf("SaveProfile update: %v", err)
	}
	got, _ = st.GetProfile(ctx, "team_recap")
	if got.Name != "Team recap v2" {
		t.Fatalf("expected updated name, got %q", got.Name)
	}

	profiles, _ := st.ListProfiles(ctx)
	if last := profiles[len(profiles)-1]; last.ID != "team_recap" {
		t.Fatalf("custom profiles should follow system profiles, last is %s", last.ID)
	}

	if err := st.DeleteProfile(ctx, "team_recap"); err != nil {
		t.Fatalf("DeleteProfile: %v", err)
	}
	if _, err := st.GetProfile(ctx, "team_recap"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestSaveProfileValidates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	err := st.SaveProfile(context.Background(), profile.Profile{ID: "no_name"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRepositoriesResolveInOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	base := testsupport.BaseDir(cfg)
	web := testsupport.AddRepository(t, st, "", filepath.Join(base, "web"))
	api := testsupport.AddRepository(t, st, "backend", filepath.Join(base, "api"))

	if web.Name != "web" {
		t.Fatalf("name should default to the directory base, got %q", web.Name)
	}
	if web.ID == "" || api.ID == "" || web.ID == api.ID {
		t.Fatalf("expected distinct generated IDs, got %q and %q", web.ID, api.ID)
	}

	repos, err := st.Repositories(ctx, []string{api.ID, web.ID})
	if err != nil {
		t.Fatalf("Repositories: %v", err)
	}
	if repos[0].ID != api.ID || repos[1].ID != web.ID {
		t.Fatalf("lookup should keep request order, got %+v", repos)
	}

	if _, err := st.Repositories(ctx, []string{api.ID, "missing"}); !errors.Is(err, services.ErrRepositoryNotFound) {
		t.Fatalf("expected repository not found, got %v", err)
	}
}

func TestAddRepositoryRejectsDuplicatePath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	path := filepath.Join(testsupport.BaseDir(cfg), "repo")
	testsupport.AddRepository(t, st, "one", path)
	if _, err := st.AddRepository(ctx, repoAtPath("two", path+"/")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected duplicate path rejection, got %v", err)
	}
	if _, err := st.AddRepository(ctx, repoAtPath("blank", " ")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected empty path rejection, got %v", err)
	}
}

func TestProjectsKeepRepositoryOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	base := testsupport.BaseDir(cfg)
	web := testsupport.AddRepository(t, st, "web", filepath.Join(base, "web"))
	api := testsupport.AddRepository(t, st, "api", filepath.Join(base, "api"))

	project, err := st.AddProject(ctx, "platform", []string{web.ID, api.ID, web.ID})
	if err != nil {
		t.Fatalf("AddProject: %v", err)
	}
	if len(project.RepositoryIDs) != 2 {
		t.Fatalf("duplicate members should collapse, got %v", project.RepositoryIDs)
	}

	byName, repos, err := st.ProjectRepositories(ctx, "platform")
	if err != nil {
		t.Fatalf("ProjectRepositories: %v", err)
	}
	if byName.ID != project.ID {
		t.Fatalf("lookup by name returned %s, want %s", byName.ID, project.ID)
	}
	if len(repos) != 2 || repos[0].Name != "web" || repos[1].Name != "api" {
		t.Fatalf("unexpected project repositories %+v", repos)
	}

	if _, err := st.AddProject(ctx, "platform", []string{api.ID}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected duplicate project rejection, got %v", err)
	}
	if _, err := st.AddProject(ctx, "ghost", []string{"missing"}); !errors.Is(err, services.ErrRepositoryNotFound) {
		t.Fatalf("expected unknown repository rejection, got %v", err)
	}

	if err := st.RemoveRepository(ctx, web.ID); err != nil {
		t.Fatalf("RemoveRepository: %v", err)
	}
	projects, err := st.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(projects) != 1 || len(projects[0].RepositoryIDs) != 1 || projects[0].RepositoryIDs[0] != api.ID {
		t.Fatalf("removing a repository should drop its membership, got %+v", projects)
	}
	if err := st.RemoveRepository(ctx, web.ID); !errors.Is(err, services.ErrRepositoryNotFound) {
		t.Fatalf("expected not found on second remove, got %v", err)
	}
}

func TestGetProjectMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	if _, err := st.GetProject(context.Background(), "nope"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecordJobUpserts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	started := created.Add(time.Second)
	finished := created.Add(time.Minute)
	job := jobs.Job{
		ID:            "job-1",
		ProfileID:     "everything_1m",
		ProjectName:   "platform",
		RepositoryIDs: []string{"r1", "r2"},
		Status:        jobs.StatusRunning,
		CreatedAt:     created,
		StartedAt:     &started,
	}
	if err := st.RecordJob(ctx, job); err != nil {
		t.Fatalf("RecordJob: %v", err)
	}

	job.Status = jobs.StatusFailed
	job.FinishedAt = &finished
	job.ErrorKind = services.KindProcessRuntime
	job.ErrorMessage = "gource exited with status 1"
	job.Warnings = []string{"cameraMode \"spin\" is not supported"}
	if err := st.RecordJob(ctx, job); err != nil {
		t.Fatalf("RecordJob update: %v", err)
	}

	got, err := st.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != jobs.StatusFailed || got.ErrorKind != services.KindProcessRuntime {
		t.Fatalf("unexpected recorded job %+v", got)
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(finished) {
		t.Fatalf("finished time lost: %v", got.FinishedAt)
	}
	if got.Duration() != time.Minute-time.Second {
		t.Fatalf("unexpected duration %v", got.Duration())
	}
	if len(got.RepositoryIDs) != 2 || len(got.Warnings) != 1 {
		t.Fatalf("slices lost: %+v", got)
	}

	later := job
	later.ID = "job-2"
	later.CreatedAt = created.Add(time.Hour)
	if err := st.RecordJob(ctx, later); err != nil {
		t.Fatalf("RecordJob second: %v", err)
	}
	list, err := st.ListJobs(ctx, 0)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(list) != 2 || list[0].ID != "job-2" {
		t.Fatalf("expected newest first, got %+v", list)
	}
	limited, _ := st.ListJobs(ctx, 1)
	if len(limited) != 1 {
		t.Fatalf("limit ignored, got %d", len(limited))
	}

	if _, err := st.GetJob(ctx, "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRegistryRecordsTerminalJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	reg := jobs.NewRegistry(1, jobs.WithRecorder(st))
	job := reg.Create(jobs.Spec{ProfileID: "everything_1m", RepositoryIDs: []string{"r1"}})
	if _, err := st.GetJob(ctx, job.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("queued job should not be recorded yet, got %v", err)
	}
	if !reg.Cancel(job.ID) {
		t.Fatal("cancel of queued job should succeed")
	}

	got, err := st.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != jobs.StatusCancelled || got.ErrorKind != services.KindCancelled {
		t.Fatalf("unexpected recorded job %+v", got)
	}
}

func repoAt(t *testing.T, name string) gitlog.Repository {
	t.Helper()
	return repoAtPath(name, filepath.Join(t.TempDir(), name))
}

func repoAtPath(name, path string) gitlog.Repository {
	return gitlog.Repository{Name: name, Path: path}
}

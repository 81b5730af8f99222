package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gitreel/internal/jobs"
	"gitreel/internal/metrics"
)

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read scrape: %v", err)
	}
	return string(body)
}

func TestObserverTracksJobLifecycle(t *testing.T) {
	m := metrics.New()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(30 * time.Second)
		return now
	}
	reg := jobs.NewRegistry(2, jobs.WithObserver(m), jobs.WithClock(clock))

	ok := reg.Create(jobs.Spec{})
	if _, err := reg.Apply(ok.ID, jobs.EventRendererStarted, jobs.Update{}); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Apply(ok.ID, jobs.EventEncoderStarted, jobs.Update{}); err != nil {
		t.Fatal(err)
	}

	running := scrape(t, m)
	if !strings.Contains(running, "gitreel_render_pipelines_running 1") {
		t.Fatalf("expected one running pipeline:\n%s", running)
	}

	if _, err := reg.Apply(ok.ID, jobs.EventSucceeded, jobs.Update{OutputPath: "/out.mp4"}); err != nil {
		t.Fatal(err)
	}
	queued := reg.Create(jobs.Spec{})
	reg.Cancel(queued.ID)

	out := scrape(t, m)
	for _, want := range []string{
		"gitreel_render_pipelines_running 0",
		`gitreel_render_jobs_finished_total{error_kind="",status="completed"} 1`,
		`gitreel_render_jobs_finished_total{error_kind="cancelled",status="cancelled"} 1`,
		`gitreel_render_duration_seconds_count{status="completed"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in scrape:\n%s", want, out)
		}
	}
	if strings.Contains(out, `gitreel_render_duration_seconds_count{status="cancelled"}`) {
		t.Fatalf("a job cancelled while queued has no duration:\n%s", out)
	}
}

func TestRecordsExtracted(t *testing.T) {
	m := metrics.New()
	m.RecordsExtracted(" API ", 3)
	m.RecordsExtracted("api", 2)
	m.RecordsExtracted("web", 0)

	out := scrape(t, m)
	if !strings.Contains(out, `gitreel_commit_records_extracted_total{repository="api"} 5`) {
		t.Fatalf("unexpected scrape:\n%s", out)
	}
	if strings.Contains(out, `repository="web"`) {
		t.Fatalf("zero counts should not create series:\n%s", out)
	}
}

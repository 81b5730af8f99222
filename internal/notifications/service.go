package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gitreel/internal/config"
	"gitreel/internal/jobs"
)

const userAgent = "gitreel/0.1.0"

// Service defines the notification surface exposed to render components.
type Service interface {
	NotifyRenderCompleted(ctx context.Context, job jobs.Job) error
	NotifyRenderFailed(ctx context.Context, job jobs.Job) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func jobLabel(job jobs.Job) string {
	if name := strings.TrimSpace(job.ProjectName); name != "" {
		return name
	}
	return job.ID
}

func (n *ntfyService) NotifyRenderCompleted(ctx context.Context, job jobs.Job) error {
	message := fmt.Sprintf("🎞️ Render complete: %s", jobLabel(job))
	if d := job.Duration().Round(time.Second); d > 0 {
		message = fmt.Sprintf("%s in %s", message, d)
	}
	if out := strings.TrimSpace(job.OutputPath); out != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, out)
	}
	data := payload{
		title:   "gitreel - Render Complete",
		message: message,
		tags:    []string{"gitreel", "render", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRenderFailed(ctx context.Context, job jobs.Job) error {
	var builder strings.Builder
	builder.WriteString("❌ Render failed: ")
	builder.WriteString(jobLabel(job))
	if kind := strings.TrimSpace(job.ErrorKind); kind != "" {
		builder.WriteString(" (")
		builder.WriteString(kind)
		builder.WriteString(")")
	}
	if msg := strings.TrimSpace(job.ErrorMessage); msg != "" {
		builder.WriteString("\n")
		builder.WriteString(msg)
	}

	data := payload{
		title:    "gitreel - Render Failed",
		message:  builder.String(),
		tags:     []string{"gitreel", "render", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "gitreel - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"gitreel", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRenderCompleted(context.Context, jobs.Job) error { return nil }
func (noopService) NotifyRenderFailed(context.Context, jobs.Job) error    { return nil }
func (noopService) TestNotification(context.Context) error                { return nil }

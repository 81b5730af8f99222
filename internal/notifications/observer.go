package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gitreel/internal/config"
	"gitreel/internal/jobs"
	"gitreel/internal/logging"
)

const observerTimeout = 30 * time.Second

// Observer announces terminal render jobs through a Service. Deliveries run
// in the background; Close waits for them.
type Observer struct {
	svc       Service
	logger    *slog.Logger
	completed bool
	failed    bool
	wg        sync.WaitGroup
}

// NewObserver wires svc to the toggles in cfg.Notifications.
func NewObserver(svc Service, cfg *config.Config, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Observer{
		svc:       svc,
		logger:    logging.NewComponentLogger(logger, "notifications"),
		completed: cfg.Notifications.RenderComplete,
		failed:    cfg.Notifications.RenderFailed,
	}
}

// JobTransitioned implements jobs.Observer. Cancelled jobs are not announced.
func (o *Observer) JobTransitioned(_ jobs.Status, job jobs.Job) {
	var send func(context.Context, jobs.Job) error
	switch {
	case job.Status == jobs.StatusCompleted && o.completed:
		send = o.svc.NotifyRenderCompleted
	case job.Status == jobs.StatusFailed && o.failed:
		send = o.svc.NotifyRenderFailed
	default:
		return
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), observerTimeout)
		defer cancel()
		if err := send(ctx, job); err != nil {
			logging.WarnWithContext(o.logger, "render notification failed",
				"notification_failed",
				logging.String(logging.FieldJobID, job.ID),
				logging.String("status", string(job.Status)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			)
		}
	}()
}

// Close blocks until in-flight notifications finish.
func (o *Observer) Close() {
	o.wg.Wait()
}

package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const DefaultRosterSchedule = "@every 30s"

// RosterRefresher reloads the available-driver roster into the cache.
type RosterRefresher interface {
	RefreshRoster(ctx context.Context) (int, error)
}

// RosterRefreshJob keeps the drivers:available cache entry warm so that
// listing drivers rarely falls through to the database.
type RosterRefreshJob struct {
	refresher RosterRefresher
	schedule  string
	timeout   time.Duration
	cron      *cron.Cron
	logger    *slog.Logger
}

func NewRosterRefreshJob(refresher RosterRefresher, schedule string, timeout time.Duration, logger *slog.Logger) *RosterRefreshJob {
	if schedule == "" {
		schedule = DefaultRosterSchedule
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RosterRefreshJob{
		refresher: refresher,
		schedule:  schedule,
		timeout:   timeout,
		cron:      cron.New(),
		logger:    logger.With("component", "roster_refresh_job"),
	}
}

func (j *RosterRefreshJob) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, j.run); err != nil {
		return err
	}
	j.cron.Start()
	j.logger.Info("roster refresh job started", "schedule", j.schedule)
	return nil
}

func (j *RosterRefreshJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	n, err := j.refresher.RefreshRoster(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "roster refresh failed", "error", err)
		return
	}
	j.logger.DebugContext(ctx, "roster refreshed", "drivers", n)
}

// Stop waits for a running refresh to finish.
func (j *RosterRefreshJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("roster refresh job stopped")
}

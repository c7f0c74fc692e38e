package jobs

import (
	"fmt"
	"log/slog"
	"time"
)

// JobManager starts and stops every scheduled job of the process.
type JobManager struct {
	rosterRefreshJob *RosterRefreshJob
}

func NewJobManager(refresher RosterRefresher, rosterSchedule string, timeout time.Duration, logger *slog.Logger) *JobManager {
	return &JobManager{
		rosterRefreshJob: NewRosterRefreshJob(refresher, rosterSchedule, timeout, logger),
	}
}

func (jm *JobManager) StartAll() error {
	if err := jm.rosterRefreshJob.Start(); err != nil {
		return fmt.Errorf("failed to start roster refresh job: %w", err)
	}
	return nil
}

func (jm *JobManager) StopAll() {
	jm.rosterRefreshJob.Stop()
}

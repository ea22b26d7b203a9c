package bootstrap

import (
	"context"

	"securequiz/internal/logging"
	"securequiz/internal/quiz/app"
	"securequiz/internal/scheduler"
)

const sessionSweepJob = "session-sweep"

// newScheduler registers the maintenance jobs. The caller starts it.
func newScheduler(cfg Config, svc *app.Service, logger logging.Logger) (*scheduler.Scheduler, error) {
	sched := scheduler.New(scheduler.Config{Enabled: true}, logger)
	err := sched.Register(scheduler.Job{
		Name:     sessionSweepJob,
		Schedule: cfg.SessionSweepSchedule,
		Run: func(ctx context.Context) error {
			_, err := svc.PurgeStaleSessions(ctx, cfg.SessionMaxAge)
			return err
		},
	})
	if err != nil {
		return nil, err
	}
	return sched, nil
}

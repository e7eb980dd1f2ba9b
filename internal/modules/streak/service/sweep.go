package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartSweepScheduler runs SweepInactive on the cron expression and returns
// the scheduler so the caller can shut it down.
func StartSweepScheduler(svc StreakService, cronExpr string) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			if _, err := svc.SweepInactive(ctx, time.Now()); err != nil {
				slog.Error("Streak sweep failed", slog.Any("error", err))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	slog.Info("Streak sweep scheduled", slog.String("cron", cronExpr))
	return sched, nil
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartAuditScheduler runs the ledger audit every interval. The caller owns
// the returned scheduler and must shut it down.
func (a *LedgerAuditor) StartAuditScheduler(interval time.Duration) (gocron.Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("audit interval must be positive, got %s", interval)
	}
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			if _, err := a.Audit(ctx); err != nil {
				a.Log.Error("[Scheduler] ledger audit failed", "error", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("xp-ledger-audit"),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	a.Log.Info("[Scheduler] ledger audit scheduled", "interval", interval.String())
	return sched, nil
}

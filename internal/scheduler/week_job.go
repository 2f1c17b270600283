package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slot-parlor/internal/session"
)

// DefaultWeekTimeout bounds one scheduled week advance.
const DefaultWeekTimeout = 30 * time.Second

// WeekAdvancer advances the simulated week. The server implements it under
// its session lock.
type WeekAdvancer interface {
	AdvanceWeek(ctx context.Context) (*session.WeekReport, error)
}

// WeekJob advances one week per tick until the simulation is over.
type WeekJob struct {
	advancer WeekAdvancer
	timeout  time.Duration
}

// NewWeekJob creates a WeekJob. A non-positive timeout uses DefaultWeekTimeout.
func NewWeekJob(advancer WeekAdvancer, timeout time.Duration) *WeekJob {
	if timeout <= 0 {
		timeout = DefaultWeekTimeout
	}
	return &WeekJob{advancer: advancer, timeout: timeout}
}

// Name implements Job.
func (j *WeekJob) Name() string { return "advance_week" }

// Run implements Job.
func (j *WeekJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	_, err := j.advancer.AdvanceWeek(ctx)
	if errors.Is(err, session.ErrSimulationOver) {
		return fmt.Errorf("%w: %w", ErrJobDone, err)
	}
	return err
}

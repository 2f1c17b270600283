package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slot-parlor/internal/session"
)

type stubAdvancer struct {
	calls int
	limit int
	err   error
}

func (a *stubAdvancer) AdvanceWeek(ctx context.Context) (*session.WeekReport, error) {
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("missing deadline")
	}
	if a.err != nil {
		return nil, a.err
	}
	if a.calls >= a.limit {
		return nil, session.ErrSimulationOver
	}
	a.calls++
	return &session.WeekReport{Week: a.calls + 1}, nil
}

type funcJob struct {
	name string
	fn   func() error
}

func (j funcJob) Name() string { return j.name }
func (j funcJob) Run() error   { return j.fn() }

func TestAddJob_InvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.AddJob("not a schedule", funcJob{name: "x", fn: func() error { return nil }})
	assert.Error(t, err)
	assert.Equal(t, 0, s.Jobs())
}

func TestAddJob_AcceptsSecondsAndDescriptors(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("@every 1m", funcJob{name: "a", fn: func() error { return nil }}))
	require.NoError(t, s.AddJob("*/10 * * * * *", funcJob{name: "b", fn: func() error { return nil }}))
	require.NoError(t, s.AddJob("0 9 * * MON-FRI", funcJob{name: "c", fn: func() error { return nil }}))
	assert.Equal(t, 3, s.Jobs())
}

func TestAddJob_DuplicateName(t *testing.T) {
	s := New(zerolog.Nop())
	job := funcJob{name: "dup", fn: func() error { return nil }}

	require.NoError(t, s.AddJob("@hourly", job))
	err := s.AddJob("@daily", job)
	assert.ErrorIs(t, err, ErrDuplicateJob)
}

func TestRun_FailureKeepsJob(t *testing.T) {
	s := New(zerolog.Nop())
	job := funcJob{name: "flaky", fn: func() error { return errors.New("boom") }}
	require.NoError(t, s.AddJob("@hourly", job))

	s.run(job)

	assert.Equal(t, 1, s.Jobs())
}

func TestWeekJob_RemovedWhenSimulationOver(t *testing.T) {
	s := New(zerolog.Nop())
	adv := &stubAdvancer{limit: 2}
	job := NewWeekJob(adv, 0)
	require.NoError(t, s.AddJob("@every 1m", job))

	s.run(job)
	s.run(job)
	assert.Equal(t, 2, adv.calls)
	assert.Equal(t, 1, s.Jobs())

	s.run(job)
	assert.Equal(t, 0, s.Jobs())
}

func TestWeekJob_Run(t *testing.T) {
	adv := &stubAdvancer{limit: 1}
	job := NewWeekJob(adv, 0)

	assert.Equal(t, "advance_week", job.Name())
	require.NoError(t, job.Run())

	err := job.Run()
	assert.ErrorIs(t, err, ErrJobDone)
	assert.ErrorIs(t, err, session.ErrSimulationOver)

	adv.err = errors.New("store down")
	err = job.Run()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrJobDone)
}

func TestRunNow(t *testing.T) {
	s := New(zerolog.Nop())
	ran := false

	err := s.RunNow(funcJob{name: "now", fn: func() error { ran = true; return nil }})
	require.NoError(t, err)
	assert.True(t, ran)
}

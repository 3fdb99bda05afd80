package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJob struct {
	name string
	run  func(ctx context.Context) error
}

func (j *fakeJob) Name() string                  { return j.name }
func (j *fakeJob) Description() string           { return "test job" }
func (j *fakeJob) Run(ctx context.Context) error { return j.run(ctx) }

func TestIntervalScheduleNext(t *testing.T) {
	s := NewIntervalSchedule(5 * time.Minute)
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(5*time.Minute), s.Next(base))
	assert.Equal(t, "@every 5m0s", s.String())
}

func TestRegisterRejectsDuplicatesAndNils(t *testing.T) {
	s := NewScheduler(nil)
	job := &fakeJob{name: "rebuild", run: func(ctx context.Context) error { return nil }}

	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Minute)))
	assert.ErrorIs(t, s.Register(job, NewIntervalSchedule(time.Minute)), ErrJobAlreadyExists)
	assert.ErrorIs(t, s.Register(nil, NewIntervalSchedule(time.Minute)), ErrNilJob)
	assert.ErrorIs(t, s.Register(&fakeJob{name: "other"}, nil), ErrNilSchedule)
}

func TestStartStopLifecycle(t *testing.T) {
	s := NewScheduler(nil)
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}

func TestDueJobRunsAndReschedules(t *testing.T) {
	s := NewScheduler(nil)
	ran := make(chan struct{}, 4)
	job := &fakeJob{name: "sweep", run: func(ctx context.Context) error {
		ran <- struct{}{}
		return nil
	}}
	// Sub-second interval: due on the scheduler's next tick.
	require.NoError(t, s.Register(job, NewIntervalSchedule(100*time.Millisecond)))
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job never ran")
	}
}

func TestFailingJobDoesNotStopScheduler(t *testing.T) {
	s := NewScheduler(nil)
	ran := make(chan struct{}, 4)
	failing := &fakeJob{name: "failing", run: func(ctx context.Context) error {
		ran <- struct{}{}
		return errors.New("boom")
	}}
	require.NoError(t, s.Register(failing, NewIntervalSchedule(100*time.Millisecond)))
	require.NoError(t, s.Start(context.Background()))

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job never ran")
	}
	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
}

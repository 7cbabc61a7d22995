package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWork struct {
	fetchErr     error
	reconcileErr error
	fetches      int
	reconciles   int
	purged       int64
}

func (w *fakeWork) FetchAll(context.Context) error {
	w.fetches++
	return w.fetchErr
}

func (w *fakeWork) ReconcileAll(context.Context) error {
	w.reconciles++
	return w.reconcileErr
}

func (w *fakeWork) PurgeExpired(context.Context) (int64, error) {
	w.purged += 2
	return 2, nil
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob(Job{Name: "bad", Schedule: "every now and then", Run: func(context.Context) error { return nil }})
	assert.Error(t, err)
	assert.Empty(t, s.Jobs())
}

func TestRunNowTracksState(t *testing.T) {
	s := New(zerolog.Nop())
	work := &fakeWork{fetchErr: errors.New("provider down")}
	require.NoError(t, s.AddJob(FetchJob("0 * * * *", work, work)))
	require.NoError(t, s.AddJob(ReconcileJob("30 * * * *", work)))

	err := s.RunNow(context.Background(), JobFetch)
	require.Error(t, err)
	assert.Equal(t, 1, work.fetches)
	assert.Equal(t, 1, work.reconciles, "reconcile runs after a failed fetch")

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, JobFetch, jobs[0].Name)
	require.NotNil(t, jobs[0].LastRunAt)
	require.NotNil(t, jobs[0].LastError)
	assert.Contains(t, *jobs[0].LastError, "provider down")
	assert.Nil(t, jobs[1].LastRunAt)

	require.NoError(t, s.RunNow(context.Background(), JobReconcile))
	assert.Equal(t, 2, work.reconciles)
	assert.NotNil(t, s.LastRunAt())

	assert.Error(t, s.RunNow(context.Background(), "unknown"))
}

func TestPurgeJob(t *testing.T) {
	s := New(zerolog.Nop())
	work := &fakeWork{}
	require.NoError(t, s.AddJob(PurgeJob("@daily", work)))
	require.NoError(t, s.RunNow(context.Background(), JobPurge))
	assert.Equal(t, int64(2), work.purged)
}

func TestStartAndStop(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob(ReconcileJob("@hourly", &fakeWork{})))
	assert.False(t, s.IsRunning())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, s.IsRunning, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return !s.NextRunAt().IsZero() }, time.Second, 5*time.Millisecond)
	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.NotNil(t, jobs[0].NextRunAt)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.False(t, s.IsRunning())
}

package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmarceau/screener/pkg/config"
	"github.com/jmarceau/screener/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
}

type countingJob struct {
	name     string
	schedule string
	runs     atomic.Int32
	failFor  int32 // fail the first N runs
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }

func (j *countingJob) Run(context.Context) error {
	n := j.runs.Add(1)
	if n <= j.failFor {
		return errors.New("transient failure")
	}
	return nil
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(testLogger())
	job := &countingJob{name: "test", schedule: "@daily"}

	require.NoError(t, s.AddJob(job))
	assert.Error(t, s.AddJob(job), "duplicate job rejected")
	assert.Contains(t, s.Jobs(), "test")
}

func TestScheduler_AddJob_BadSchedule(t *testing.T) {
	s := New(testLogger())
	job := &countingJob{name: "bad", schedule: "not a cron expr"}
	assert.Error(t, s.AddJob(job))
}

func TestScheduler_RunJob(t *testing.T) {
	s := New(testLogger()).WithRetry(0, 0)
	job := &countingJob{name: "manual", schedule: "@daily"}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("manual"))
	assert.Equal(t, int32(1), job.runs.Load())

	history, err := s.History("manual")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.True(t, history.Results[0].Success)

	assert.Error(t, s.RunJob("unknown"))
}

func TestScheduler_RetriesUntilSuccess(t *testing.T) {
	s := New(testLogger()).WithRetry(3, time.Millisecond)
	job := &countingJob{name: "flaky", schedule: "@daily", failFor: 2}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("flaky"))

	assert.Equal(t, int32(3), job.runs.Load(), "two failures then success")
	history, err := s.History("flaky")
	require.NoError(t, err)
	last := history.LastResult()
	require.NotNil(t, last)
	assert.True(t, last.Success)
}

func TestScheduler_RecordsFailure(t *testing.T) {
	s := New(testLogger()).WithRetry(1, time.Millisecond)
	job := &countingJob{name: "broken", schedule: "@daily", failFor: 100}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("broken"))

	history, err := s.History("broken")
	require.NoError(t, err)
	last := history.LastResult()
	require.NotNil(t, last)
	assert.False(t, last.Success)
	assert.NotEmpty(t, last.Error)
	assert.Zero(t, history.SuccessRate())
}

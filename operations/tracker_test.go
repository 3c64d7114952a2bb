package operations

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aca-platform/redshift-backups-framework/pkg/logger"
)

// fakeClock advances time only when the tracker sleeps.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func (c *fakeClock) option() TrackerOption {
	return WithClock(c.Now, c.Sleep)
}

func classifyTestStatus(status string) StatusClass {
	switch status {
	case "available":
		return ClassSucceeded
	case "failed":
		return ClassFailed
	default:
		return ClassPending
	}
}

// scriptedQuery returns each response in order, repeating the last one.
func scriptedQuery(responses ...func() (StatusResult[string], error)) (StatusQueryFunc[string], *int) {
	calls := 0
	query := func(handle string) (StatusResult[string], error) {
		i := calls
		if i >= len(responses) {
			i = len(responses) - 1
		}
		calls++

		return responses[i]()
	}

	return query, &calls
}

func pending() func() (StatusResult[string], error) {
	return func() (StatusResult[string], error) {
		return StatusResult[string]{Status: "creating"}, nil
	}
}

func available(payload string) func() (StatusResult[string], error) {
	return func() (StatusResult[string], error) {
		return StatusResult[string]{Status: "available", Output: payload}, nil
	}
}

func failedStatus() func() (StatusResult[string], error) {
	return func() (StatusResult[string], error) {
		return StatusResult[string]{Status: "failed"}, nil
	}
}

func transientErr() func() (StatusResult[string], error) {
	return func() (StatusResult[string], error) {
		return StatusResult[string]{}, errors.New("throttled")
	}
}

func Test_AwaitTerminal_CompletedWithoutSleeping(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	query, calls := scriptedQuery(available("snap-1-payload"))
	b := NewBundle(t.Context, logger.Test(t), NewMemoryReporter())

	outcome := AwaitTerminal(b, "snap-1", query, PollPolicy{
		Interval: 30 * time.Second,
		MaxWait:  30 * time.Minute,
		Classify: classifyTestStatus,
	}, clock.option())

	assert.Equal(t, OutcomeCompleted, outcome.Kind)
	assert.True(t, outcome.Completed())
	assert.Equal(t, "snap-1-payload", outcome.Output)
	assert.Equal(t, "available", outcome.Status)
	assert.Equal(t, 1, outcome.Queries)
	assert.Equal(t, 1, *calls)
	assert.Empty(t, clock.sleeps, "terminal status on first query must not sleep")
}

func Test_AwaitTerminal_FailedStopsImmediately(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	query, calls := scriptedQuery(failedStatus(), available("should never be seen"))
	b := NewBundle(t.Context, logger.Test(t), NewMemoryReporter())

	outcome := AwaitTerminal(b, "snap-2", query, PollPolicy{
		Interval: 30 * time.Second,
		MaxWait:  30 * time.Minute,
		Classify: classifyTestStatus,
	}, clock.option())

	assert.Equal(t, OutcomeFailed, outcome.Kind)
	assert.True(t, outcome.Failed())
	require.Error(t, outcome.Err)
	assert.Contains(t, outcome.Err.Error(), `terminal failure status "failed"`)
	assert.Equal(t, 1, *calls, "no further queries after a terminal failure")
}

func Test_AwaitTerminal_BudgetShorterThanInterval(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	query, calls := scriptedQuery(pending())
	b := NewBundle(t.Context, logger.Test(t), NewMemoryReporter())

	outcome := AwaitTerminal(b, "snap-3", query, PollPolicy{
		Interval: 30 * time.Second,
		MaxWait:  10 * time.Second,
		Classify: classifyTestStatus,
	}, clock.option())

	assert.Equal(t, OutcomeTimedOut, outcome.Kind)
	assert.True(t, outcome.TimedOut())
	assert.LessOrEqual(t, *calls, 1, "at most one query before the budget is exhausted")
	// The sleep is capped to the remaining budget, not the full interval.
	require.Len(t, clock.sleeps, 1)
	assert.Equal(t, 10*time.Second, clock.sleeps[0])
}

func Test_AwaitTerminal_TransientErrorsDoNotAbort(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	query, calls := scriptedQuery(transientErr(), transientErr(), available("rp-arn"))
	b := NewBundle(t.Context, logger.Test(t), NewMemoryReporter())

	outcome := AwaitTerminal(b, "job-1", query, PollPolicy{
		Interval: 30 * time.Second,
		MaxWait:  30 * time.Minute,
		Classify: classifyTestStatus,
	}, clock.option())

	assert.Equal(t, OutcomeCompleted, outcome.Kind)
	assert.Equal(t, "rp-arn", outcome.Output)
	assert.Equal(t, 3, *calls)
	assert.Len(t, clock.sleeps, 2)
}

func Test_AwaitTerminal_PermanentErrorFails(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	notFound := NewPermanentPollError(errors.New("snapshot not found"))
	query, calls := scriptedQuery(func() (StatusResult[string], error) {
		return StatusResult[string]{}, notFound
	})
	b := NewBundle(t.Context, logger.Test(t), NewMemoryReporter())

	outcome := AwaitTerminal(b, "job-2", query, PollPolicy{
		Interval: 30 * time.Second,
		MaxWait:  30 * time.Minute,
		Classify: classifyTestStatus,
	}, clock.option())

	assert.Equal(t, OutcomeFailed, outcome.Kind)
	require.Error(t, outcome.Err)
	assert.True(t, IsPermanentPollError(outcome.Err))
	assert.Equal(t, 1, *calls)
}

func Test_AwaitTerminal_Idempotent(t *testing.T) {
	t.Parallel()

	b := NewBundle(t.Context, logger.Test(t), NewMemoryReporter())
	policy := PollPolicy{
		Interval: 30 * time.Second,
		MaxWait:  30 * time.Minute,
		Classify: classifyTestStatus,
	}

	for range 2 {
		clock := newFakeClock()
		query, _ := scriptedQuery(available("same"))
		outcome := AwaitTerminal(b, "snap-terminal", query, policy, clock.option())

		assert.Equal(t, OutcomeCompleted, outcome.Kind)
		assert.Equal(t, "same", outcome.Output)
		assert.Equal(t, 1, outcome.Queries)
	}
}

func Test_AwaitTerminal_CompletedAfterPolling(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	query, calls := scriptedQuery(pending(), pending(), available("done"))
	b := NewBundle(t.Context, logger.Test(t), NewMemoryReporter())

	outcome := AwaitTerminal(b, "snap-4", query, PollPolicy{
		Interval: 30 * time.Second,
		MaxWait:  90 * time.Second,
		Classify: classifyTestStatus,
	}, clock.option())

	assert.Equal(t, OutcomeCompleted, outcome.Kind)
	assert.Equal(t, 3, *calls)
	assert.Equal(t, 60*time.Second, outcome.Elapsed)
}

func Test_AwaitTerminal_TimedOutAfterExactBudget(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	query, calls := scriptedQuery(pending())
	b := NewBundle(t.Context, logger.Test(t), NewMemoryReporter())

	outcome := AwaitTerminal(b, "snap-5", query, PollPolicy{
		Interval: 30 * time.Second,
		MaxWait:  60 * time.Second,
		Classify: classifyTestStatus,
	}, clock.option())

	assert.Equal(t, OutcomeTimedOut, outcome.Kind)
	assert.Equal(t, 2, *calls)
	assert.Equal(t, 60*time.Second, outcome.Elapsed)
	assert.Equal(t, "creating", outcome.Status)
}

func Test_AwaitTerminal_BackoffCapped(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	query, _ := scriptedQuery(pending(), pending(), pending(), available("done"))
	b := NewBundle(t.Context, logger.Test(t), NewMemoryReporter())

	outcome := AwaitTerminal(b, "snap-6", query, PollPolicy{
		Interval:      10 * time.Second,
		MaxWait:       10 * time.Minute,
		Classify:      classifyTestStatus,
		BackoffFactor: 2,
		MaxInterval:   30 * time.Second,
	}, clock.option())

	assert.Equal(t, OutcomeCompleted, outcome.Kind)
	assert.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second, 30 * time.Second}, clock.sleeps)
}

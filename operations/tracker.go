package operations

import (
	"errors"
	"fmt"
	"time"
)

// StatusClass is the classification of a raw provider status into the three
// states the tracker cares about.
type StatusClass int

const (
	// ClassPending indicates the operation has not yet reached a terminal
	// status and polling should continue.
	ClassPending StatusClass = iota
	// ClassSucceeded indicates a terminal success status.
	ClassSucceeded
	// ClassFailed indicates a terminal failure status. No further state
	// change will occur provider-side.
	ClassFailed
)

// OutcomeKind is the kind of terminal outcome produced by AwaitTerminal.
type OutcomeKind string

const (
	// OutcomeCompleted indicates the operation reached a terminal success
	// status before the wait budget was exhausted.
	OutcomeCompleted OutcomeKind = "completed"
	// OutcomeFailed indicates the operation reached a terminal failure
	// status, or the status query failed permanently.
	OutcomeFailed OutcomeKind = "failed"
	// OutcomeTimedOut indicates the wait budget was exhausted while the
	// operation was still pending. The operation may still be progressing
	// server-side; the caller decides whether this is fatal.
	OutcomeTimedOut OutcomeKind = "timed_out"
)

// PollPolicy configures how AwaitTerminal conducts a wait loop: how often to
// poll, how long to wait in total, and how raw provider statuses map onto
// terminal success, terminal failure or still-pending.
type PollPolicy struct {
	// Interval is the time between consecutive status queries.
	Interval time.Duration
	// MaxWait is the total wait budget. Once elapsed time reaches MaxWait
	// the tracker returns OutcomeTimedOut.
	MaxWait time.Duration
	// Classify maps a raw provider status string to a StatusClass. Statuses
	// not recognized by the classifier must be reported as ClassPending.
	Classify func(status string) StatusClass

	// BackoffFactor optionally grows the interval multiplicatively after
	// each poll. Values <= 1 keep the fixed interval. Growth is capped by
	// MaxInterval and never exceeds the remaining wait budget, so a short
	// budget cannot be overshot by a long sleep.
	BackoffFactor float64
	// MaxInterval caps interval growth when BackoffFactor is set. Zero
	// means no cap beyond the remaining wait budget.
	MaxInterval time.Duration
}

// StatusResult is the result of a single status query: the raw provider
// status plus the payload that accompanies a terminal success (e.g. a
// recovery point ARN).
type StatusResult[OUT any] struct {
	Status string
	Output OUT
}

// StatusQueryFunc queries the current status of the operation identified by
// handle. It must be a read-only, idempotent call. Errors returned by the
// query are treated as transient and polling continues, unless wrapped with
// NewPermanentPollError.
type StatusQueryFunc[OUT any] func(handle string) (StatusResult[OUT], error)

// PollOutcome is the single terminal outcome of an AwaitTerminal call.
type PollOutcome[OUT any] struct {
	Kind OutcomeKind
	// Output carries the success payload when Kind is OutcomeCompleted.
	Output OUT
	// Status is the last raw provider status observed, if any.
	Status string
	// Err is the failure reason when Kind is OutcomeFailed.
	Err error
	// Queries is the number of status queries performed.
	Queries int
	// Elapsed is the total time spent waiting.
	Elapsed time.Duration
}

// Completed reports whether the outcome is a terminal success.
func (o PollOutcome[OUT]) Completed() bool { return o.Kind == OutcomeCompleted }

// TimedOut reports whether the wait budget was exhausted.
func (o PollOutcome[OUT]) TimedOut() bool { return o.Kind == OutcomeTimedOut }

// Failed reports whether the outcome is a terminal failure.
func (o PollOutcome[OUT]) Failed() bool { return o.Kind == OutcomeFailed }

type permanentPollError struct {
	err error
}

func (e permanentPollError) Error() string { return e.err.Error() }

func (e permanentPollError) Unwrap() error { return e.err }

// NewPermanentPollError marks a status query error as permanent. AwaitTerminal
// stops polling and returns OutcomeFailed when the query returns one, instead
// of treating the error as transient. Use this for error classes that cannot
// resolve on their own, e.g. the handle was not found.
func NewPermanentPollError(err error) error {
	return permanentPollError{err: err}
}

// IsPermanentPollError reports whether err was wrapped by NewPermanentPollError.
func IsPermanentPollError(err error) bool {
	var p permanentPollError
	return errors.As(err, &p)
}

type trackerClock struct {
	now   func() time.Time
	sleep func(d time.Duration)
}

// TrackerOption configures AwaitTerminal.
type TrackerOption func(*trackerClock)

// WithClock overrides the time source and sleep function used by
// AwaitTerminal. Intended for tests, which would otherwise wait out real
// polling intervals.
func WithClock(now func() time.Time, sleep func(d time.Duration)) TrackerOption {
	return func(c *trackerClock) {
		c.now = now
		c.sleep = sleep
	}
}

// AwaitTerminal polls the status of a long-running cloud operation until it
// reaches a terminal status or the wait budget in policy is exhausted, and
// returns exactly one terminal outcome.
//
// The handle is opaque to the tracker and is never mutated; the only side
// effect of a call is the read-only status queries it issues. The first
// terminal status observed ends the loop immediately without sleeping.
// Transient query errors are logged and polling continues on the next
// interval; errors wrapped with NewPermanentPollError end the loop with
// OutcomeFailed.
//
// OutcomeTimedOut is not an error: the operation may still complete
// out-of-band after the budget is exhausted, so the caller decides whether a
// timeout is fatal. A terminal failure status, by contrast, will never
// resolve and is returned as OutcomeFailed with the raw status in the reason.
//
// The calling goroutine is blocked for the whole wait. There is no
// cancellation beyond the MaxWait deadline.
func AwaitTerminal[OUT any](
	b Bundle, handle string, query StatusQueryFunc[OUT], policy PollPolicy, opts ...TrackerOption,
) PollOutcome[OUT] {
	clock := trackerClock{now: time.Now, sleep: time.Sleep}
	for _, opt := range opts {
		opt(&clock)
	}

	var (
		start      = clock.now()
		interval   = policy.Interval
		lastStatus string
		queries    int
	)

	outcome := func(kind OutcomeKind, output OUT, err error) PollOutcome[OUT] {
		return PollOutcome[OUT]{
			Kind:    kind,
			Output:  output,
			Status:  lastStatus,
			Err:     err,
			Queries: queries,
			Elapsed: clock.now().Sub(start),
		}
	}

	for {
		elapsed := clock.now().Sub(start)
		if elapsed >= policy.MaxWait {
			b.Logger.Warnw("Wait budget exhausted, operation still pending",
				"handle", handle, "elapsed", elapsed, "maxWait", policy.MaxWait, "lastStatus", lastStatus)

			var zero OUT
			return outcome(OutcomeTimedOut, zero, nil)
		}

		result, err := query(handle)
		queries++
		if err != nil {
			if IsPermanentPollError(err) {
				b.Logger.Errorw("Status query failed permanently",
					"handle", handle, "error", err)

				var zero OUT
				return outcome(OutcomeFailed, zero, err)
			}

			b.Logger.Warnw("Status query failed, will retry on next interval",
				"handle", handle, "error", err)
		} else {
			lastStatus = result.Status
			b.Logger.Debugw("Observed operation status", "handle", handle, "status", result.Status)

			switch policy.Classify(result.Status) {
			case ClassSucceeded:
				return outcome(OutcomeCompleted, result.Output, nil)
			case ClassFailed:
				var zero OUT
				return outcome(OutcomeFailed, zero,
					fmt.Errorf("operation %s reached terminal failure status %q", handle, result.Status))
			case ClassPending:
			}
		}

		sleep := interval
		if remaining := policy.MaxWait - clock.now().Sub(start); sleep > remaining {
			sleep = remaining
		}
		clock.sleep(sleep)

		if policy.BackoffFactor > 1 {
			interval = time.Duration(float64(interval) * policy.BackoffFactor)
			if policy.MaxInterval > 0 && interval > policy.MaxInterval {
				interval = policy.MaxInterval
			}
		}
	}
}

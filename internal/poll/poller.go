// Package poll implements the client side of the API's asynchronous
// generation model: submit a job, then fetch its status at a fixed
// cadence until it reaches a terminal state or the attempt budget runs
// out. One poller watches one job; ticks are strictly sequential, so at
// most one status fetch is in flight per job at any time.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Status is a server-reported job status string.
type Status string

const (
	StatusQueued       Status = "queued"
	StatusRunning      Status = "running"
	StatusGenerating   Status = "generating"
	StatusPartialReady Status = "partial_ready"
	StatusComplete     Status = "complete"
	StatusReady        Status = "ready"
	StatusFailed       Status = "failed"
)

// ErrTimeout indicates the attempt budget was exhausted before the job
// reached a terminal status. The job may still complete server-side;
// the client has simply stopped watching.
var ErrTimeout = errors.New("job polling timed out")

// FailedError carries the server-reported failure message for a job
// that reached the failed status.
type FailedError struct {
	Message string
}

func (e *FailedError) Error() string {
	if e.Message == "" {
		return "generation failed"
	}
	return e.Message
}

// JobState is implemented by resource snapshots that report generation
// progress.
type JobState interface {
	JobStatus() Status
	JobError() string
}

// Fetch retrieves the latest snapshot of the watched resource.
type Fetch[T JobState] func(ctx context.Context) (T, error)

// Config parameterizes a poll loop.
type Config struct {
	// Interval between status fetches.
	Interval time.Duration

	// MaxAttempts bounds the number of status fetches. Zero means
	// unbounded: the loop runs until a terminal status or context
	// cancellation.
	MaxAttempts int

	// Terminal decides whether a status stops the loop. Nil selects
	// DefaultTerminal.
	Terminal func(Status) bool
}

// DefaultTerminal treats ready and failed as terminal, matching the
// item generators (articles, memes, videos).
func DefaultTerminal(s Status) bool {
	return s == StatusReady || s == StatusFailed
}

// Snapshot is the observable view of a watched job: the familiar
// loading/result/error triple plus progress bookkeeping.
type Snapshot[T JobState] struct {
	ID       string
	Status   Status
	Result   T
	Loading  bool
	Err      error
	Attempts int
}

// Observer receives a snapshot after every tick. It is invoked from the
// polling goroutine; implementations must not block for long.
type Observer[T JobState] func(Snapshot[T])

// Wait polls fetch at cfg.Interval until a terminal status, attempt
// exhaustion, or context cancellation. The final snapshot is returned;
// observe (optional) additionally sees every intermediate snapshot.
//
// A fetch error during a tick is transient: it is surfaced through the
// observer for visibility but does not stop the loop, since generation
// can legitimately take minutes. Only the terminal status, the attempt
// budget and the context stop the loop.
func Wait[T JobState](ctx context.Context, cfg Config, id string, fetch Fetch[T], observe Observer[T]) (Snapshot[T], error) {
	if cfg.Interval <= 0 {
		return Snapshot[T]{}, fmt.Errorf("poll interval must be positive, got %v", cfg.Interval)
	}

	terminal := cfg.Terminal
	if terminal == nil {
		terminal = DefaultTerminal
	}

	snap := Snapshot[T]{ID: id, Loading: true}
	notify := func() {
		if observe != nil {
			observe(snap)
		}
	}

	timer := time.NewTimer(cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			snap.Loading = false
			snap.Err = ctx.Err()
			notify()
			return snap, ctx.Err()
		case <-timer.C:
		}

		snap.Attempts++

		result, err := fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				snap.Loading = false
				snap.Err = ctx.Err()
				notify()
				return snap, ctx.Err()
			}

			// transient: record and keep watching
			log.Ctx(ctx).Debug().Err(err).Str("job", id).Int("attempt", snap.Attempts).
				Msg("status fetch failed, continuing")
			snap.Err = err
			notify()
		} else {
			snap.Result = result
			snap.Status = result.JobStatus()
			snap.Err = nil

			if terminal(snap.Status) {
				snap.Loading = false
				if snap.Status == StatusFailed {
					snap.Err = &FailedError{Message: result.JobError()}
				}
				notify()
				return snap, snap.Err
			}
			notify()
		}

		if cfg.MaxAttempts > 0 && snap.Attempts >= cfg.MaxAttempts {
			snap.Loading = false
			snap.Err = ErrTimeout
			notify()
			return snap, ErrTimeout
		}

		timer.Reset(cfg.Interval)
	}
}

package handler

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/vgarvardt/gue/v5"
)

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, amessages.Message, string) error
}

// Opts for the job handler
type Opts[TM any] struct {
	backoff     gue.Backoff
	timeout     time.Duration
	maxAttempts int32
}

// Create wraps a typed job func into gue.WorkFunc.
// Job args are decoded into TM, failed jobs are rescheduled until maxAttempts is reached
func Create[TM any, SD any](data *SD, hf func(context.Context, *TM, *SD) error, opts *Opts[TM]) gue.WorkFunc {
	if opts == nil {
		goapp.Log.Panic().Msg("no opts provided")
	}
	return func(ctx context.Context, j *gue.Job) error {
		goapp.Log.Info().Str("queue", j.Queue).Str("type", j.Type).Int32("errCount", j.ErrorCount).Msg("got job")

		var m TM
		if err := json.Unmarshal(j.Args, &m); err != nil {
			goapp.Log.Error().Err(err).Str("type", j.Type).Msg("drop job")
			return nil
		}
		wrkCtx, cf := context.WithTimeout(ctx, opts.timeout)
		defer cf()
		err := hf(wrkCtx, &m, data)
		if err == nil {
			return nil
		}
		goapp.Log.Warn().Err(err).Str("queue", j.Queue).Str("type", j.Type).Int32("errCount", j.ErrorCount).Msg("fail")
		if j.ErrorCount+1 >= opts.maxAttempts {
			goapp.Log.Error().Str("type", j.Type).Int32("errCount", j.ErrorCount).Msg("giving up")
			return nil
		}
		delay := opts.backoff(int(j.ErrorCount + 1))
		goapp.Log.Info().Str("type", j.Type).Dur("after", delay).Msg("retry after")
		return gue.ErrRescheduleJobIn(delay, err.Error())
	}
}

// DefaultOpts returns opts with 1 min timeout, 5 attempts and jittered backoff
func DefaultOpts[TM any]() *Opts[TM] {
	return &Opts[TM]{timeout: time.Minute, maxAttempts: 5, backoff: DefaultBackoff()}
}

// DefaultBackoff grows linearly by 10s with full jitter
func DefaultBackoff() gue.Backoff {
	return func(retries int) time.Duration {
		return fullJitter(time.Duration(retries) * time.Second * 10)
	}
}

// NoBackoff retries immediately
func NoBackoff() gue.Backoff {
	return func(retries int) time.Duration {
		return 0
	}
}

// DefaultBackoffOrTest returns NoBackoff for tests
func DefaultBackoffOrTest(test bool) gue.Backoff {
	if test {
		return NoBackoff()
	}
	return DefaultBackoff()
}

func (o *Opts[TM]) WithTimeout(timeout time.Duration) *Opts[TM] {
	o.timeout = timeout
	return o
}

func (o *Opts[TM]) WithBackoff(b gue.Backoff) *Opts[TM] {
	o.backoff = b
	return o
}

func (o *Opts[TM]) WithMaxAttempts(n int32) *Opts[TM] {
	o.maxAttempts = n
	return o
}

// fullJitter return randomized duration in interval [0, t)
func fullJitter(t time.Duration) time.Duration {
	return time.Duration(float64(t) * rand.Float64())
}


package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/messages"
	"github.com/airenas/scribe/internal/pkg/utils"
	"github.com/airenas/scribe/internal/pkg/utils/handler"
	"github.com/vgarvardt/gue/v5"
)

// Filer removes stored audio artifacts
type Filer interface {
	Clean(ctx context.Context, id string) error
}

// ServiceData keeps data required for service work
type ServiceData struct {
	GueClient   *gue.Client
	WorkerCount int
	Filer       Filer
	Testing     bool
}

// StartWorkerService starts the queue listener,
// returns channel for tracking if all jobs are finished
func StartWorkerService(ctx context.Context, data *ServiceData) (chan struct{}, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	goapp.Log.Info().Int("workers", data.WorkerCount).Msg("Starting listen for messages")
	if data.Testing {
		goapp.Log.Warn().Msg("SERVICE IN TEST MODE")
	}

	pool, err := gue.NewWorkerPool(
		data.GueClient, workMap(data), data.WorkerCount,
		gue.WithPoolQueue(messages.Work),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter("worker")),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("scribe-worker"),
	)
	if err != nil {
		return nil, fmt.Errorf("could not build gue workers pool: %w", err)
	}
	res := make(chan struct{}, 1)
	go func() {
		goapp.Log.Info().Msg("Starting workers")
		if err := pool.Run(ctx); err != nil {
			goapp.Log.Error().Err(err).Msg("pool error")
		}
		goapp.Log.Info().Msg("Pool workers finished")
		res <- struct{}{}
	}()
	return res, nil
}

func workMap(data *ServiceData) gue.WorkMap {
	return gue.WorkMap{
		messages.CleanAudio: handler.Create(data, handleCleanAudio, handler.DefaultOpts[messages.CleanMessage]().
			WithBackoff(handler.DefaultBackoffOrTest(data.Testing))),
	}
}

func handleCleanAudio(ctx context.Context, m *messages.CleanMessage, data *ServiceData) error {
	if m.ID == "" {
		goapp.Log.Warn().Msg("no ID, skip")
		return nil
	}
	goapp.Log.Info().Str("ID", m.ID).Str("owner", m.Owner).Str("audio", m.AudioURL).Msg("clean audio")
	if err := data.Filer.Clean(ctx, m.ID); err != nil {
		return fmt.Errorf("can't clean audio: %w", err)
	}
	return nil
}

func validate(data *ServiceData) error {
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.WorkerCount < 1 {
		return fmt.Errorf("no worker count provided")
	}
	if data.Filer == nil {
		return fmt.Errorf("no filer")
	}
	return nil
}

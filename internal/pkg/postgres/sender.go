package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vgarvardt/gue/v5"
	"github.com/vgarvardt/gue/v5/adapter/pgxv5"
)

// Sender enqueues jobs into the gue queue table
type Sender struct {
	gc    *gue.Client
	queue string
}

// NewSender initializes gue sender, all jobs go to the provided queue
func NewSender(pool *pgxpool.Pool, queue string) (*Sender, error) {
	if queue == "" {
		return nil, fmt.Errorf("no queue")
	}
	gc, err := gue.NewClient(pgxv5.NewConnPool(pool))
	if err != nil {
		return nil, fmt.Errorf("can't init gue: %w", err)
	}
	return &Sender{gc: gc, queue: queue}, nil
}

// SendMessage enqueues msg as a job of type jobType
func (sender *Sender) SendMessage(ctx context.Context, msg messages.Message, jobType string) error {
	goapp.Log.Debug().Str("queue", sender.queue).Str("type", jobType).Msg("Sending message")
	args, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("can't marshal msg: %w", err)
	}

	j := &gue.Job{
		Type:  jobType,
		Queue: sender.queue,
		Args:  args,
	}
	if err := sender.gc.Enqueue(ctx, j); err != nil {
		return fmt.Errorf("can't send msg to %s: %w", sender.queue, err)
	}
	goapp.Log.Debug().Str("type", jobType).Msg("Sent")
	return nil
}

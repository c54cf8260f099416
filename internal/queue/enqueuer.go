package queue

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"

	"github.com/petalcrumb/pos-engine/internal/printer"
)

// Enqueuer hands tasks to the worker through redis.
type Enqueuer struct {
	Client *asynq.Client
}

// EnqueueReceiptPrint queues one receipt job. The task id is derived from the
// order id so a retried submit does not print twice.
func (e *Enqueuer) EnqueueReceiptPrint(ctx context.Context, job printer.Job) error {
	if e == nil || e.Client == nil {
		return errors.New("queue: task client not configured")
	}
	task, err := NewReceiptPrintTask(job)
	if err != nil {
		return err
	}
	_, err = e.Client.EnqueueContext(ctx, task,
		asynq.Queue(QueuePrinting),
		asynq.TaskID("receipt:"+job.OrderID),
		asynq.Retention(24*time.Hour),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

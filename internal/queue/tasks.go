// Package queue defines the asynq tasks exchanged between the API and the worker.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/petalcrumb/pos-engine/internal/printer"
)

const (
	// TaskTypeReceiptPrint renders a receipt on the counter printer.
	TaskTypeReceiptPrint = "receipt:print"

	// QueuePrinting is the asynq queue receipt jobs land on.
	QueuePrinting = "printing"
)

// NewReceiptPrintTask builds the print task for one submitted order.
func NewReceiptPrintTask(job printer.Job) (*asynq.Task, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("queue: encode receipt job: %w", err)
	}
	return asynq.NewTask(TaskTypeReceiptPrint, payload,
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	), nil
}

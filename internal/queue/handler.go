package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/petalcrumb/pos-engine/internal/obs"
	"github.com/petalcrumb/pos-engine/internal/printer"
)

// ReceiptHandler processes receipt print tasks on the worker.
type ReceiptHandler struct {
	Printer printer.Client
}

// ProcessTask implements asynq.Handler.
func (h *ReceiptHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if h.Printer == nil {
		return errors.New("queue: printer client not configured")
	}
	var job printer.Job
	if err := json.Unmarshal(t.Payload(), &job); err != nil {
		// A payload we cannot decode will never decode; drop it.
		return fmt.Errorf("queue: decode receipt job: %v: %w", err, asynq.SkipRetry)
	}
	if err := h.Printer.Print(ctx, job); err != nil {
		countReceiptJob("error")
		return fmt.Errorf("queue: print receipt %s: %w", job.OrderNumber, err)
	}
	countReceiptJob("ok")
	return nil
}

// NewMux routes task types to their handlers.
func NewMux(receipts *ReceiptHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TaskTypeReceiptPrint, receipts)
	return mux
}

func countReceiptJob(result string) {
	if obs.ReceiptJobsTotal == nil {
		return
	}
	obs.ReceiptJobsTotal.WithLabelValues(result).Inc()
}

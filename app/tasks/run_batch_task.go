package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/seorab/blogpace/app/challenge"
)

type RunBatchTask struct {
	Task
	processor *challenge.Processor
}

func NewRunBatchTask(processor *challenge.Processor) *RunBatchTask {
	return &RunBatchTask{
		Task:      NewTask(TaskTypeRunBatch, ""),
		processor: processor,
	}
}

func (t *RunBatchTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	summary, err := t.processor.ProcessAll(ctx)
	if err != nil {
		return fmt.Errorf("batch run failed: %w", err)
	}

	slog.Info("Task completed",
		"type", "RunBatch",
		"duration", t.GetDuration(),
		"succeeded", summary.Succeeded,
		"failed", summary.Failed)

	return nil
}

package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/seorab/blogpace/app/challenge"
)

type RefreshParticipantTask struct {
	Task
	processor *challenge.Processor
}

func NewRefreshParticipantTask(participantName string, processor *challenge.Processor) *RefreshParticipantTask {
	return &RefreshParticipantTask{
		Task:      NewTask(TaskTypeRefreshParticipant, participantName),
		processor: processor,
	}
}

func (t *RefreshParticipantTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.processor.Refresh(ctx, t.ParticipantName); err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	slog.Info("Task completed",
		"type", "RefreshParticipant",
		"participant", t.ParticipantName,
		"duration", t.GetDuration())

	return nil
}

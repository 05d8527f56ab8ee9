package responder

import (
	"context"

	"github.com/famedu/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
)

// QueueRecorder records task lifecycle transitions in the Redis task
// registry. Recording failures are logged and swallowed; observability never
// blocks a reply.
type QueueRecorder struct {
	queue  *taskqueue.Service
	logger *zap.Logger
}

func NewQueueRecorder(queue *taskqueue.Service, logger *zap.Logger) *QueueRecorder {
	return &QueueRecorder{queue: queue, logger: logger}
}

func (r *QueueRecorder) TaskDispatched(ctx context.Context, chatID, messageID string) string {
	task, err := r.queue.Create(ctx, chatID, messageID)
	if err != nil {
		r.logger.Warn("record task dispatch failed", zap.String("chat_id", chatID), zap.Error(err))
		return ""
	}
	if err := r.queue.UpdateStatus(ctx, task.ID, taskqueue.TaskRunning, nil, ""); err != nil {
		r.logger.Warn("record task running failed", zap.String("task_id", task.ID), zap.Error(err))
	}
	return task.ID
}

func (r *QueueRecorder) TaskFinished(ctx context.Context, taskID string, outcome TaskOutcome, result TaskResult, errMsg string) {
	var status taskqueue.TaskStatus
	switch outcome {
	case OutcomeCommitted:
		status = taskqueue.TaskCompleted
	case OutcomeStale:
		status = taskqueue.TaskStale
	default:
		status = taskqueue.TaskFailed
	}
	if err := r.queue.UpdateStatus(ctx, taskID, status, result, errMsg); err != nil {
		r.logger.Warn("record task finish failed", zap.String("task_id", taskID), zap.Error(err))
	}
}

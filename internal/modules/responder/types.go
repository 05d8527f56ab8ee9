package responder

import (
	"context"
	"errors"

	"github.com/famedu/core/internal/models"
)

const (
	// ContextSeparator joins the raw texts of a burst inside the pending
	// context, in arrival order.
	ContextSeparator = "\n\n\n"

	// suspendThreshold is the machine score below which a chat is
	// automatically suspended. Only an explicitly parsed score counts;
	// an unparseable score never suspends.
	suspendThreshold = 0.5
)

var errChatNotFound = errors.New("chat not found")

// Generator produces a raw automated reply for the accumulated context.
// The call may block arbitrarily long; the coordinator enforces no timeout
// and sends no cancellation, but the context parameter leaves room for a
// future bound without an API change.
type Generator interface {
	Generate(ctx context.Context, contextText, parentID, chatID string) (string, error)
}

// Summarizer is the downstream profile collaborator, invoked after each
// committed reply. Implementations log their own failures; nothing here
// rolls back on summarizer errors.
type Summarizer interface {
	SummarizeInteraction(parentID, chatID string)
	SummarizeAggregate(parentID string)
}

// Store is the persistence boundary the coordinator consumes. The pending
// context itself never touches it; only committed output, placeholders and
// the moderation status do.
type Store interface {
	ChatStatus(chatID string) (models.ChatStatus, error)
	SuspendChat(chatID string) error
	CreatePlaceholder(chatID string) error
	AppendReplies(chatID string, segments []string, machineScore float64) error
	DeletePlaceholders(chatID string) error
}

// TaskOutcome is the terminal state of one generation task.
type TaskOutcome string

const (
	OutcomeCommitted TaskOutcome = "committed"
	OutcomeStale     TaskOutcome = "stale"
	OutcomeFailed    TaskOutcome = "failed"
)

// TaskResult carries the timings a finished task reports, making the
// staleness window observable from outside.
type TaskResult struct {
	WaitMS     int64   `json:"wait_ms"`     // dispatch → resolution attempt
	GenerateMS int64   `json:"generate_ms"` // time inside the generator call
	Score      float64 `json:"score,omitempty"`
	Segments   int     `json:"segments,omitempty"`
}

// TaskRecorder records task lifecycle transitions for observability.
// A nil recorder disables recording.
type TaskRecorder interface {
	TaskDispatched(ctx context.Context, chatID, messageID string) string
	TaskFinished(ctx context.Context, taskID string, outcome TaskOutcome, result TaskResult, errMsg string)
}

// Events receives notifications about committed output. A nil Events
// disables notifications.
type Events interface {
	ReplyCommitted(chatID string, segments []string, machineScore float64)
	ChatSuspended(chatID string)
}

// DispatchRequest is the trigger handed over by the message-ingestion
// boundary for every persisted message.
type DispatchRequest struct {
	ChatID         string
	MessageID      string
	SenderID       string
	Content        string
	SenderIsParent bool
	Suspended      bool
}

// StatsSnapshot is a point-in-time view of the coordinator counters.
type StatsSnapshot struct {
	Dispatched        int64 `json:"dispatched"`
	Committed         int64 `json:"committed"`
	Discarded         int64 `json:"discarded"`
	Failed            int64 `json:"failed"`
	LastResolveWaitMS int64 `json:"last_resolve_wait_ms"`
}

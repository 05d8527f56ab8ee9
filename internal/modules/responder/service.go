package responder

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Service is the single-flight generation coordinator. Every parent message
// dispatches one goroutine; only the goroutine whose snapshot is still
// current when generation returns commits its reply.
//
// Under continuous arrivals every snapshot can be superseded before its task
// completes, so no reply lands until arrivals pause. That starvation window
// is the accepted cost of answering the freshest context instead of every
// message; Stats and the task recorder expose how long tasks waited so the
// window can be watched.
type Service struct {
	pending  *PendingStore
	store    Store
	gen      Generator
	sum      Summarizer
	recorder TaskRecorder
	events   Events
	logger   *zap.Logger

	dispatched        atomic.Int64
	committed         atomic.Int64
	discarded         atomic.Int64
	failed            atomic.Int64
	lastResolveWaitMS atomic.Int64
}

// Option configures optional collaborators.
type Option func(*Service)

func WithTaskRecorder(r TaskRecorder) Option { return func(s *Service) { s.recorder = r } }
func WithSummarizer(sum Summarizer) Option   { return func(s *Service) { s.sum = sum } }
func WithEvents(ev Events) Option            { return func(s *Service) { s.events = ev } }

func NewService(store Store, gen Generator, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		pending: NewPendingStore(),
		store:   store,
		gen:     gen,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch appends the message to the chat's pending context and spawns a
// generation task, unless the sender is not a parent or the chat is
// suspended. It returns immediately; generation failures are never surfaced
// to the submitter. The returned bool reports whether a task was spawned.
func (s *Service) Dispatch(req DispatchRequest) bool {
	if !req.SenderIsParent || req.Suspended {
		return false
	}

	s.pending.Append(req.ChatID, req.Content)

	// Placeholder failures must not block generation; the pending context
	// is already updated and a reply can still be committed.
	if err := s.store.CreatePlaceholder(req.ChatID); err != nil {
		s.logger.Warn("create placeholder failed", zap.String("chat_id", req.ChatID), zap.Error(err))
	}

	snap, ok := s.pending.Snapshot(req.ChatID)
	if !ok {
		// Another task resolved the entry between Append and Snapshot;
		// its commit covered this message's text.
		return false
	}

	var taskID string
	if s.recorder != nil {
		taskID = s.recorder.TaskDispatched(context.Background(), req.ChatID, req.MessageID)
	}
	s.dispatched.Add(1)

	go s.run(req, snap, taskID, time.Now())
	return true
}

func (s *Service) run(req DispatchRequest, snap Snapshot, taskID string, dispatchedAt time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.failed.Add(1)
			s.logger.Error("generation task panicked",
				zap.String("chat_id", req.ChatID),
				zap.Any("panic", r),
			)
		}
	}()

	genStart := time.Now()
	raw, err := s.gen.Generate(context.Background(), snap.Text, req.SenderID, req.ChatID)
	genDur := time.Since(genStart)

	result := TaskResult{
		GenerateMS: genDur.Milliseconds(),
		WaitMS:     time.Since(dispatchedAt).Milliseconds(),
	}

	if err != nil {
		// Pending context and placeholder stay intact so a later message
		// (or manual retry) can still produce a reply.
		s.failed.Add(1)
		s.finishTask(taskID, OutcomeFailed, result, err.Error())
		s.logger.Warn("generation failed",
			zap.String("chat_id", req.ChatID),
			zap.String("message_id", req.MessageID),
			zap.Error(err),
		)
		return
	}

	if !s.pending.ResolveIfCurrent(req.ChatID, snap.Version) {
		// Newer input arrived (or a fresher task already resolved the
		// entry). Exit without side effects; the task dispatched by the
		// newest message owns the burst now.
		s.discarded.Add(1)
		s.finishTask(taskID, OutcomeStale, result, "")
		s.logger.Info("有新消息来了，忽略当前回复",
			zap.String("chat_id", req.ChatID),
			zap.String("message_id", req.MessageID),
		)
		return
	}
	s.lastResolveWaitMS.Store(result.WaitMS)

	s.commit(req, raw, taskID, result)
}

func (s *Service) commit(req DispatchRequest, raw, taskID string, result TaskResult) {
	reply, score, scored := extractScore(raw)
	if !scored {
		s.logger.Info("no machine score in reply", zap.String("chat_id", req.ChatID))
	} else {
		s.logger.Info("machine score", zap.String("chat_id", req.ChatID), zap.Float64("score", score))
	}

	if scored && score < suspendThreshold {
		if err := s.store.SuspendChat(req.ChatID); err != nil {
			if errors.Is(err, errChatNotFound) {
				s.finishTask(taskID, OutcomeFailed, result, err.Error())
				s.logger.Warn("chat vanished before suspend", zap.String("chat_id", req.ChatID))
				return
			}
			s.logger.Error("suspend chat failed", zap.String("chat_id", req.ChatID), zap.Error(err))
		} else if s.events != nil {
			s.events.ChatSuspended(req.ChatID)
		}
	}

	segments := splitSegments(reply)
	if err := s.store.AppendReplies(req.ChatID, segments, score); err != nil {
		s.failed.Add(1)
		s.finishTask(taskID, OutcomeFailed, result, err.Error())
		s.logger.Error("persist reply failed", zap.String("chat_id", req.ChatID), zap.Error(err))
		return
	}

	if err := s.store.DeletePlaceholders(req.ChatID); err != nil {
		s.logger.Warn("placeholder cleanup failed", zap.String("chat_id", req.ChatID), zap.Error(err))
	}

	s.committed.Add(1)
	result.Score = score
	result.Segments = len(segments)
	s.finishTask(taskID, OutcomeCommitted, result, "")

	if s.events != nil {
		s.events.ReplyCommitted(req.ChatID, segments, score)
	}
	if s.sum != nil {
		go s.sum.SummarizeInteraction(req.SenderID, req.ChatID)
		go s.sum.SummarizeAggregate(req.SenderID)
	}
}

func (s *Service) finishTask(taskID string, outcome TaskOutcome, result TaskResult, errMsg string) {
	if s.recorder == nil || taskID == "" {
		return
	}
	s.recorder.TaskFinished(context.Background(), taskID, outcome, result, errMsg)
}

// Stats returns a snapshot of the coordinator counters.
func (s *Service) Stats() StatsSnapshot {
	return StatsSnapshot{
		Dispatched:        s.dispatched.Load(),
		Committed:         s.committed.Load(),
		Discarded:         s.discarded.Load(),
		Failed:            s.failed.Load(),
		LastResolveWaitMS: s.lastResolveWaitMS.Load(),
	}
}

// Pending exposes the pending-context store for the ingestion boundary and
// for tests.
func (s *Service) Pending() *PendingStore { return s.pending }

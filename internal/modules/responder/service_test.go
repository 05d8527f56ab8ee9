package responder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/famedu/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// blockingGenerator hands each Generate call to the test through a channel so
// completion order can be scripted.
type blockingGenerator struct {
	calls chan *genCall
}

type genCall struct {
	contextText string
	reply       chan genReply
}

type genReply struct {
	text string
	err  error
}

func newBlockingGenerator() *blockingGenerator {
	return &blockingGenerator{calls: make(chan *genCall, 16)}
}

func (g *blockingGenerator) Generate(_ context.Context, contextText, _, _ string) (string, error) {
	call := &genCall{contextText: contextText, reply: make(chan genReply)}
	g.calls <- call
	r := <-call.reply
	return r.text, r.err
}

func (g *blockingGenerator) next(t *testing.T) *genCall {
	t.Helper()
	select {
	case call := <-g.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a Generate call")
		return nil
	}
}

type commitRecord struct {
	segments []string
	score    float64
}

type memStore struct {
	mu           sync.Mutex
	placeholders int
	deletions    int
	commits      []commitRecord
	suspended    []string
	suspendErr   error
	appendErr    error
}

func (m *memStore) ChatStatus(string) (models.ChatStatus, error) { return models.ChatUnreviewed, nil }

func (m *memStore) SuspendChat(chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.suspendErr != nil {
		return m.suspendErr
	}
	m.suspended = append(m.suspended, chatID)
	return nil
}

func (m *memStore) CreatePlaceholder(string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.placeholders++
	return nil
}

func (m *memStore) AppendReplies(_ string, segments []string, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.commits = append(m.commits, commitRecord{segments: segments, score: score})
	return nil
}

func (m *memStore) DeletePlaceholders(string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletions++
	return nil
}

func (m *memStore) snapshot() (placeholders, deletions int, commits []commitRecord, suspended []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.placeholders, m.deletions, append([]commitRecord(nil), m.commits...), append([]string(nil), m.suspended...)
}

// memRecorder turns TaskFinished into a channel so tests can await task
// completion without polling.
type memRecorder struct {
	mu       sync.Mutex
	nextID   int
	finished chan finishedTask
}

type finishedTask struct {
	taskID  string
	outcome TaskOutcome
	result  TaskResult
	errMsg  string
}

func newMemRecorder() *memRecorder {
	return &memRecorder{finished: make(chan finishedTask, 16)}
}

func (r *memRecorder) TaskDispatched(context.Context, string, string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	return fmt.Sprintf("task-%d", r.nextID)
}

func (r *memRecorder) TaskFinished(_ context.Context, taskID string, outcome TaskOutcome, result TaskResult, errMsg string) {
	r.finished <- finishedTask{taskID: taskID, outcome: outcome, result: result, errMsg: errMsg}
}

func (r *memRecorder) await(t *testing.T) finishedTask {
	t.Helper()
	select {
	case ft := <-r.finished:
		return ft
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a task to finish")
		return finishedTask{}
	}
}

type memSummarizer struct {
	mu           sync.Mutex
	interactions int
	aggregates   int
}

func (m *memSummarizer) SummarizeInteraction(string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interactions++
}

func (m *memSummarizer) SummarizeAggregate(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aggregates++
}

type memEvents struct {
	mu        sync.Mutex
	committed []commitRecord
	suspended []string
}

func (m *memEvents) ReplyCommitted(_ string, segments []string, score float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed = append(m.committed, commitRecord{segments: segments, score: score})
}

func (m *memEvents) ChatSuspended(chatID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspended = append(m.suspended, chatID)
}

func parentMessage(chatID, messageID, content string) DispatchRequest {
	return DispatchRequest{
		ChatID:         chatID,
		MessageID:      messageID,
		SenderID:       "parent-1",
		Content:        content,
		SenderIsParent: true,
	}
}

func TestDispatchGate(t *testing.T) {
	gen := newBlockingGenerator()
	store := &memStore{}
	svc := NewService(store, gen, zap.NewNop())

	expert := parentMessage("chat-1", "m1", "专家的回复")
	expert.SenderIsParent = false
	assert.False(t, svc.Dispatch(expert), "non-parent sender must not dispatch")

	suspended := parentMessage("chat-1", "m2", "家长的消息")
	suspended.Suspended = true
	assert.False(t, svc.Dispatch(suspended), "suspended chat must not dispatch")

	placeholders, _, _, _ := store.snapshot()
	assert.Equal(t, 0, placeholders)
	if _, ok := svc.Pending().Snapshot("chat-1"); ok {
		t.Fatal("gated dispatches must not touch the pending context")
	}
	assert.Equal(t, int64(0), svc.Stats().Dispatched)
}

func TestBurstCoalescesIntoSingleCommit(t *testing.T) {
	gen := newBlockingGenerator()
	store := &memStore{}
	recorder := newMemRecorder()
	events := &memEvents{}
	svc := NewService(store, gen, zap.NewNop(), WithTaskRecorder(recorder), WithEvents(events))

	require.True(t, svc.Dispatch(parentMessage("chat-1", "m1", "A")))
	callA := gen.next(t)
	assert.Equal(t, "A", callA.contextText)

	require.True(t, svc.Dispatch(parentMessage("chat-1", "m2", "B")))
	callB := gen.next(t)
	assert.Equal(t, "A\n\n\nB", callB.contextText, "second task must see the coalesced context")

	// A finishes after B arrived, so its snapshot is stale.
	callA.reply <- genReply{text: "对A的回复<score>0.2"}
	first := recorder.await(t)
	assert.Equal(t, OutcomeStale, first.outcome)

	callB.reply <- genReply{text: "先共情。\n\n再给建议。<score>0.8"}
	second := recorder.await(t)
	assert.Equal(t, OutcomeCommitted, second.outcome)
	assert.Equal(t, 0.8, second.result.Score)
	assert.Equal(t, 2, second.result.Segments)

	placeholders, deletions, commits, suspendedChats := store.snapshot()
	assert.Equal(t, 2, placeholders)
	assert.Equal(t, 1, deletions)
	require.Len(t, commits, 1, "exactly one task of the burst commits")
	assert.Equal(t, []string{"先共情。", "再给建议。"}, commits[0].segments)
	assert.Equal(t, 0.8, commits[0].score)
	assert.Empty(t, suspendedChats, "the stale task's low score must not suspend")

	if _, ok := svc.Pending().Snapshot("chat-1"); ok {
		t.Fatal("committed burst must clear the pending context")
	}

	stats := svc.Stats()
	assert.Equal(t, int64(2), stats.Dispatched)
	assert.Equal(t, int64(1), stats.Committed)
	assert.Equal(t, int64(1), stats.Discarded)
	assert.Equal(t, int64(0), stats.Failed)

	events.mu.Lock()
	defer events.mu.Unlock()
	require.Len(t, events.committed, 1)
	assert.Equal(t, 0.8, events.committed[0].score)
}

func TestLowScoreSuspendsChat(t *testing.T) {
	gen := newBlockingGenerator()
	store := &memStore{}
	recorder := newMemRecorder()
	events := &memEvents{}
	svc := NewService(store, gen, zap.NewNop(), WithTaskRecorder(recorder), WithEvents(events))

	require.True(t, svc.Dispatch(parentMessage("chat-1", "m1", "问题")))
	gen.next(t).reply <- genReply{text: "敷衍的回复<score>0.4"}
	ft := recorder.await(t)

	assert.Equal(t, OutcomeCommitted, ft.outcome, "a low-scored reply still commits")
	_, _, commits, suspendedChats := store.snapshot()
	require.Len(t, commits, 1)
	assert.Equal(t, []string{"敷衍的回复"}, commits[0].segments)
	assert.Equal(t, []string{"chat-1"}, suspendedChats)

	events.mu.Lock()
	defer events.mu.Unlock()
	assert.Equal(t, []string{"chat-1"}, events.suspended)
}

func TestBoundaryScoreDoesNotSuspend(t *testing.T) {
	gen := newBlockingGenerator()
	store := &memStore{}
	recorder := newMemRecorder()
	svc := NewService(store, gen, zap.NewNop(), WithTaskRecorder(recorder))

	require.True(t, svc.Dispatch(parentMessage("chat-1", "m1", "问题")))
	gen.next(t).reply <- genReply{text: "刚好及格的回复<score>0.5"}
	recorder.await(t)

	_, _, _, suspendedChats := store.snapshot()
	assert.Empty(t, suspendedChats, "0.5 is not below the threshold")
}

func TestUnparseableScoreNeverSuspends(t *testing.T) {
	gen := newBlockingGenerator()
	store := &memStore{}
	recorder := newMemRecorder()
	svc := NewService(store, gen, zap.NewNop(), WithTaskRecorder(recorder))

	require.True(t, svc.Dispatch(parentMessage("chat-1", "m1", "问题")))
	gen.next(t).reply <- genReply{text: "没有评分标记的回复"}
	ft := recorder.await(t)

	assert.Equal(t, OutcomeCommitted, ft.outcome)
	assert.Equal(t, 0.0, ft.result.Score)
	_, _, commits, suspendedChats := store.snapshot()
	require.Len(t, commits, 1)
	assert.Equal(t, []string{"没有评分标记的回复"}, commits[0].segments)
	assert.Equal(t, 0.0, commits[0].score)
	assert.Empty(t, suspendedChats)
}

func TestGenerationFailureLeavesStateIntact(t *testing.T) {
	gen := newBlockingGenerator()
	store := &memStore{}
	recorder := newMemRecorder()
	svc := NewService(store, gen, zap.NewNop(), WithTaskRecorder(recorder))

	require.True(t, svc.Dispatch(parentMessage("chat-1", "m1", "问题")))
	gen.next(t).reply <- genReply{err: errors.New("provider unavailable")}
	ft := recorder.await(t)

	assert.Equal(t, OutcomeFailed, ft.outcome)
	assert.Equal(t, "provider unavailable", ft.errMsg)

	// A later message must still see the failed message's text.
	snap, ok := svc.Pending().Snapshot("chat-1")
	require.True(t, ok, "failed generation keeps the pending context")
	assert.Equal(t, "问题", snap.Text)

	placeholders, deletions, commits, _ := store.snapshot()
	assert.Equal(t, 1, placeholders)
	assert.Equal(t, 0, deletions, "placeholder stays until a reply lands")
	assert.Empty(t, commits)
	assert.Equal(t, int64(1), svc.Stats().Failed)
}

func TestRetryAfterFailureCarriesFullContext(t *testing.T) {
	gen := newBlockingGenerator()
	store := &memStore{}
	recorder := newMemRecorder()
	svc := NewService(store, gen, zap.NewNop(), WithTaskRecorder(recorder))

	require.True(t, svc.Dispatch(parentMessage("chat-1", "m1", "第一条")))
	gen.next(t).reply <- genReply{err: errors.New("timeout")}
	recorder.await(t)

	require.True(t, svc.Dispatch(parentMessage("chat-1", "m2", "第二条")))
	call := gen.next(t)
	assert.Equal(t, "第一条\n\n\n第二条", call.contextText)

	call.reply <- genReply{text: "补上的回复<score>0.9"}
	ft := recorder.await(t)
	assert.Equal(t, OutcomeCommitted, ft.outcome)

	placeholders, deletions, commits, _ := store.snapshot()
	assert.Equal(t, 2, placeholders)
	assert.Equal(t, 1, deletions)
	require.Len(t, commits, 1)
}

func TestAppendFailureRecordsFailedTask(t *testing.T) {
	gen := newBlockingGenerator()
	store := &memStore{appendErr: errors.New("db gone")}
	recorder := newMemRecorder()
	svc := NewService(store, gen, zap.NewNop(), WithTaskRecorder(recorder))

	require.True(t, svc.Dispatch(parentMessage("chat-1", "m1", "问题")))
	gen.next(t).reply <- genReply{text: "回复<score>0.9"}
	ft := recorder.await(t)

	assert.Equal(t, OutcomeFailed, ft.outcome)
	assert.Equal(t, "db gone", ft.errMsg)
	assert.Equal(t, int64(0), svc.Stats().Committed)
}

func TestSuspendOnVanishedChatAborts(t *testing.T) {
	gen := newBlockingGenerator()
	store := &memStore{suspendErr: errChatNotFound}
	recorder := newMemRecorder()
	svc := NewService(store, gen, zap.NewNop(), WithTaskRecorder(recorder))

	require.True(t, svc.Dispatch(parentMessage("chat-1", "m1", "问题")))
	gen.next(t).reply <- genReply{text: "回复<score>0.1"}
	ft := recorder.await(t)

	assert.Equal(t, OutcomeFailed, ft.outcome)
	_, _, commits, _ := store.snapshot()
	assert.Empty(t, commits, "no reply is persisted for a deleted chat")
}

func TestCommitTriggersSummaries(t *testing.T) {
	gen := newBlockingGenerator()
	store := &memStore{}
	recorder := newMemRecorder()
	sum := &memSummarizer{}
	svc := NewService(store, gen, zap.NewNop(), WithTaskRecorder(recorder), WithSummarizer(sum))

	require.True(t, svc.Dispatch(parentMessage("chat-1", "m1", "问题")))
	gen.next(t).reply <- genReply{text: "回复<score>0.7"}
	recorder.await(t)

	require.Eventually(t, func() bool {
		sum.mu.Lock()
		defer sum.mu.Unlock()
		return sum.interactions == 1 && sum.aggregates == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestIndependentChatsCommitIndependently(t *testing.T) {
	gen := newBlockingGenerator()
	store := &memStore{}
	recorder := newMemRecorder()
	svc := NewService(store, gen, zap.NewNop(), WithTaskRecorder(recorder))

	require.True(t, svc.Dispatch(parentMessage("chat-1", "m1", "甲")))
	callA := gen.next(t)
	require.True(t, svc.Dispatch(parentMessage("chat-2", "m2", "乙")))
	callB := gen.next(t)

	callA.reply <- genReply{text: "回复甲<score>0.9"}
	callB.reply <- genReply{text: "回复乙<score>0.9"}
	first := recorder.await(t)
	second := recorder.await(t)

	assert.Equal(t, OutcomeCommitted, first.outcome)
	assert.Equal(t, OutcomeCommitted, second.outcome)
	_, _, commits, _ := store.snapshot()
	assert.Len(t, commits, 2, "messages in different chats never invalidate each other")
}

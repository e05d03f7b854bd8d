// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mdelaney/nutri-tui/internal/api"
	"github.com/mdelaney/nutri-tui/internal/model"
	"github.com/mdelaney/nutri-tui/internal/storage"
)

// fakeService scripts SendChat and ChatTask responses.
type fakeService struct {
	sendOutcome api.ChatOutcome
	sendErr     error
	sendGate    chan struct{} // when set, SendChat blocks until closed
	sentHistory []model.Message

	taskResponses []taskResponse
	taskCalls     int
}

type taskResponse struct {
	status api.TaskStatus
	err    error
}

func (f *fakeService) SendChat(ctx context.Context, message string, history []model.Message) (api.ChatOutcome, error) {
	if f.sendGate != nil {
		<-f.sendGate
	}
	f.sentHistory = history
	return f.sendOutcome, f.sendErr
}

func (f *fakeService) ChatTask(ctx context.Context, taskID string) (api.TaskStatus, error) {
	if f.taskCalls >= len(f.taskResponses) {
		return api.TaskStatus{}, fmt.Errorf("unexpected ChatTask call %d", f.taskCalls+1)
	}
	r := f.taskResponses[f.taskCalls]
	f.taskCalls++
	return r.status, r.err
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := storage.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	s := NewStore(st, zerolog.Nop())
	t.Cleanup(s.Close)
	return s
}

func newTestOrchestrator(t *testing.T, svc *fakeService) (*Orchestrator, *Store) {
	t.Helper()
	store := newTestStore(t)
	poller := NewPoller(svc, zerolog.Nop()).WithInterval(time.Millisecond)
	return NewOrchestrator(svc, store, poller, zerolog.Nop()), store
}

func pending() taskResponse {
	return taskResponse{}
}

func resolved(reply string) taskResponse {
	return taskResponse{status: api.TaskStatus{Done: true, Reply: reply}}
}

func netFail() taskResponse {
	return taskResponse{err: fmt.Errorf("%w: connection refused", api.ErrNetwork)}
}

func repeat(n int, r taskResponse) []taskResponse {
	out := make([]taskResponse, n)
	for i := range out {
		out[i] = r
	}
	return out
}

func TestSendSynchronousReplyGrowsTranscriptByTwo(t *testing.T) {
	svc := &fakeService{sendOutcome: api.ChatOutcome{Reply: "drink water"}}
	orch, store := newTestOrchestrator(t, svc)

	reply, err := orch.Send(context.Background(), "  am I hydrated?  ")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if reply != "drink water" {
		t.Errorf("reply = %q", reply)
	}

	msgs := store.Messages()
	if len(msgs) != 2 {
		t.Fatalf("transcript length = %d, want 2", len(msgs))
	}
	if msgs[0].Role != model.RoleUser || msgs[0].Content != "am I hydrated?" {
		t.Errorf("user message = %+v", msgs[0])
	}
	if msgs[1].Role != model.RoleAssistant || msgs[1].Content != "drink water" {
		t.Errorf("assistant message = %+v", msgs[1])
	}
}

func TestSendCarriesHistoryFromBeforeAppend(t *testing.T) {
	svc := &fakeService{sendOutcome: api.ChatOutcome{Reply: "second"}}
	orch, store := newTestOrchestrator(t, svc)
	store.Append(model.NewUserMessage("earlier"))
	store.Append(model.NewAssistantMessage("first"))

	if _, err := orch.Send(context.Background(), "next"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// The request history must not include the message being sent.
	if len(svc.sentHistory) != 2 || svc.sentHistory[1].Content != "first" {
		t.Errorf("sent history = %+v", svc.sentHistory)
	}
}

func TestSendEmptyMessageIgnored(t *testing.T) {
	svc := &fakeService{}
	orch, store := newTestOrchestrator(t, svc)

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := orch.Send(context.Background(), text); !errors.Is(err, ErrIgnored) {
			t.Errorf("Send(%q) err = %v, want ErrIgnored", text, err)
		}
	}
	if store.Len() != 0 {
		t.Errorf("transcript length = %d, want 0", store.Len())
	}
}

func TestSendWhileInFlightIgnored(t *testing.T) {
	gate := make(chan struct{})
	svc := &fakeService{sendOutcome: api.ChatOutcome{Reply: "ok"}, sendGate: gate}
	orch, store := newTestOrchestrator(t, svc)

	firstDone := make(chan error, 1)
	go func() {
		_, err := orch.Send(context.Background(), "first")
		firstDone <- err
	}()

	// Wait until the first send holds the in-flight gate.
	deadline := time.After(time.Second)
	for !orch.Busy() {
		select {
		case <-deadline:
			t.Fatal("first send never became in-flight")
		case <-time.After(time.Millisecond):
		}
	}

	if _, err := orch.Send(context.Background(), "second"); !errors.Is(err, ErrIgnored) {
		t.Fatalf("second Send err = %v, want ErrIgnored", err)
	}

	close(gate)
	if err := <-firstDone; err != nil {
		t.Fatalf("first Send failed: %v", err)
	}

	// Only the first exchange reached the transcript.
	msgs := store.Messages()
	if len(msgs) != 2 || msgs[0].Content != "first" {
		t.Errorf("transcript = %+v", msgs)
	}
	if orch.Busy() {
		t.Error("in-flight gate not released")
	}
}

func TestDeferredReplyResolvedOnFinalAttempt(t *testing.T) {
	svc := &fakeService{
		sendOutcome:   api.ChatOutcome{TaskID: "t1", Deferred: true},
		taskResponses: append(repeat(29, pending()), resolved("here you go")),
	}
	orch, store := newTestOrchestrator(t, svc)

	reply, err := orch.Send(context.Background(), "slow question")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if reply != "here you go" {
		t.Errorf("reply = %q", reply)
	}
	if svc.taskCalls != 30 {
		t.Errorf("task checks = %d, want 30", svc.taskCalls)
	}
	if store.Len() != 2 {
		t.Errorf("transcript length = %d, want 2", store.Len())
	}
}

func TestDeferredReplyTimesOutAfterBudget(t *testing.T) {
	svc := &fakeService{
		sendOutcome:   api.ChatOutcome{TaskID: "t1", Deferred: true},
		taskResponses: repeat(30, pending()),
	}
	orch, store := newTestOrchestrator(t, svc)

	_, err := orch.Send(context.Background(), "slow question")
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("err = %v, want ErrTimedOut", err)
	}
	if svc.taskCalls != 30 {
		t.Errorf("task checks = %d, want exactly the budget", svc.taskCalls)
	}

	// The user message stays; no assistant message is fabricated.
	msgs := store.Messages()
	if len(msgs) != 1 || msgs[0].Role != model.RoleUser {
		t.Errorf("transcript = %+v", msgs)
	}
}

func TestNetworkFailuresShareThePollBudget(t *testing.T) {
	// Alternate transient failures with still-running answers: both
	// spend the same budget, so the watch still ends after 30 checks.
	responses := make([]taskResponse, 0, 30)
	for i := 0; i < 15; i++ {
		responses = append(responses, netFail(), pending())
	}
	svc := &fakeService{
		sendOutcome:   api.ChatOutcome{TaskID: "t1", Deferred: true},
		taskResponses: responses,
	}
	orch, _ := newTestOrchestrator(t, svc)

	_, err := orch.Send(context.Background(), "question")
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("err = %v, want ErrTimedOut", err)
	}
	if svc.taskCalls != 30 {
		t.Errorf("task checks = %d, want 30", svc.taskCalls)
	}
}

func TestPollAbortsOnSessionExpiry(t *testing.T) {
	svc := &fakeService{
		sendOutcome: api.ChatOutcome{TaskID: "t1", Deferred: true},
		taskResponses: []taskResponse{
			pending(),
			{err: api.ErrSessionExpired},
		},
	}
	orch, _ := newTestOrchestrator(t, svc)

	_, err := orch.Send(context.Background(), "question")
	if !errors.Is(err, api.ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if svc.taskCalls != 2 {
		t.Errorf("task checks = %d, want 2", svc.taskCalls)
	}
}

func TestPollHonorsCancellationBetweenAttempts(t *testing.T) {
	svc := &fakeService{taskResponses: repeat(30, pending())}
	poller := NewPoller(svc, zerolog.Nop()).WithInterval(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	result := poller.Poll(ctx, "t1")
	if result.Outcome != PollFailed || !errors.Is(result.Err, context.Canceled) {
		t.Fatalf("result = %+v, want canceled failure", result)
	}
	if svc.taskCalls != 0 {
		t.Errorf("task checks after cancel = %d, want 0", svc.taskCalls)
	}
}

func TestSendFailureKeepsUserMessage(t *testing.T) {
	svc := &fakeService{sendErr: fmt.Errorf("%w: connection refused", api.ErrNetwork)}
	orch, store := newTestOrchestrator(t, svc)

	_, err := orch.Send(context.Background(), "hello")
	if !errors.Is(err, api.ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}

	msgs := store.Messages()
	if len(msgs) != 1 || msgs[0].Content != "hello" {
		t.Errorf("transcript = %+v", msgs)
	}
	if orch.Busy() {
		t.Error("in-flight gate not released after failure")
	}
}

func TestStoreTranscriptSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	st, err := storage.Open(filepath.Join(dir, "state.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	first := NewStore(st, zerolog.Nop())
	first.Append(model.NewUserMessage("hi"))
	first.Append(model.NewAssistantMessage("hello there"))
	first.Close() // flushes

	second := NewStore(st, zerolog.Nop())
	defer second.Close()
	msgs := second.Messages()
	if len(msgs) != 2 || msgs[0].Content != "hi" || msgs[1].Content != "hello there" {
		t.Errorf("restored transcript = %+v", msgs)
	}
}

func TestStoreCorruptTranscriptDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	st, err := storage.Open(filepath.Join(dir, "state.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if err := st.Set(storage.KeyChatHistory, "{not json"); err != nil {
		t.Fatal(err)
	}

	s := NewStore(st, zerolog.Nop())
	defer s.Close()
	if s.Len() != 0 {
		t.Errorf("transcript length = %d, want 0", s.Len())
	}
}

// fakeRemote records the server-side transcript mirror.
type fakeRemote struct {
	mu      sync.Mutex
	history []model.Message
	saves   int
	loadErr error
	saveErr error
}

func (f *fakeRemote) ChatHistory(ctx context.Context) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	out := make([]model.Message, len(f.history))
	copy(out, f.history)
	return out, nil
}

func (f *fakeRemote) SaveChatHistory(ctx context.Context, history []model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.history = make([]model.Message, len(history))
	copy(f.history, history)
	f.saves++
	return nil
}

func (f *fakeRemote) saved() []model.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Message, len(f.history))
	copy(out, f.history)
	return out
}

func TestStoreSyncReplacesLocalWholesale(t *testing.T) {
	st, err := storage.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.Set(storage.KeyChatHistory, `[{"role":"user","content":"stale local"}]`); err != nil {
		t.Fatal(err)
	}

	remote := &fakeRemote{history: []model.Message{
		model.NewUserMessage("one"),
		model.NewAssistantMessage("two"),
		model.NewUserMessage("three"),
	}}
	s := NewStore(st, zerolog.Nop()).WithRemote(remote)
	t.Cleanup(s.Close)

	if s.Len() != 1 {
		t.Fatalf("preloaded transcript length = %d, want 1", s.Len())
	}
	if err := s.Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != 3 || msgs[0].Content != "one" || msgs[2].Content != "three" {
		t.Errorf("transcript after sync = %+v", msgs)
	}
}

func TestStoreSyncFailureKeepsLocalMirror(t *testing.T) {
	remote := &fakeRemote{loadErr: fmt.Errorf("%w: refused", api.ErrNetwork)}
	s := newTestStore(t).WithRemote(remote)
	s.Append(model.NewUserMessage("kept"))

	if err := s.Sync(context.Background()); err == nil {
		t.Fatal("Sync should report the fetch failure")
	}
	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].Content != "kept" {
		t.Errorf("transcript after failed sync = %+v", msgs)
	}
}

func TestStoreAppendMirrorsFullSequenceToServer(t *testing.T) {
	remote := &fakeRemote{}
	s := newTestStore(t).WithRemote(remote)

	s.Append(model.NewUserMessage("hi"))
	s.Append(model.NewAssistantMessage("hello"))
	s.Close() // flushes both mirrors

	saved := remote.saved()
	if len(saved) != 2 || saved[0].Content != "hi" || saved[1].Content != "hello" {
		t.Errorf("server mirror = %+v", saved)
	}
}

func TestStorePersistFailureIsCountedNotFatal(t *testing.T) {
	st, err := storage.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatal(err)
	}

	s := NewStore(st, zerolog.Nop())
	st.Close() // writes from here on fail

	s.Append(model.NewUserMessage("hi"))
	s.Close() // flushes, write fails

	if s.PersistFailures() == 0 {
		t.Error("persist failure not counted")
	}
	// The in-memory transcript is unaffected.
	if s.Len() != 1 {
		t.Errorf("transcript length = %d, want 1", s.Len())
	}
}

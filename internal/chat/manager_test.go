package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/okidwi/chathub/internal/llm"
)

type stubCompleter struct {
	reply string
	err   error

	calls int
	got   []llm.Message
}

func (s *stubCompleter) Complete(_ context.Context, _ string, messages []llm.Message, _ llm.Options) (string, error) {
	s.calls++
	s.got = append([]llm.Message(nil), messages...)
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func newTestManager(stub *stubCompleter, opts ...Option) *Manager {
	opts = append(opts, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return NewManager(stub, "gemma3:4b", opts...)
}

func TestSubmitBlankInputIsNoOp(t *testing.T) {
	stub := &stubCompleter{reply: "hello"}
	m := newTestManager(stub)

	for _, input := range []string{"", "   ", "\n\t  "} {
		msg, err := m.Submit(context.Background(), input)
		if err != nil {
			t.Errorf("Submit(%q) error: %v", input, err)
		}
		if msg != nil {
			t.Errorf("Submit(%q) returned a message, want nil", input)
		}
	}

	if stub.calls != 0 {
		t.Errorf("backend called %d times for blank input, want 0", stub.calls)
	}
	if len(m.Transcript()) != 0 {
		t.Error("transcript should stay empty after blank input")
	}
	if len(m.History()) != 0 {
		t.Error("history should stay empty after blank input")
	}
}

func TestSubmitAppendsTurnAndHistory(t *testing.T) {
	stub := &stubCompleter{reply: "Hi there!"}
	now := time.Date(2025, 6, 14, 9, 30, 12, 0, time.UTC)
	m := newTestManager(stub, WithClock(func() time.Time { return now }))

	msg, err := m.Submit(context.Background(), "  hello  ")
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if msg == nil || msg.Content != "Hi there!" {
		t.Fatalf("Submit returned %+v, want assistant reply", msg)
	}

	transcript := m.Transcript()
	if len(transcript) != 2 {
		t.Fatalf("transcript has %d messages, want 2", len(transcript))
	}
	if transcript[0].Role != RoleUser || transcript[0].Content != "  hello  " {
		t.Errorf("first message = %+v, want the user text verbatim", transcript[0])
	}
	if transcript[1].Role != RoleAssistant {
		t.Errorf("second message role = %q, want assistant", transcript[1].Role)
	}

	history := m.History()
	if len(history) != 1 {
		t.Fatalf("history has %d entries, want 1", len(history))
	}
	entry := history[0]
	if entry.Timestamp != "2025-06-14 09:30:12" {
		t.Errorf("Timestamp = %q", entry.Timestamp)
	}
	if entry.Model != "gemma3:4b" || entry.User != "  hello  " || entry.Assistant != "Hi there!" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.ResponseLength == nil || *entry.ResponseLength != len("Hi there!") {
		t.Errorf("ResponseLength = %v, want %d", entry.ResponseLength, len("Hi there!"))
	}
	if entry.ResponseTime == nil {
		t.Error("entry should record the backend round-trip time")
	}
}

func TestSubmitWindowsContext(t *testing.T) {
	stub := &stubCompleter{reply: "ok"}
	m := newTestManager(stub)

	// 6 full turns make 12 transcript messages; the 7th submit must see
	// only the trailing 10 including itself.
	for i := 0; i < 6; i++ {
		if _, err := m.Submit(context.Background(), fmt.Sprintf("message %d", i)); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := m.Submit(context.Background(), "latest"); err != nil {
		t.Fatal(err)
	}

	if len(stub.got) != 10 {
		t.Fatalf("backend got %d messages, want 10", len(stub.got))
	}
	last := stub.got[len(stub.got)-1]
	if last.Role != llm.RoleUser || last.Content != "latest" {
		t.Errorf("last context message = %+v, want the new user message", last)
	}
	// Window preserves transcript order: the first windowed message is the
	// 4th transcript message (index 3), which is "ok" from turn 2.
	first := stub.got[0]
	if first.Role != llm.RoleAssistant || first.Content != "ok" {
		t.Errorf("first context message = %+v", first)
	}
}

func TestSubmitBackendFailure(t *testing.T) {
	backendErr := &llm.BackendError{Detail: "model not found"}
	stub := &stubCompleter{err: backendErr}
	m := newTestManager(stub)

	_, err := m.Submit(context.Background(), "hello")
	var got *llm.BackendError
	if !errors.As(err, &got) {
		t.Fatalf("Submit error = %v, want *llm.BackendError", err)
	}

	transcript := m.Transcript()
	if len(transcript) != 2 {
		t.Fatalf("transcript has %d messages, want user + fallback", len(transcript))
	}
	fallback := transcript[1]
	if fallback.Role != RoleAssistant || !strings.HasPrefix(fallback.Content, "Sorry, I encountered an error:") {
		t.Errorf("fallback message = %+v", fallback)
	}

	if len(m.History()) != 0 {
		t.Error("failed turns must not be recorded in history")
	}
}

func TestRegenerateUsesOnlyPrecedingMessage(t *testing.T) {
	stub := &stubCompleter{reply: "first reply"}
	m := newTestManager(stub)

	if _, err := m.Submit(context.Background(), "question one"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Submit(context.Background(), "question two"); err != nil {
		t.Fatal(err)
	}

	stub.reply = "better reply"
	msg, err := m.Regenerate(context.Background(), 3)
	if err != nil {
		t.Fatalf("Regenerate error: %v", err)
	}
	if msg.Content != "better reply" {
		t.Errorf("regenerated content = %q", msg.Content)
	}

	if len(stub.got) != 1 {
		t.Fatalf("regenerate sent %d context messages, want 1", len(stub.got))
	}
	if stub.got[0].Content != "question two" {
		t.Errorf("regenerate prompt = %q, want the preceding message only", stub.got[0].Content)
	}

	transcript := m.Transcript()
	if transcript[3].Content != "better reply" {
		t.Errorf("transcript[3] = %q, want replaced reply", transcript[3].Content)
	}
	if transcript[1].Content != "first reply" {
		t.Errorf("transcript[1] = %q, earlier turns must be untouched", transcript[1].Content)
	}

}

func TestRegenerateLeavesHistoryUntouched(t *testing.T) {
	stub := &stubCompleter{reply: "first reply"}
	m := newTestManager(stub)

	if _, err := m.Submit(context.Background(), "question"); err != nil {
		t.Fatal(err)
	}
	before := m.History()
	if len(before) != 1 {
		t.Fatalf("history has %d entries after submit, want 1", len(before))
	}

	stub.reply = "second reply"
	if _, err := m.Regenerate(context.Background(), 1); err != nil {
		t.Fatalf("Regenerate error: %v", err)
	}

	after := m.History()
	if len(after) != 1 {
		t.Fatalf("history has %d entries after regenerate, want 1", len(after))
	}
	if after[0].User != "question" || after[0].Assistant != "first reply" {
		t.Errorf("history entry = %+v, want the original submit turn", after[0])
	}
}

func TestRegenerateFailureRestoresOriginal(t *testing.T) {
	stub := &stubCompleter{reply: "original reply"}
	m := newTestManager(stub)

	if _, err := m.Submit(context.Background(), "question"); err != nil {
		t.Fatal(err)
	}

	stub.err = llm.ErrBackendUnavailable
	_, err := m.Regenerate(context.Background(), 1)
	if !errors.Is(err, llm.ErrBackendUnavailable) {
		t.Fatalf("Regenerate error = %v", err)
	}

	transcript := m.Transcript()
	if transcript[1].Content != "original reply" {
		t.Errorf("transcript[1] = %q, want original restored", transcript[1].Content)
	}
	if len(m.History()) != 1 {
		t.Error("failed regenerate must not add a history entry")
	}
}

func TestRegenerateInvalidIndex(t *testing.T) {
	stub := &stubCompleter{reply: "reply"}
	m := newTestManager(stub)

	if _, err := m.Submit(context.Background(), "question"); err != nil {
		t.Fatal(err)
	}

	for _, index := range []int{-1, 0, 2, 99} {
		if _, err := m.Regenerate(context.Background(), index); !errors.Is(err, ErrNoSuchMessage) {
			t.Errorf("Regenerate(%d) error = %v, want ErrNoSuchMessage", index, err)
		}
	}
}

func TestClearLeavesHistory(t *testing.T) {
	stub := &stubCompleter{reply: "reply"}
	m := newTestManager(stub)

	if _, err := m.Submit(context.Background(), "question"); err != nil {
		t.Fatal(err)
	}

	m.Clear()
	if len(m.Transcript()) != 0 {
		t.Error("Clear should empty the transcript")
	}
	if len(m.History()) != 1 {
		t.Error("Clear must not touch the history log")
	}

	m.ClearHistory()
	if len(m.History()) != 0 {
		t.Error("ClearHistory should empty the history log")
	}
}

type recordedUsage struct {
	operation   string
	promptChars int
	replyChars  int
}

type stubUsage struct {
	records []recordedUsage
}

func (s *stubUsage) RecordChatUsage(operation string, _ time.Duration, promptChars, replyChars int) {
	s.records = append(s.records, recordedUsage{operation, promptChars, replyChars})
}

func TestSubmitRecordsUsage(t *testing.T) {
	stub := &stubCompleter{reply: "reply"}
	usage := &stubUsage{}
	m := newTestManager(stub, WithUsageRecorder(usage))

	if _, err := m.Submit(context.Background(), "question"); err != nil {
		t.Fatal(err)
	}

	if len(usage.records) != 1 {
		t.Fatalf("got %d usage records, want 1", len(usage.records))
	}
	rec := usage.records[0]
	if rec.operation != "chat_submit" || rec.promptChars != len("question") || rec.replyChars != len("reply") {
		t.Errorf("usage record = %+v", rec)
	}
}

package metrics

import (
	"testing"
	"time"
)

func TestSnapshotEmpty(t *testing.T) {
	c := NewCollector()
	snap := c.Snapshot()

	if snap.ChatSubmit != nil || snap.CollabMessage != nil {
		t.Error("empty collector should snapshot nil operations")
	}
}

func TestRecordChatUsage(t *testing.T) {
	c := NewCollector()
	c.RecordChatUsage(OpChatSubmit, 100*time.Millisecond, 20, 200)
	c.RecordChatUsage(OpChatSubmit, 300*time.Millisecond, 40, 100)

	snap := c.Snapshot()
	op := snap.ChatSubmit
	if op == nil {
		t.Fatal("ChatSubmit snapshot is nil")
	}
	if op.Count != 2 {
		t.Errorf("Count = %d, want 2", op.Count)
	}
	if op.MinTimeMs != 100 || op.MaxTimeMs != 300 {
		t.Errorf("Min/Max = %d/%d, want 100/300", op.MinTimeMs, op.MaxTimeMs)
	}
	if op.AvgTimeMs != 200 {
		t.Errorf("AvgTimeMs = %v, want 200", op.AvgTimeMs)
	}
	if op.TotalPromptChars == nil || *op.TotalPromptChars != 60 {
		t.Errorf("TotalPromptChars = %v, want 60", op.TotalPromptChars)
	}
	if op.MinPromptChars == nil || *op.MinPromptChars != 20 {
		t.Errorf("MinPromptChars = %v, want 20", op.MinPromptChars)
	}
	if op.MaxPromptChars == nil || *op.MaxPromptChars != 40 {
		t.Errorf("MaxPromptChars = %v, want 40", op.MaxPromptChars)
	}
	if op.MinReplyChars == nil || *op.MinReplyChars != 100 {
		t.Errorf("MinReplyChars = %v, want 100", op.MinReplyChars)
	}
	if op.MaxReplyChars == nil || *op.MaxReplyChars != 200 {
		t.Errorf("MaxReplyChars = %v, want 200", op.MaxReplyChars)
	}
}

func TestRecordTimingOnly(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpCollabMessage, 5*time.Millisecond)

	snap := c.Snapshot()
	if snap.CollabMessage == nil || snap.CollabMessage.Count != 1 {
		t.Fatalf("CollabMessage = %+v", snap.CollabMessage)
	}
	if snap.CollabMessage.TotalPromptChars != nil {
		t.Error("timing-only operations should not carry char stats")
	}
}

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	return entry
}

func TestStageTransitionRejectedIncludesReasons(t *testing.T) {
	var buf bytes.Buffer
	newBufferLogger(&buf).StageTransition("lead-1", "lead", "offer_sent", "user-1", false, []string{"nope"})

	entry := decode(t, &buf)
	if entry["msg"] != "stage_transition_rejected" {
		t.Fatalf("unexpected message %v", entry["msg"])
	}
	if entry["level"] != "WARN" {
		t.Errorf("expected WARN, got %v", entry["level"])
	}
	reasons, ok := entry["reasons"].([]any)
	if !ok || len(reasons) != 1 || reasons[0] != "nope" {
		t.Errorf("unexpected reasons %v", entry["reasons"])
	}
}

func TestRepositoryReadFailure(t *testing.T) {
	var buf bytes.Buffer
	newBufferLogger(&buf).RepositoryReadFailure("count_active_leads", "agent-1", errors.New("timeout"))

	entry := decode(t, &buf)
	if entry["error"] != "timeout" || entry["subject_id"] != "agent-1" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestWithContextAddsCorrelationIDs(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithActorID(ctx, "user-1")

	newBufferLogger(&buf).WithContext(ctx).AgentAssigned("lead", "lead-1", "agent-1", 3)

	entry := decode(t, &buf)
	if entry["request_id"] != "req-1" || entry["actor_id"] != "user-1" {
		t.Errorf("missing correlation ids: %v", entry)
	}
	if entry["score"] != float64(3) {
		t.Errorf("unexpected score %v", entry["score"])
	}
}

func TestWithContextWithoutIDsReturnsSameLogger(t *testing.T) {
	l := NewNop()
	if got := l.WithContext(context.Background()); got != l {
		t.Error("expected the receiver when the context carries no ids")
	}
}

func TestHTTPRequestServerErrorsLogAtError(t *testing.T) {
	var buf bytes.Buffer
	newBufferLogger(&buf).HTTPRequest("POST", "/api/v1/leads/:id/transitions", 503, 1.5, "10.0.0.1")

	entry := decode(t, &buf)
	if entry["level"] != "ERROR" {
		t.Errorf("expected ERROR, got %v", entry["level"])
	}
	if entry["route"] != "/api/v1/leads/:id/transitions" {
		t.Errorf("unexpected route %v", entry["route"])
	}
}

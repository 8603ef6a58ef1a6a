package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithField("dialect", "postgresql").Info("plan generated")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["msg"] != "plan generated" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["dialect"] != "postgresql" {
		t.Errorf("dialect = %v", entry["dialect"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WarnLevel, &buf)

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("visible")

	lines := strings.Count(strings.TrimSpace(buf.String()), "\n") + 1
	if buf.Len() == 0 {
		t.Fatal("expected warn output")
	}
	if lines != 1 {
		t.Errorf("expected 1 line, got %d: %s", lines, buf.String())
	}
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithError(errors.New("step 3 failed")).Error("migration rolled back")

	if !strings.Contains(buf.String(), "step 3 failed") {
		t.Errorf("error field missing: %s", buf.String())
	}

	buf.Reset()
	logger.WithError(nil).Info("no error attached")
	if strings.Contains(buf.String(), `"error"`) {
		t.Error("nil error should not attach a field")
	}
}

func TestLogger_FromContext(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(InfoLevel, &buf)

	ctx := WithLogger(context.Background(), base)
	ctx = WithRequestID(ctx, "req-42")

	FromContext(ctx).Info("handled")

	if !strings.Contains(buf.String(), "req-42") {
		t.Errorf("request_id missing from output: %s", buf.String())
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("expected empty request id, got %q", id)
	}
}

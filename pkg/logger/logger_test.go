package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{FatalLevel, "FATAL"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("Level.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("DEBUG") != DebugLevel {
		t.Error("debug not parsed")
	}
	if ParseLevel("warning") != WarnLevel {
		t.Error("warning not parsed")
	}
	if ParseLevel("nonsense") != InfoLevel {
		t.Error("unknown level should default to info")
	}
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("invalid json %q: %v", line, err)
	}
	return entry
}

func TestZeroLogger_Info(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(&Config{Level: InfoLevel, Output: buf})

	log.Info("favorite added", String("action", "add"), Int64("movie_id", 7), Err(errors.New("x")))

	entry := decodeLine(t, buf)
	if entry["message"] != "favorite added" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
	if entry["action"] != "add" {
		t.Errorf("action = %v", entry["action"])
	}
	if entry["movie_id"] != float64(7) {
		t.Errorf("movie_id = %v", entry["movie_id"])
	}
	if entry["error"] != "x" {
		t.Errorf("error = %v", entry["error"])
	}
}

func TestZeroLogger_TypedFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(&Config{Level: InfoLevel, Output: buf})

	log.Warn("rating failed", Float64("value", 3.5), Bool("desired", true))

	entry := decodeLine(t, buf)
	if entry["value"] != 3.5 {
		t.Errorf("value = %v", entry["value"])
	}
	if entry["desired"] != true {
		t.Errorf("desired = %v", entry["desired"])
	}
}

func TestZeroLogger_LevelFilter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(&Config{Level: WarnLevel, Output: buf})

	log.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered, got %q", buf.String())
	}

	log.SetLevel(DebugLevel)
	if log.GetLevel() != DebugLevel {
		t.Errorf("GetLevel() = %v", log.GetLevel())
	}
	log.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("debug should be emitted after SetLevel")
	}
}

func TestZeroLogger_WithContext(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(&Config{Level: DebugLevel, Output: buf})

	ctx := WithUserID(WithRequestID(context.Background(), "req-9"), 42)
	log.WithContext(ctx).WithFields(String("component", "rating")).Warn("clamped")

	entry := decodeLine(t, buf)
	if entry["request_id"] != "req-9" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
	if entry["user_id"] != float64(42) {
		t.Errorf("user_id = %v", entry["user_id"])
	}
	if entry["component"] != "rating" {
		t.Errorf("component = %v", entry["component"])
	}
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Error("nothing")
	log.WithFields(String("a", "b")).Info("still nothing")
}

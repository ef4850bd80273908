package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestPreInitLoggerUsesConfiguredHandler(t *testing.T) {
	logger := L("recorder")

	var buf bytes.Buffer
	Init("text", "info", &buf)

	logger.Info("tick completed", "monitor", 0)

	out := buf.String()
	if strings.Contains(out, `msg="INFO tick completed`) {
		t.Fatalf("unexpected nested severity prefix in message: %s", out)
	}
	if !strings.Contains(out, "msg=\"tick completed\"") {
		t.Fatalf("expected plain message, got: %s", out)
	}
	if !strings.Contains(out, "component=recorder") {
		t.Fatalf("expected component field, got: %s", out)
	}
	if !strings.Contains(out, "monitor=0") {
		t.Fatalf("expected monitor field, got: %s", out)
	}
}

func TestPreInitLoggerRespectsConfiguredLevel(t *testing.T) {
	logger := L("recorder")

	var buf bytes.Buffer
	Init("text", "warn", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info log should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("warn log should be emitted: %s", out)
	}
}

func TestInitSwitchesJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Init("json", "info", &buf)

	L("duplicator").Info("ready")

	out := buf.String()
	if !strings.Contains(out, `"component":"duplicator"`) {
		t.Fatalf("expected json component field, got: %s", out)
	}
}

package log

import (
	"bytes"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T, name string) (*Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	SetOutput(buf)
	return ForService(name), buf
}

func TestPrefixAndLevel(t *testing.T) {
	SetGlobalDebug(false)

	l, buf := newTestLogger(t, "prefix_test")
	l.Infof("hello %s", "world")

	out := buf.String()
	if !strings.Contains(out, "INFO [prefix_test>] hello world") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestLevels(t *testing.T) {
	l, buf := newTestLogger(t, "levels_test")
	l.Warnf("careful")
	l.Errorf("broken")

	out := buf.String()
	if !strings.Contains(out, "WARN [levels_test>] careful") {
		t.Errorf("missing warn line: %q", out)
	}
	if !strings.Contains(out, "ERROR [levels_test>] broken") {
		t.Errorf("missing error line: %q", out)
	}
}

func TestDebugPerService(t *testing.T) {
	SetGlobalDebug(false)

	const name = "debug_specific"
	DisableDebugFor(name)
	l, buf := newTestLogger(t, name)

	l.Debugf("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatal("debug line printed while disabled")
	}

	EnableDebugFor(name)
	defer DisableDebugFor(name)
	l.Debugf("visible")
	if !strings.Contains(buf.String(), "DEBUG [debug_specific>] visible") {
		t.Fatalf("expected debug line, got %q", buf.String())
	}

	if DebugEnabledFor("some_other_service") {
		t.Error("debug leaked to another service")
	}
}

func TestConfigure(t *testing.T) {
	defer SetGlobalDebug(false)

	if err := Configure("debug", nil); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if !GlobalDebug() {
		t.Error("expected global debug after Configure(debug)")
	}

	if err := Configure("info", []string{"configured_service"}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	defer DisableDebugFor("configured_service")
	if GlobalDebug() {
		t.Error("expected global debug off after Configure(info)")
	}
	if !DebugEnabledFor("configured_service") {
		t.Error("expected per-service debug from Configure")
	}

	if err := Configure("verbose", nil); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestSetOutputUpdatesExistingLoggers(t *testing.T) {
	l := ForService("existing_logger")

	buf := &bytes.Buffer{}
	SetOutput(buf)
	l.Infof("redirected")

	if !strings.Contains(buf.String(), "redirected") {
		t.Fatalf("existing logger did not adopt new writer: %q", buf.String())
	}
}

func TestForServiceMemoizes(t *testing.T) {
	if ForService("same") != ForService("same") {
		t.Error("expected the same logger instance")
	}
	if ForService("").Name() != "unknown" {
		t.Error("empty name should map to unknown")
	}
}

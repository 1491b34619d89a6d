package logging

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContextReturnsAttachedLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := WithLogger(context.Background(), zap.New(core))

	L(ctx).Info("hello")

	if logs.Len() != 1 {
		t.Fatalf("expected 1 log entry, got %d", logs.Len())
	}
}

func TestWithFieldsAddsFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := WithLogger(context.Background(), zap.New(core))
	ctx = WithFields(ctx, zap.String("request_id", "r-1"))

	FromContext(ctx).Info("translated")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["request_id"]; got != "r-1" {
		t.Fatalf("expected request_id field, got %v", got)
	}
}

func TestNewHonoursLevel(t *testing.T) {
	logger, err := New(Options{Env: "production", Level: "warn"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if logger.Core().Enabled(zap.InfoLevel) {
		t.Fatalf("info should be disabled at warn level")
	}
	if !logger.Core().Enabled(zap.WarnLevel) {
		t.Fatalf("warn should be enabled at warn level")
	}
}

func resetDefault(t *testing.T) {
	t.Helper()
	defaultLoggerOnce = sync.Once{}
	defaultLogger = nil
	t.Cleanup(func() {
		defaultLoggerOnce = sync.Once{}
		defaultLogger = nil
	})
}

func TestSetDefaultInstallsOnce(t *testing.T) {
	resetDefault(t)

	first := zap.NewNop()
	SetDefault(first)
	SetDefault(zap.NewExample())

	if DefaultLogger() != first {
		t.Fatalf("the first installed logger must stay the default")
	}
	if FromContext(context.Background()) != first {
		t.Fatalf("FromContext should fall back to the installed default")
	}
}

func TestSetDefaultAfterDefaultLoggerIsIgnored(t *testing.T) {
	resetDefault(t)

	built := DefaultLogger()
	SetDefault(zap.NewNop())

	if DefaultLogger() != built {
		t.Fatalf("SetDefault must not replace a logger already handed out")
	}
}

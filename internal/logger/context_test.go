package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext_DefaultsToNop(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected a usable logger")
	}
}

func TestWith_AddsFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := ContextWithLogger(context.Background(), zap.New(core))

	ctx = With(ctx, zap.String("section", "wire"))
	FromContext(ctx).Info("search")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["section"]; got != "wire" {
		t.Errorf("section = %v", got)
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := NewLogger("prod"); err != nil {
		t.Errorf("prod: %v", err)
	}
	if _, err := NewLogger("local", "debug"); err != nil {
		t.Errorf("local: %v", err)
	}
	if _, err := NewLogger("mars"); err == nil {
		t.Error("expected error for unknown environment")
	}
	if _, err := NewLogger("dev", "loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

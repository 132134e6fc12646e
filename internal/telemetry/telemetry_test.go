package telemetry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestStageLogsStartAndDone(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	provider := NewProvider(logger)
	defer provider.Shutdown(context.Background())

	tick, err := StartTick(context.Background(), provider.Tracer("test"), "tick", Plan{
		Steps: []PlannedStep{{ID: "ensure", Title: "ensure prerequisites"}},
	})
	if err != nil {
		t.Fatalf("StartTick: %v", err)
	}

	if err := tick.Stage(context.Background(), "ensure", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	tick.End(nil)

	out := buf.String()
	if !strings.Contains(out, "tick start") {
		t.Fatalf("expected tick start log, got: %s", out)
	}
	if !strings.Contains(out, "tick stage done") || !strings.Contains(out, "stage=ensure") {
		t.Fatalf("expected stage done log for ensure, got: %s", out)
	}
	if !strings.Contains(out, "tick done") {
		t.Fatalf("expected tick done log, got: %s", out)
	}
}

func TestStageLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	provider := NewProvider(logger)
	defer provider.Shutdown(context.Background())

	tick, err := StartTick(context.Background(), provider.Tracer("test"), "tick", Plan{})
	if err != nil {
		t.Fatalf("StartTick: %v", err)
	}

	stageErr := errors.New("boom")
	gotErr := tick.Stage(context.Background(), "ensure", func(context.Context) error { return stageErr })
	if gotErr != stageErr {
		t.Fatalf("Stage should return fn's error unchanged, got %v", gotErr)
	}
	tick.End(gotErr)

	out := buf.String()
	if !strings.Contains(out, "tick stage failed") {
		t.Fatalf("expected stage failed log, got: %s", out)
	}
	if !strings.Contains(out, "tick failed") {
		t.Fatalf("expected tick failed log, got: %s", out)
	}
}

func TestStartTickNilTracerErrors(t *testing.T) {
	if _, err := StartTick(context.Background(), nil, "tick", Plan{}); err == nil {
		t.Fatal("expected error for nil tracer")
	}
}

// Package telemetry wraps each reconciliation tick in an in-process span
// tree and renders stage progress to the log, mirroring an
// Operation/RunStep span tree with no external collector: spans never
// leave the process.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const (
	planEventName  = "meshnoded.plan"
	planVersionKey = "meshnoded.plan.version"
	planJSONKey    = "meshnoded.plan.json"
	planVersion    = "1"
)

// PlannedStep names one tick stage up front, so the span processor can log
// the full stage list even before any stage has started.
type PlannedStep struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Plan is the full stage list for one tick kind.
type Plan struct {
	Steps []PlannedStep `json:"steps"`
}

// NewProvider builds a TracerProvider whose only span processor renders
// stage start/end to logger. There is no exporter: the spans exist purely
// to drive this rendering.
func NewProvider(logger *slog.Logger) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(&stepSpanProcessor{logger: logger}))
}

// Tick is one reconciliation tick's root span, with named child stages.
type Tick struct {
	ctx    context.Context
	tracer trace.Tracer
	span   trace.Span
}

// StartTick opens the tick's root span and announces plan to the log via
// the configured span processor.
func StartTick(ctx context.Context, tracer trace.Tracer, name string, plan Plan) (*Tick, error) {
	if tracer == nil {
		return nil, fmt.Errorf("start tick: tracer is required")
	}
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("start tick: marshal plan: %w", err)
	}

	tickCtx, span := tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String(planVersionKey, planVersion),
		attribute.String(planJSONKey, string(planJSON)),
	))
	span.AddEvent(planEventName, trace.WithAttributes(
		attribute.String(planJSONKey, string(planJSON)),
	))

	return &Tick{ctx: tickCtx, tracer: tracer, span: span}, nil
}

// Stage runs fn inside a child span named id, recording failure as a span
// error/status so the processor can log it.
func (t *Tick) Stage(ctx context.Context, id string, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	if t == nil || t.tracer == nil {
		return fn(ctx)
	}
	if ctx == nil {
		ctx = t.ctx
	} else {
		ctx = trace.ContextWithSpan(ctx, t.span)
	}

	stageCtx, span := t.tracer.Start(ctx, id)
	defer span.End()

	err := fn(stageCtx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, strings.TrimSpace(err.Error()))
	}
	return err
}

// End closes the tick's root span, marking it as failed iff err is non-nil.
func (t *Tick) End(err error) {
	if t == nil || t.span == nil {
		return
	}
	if err != nil {
		t.span.RecordError(err)
		t.span.SetStatus(codes.Error, strings.TrimSpace(err.Error()))
	}
	t.span.End()
}

// stepSpanProcessor renders span start/end to logger: the root span as
// "tick plan", child spans as stage start/done/failed with duration.
type stepSpanProcessor struct {
	logger *slog.Logger
}

func (p *stepSpanProcessor) OnStart(_ context.Context, span sdktrace.ReadWriteSpan) {
	if p == nil || p.logger == nil {
		return
	}
	if span.Parent().IsValid() {
		p.logger.Info("tick stage start", slog.String("stage", span.Name()))
		return
	}

	planJSON := attributeValue(span.Attributes(), planJSONKey)
	if strings.TrimSpace(planJSON) == "" {
		return
	}
	var plan Plan
	if err := json.Unmarshal([]byte(planJSON), &plan); err != nil {
		return
	}
	ids := make([]string, 0, len(plan.Steps))
	for _, s := range plan.Steps {
		ids = append(ids, s.ID)
	}
	p.logger.Info("tick start", slog.String("tick", span.Name()), slog.Any("stages", ids))
}

func (p *stepSpanProcessor) OnEnd(span sdktrace.ReadOnlySpan) {
	if p == nil || p.logger == nil {
		return
	}

	status := span.Status()
	failed := status.Code == codes.Error
	duration := span.EndTime().Sub(span.StartTime())

	if !span.Parent().IsValid() {
		if failed {
			p.logger.Warn("tick failed", slog.String("tick", span.Name()), slog.Duration("took", duration), slog.String("error", status.Description))
		} else {
			p.logger.Info("tick done", slog.String("tick", span.Name()), slog.Duration("took", duration))
		}
		return
	}

	if failed {
		p.logger.Warn("tick stage failed", slog.String("stage", span.Name()), slog.Duration("took", duration), slog.String("error", status.Description))
	} else {
		p.logger.Info("tick stage done", slog.String("stage", span.Name()), slog.Duration("took", duration))
	}
}

func (p *stepSpanProcessor) Shutdown(context.Context) error {
	return nil
}

func (p *stepSpanProcessor) ForceFlush(context.Context) error {
	return nil
}

func attributeValue(attrs []attribute.KeyValue, key string) string {
	for _, attr := range attrs {
		if string(attr.Key) == key {
			return attr.Value.AsString()
		}
	}
	return ""
}

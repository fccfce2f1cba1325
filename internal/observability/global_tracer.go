package observability

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "lesson-planner"

var (
	tracerMu     sync.RWMutex
	globalTracer trace.Tracer
)

// InitGlobalTracer initializes the tracer used by the Trace* helpers.
func InitGlobalTracer(name string) {
	if name == "" {
		name = defaultTracerName
	}
	tracerMu.Lock()
	globalTracer = otel.Tracer(name)
	tracerMu.Unlock()
}

// GetGlobalTracer returns the application tracer, falling back to the global provider.
func GetGlobalTracer() trace.Tracer {
	tracerMu.RLock()
	t := globalTracer
	tracerMu.RUnlock()
	if t == nil {
		return otel.Tracer(defaultTracerName)
	}
	return t
}

// TraceFunction starts a span named "<component>.<function>".
func TraceFunction(ctx context.Context, component, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	spanName := fmt.Sprintf("%s.%s", component, functionName)
	return GetGlobalTracer().Start(ctx, spanName, trace.WithAttributes(attributes...))
}

// TraceAIFunction starts a span for a call against the remote generation endpoint.
func TraceAIFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "ai", functionName, attributes...)
}

// TraceLessonFunction starts a span for the lesson plan pipeline (prompt, acquire, normalize).
func TraceLessonFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "lesson", functionName, attributes...)
}

// TraceHandlerFunction starts a new span for a handler function.
func TraceHandlerFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "handler", functionName, attributes...)
}

// AttributeModel returns a tracing attribute for a candidate model.
func AttributeModel(model string) attribute.KeyValue {
	return attribute.String("ai.model", model)
}

// AttributeAttempt returns a tracing attribute for the 1-based attempt number.
func AttributeAttempt(n int) attribute.KeyValue {
	return attribute.Int("ai.attempt", n)
}

// AttributeGrade returns a tracing attribute for a grade level.
func AttributeGrade(grade string) attribute.KeyValue {
	return attribute.String("lesson.grade", grade)
}

// AttributeSubject returns a tracing attribute for a subject.
func AttributeSubject(subject string) attribute.KeyValue {
	return attribute.String("lesson.subject", subject)
}

// AttributeSequence returns a tracing attribute for a generation sequence number.
func AttributeSequence(seq uint64) attribute.KeyValue {
	return attribute.Int64("lesson.sequence", int64(seq))
}

package agent

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Bound to the global provider, which may be installed after init.
var tracer = otel.Tracer("github.com/nugget/whatnext/internal/agent")

// Span names.
const (
	spanTurn   = "whatnext.turn"
	spanDecide = "whatnext.decide"
	spanTool   = "whatnext.tool"
)

// Span attribute keys.
const (
	attrTurnID    = attribute.Key("whatnext.turn_id")
	attrLoop      = attribute.Key("whatnext.loop_count")
	attrAction    = attribute.Key("whatnext.action")
	attrTool      = attribute.Key("whatnext.tool.name")
	attrSuccess   = attribute.Key("whatnext.tool.success")
	attrOutcome   = attribute.Key("whatnext.outcome")
	attrLocation  = attribute.Key("whatnext.location")
	attrToolCalls = attribute.Key("whatnext.tool_calls")
)

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// markFailed records err as the span's error status.
func markFailed(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

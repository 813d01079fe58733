package main

import (
	"context"

	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func newTracerProvider(logger zerolog.Logger) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(&spanLogProcessor{logger: logger}))
}

// spanLogProcessor logs every finished span with its duration at debug level
type spanLogProcessor struct {
	logger zerolog.Logger
}

func (p *spanLogProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p *spanLogProcessor) OnEnd(span sdktrace.ReadOnlySpan) {
	event := p.logger.Debug().
		Str("span", span.Name()).
		Dur("duration", span.EndTime().Sub(span.StartTime())).
		Str("status", span.Status().Code.String())
	if span.Parent().IsValid() {
		event = event.Str("parent_span_id", span.Parent().SpanID().String())
	}
	event.Msg("span ended")
}

func (p *spanLogProcessor) Shutdown(context.Context) error {
	return nil
}

func (p *spanLogProcessor) ForceFlush(context.Context) error {
	return nil
}

package tracing

import (
	"context"
	"fmt"
	"io"

	"github.com/opentracing/opentracing-go"
	"github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

// Init sets up the global Jaeger tracer for the service. The returned
// closer flushes buffered spans and must be closed on shutdown.
func Init(serviceName, jaegerEndpoint string) (opentracing.Tracer, io.Closer, error) {
	cfg := &jaegercfg.Configuration{
		ServiceName: serviceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: 1,
		},
		Reporter: &jaegercfg.ReporterConfig{
			LogSpans:            false,
			CollectorEndpoint:   jaegerEndpoint,
			BufferFlushInterval: 1,
		},
	}

	tracer, closer, err := cfg.NewTracer()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	opentracing.SetGlobalTracer(tracer)
	return tracer, closer, nil
}

// StartSpan starts a span under any span already carried by ctx.
func StartSpan(ctx context.Context, operationName string) (opentracing.Span, context.Context) {
	return opentracing.StartSpanFromContext(ctx, operationName)
}

// StartVideoSpan starts a span pre-tagged with the video it operates
// on. Pipeline stages use this so traces group by video.
func StartVideoSpan(ctx context.Context, operationName, videoID string) (opentracing.Span, context.Context) {
	span, ctx := opentracing.StartSpanFromContext(ctx, operationName)
	span.SetTag("video.id", videoID)
	return span, ctx
}

// FinishWithError finishes a span, recording err on it when non-nil.
func FinishWithError(span opentracing.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.SetTag("error", true)
		span.LogKV("error", err.Error())
	}
	span.Finish()
}

// SetTag sets a tag on the span, tolerating a nil span.
func SetTag(span opentracing.Span, key string, value interface{}) {
	if span != nil {
		span.SetTag(key, value)
	}
}

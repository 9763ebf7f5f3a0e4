package middleware

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/mmynk/splitfriends/internal/middleware"

type tracingInterceptor struct {
	tracer trace.Tracer
}

// TracingInterceptor starts a server span per RPC, continuing any trace
// context propagated in the request headers. It uses the global tracer
// provider, so it is a no-op until one is installed.
func TracingInterceptor() connect.Interceptor {
	return tracingInterceptor{tracer: otel.Tracer(tracerName)}
}

func (t tracingInterceptor) start(ctx context.Context, procedure string, header http.Header) (context.Context, trace.Span) {
	ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(header))
	return t.tracer.Start(ctx, procedure,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("rpc.system", "connect_rpc"),
			attribute.String("rpc.method", procedure),
		),
	)
}

func (t tracingInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			return next(ctx, req)
		}
		ctx, span := t.start(ctx, req.Spec().Procedure, req.Header())
		defer span.End()

		resp, err := next(ctx, req)
		finish(span, err)
		return resp, err
	}
}

func (t tracingInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (t tracingInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		ctx, span := t.start(ctx, conn.Spec().Procedure, conn.RequestHeader())
		defer span.End()

		err := next(ctx, conn)
		finish(span, err)
		return err
	}
}

func finish(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.SetAttributes(attribute.String("rpc.connect_rpc.error_code", connect.CodeOf(err).String()))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

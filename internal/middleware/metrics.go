package middleware

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records per-procedure RPC counters and latencies.
type Metrics struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	activeStreams *prometheus.GaugeVec
}

// NewMetrics creates the RPC collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "splitfriends",
			Name:      "rpc_requests_total",
			Help:      "RPCs handled, by procedure and Connect code.",
		}, []string{"procedure", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "splitfriends",
			Name:      "rpc_duration_seconds",
			Help:      "Time spent handling unary RPCs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		activeStreams: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "splitfriends",
			Name:      "rpc_active_streams",
			Help:      "Server streams currently open.",
		}, []string{"procedure"}),
	}
	reg.MustRegister(m.requests, m.duration, m.activeStreams)
	return m
}

// Interceptor returns a Connect interceptor feeding m.
func (m *Metrics) Interceptor() connect.Interceptor {
	return metricsInterceptor{m}
}

type metricsInterceptor struct {
	m *Metrics
}

func (i metricsInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			return next(ctx, req)
		}
		procedure := req.Spec().Procedure
		start := time.Now()
		resp, err := next(ctx, req)
		i.m.duration.WithLabelValues(procedure).Observe(time.Since(start).Seconds())
		i.m.requests.WithLabelValues(procedure, codeOf(err)).Inc()
		return resp, err
	}
}

func (i metricsInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i metricsInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		procedure := conn.Spec().Procedure
		gauge := i.m.activeStreams.WithLabelValues(procedure)
		gauge.Inc()
		defer gauge.Dec()

		err := next(ctx, conn)
		i.m.requests.WithLabelValues(procedure, codeOf(err)).Inc()
		return err
	}
}

func codeOf(err error) string {
	if err == nil {
		return "ok"
	}
	return connect.CodeOf(err).String()
}

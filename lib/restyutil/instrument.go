package restyutil

import (
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type InstrumentOutput interface {
	Write(id string, contents string)
}

// attaches a span and debug logging to every request a resty client
// makes. `output` can be nil; when set, every response body is dumped
// to it under a sequential id.
func InstrumentClient(client *resty.Client, tracerName string, output InstrumentOutput) {
	tracer := otel.Tracer(tracerName)

	var idcounter uint64
	client.OnBeforeRequest(onBeforeRequest(tracer))
	client.OnAfterResponse(onAfterResponse(output, &idcounter))
	client.OnError(onError)
}

func onBeforeRequest(tracer trace.Tracer) resty.RequestMiddleware {
	return func(cli *resty.Client, req *resty.Request) error {
		ctx, _ := tracer.Start(req.Context(), req.Method)
		slog.DebugContext(ctx, "start request", "method", req.Method, "url", req.URL)
		req.SetContext(ctx)
		return nil
	}
}

func onAfterResponse(output InstrumentOutput, idcounter *uint64) resty.ResponseMiddleware {
	return func(cli *resty.Client, res *resty.Response) error {
		span := trace.SpanFromContext(res.Request.Context())
		defer span.End()

		span.SetAttributes(
			attribute.String("url", res.Request.URL),
			attribute.Int("status", res.StatusCode()),
			attribute.Int64("latency_ms", res.Time().Milliseconds()),
		)
		slog.DebugContext(
			res.Request.Context(), "finished request",
			"url", res.Request.URL,
			"status", res.StatusCode(),
			"latency", res.Time(),
		)

		if output != nil {
			id := strconv.FormatUint(atomic.AddUint64(idcounter, 1), 10)
			output.Write(id+".html", res.String())
		}
		return nil
	}
}

func onError(req *resty.Request, err error) {
	span := trace.SpanFromContext(req.Context())
	defer span.End()

	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")
	slog.ErrorContext(req.Context(), "request failed", "url", req.URL, "err", err)
}

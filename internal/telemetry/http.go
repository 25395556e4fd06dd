package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// HTTPInstrumentationName names both the HTTP tracer and meter
	HTTPInstrumentationName = "github.com/stacklok/omnifield-ingest/http"

	// MaxUserAgentLength caps the user agent recorded on spans
	MaxUserAgentLength = 256

	unmatchedRoute = "unmatched"
)

// probePaths are hit by orchestrators and scrapers; they are counted but
// never traced
var probePaths = map[string]struct{}{
	"/health":             {},
	"/readiness":          {},
	DefaultPrometheusPath: {},
}

// httpInstruments records one span and one set of measurements per request.
// Routes are reported as chi patterns (/v1/tables/{name}) so that table and
// module names never become label values.
type httpInstruments struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator

	duration metric.Float64Histogram
	requests metric.Int64Counter
	inflight metric.Int64UpDownCounter
}

func newHTTPInstruments(tp trace.TracerProvider, mp metric.MeterProvider) (*httpInstruments, error) {
	h := &httpInstruments{propagator: otel.GetTextMapPropagator()}
	if tp != nil {
		h.tracer = tp.Tracer(HTTPInstrumentationName)
	}
	if mp == nil {
		return h, nil
	}

	meter := mp.Meter(HTTPInstrumentationName)
	var err error
	if h.duration, err = meter.Float64Histogram(
		"omnifield_http_request_duration_seconds",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	); err != nil {
		return nil, err
	}
	if h.requests, err = meter.Int64Counter(
		"omnifield_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	if h.inflight, err = meter.Int64UpDownCounter(
		"omnifield_http_active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *httpInstruments) wrap(next http.Handler) http.Handler {
	if h.tracer == nil && h.requests == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		var span trace.Span
		if _, probe := probePaths[r.URL.Path]; !probe && h.tracer != nil {
			ctx = h.propagator.Extract(ctx, propagation.HeaderCarrier(r.Header))
			// renamed to the route pattern once chi has matched
			ctx, span = h.tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
					semconv.UserAgentOriginal(truncateUserAgent(r.UserAgent())),
				),
			)
			defer span.End()
			r = r.WithContext(ctx)
		}

		if h.inflight != nil {
			h.inflight.Add(ctx, 1)
			defer h.inflight.Add(ctx, -1)
		}

		next.ServeHTTP(ww, r)

		route := routePattern(r)
		status := ww.Status()

		if span != nil {
			span.SetName(r.Method + " " + route)
			span.SetAttributes(
				semconv.HTTPRouteKey.String(route),
				semconv.HTTPResponseStatusCode(status),
			)
			if status >= http.StatusBadRequest {
				span.SetStatus(codes.Error, http.StatusText(status))
			} else {
				span.SetStatus(codes.Ok, "")
			}
		}

		if h.requests != nil {
			attrs := metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("route", route),
				attribute.String("status_code", strconv.Itoa(status)),
			)
			h.duration.Record(ctx, time.Since(start).Seconds(), attrs)
			h.requests.Add(ctx, 1, attrs)
		}
	})
}

// routePattern returns the matched chi pattern
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return unmatchedRoute
}

func truncateUserAgent(ua string) string {
	if len(ua) > MaxUserAgentLength {
		return ua[:MaxUserAgentLength]
	}
	return ua
}

// HTTPMiddleware traces and measures every request. Either provider may be
// nil; with both nil the middleware passes requests through untouched.
func HTTPMiddleware(tp trace.TracerProvider, mp metric.MeterProvider) (func(http.Handler) http.Handler, error) {
	h, err := newHTTPInstruments(tp, mp)
	if err != nil {
		return nil, err
	}
	return h.wrap, nil
}

// HTTPMiddleware is HTTPMiddleware over this instance's providers
func (t *Telemetry) HTTPMiddleware() (func(http.Handler) http.Handler, error) {
	return HTTPMiddleware(t.tracerProvider, t.meterProvider)
}

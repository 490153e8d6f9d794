package http

import (
	"net/http"
	"time"

	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/adapter/http/middleware"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/platform/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("listing-service/http")

// NewRouter wires the listing routes. Reads are public; mutations require a bearer token.
func NewRouter(h *ListingHandler, jwtSecret string, m *metrics.MetricsManager, log *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log.Named("HTTP")))
	r.Use(chimw.Recoverer)
	r.Use(traceRequests)
	if m != nil {
		r.Use(observeLatency(m))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/listings", func(r chi.Router) {
		r.Get("/", h.HandleListListings)
		r.Get("/{id}", h.HandleGetListing)

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtSecret, log))
			r.Post("/", h.HandleCreateListing)
			r.Put("/{id}", h.HandleUpdateListing)
			r.Post("/{id}/relocate", h.HandleRelocateListing)
			r.Delete("/{id}", h.HandleDeleteListing)
		})
	})
	return r
}

func traceRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		span.SetName(r.Method + " " + routePattern(r))
		span.SetAttributes(attribute.Int("http.status_code", ww.Status()))
	})
}

func observeLatency(m *metrics.MetricsManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			m.APILatency.WithLabelValues(routePattern(r), r.Method).Observe(time.Since(start).Seconds())
		})
	}
}

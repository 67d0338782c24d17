package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/nexrad-etl/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SourceKeyHeader names the request header that carries the source key of a
// volume posted to /decode. The "key" query parameter is used when it is absent.
const SourceKeyHeader = "X-Source-Key"

// Decoder summarizes one Archive II volume held in memory.
type Decoder interface {
	Decode(ctx context.Context, key string, data []byte) (domain.VolumeSummary, error)
}

// Server exposes health, readiness, metrics, and volume decode endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// POST /decode routes. Decode request bodies larger than maxBodyBytes are
// rejected with 413.
func NewServer(addr string, ready sharedobs.ReadinessChecker, decoder Decoder, maxBodyBytes int64, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /decode", s.handleDecode(decoder, maxBodyBytes))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleDecode(decoder Decoder, maxBodyBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				sharedobs.WriteJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
					"error": "volume exceeds size limit",
				})
				return
			}
			sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if len(body) == 0 {
			sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "empty request body"})
			return
		}

		key := r.Header.Get(SourceKeyHeader)
		if key == "" {
			key = r.URL.Query().Get("key")
		}

		summary, err := decoder.Decode(r.Context(), key, body)
		if err != nil {
			kind := domain.ErrorKind(err)
			s.logger.Info("decode request rejected", "key", key, "kind", kind, "error", err)
			sharedobs.WriteJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error": err.Error(),
				"kind":  kind,
			})
			return
		}
		sharedobs.WriteJSON(w, http.StatusOK, summary)
	}
}

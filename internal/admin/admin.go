// Package admin implements the observational HTTP surface that runs
// alongside the TCP wire protocol: /healthz, /metrics, and /stats. Grounded
// on lipandr-go-microsrv-distib-log's internal/server/http.go (a gorilla/mux
// router wrapped in a plain *http.Server), extended with a prometheus
// handler and a JSON stats endpoint.
package admin

import (
	"encoding/json"
	"net/http"

	"github.com/dreamerlzl/ignitekv/internal/engine"
	"github.com/dreamerlzl/ignitekv/internal/kvs"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// statsProvider is satisfied by *kvs.Engine; *boltengine.Engine does not
// implement it, since a B-tree adapter has no segment/compaction state to
// report. /stats degrades to a minimal body in that case.
type statsProvider interface {
	Stats() kvs.Stats
}

// Server wraps an *http.Server serving the admin surface.
type Server struct {
	http *http.Server
}

// New builds the admin HTTP server bound to addr, reporting on eng's
// liveness and (when available) its storage statistics. /metrics serves
// exactly the collectors registered against reg — the same registerer
// passed to metrics.New — so request/compaction counters recorded there
// are actually reachable over HTTP rather than sitting on a different
// (global default) gatherer no handler ever reads.
func New(addr string, eng engine.Engine, reg *prometheus.Registry) *Server {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", handleHealthz(eng)).Methods(http.MethodGet)
	router.HandleFunc("/stats", handleStats(eng)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return &Server{http: &http.Server{Addr: addr, Handler: router}}
}

// Serve blocks serving the admin surface until ListenAndServe returns.
func (s *Server) Serve() error {
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close shuts down the admin HTTP server.
func (s *Server) Close() error {
	return s.http.Close()
}

func handleHealthz(eng engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if eng == nil {
			http.Error(w, "engine not initialized", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

type statsResponse struct {
	FirstSegmentID  *uint64 `json:"first_segment_id,omitempty"`
	ActiveSegmentID *uint64 `json:"active_segment_id,omitempty"`
	Keys            *int    `json:"keys,omitempty"`
	ActiveBytes     *int64  `json:"active_bytes,omitempty"`
}

func handleStats(eng engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := statsResponse{}

		if sp, ok := eng.(statsProvider); ok {
			stats := sp.Stats()
			resp.FirstSegmentID = &stats.FirstID
			resp.ActiveSegmentID = &stats.ActiveSegmentID
			resp.Keys = &stats.Keys
			resp.ActiveBytes = &stats.ActiveBytes
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

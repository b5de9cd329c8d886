package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RuntimeStats is the process section of the /stats payload.
type RuntimeStats struct {
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	HeapInuse  uint64 `json:"heap_inuse"`
	NumGC      uint32 `json:"num_gc"`
	GoVersion  string `json:"go_version"`
	NumCPU     int    `json:"num_cpu"`
}

// StatsPayload is what /stats returns.
type StatsPayload struct {
	StartTime   time.Time                  `json:"start_time"`
	Uptime      string                     `json:"uptime"`
	Active      bool                       `json:"active"`
	Connections map[Source]ConnectionState `json:"connections"`
	Sources     map[Source]FeedStats       `json:"sources"`
	DedupSize   int                        `json:"dedup_size"`
	Runtime     RuntimeStats               `json:"runtime"`
}

// StatsServer exposes health checks, a JSON status snapshot and the
// Prometheus scrape endpoint.
type StatsServer struct {
	logger    *zap.Logger
	monitor   *Monitor
	server    *http.Server
	startTime time.Time
}

func NewStatsServer(logger *zap.Logger, monitor *Monitor, port int) *StatsServer {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &StatsServer{
		logger:    logger,
		monitor:   monitor,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(s.buildStats())
	})

	mux.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	return s
}

// Start begins serving in the background.
func (s *StatsServer) Start() {
	go func() {
		s.logger.Info("stats server listening", zap.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("stats server error", zap.Error(err))
		}
	}()
}

// Shutdown stops the HTTP server, waiting for in-flight requests.
func (s *StatsServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *StatsServer) buildStats() StatsPayload {
	status := s.monitor.Status()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return StatsPayload{
		StartTime:   s.startTime,
		Uptime:      time.Since(s.startTime).Round(time.Second).String(),
		Active:      status.Active,
		Connections: status.Connections,
		Sources:     s.monitor.FeedStats(),
		DedupSize:   s.monitor.DedupSize(),
		Runtime: RuntimeStats{
			Goroutines: runtime.NumGoroutine(),
			HeapAlloc:  mem.HeapAlloc,
			HeapInuse:  mem.HeapInuse,
			NumGC:      mem.NumGC,
			GoVersion:  runtime.Version(),
			NumCPU:     runtime.NumCPU(),
		},
	}
}

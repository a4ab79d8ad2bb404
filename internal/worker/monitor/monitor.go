package monitor

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"web3-royalty/internal/worker/config"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type MetricsServer struct {
	cfg     config.MonitorConfig
	tl      *zap.Logger
	server  *http.Server
	handler http.Handler
	ready   atomic.Bool
}

// NewMetricsServer /metrics、/healthz，以及 net/http/pprof 注册在默认 mux 上的 /debug/pprof/
func NewMetricsServer(cfg config.MonitorConfig, logger *zap.Logger) *MetricsServer {
	s := &MetricsServer{cfg: cfg, tl: logger}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.healthz)
	mux.Handle("/debug/pprof/", http.DefaultServeMux)
	s.handler = mux

	if cfg.Enable && cfg.PrometheusAddr != "" {
		s.server = &http.Server{
			Addr:              cfg.PrometheusAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return s
}

// SetReady 消费者启动后置为 true
func (s *MetricsServer) SetReady(ready bool) {
	s.ready.Store(ready)
}

func (s *MetricsServer) healthz(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("starting"))
		return
	}
	_, _ = w.Write([]byte("ok"))
}

// Run 启动指标暴露服务
func (s *MetricsServer) Run() {
	if s.server == nil {
		return // disabled
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.tl.Warn("❌ metrics server stopped", zap.String("addr", s.cfg.PrometheusAddr), zap.Error(err))
		}
	}()
}

// Stop 优雅关闭 HTTP 服务
func (s *MetricsServer) Stop(ctx context.Context) error {
	s.SetReady(false)
	if s.server == nil {
		return nil // disabled
	}

	s.server.SetKeepAlivesEnabled(false)
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

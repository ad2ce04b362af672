// Package metrics holds the prometheus collectors of solramp.
//
// Collectors are package-level and always safe to use; they are only
// exported once Register has been called and Serve exposes /metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "solramp"

var (
	quotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "requests_total",
			Help:      "Quote requests by result (ok, error, invalid, stale)",
		},
		[]string{"result"},
	)

	quoteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "duration_seconds",
			Help:      "Aggregator quote latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	stageTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_transitions_total",
			Help:      "Swap pipeline stage transitions",
		},
		[]string{"stage"},
	)

	pipelineFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "failures_total",
			Help:      "Failed swap submissions by failure kind",
		},
		[]string{"kind"},
	)

	pipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Swap submission duration in seconds by outcome",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"outcome"},
	)

	directoryFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tokens",
			Name:      "directory_fetches_total",
			Help:      "Token directory loads by source (remote, cache) and result",
		},
		[]string{"source", "result"},
	)

	rampRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ramp",
			Name:      "requests_total",
			Help:      "Fiat ramp initiations by type and result",
		},
		[]string{"type", "result"},
	)
)

func QuoteResult(result string) {
	quotesTotal.WithLabelValues(result).Inc()
}

func ObserveQuote(d time.Duration) {
	quoteDuration.Observe(d.Seconds())
}

func StageTransition(stage string) {
	stageTransitions.WithLabelValues(stage).Inc()
}

func PipelineFailure(kind string) {
	pipelineFailures.WithLabelValues(kind).Inc()
}

func DirectoryFetch(source, result string) {
	directoryFetches.WithLabelValues(source, result).Inc()
}

func RampRequest(rampType, result string) {
	rampRequests.WithLabelValues(rampType, result).Inc()
}

func ObservePipeline(outcome string, d time.Duration) {
	pipelineDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// Register registers every collector with the default registry
func Register(logger logrus.FieldLogger) {
	registerIfNotExists(collectors.NewGoCollector(), "go_collector", logger)
	registerIfNotExists(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}), "process_collector", logger)

	registerIfNotExists(quotesTotal, "quote_requests_total", logger)
	registerIfNotExists(quoteDuration, "quote_duration_seconds", logger)
	registerIfNotExists(stageTransitions, "pipeline_stage_transitions_total", logger)
	registerIfNotExists(pipelineFailures, "pipeline_failures_total", logger)
	registerIfNotExists(pipelineDuration, "pipeline_duration_seconds", logger)
	registerIfNotExists(directoryFetches, "tokens_directory_fetches_total", logger)
	registerIfNotExists(rampRequests, "ramp_requests_total", logger)
}

func registerIfNotExists(collector prometheus.Collector, name string, logger logrus.FieldLogger) {
	if err := prometheus.Register(collector); err != nil {
		var alreadyRegErr prometheus.AlreadyRegisteredError
		if errors.As(err, &alreadyRegErr) {
			logger.Debugf("%s already registered", name)
		} else {
			logger.Errorf("Failed to register %s: %v", name, err)
		}
	}
}

// Server exposes /metrics over HTTP
type Server struct {
	srv    *http.Server
	logger logrus.FieldLogger
}

// Serve starts the metrics endpoint on addr in the background
func Serve(addr string, logger logrus.FieldLogger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s := &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}

	go func() {
		logger.Infof("Metrics server listening on %s", addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Metrics server failed: %v", err)
		}
	}()

	return s
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "villa"

func counter(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
}

func latency(name, help string, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: name, Help: help, Buckets: prometheus.DefBuckets,
	}, labels)
}

var (
	// transport
	HTTPRequests     = counter("http_requests_total", "HTTP requests.", "route", "method", "status")
	HTTPLatency      = latency("http_request_duration_seconds", "HTTP request duration seconds.", "route", "method")
	ExternalRequests = counter("external_requests_total", "Outbound RPC and wallet bridge requests.", "service", "endpoint", "status")
	ExternalLatency  = latency("external_request_duration_seconds", "Outbound request duration seconds.", "service", "endpoint")
	CacheEvents      = counter("cache_events_total", "Snapshot cache hits/misses/sets/dels/errors.", "cache", "event")

	// domain
	CallsBuilt  = counter("calls_built_total", "Call descriptions built.", "op", "result")            // ok|rejected
	Submissions = counter("submissions_total", "Transactions handed to the executor.", "op", "status") // success|failed
	Refreshes   = counter("refreshes_total", "Owned-villa refreshes.", "result")                       // ok|failed
)

var (
	regOnce sync.Once
	reg     *prometheus.Registry
)

// Registry returns the process registry with every villa collector registered.
func Registry() *prometheus.Registry {
	regOnce.Do(func() {
		reg = prometheus.NewRegistry()
		reg.MustRegister(HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency, CacheEvents,
			CallsBuilt, Submissions, Refreshes)
	})
	return reg
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry(), promhttp.HandlerOpts{})
}

// Serve exposes the registry on its own listener; blank addr disables it.
func Serve(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	go func() {
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { CacheEvents.WithLabelValues(cache, event).Inc() }

func ObserveBuild(op, result string) { CallsBuilt.WithLabelValues(op, result).Inc() }

func ObserveSubmit(op, status string) { Submissions.WithLabelValues(op, status).Inc() }

func ObserveRefresh(result string) { Refreshes.WithLabelValues(result).Inc() }

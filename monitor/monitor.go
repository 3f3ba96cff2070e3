// monitor/monitor.go
package monitor

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wfunc/murderboard/actions"
	"github.com/wfunc/murderboard/logger"
)

type Metrics struct {
	OnlineSessions    prometheus.Gauge
	ActiveGames       prometheus.Gauge
	MessagesReceived  prometheus.Counter
	SessionsStarted   prometheus.Counter
	Eliminations      *prometheus.CounterVec
	Guesses           *prometheus.CounterVec
	ActionsDispatched *prometheus.CounterVec
	DispatchLatency   prometheus.Histogram
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OnlineSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_sessions",
			Help:      "Number of connected sessions",
		}),
		ActiveGames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_games",
			Help:      "Number of running games",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received",
		}),
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of started sessions",
		}),
		Eliminations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eliminations_total",
			Help:      "Elimination ticks by kind (character or nobody)",
		}, []string{"kind"}),
		Guesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guesses_total",
			Help:      "Guesses by outcome",
		}, []string{"outcome"}),
		ActionsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Processed actions by type",
		}, []string{"type"}),
		DispatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_latency_seconds",
			Help:      "Time to reduce an action and deliver it to subscribers",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 14),
		}),
	}

	reg.MustRegister(
		m.OnlineSessions,
		m.ActiveGames,
		m.MessagesReceived,
		m.SessionsStarted,
		m.Eliminations,
		m.Guesses,
		m.ActionsDispatched,
		m.DispatchLatency,
	)

	return m
}

type Monitor struct {
	metrics      *Metrics
	registry     *prometheus.Registry
	startTime    time.Time
	requestCount int64
	mutex        sync.Mutex
	server       *http.Server
}

// NewMonitor registers its metrics on a private registry.
func NewMonitor(namespace string) *Monitor {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Monitor{
		metrics:   NewMetrics(namespace, registry),
		registry:  registry,
		startTime: time.Now(),
	}
}

func (m *Monitor) Metrics() *Metrics {
	return m.metrics
}

func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves /metrics and /debug/vars.
func (m *Monitor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	return mux
}

var publishOnce sync.Once

func (m *Monitor) StartServer(addr string) {
	// 添加expvar指标
	publishOnce.Do(func() {
		expvar.Publish("uptime", expvar.Func(func() interface{} {
			return time.Since(m.startTime).Seconds()
		}))
		expvar.Publish("requests", expvar.Func(func() interface{} {
			m.mutex.Lock()
			defer m.mutex.Unlock()
			return m.requestCount
		}))
	})

	m.server = &http.Server{Addr: addr, Handler: m.Handler()}
	go func() {
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Errorf("metrics server: %v", err)
		}
	}()
}

func (m *Monitor) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}

func (m *Monitor) IncOnlineSessions() {
	m.metrics.OnlineSessions.Inc()
}

func (m *Monitor) DecOnlineSessions() {
	m.metrics.OnlineSessions.Dec()
}

func (m *Monitor) SetActiveGames(count int) {
	m.metrics.ActiveGames.Set(float64(count))
}

func (m *Monitor) IncMessagesReceived() {
	m.metrics.MessagesReceived.Inc()
	m.mutex.Lock()
	m.requestCount++
	m.mutex.Unlock()
}

// ObserveAction counts one processed action. It is called from every game loop.
func (m *Monitor) ObserveAction(a actions.Action, d time.Duration) {
	m.metrics.ActionsDispatched.WithLabelValues(string(a.Type)).Inc()
	m.metrics.DispatchLatency.Observe(d.Seconds())

	switch a.Type {
	case actions.StartSession:
		m.metrics.SessionsStarted.Inc()
	case actions.EliminateCharacter:
		if _, ok := a.EliminatedID(); ok {
			m.metrics.Eliminations.WithLabelValues("character").Inc()
		} else {
			m.metrics.Eliminations.WithLabelValues("nobody").Inc()
		}
	case actions.GuessSuccess:
		m.metrics.Guesses.WithLabelValues("success").Inc()
	case actions.GuessFailed:
		m.metrics.Guesses.WithLabelValues("failed").Inc()
	}
}

package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the coordinator's instruments. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Events        *prometheus.CounterVec
	ActorsLive    prometheus.Gauge
	ActorsSpawned prometheus.Counter
	Items         *prometheus.GaugeVec
}

// New creates the instruments and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "todo_events_total",
				Help: "Events dispatched to the list coordinator",
			},
			[]string{"event", "outcome"},
		),
		ActorsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "todo_actors_live",
			Help: "Item actors currently running",
		}),
		ActorsSpawned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "todo_actors_spawned_total",
			Help: "Item actors started",
		}),
		Items: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "todo_items",
				Help: "Items in the list by status",
			},
			[]string{"status"},
		),
	}
	reg.MustRegister(m.Events, m.ActorsLive, m.ActorsSpawned, m.Items)
	return m
}

func (m *Metrics) ObserveEvent(event string, accepted bool) {
	if m == nil {
		return
	}
	outcome := "accepted"
	if !accepted {
		outcome = "ignored"
	}
	m.Events.WithLabelValues(event, outcome).Inc()
}

func (m *Metrics) ActorStarted() {
	if m == nil {
		return
	}
	m.ActorsSpawned.Inc()
	m.ActorsLive.Inc()
}

func (m *Metrics) ActorStopped() {
	if m == nil {
		return
	}
	m.ActorsLive.Dec()
}

func (m *Metrics) SetItems(active, completed int) {
	if m == nil {
		return
	}
	m.Items.WithLabelValues("active").Set(float64(active))
	m.Items.WithLabelValues("completed").Set(float64(completed))
}

// Handler exposes /metrics for gatherer plus a /healthz probe.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Serve runs the metrics endpoint on addr until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(gatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Starting metrics server", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Package telemetry exports run progress as Prometheus metrics. A Telemetry
// is a learn.Observer: attach it to a Controller and serve its Handler.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/airlearn/airlearn/learn"
)

const namespace = "airlearn"

// Telemetry holds the run metrics on a private registry.
type Telemetry struct {
	registry *prometheus.Registry

	epsilon      prometheus.Gauge
	reward       prometheus.Gauge
	rewards      prometheus.Histogram
	clients      prometheus.Gauge
	offlineSteps prometheus.Gauge
	handshake    prometheus.Gauge
	performance  prometheus.Gauge
	qValue       prometheus.Gauge
	steps        *prometheus.CounterVec
	successes    prometheus.Counter
	episodes     prometheus.Counter
	scores       *prometheus.GaugeVec
}

// New creates a Telemetry with its own registry.
func New() *Telemetry {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Telemetry{
		registry: reg,
		epsilon: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "epsilon",
			Help:      "Exploration rate in effect",
		}),
		reward: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "step_reward",
			Help:      "Reward of the last step",
		}),
		rewards: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_reward_distribution",
			Help:      "Distribution of step rewards",
			Buckets:   []float64{-10, -1, 0, 1, 2, 5, 10, 25, 50},
		}),
		clients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "effective_clients",
			Help:      "Effective client count after the last step",
		}),
		offlineSteps: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "offline_steps",
			Help:      "Consecutive steps with zero effective clients",
		}),
		handshake: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "handshake_observed",
			Help:      "1 if the last capture observed a handshake",
		}),
		performance: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "performance",
			Help:      "Target reachability measured after the last step, successes per second",
		}),
		qValue: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "q_value",
			Help:      "Q value of the last updated state-action pair",
		}),
		steps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Completed steps by policy decision",
		}, []string{"decision"}),
		successes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "successes_total",
			Help:      "Steps classified as a success",
		}),
		episodes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "episodes_total",
			Help:      "Completed episodes",
		}),
		scores: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "episode_score",
			Help:      "Classification scores over the outcome history at the last episode boundary",
		}, []string{"metric"}),
	}
}

// ObserveStep implements learn.Observer.
func (t *Telemetry) ObserveStep(ev learn.StepEvent) {
	t.epsilon.Set(ev.Epsilon)
	t.reward.Set(ev.Reward)
	t.rewards.Observe(ev.Reward)
	t.clients.Set(float64(ev.Effective))
	t.offlineSteps.Set(float64(ev.Next.OfflineSteps))
	t.performance.Set(ev.Performance)
	t.qValue.Set(ev.QValue)
	if ev.Next.Handshake {
		t.handshake.Set(1)
	} else {
		t.handshake.Set(0)
	}
	t.steps.WithLabelValues(string(ev.Decision)).Inc()
	if ev.Outcome.Predicted == 1 {
		t.successes.Inc()
	}
}

// ObserveEpisode implements learn.Observer.
func (t *Telemetry) ObserveEpisode(ev learn.EpisodeEvent) {
	t.episodes.Inc()
	t.epsilon.Set(ev.EpsilonAfter)
	t.scores.WithLabelValues("accuracy").Set(ev.Metrics.Accuracy)
	t.scores.WithLabelValues("precision").Set(ev.Metrics.Precision)
	t.scores.WithLabelValues("recall").Set(ev.Metrics.Recall)
	t.scores.WithLabelValues("f1").Set(ev.Metrics.F1)
}

// Registry returns the registry the metrics live on.
func (t *Telemetry) Registry() *prometheus.Registry {
	return t.registry
}

// Handler serves /metrics from the private registry and a trivial /healthz.
func (t *Telemetry) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Serve listens on addr until ctx is done, then shuts the server down.
func (t *Telemetry) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           t.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("Serving metrics on %s/metrics", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Package metrics exports transmitter progress and timing to Prometheus.
package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sstvlive/sstv"
)

// Metrics holds the collectors for one transmitter. It implements
// sstv.Observer.
type Metrics struct {
	reg *prometheus.Registry

	transmissions *prometheus.CounterVec   // by result
	transmitting  prometheus.Gauge         // 1 while on air
	pulses        *prometheus.CounterVec   // header, sync and porch pulses by tone
	linePairs     prometheus.Counter       // line pairs completed
	segments      *prometheus.HistogramVec // scan segment duration by kind
	lateness      prometheus.Histogram     // pixel timer tick lateness
	lastStart     prometheus.Gauge         // Unix time of the last transmission start
}

// New creates the collectors on their own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		transmissions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sstv_transmissions_total",
				Help: "Transmissions finished, by result (ok, cancelled, error)",
			},
			[]string{"result"},
		),
		transmitting: f.NewGauge(prometheus.GaugeOpts{
			Name: "sstv_transmitting",
			Help: "1 while a transmission is on air",
		}),
		pulses: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sstv_pulses_total",
				Help: "Fixed-duration tones sent, by frequency",
			},
			[]string{"hz"},
		),
		linePairs: f.NewCounter(prometheus.CounterOpts{
			Name: "sstv_line_pairs_total",
			Help: "Line pairs sent",
		}),
		segments: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sstv_segment_duration_seconds",
				Help:    "Measured duration of scan segments",
				Buckets: prometheus.LinearBuckets(0.1200, 0.0005, 8),
			},
			[]string{"segment"},
		),
		lateness: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sstv_timer_lateness_seconds",
			Help:    "How late pixel timer ticks fired",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		lastStart: f.NewGauge(prometheus.GaugeOpts{
			Name: "sstv_last_transmission_start_timestamp_seconds",
			Help: "Unix time the last transmission started",
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) PulseEmitted(p sstv.Pulse) {
	m.pulses.WithLabelValues(hzLabel(p.Hz)).Inc()
}

func (m *Metrics) SegmentDone(kind sstv.SegmentType, elapsed time.Duration) {
	m.segments.WithLabelValues(kind.String()).Observe(elapsed.Seconds())
}

func (m *Metrics) LinePairDone(int) {
	m.linePairs.Inc()
}

// TimerLate records a late tick. It fits sstv.SpinTimer.Late.
func (m *Metrics) TimerLate(d time.Duration) {
	m.lateness.Observe(d.Seconds())
}

// Begin marks a transmission as started.
func (m *Metrics) Begin(now time.Time) {
	m.transmitting.Set(1)
	m.lastStart.Set(float64(now.Unix()))
}

// End marks a transmission as finished with err.
func (m *Metrics) End(err error) {
	m.transmitting.Set(0)
	m.transmissions.WithLabelValues(Result(err)).Inc()
}

// Result names the outcome of a transmission for labels and events.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "error"
}

func hzLabel(hz uint32) string {
	switch hz {
	case sstv.FreqVISOne:
		return "1100"
	case sstv.FreqSync:
		return "1200"
	case sstv.FreqVISZero:
		return "1300"
	case sstv.FreqBlack:
		return "1500"
	case sstv.FreqLeader:
		return "1900"
	}
	return "other"
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("[Metrics] Prometheus endpoint on http://%s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

package coordinator

import (
	"context"
	"time"

	"github.com/powersoftau/ceremony/log"
	"github.com/powersoftau/ceremony/metrics"
)

// logReportBackend renders a metrics snapshot through the coordinator's own
// structured logger. Nothing in this repo pushes metrics to an external
// collector yet, so this is the only metrics.ReportBackend registered.
type logReportBackend struct {
	log *log.Logger
}

func (b *logReportBackend) Report(snapshot map[string]float64) error {
	args := make([]any, 0, len(snapshot)*2)
	for name, v := range snapshot {
		args = append(args, name, v)
	}
	b.log.Info("metrics snapshot", args...)
	return nil
}

// ReporterService adapts a metrics.MetricsReporter into a coordinator
// Service: it periodically pulls every counter, gauge, and histogram out of
// metrics.DefaultRegistry, feeds them into the reporter via RecordMetric,
// and lets the reporter's own ticker push them to logReportBackend. The
// refresh loop runs at a finer grain than the reporter's export interval so
// a value changed between reporter ticks is never more than one refresh
// period stale when it gets exported.
type ReporterService struct {
	reporter *metrics.MetricsReporter
	registry *metrics.Registry
	refresh  time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewReporterService builds a ReporterService that exports a snapshot of
// metrics.DefaultRegistry to l every interval.
func NewReporterService(l *log.Logger, interval time.Duration) *ReporterService {
	r := metrics.NewMetricsReporter(interval)
	r.RegisterBackend("log", &logReportBackend{log: l})

	refresh := interval / 4
	if refresh < time.Second {
		refresh = time.Second
	}

	return &ReporterService{
		reporter: r,
		registry: metrics.DefaultRegistry,
		refresh:  refresh,
	}
}

func (s *ReporterService) Name() string { return "metrics-reporter" }

func (s *ReporterService) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	s.reporter.Start()
	go s.run(ctx)
	return nil
}

func (s *ReporterService) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
	s.reporter.Stop()
	return nil
}

func (s *ReporterService) run(ctx context.Context) {
	defer close(s.done)

	s.refreshOnce()
	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshOnce()
		}
	}
}

// refreshOnce copies the registry's current values into the reporter so
// its next export carries them. Histograms contribute their mean under a
// "_mean" suffixed name -- MetricsReporter.metrics is a flat
// map[string]float64 and can't carry a histogram's full shape.
func (s *ReporterService) refreshOnce() {
	for name, v := range s.registry.Snapshot() {
		switch val := v.(type) {
		case int64:
			s.reporter.RecordMetric(name, float64(val))
		case map[string]interface{}:
			if mean, ok := val["mean"].(float64); ok {
				s.reporter.RecordMetric(name+"_mean", mean)
			}
		}
	}
}

package session

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/hmdlab/headtrack/internal/session"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// samplesCounter wraps an otel counter so tick stays readable.
type samplesCounter struct {
	counter metric.Int64Counter
}

func (s *samplesCounter) add() {
	s.counter.Add(context.Background(), 1)
}

// setupMetrics registers the session instruments on the global meter
// (no-op if no SDK is configured).
func (c *Controller) setupMetrics() error {
	m := meter()

	var err error

	c.samplesRead.counter, err = m.Int64Counter(
		"headtrack.session.samples.read",
		metric.WithDescription("Total pose samples read"),
	)
	if err != nil {
		return err
	}

	c.substitutedRead.counter, err = m.Int64Counter(
		"headtrack.session.samples.substituted",
		metric.WithDescription("Total simulated samples substituted after source failures"),
	)
	if err != nil {
		return err
	}

	fpsGauge, err := m.Float64ObservableGauge(
		"headtrack.session.fps",
		metric.WithDescription("Smoothed sampling rate"),
	)
	if err != nil {
		return err
	}

	bufGauge, err := m.Int64ObservableGauge(
		"headtrack.session.buffer.size",
		metric.WithDescription("Current depth of each session buffer"),
	)
	if err != nil {
		return err
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			if snap := c.snapshot.Load(); snap != nil {
				o.ObserveFloat64(fpsGauge, snap.FPS)
			}
			o.ObserveInt64(bufGauge, int64(c.raw.Len()),
				metric.WithAttributes(attribute.String("buffer", "raw")))
			o.ObserveInt64(bufGauge, int64(c.trail.Len()),
				metric.WithAttributes(attribute.String("buffer", "trail")))
			o.ObserveInt64(bufGauge, int64(c.orients.Len()),
				metric.WithAttributes(attribute.String("buffer", "orients")))
			o.ObserveInt64(bufGauge, int64(c.frames.Len()),
				metric.WithAttributes(attribute.String("buffer", "frames")))
			return nil
		},
		fpsGauge, bufGauge,
	)
	return err
}

package db

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/TechXTT/webui"

type options struct {
	meterProvider metric.MeterProvider
}

// Option configures a DB.
type Option func(*options)

// WithMeterProvider records lease and query metrics on mp instead of the
// global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

type instruments struct {
	acquired metric.Int64Counter
	released metric.Int64Counter
	inUse    metric.Int64UpDownCounter
	duration metric.Float64Histogram
}

func newInstruments(mp metric.MeterProvider) *instruments {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	ins, err := buildInstruments(mp.Meter(instrumentationName))
	if err != nil {
		log.Warningf("metrics disabled: %v", err)
		ins, _ = buildInstruments(noop.NewMeterProvider().Meter(instrumentationName))
	}
	return ins
}

func buildInstruments(meter metric.Meter) (*instruments, error) {
	var (
		ins instruments
		err error
	)
	if ins.acquired, err = meter.Int64Counter("db.leases.acquired",
		metric.WithDescription("Connections leased from the pool")); err != nil {
		return nil, err
	}
	if ins.released, err = meter.Int64Counter("db.leases.released",
		metric.WithDescription("Connections returned to the pool")); err != nil {
		return nil, err
	}
	if ins.inUse, err = meter.Int64UpDownCounter("db.leases.in_use",
		metric.WithDescription("Connections currently leased")); err != nil {
		return nil, err
	}
	if ins.duration, err = meter.Float64Histogram("db.query.duration",
		metric.WithDescription("Round-trip time of scoped queries"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return &ins, nil
}

func (i *instruments) leaseAcquired(ctx context.Context) {
	i.acquired.Add(ctx, 1)
	i.inUse.Add(ctx, 1)
}

func (i *instruments) leaseReleased(ctx context.Context) {
	i.released.Add(ctx, 1)
	i.inUse.Add(ctx, -1)
}

func (i *instruments) queryDone(ctx context.Context, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	i.duration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}

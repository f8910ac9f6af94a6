package observability

import (
	"context"
	"time"

	"github.com/kbukum/httpkit/errors"
)

// Config selects which telemetry exporters Setup installs. An empty
// Endpoint disables both.
type Config struct {
	Endpoint   string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure   bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate float64       `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	Interval   time.Duration `yaml:"interval" mapstructure:"interval" validate:"gte=0"`
}

// Enabled reports whether an exporter endpoint is configured.
func (c Config) Enabled() bool { return c.Endpoint != "" }

// Setup installs the tracer and meter providers described by cfg and
// returns a function shutting both down. With telemetry disabled the
// returned function does nothing.
func Setup(ctx context.Context, cfg Config, serviceName, serviceVersion, environment string) (func(context.Context) error, error) {
	if !cfg.Enabled() {
		return func(context.Context) error { return nil }, nil
	}

	tcfg := DefaultTracerConfig(serviceName)
	tcfg.ServiceVersion = serviceVersion
	tcfg.Environment = environment
	tcfg.Endpoint = cfg.Endpoint
	tcfg.Insecure = cfg.Insecure
	if cfg.SampleRate > 0 {
		tcfg.SampleRate = cfg.SampleRate
	}
	tp, err := InitTracer(ctx, tcfg)
	if err != nil {
		return nil, err
	}

	mcfg := DefaultMeterConfig(serviceName)
	mcfg.ServiceVersion = serviceVersion
	mcfg.Environment = environment
	mcfg.Endpoint = cfg.Endpoint
	mcfg.Insecure = cfg.Insecure
	if cfg.Interval > 0 {
		mcfg.Interval = cfg.Interval
	}
	mp, err := InitMeter(ctx, mcfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

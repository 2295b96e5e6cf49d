package webmetrics

import (
	"io"
	"strconv"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Config controls whether the interceptors are installed and which
// percentiles each direction publishes. It is evaluated once, when an
// interceptor is constructed; flipping the flags afterwards has no
// effect on an installed interceptor.
type Config struct {
	// Enabled is the global metrics switch.
	Enabled bool `env:"METRICS_ENABLED,default=true"`

	Web WebConfig
}

// WebConfig holds the HTTP request metrics feature flags.
type WebConfig struct {
	// Enabled switches the HTTP request interceptors specifically.
	Enabled bool `env:"METRICS_WEB_ENABLED,default=true"`

	// ClientPercentiles and ServerPercentiles are independent: each
	// direction publishes only its own list, which may be empty.
	ClientPercentiles PercentileList `env:"METRICS_WEB_CLIENT_PERCENTILES"`
	ServerPercentiles PercentileList `env:"METRICS_WEB_SERVER_PERCENTILES"`
}

// PercentileList is a comma-separated list of floats, eg "0.5,0.95,0.99".
type PercentileList []float64

// Decode implements envdecode.Decoder.
func (p *PercentileList) Decode(repl string) error {
	if strings.TrimSpace(repl) == "" {
		*p = nil
		return nil
	}

	parts := strings.Split(repl, ",")
	out := make(PercentileList, 0, len(parts))
	for _, s := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return errors.Wrapf(err, "parsing percentile %q", s)
		}
		out = append(out, f)
	}

	*p = out
	return nil
}

// ConfigFromEnv decodes a Config from the environment.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return Config{}, errors.Wrap(err, "decoding webmetrics config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Disabled reports whether the interceptors should stay out of the
// dispatch path entirely.
func (c Config) Disabled() bool {
	return !c.Enabled || !c.Web.Enabled
}

// Validate checks that all configured percentiles are within [0, 1].
func (c Config) Validate() error {
	if err := validPercentiles(c.Web.ClientPercentiles); err != nil {
		return errors.Wrap(err, "client percentiles")
	}
	if err := validPercentiles(c.Web.ServerPercentiles); err != nil {
		return errors.Wrap(err, "server percentiles")
	}
	return nil
}

func validPercentiles(ps []float64) error {
	for _, p := range ps {
		if p < 0 || p > 1 {
			return errors.Errorf("percentile %v outside [0, 1]", p)
		}
	}
	return nil
}

// nopLogger is used when callers pass a nil logger; recording-path
// problems are then dropped instead of surfacing.
func nopLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func ensureLogger(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return nopLogger()
	}
	return l
}

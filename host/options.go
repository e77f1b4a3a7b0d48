package host

import "go.uber.org/zap"

// Option defines a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithLogger sets the structured logger. The default discards logs.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runtime) {
		if l != nil {
			r.log = l
		}
	}
}

// WithConfig sets the host configuration. Unset directories derive
// from the base directory.
func WithConfig(cfg Config) Option {
	return func(r *Runtime) {
		cfg.fillDerived()
		r.cfg = cfg
	}
}

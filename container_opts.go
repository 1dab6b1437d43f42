package nif

import "log/slog"

// Option configures a Container.
type Option func(*Container)

// WithResolver sets the resolver used by Load.
func WithResolver(r *Resolver) Option {
	return func(c *Container) {
		c.resolver = r
	}
}

// WithLogger sets the logger. Unknown block types are logged at warn level
// and fatal failures at error level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		c.logger = logger
	}
}

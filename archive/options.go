package archive

import "log/slog"

// Option configures an Archive.
type Option func(*Archive)

// WithMaxFileSize limits the maximum per-entry size (stored and original).
// Set limit to 0 to disable the limit.
func WithMaxFileSize(limit uint64) Option {
	return func(a *Archive) {
		a.maxFileSize = limit
	}
}

// WithMaxDecoderMemory limits the maximum memory used by the zstd decoder.
// Set limit to 0 to disable the limit.
func WithMaxDecoderMemory(limit uint64) Option {
	return func(a *Archive) {
		a.maxDecoderMemory = limit
	}
}

// WithMaxIndexSize limits the size of the index read by New.
// Set limit to 0 to disable the limit.
func WithMaxIndexSize(limit uint64) Option {
	return func(a *Archive) {
		a.maxIndexSize = limit
	}
}

// WithLogger sets the logger for archive operations.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}

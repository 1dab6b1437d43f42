package nif

import (
	"log/slog"

	"github.com/cenkalti/backoff/v4"
)

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithArchives sets the archives searched, in order, when no loose file exists.
func WithArchives(archives ...Archive) ResolverOption {
	return func(r *Resolver) {
		r.archives = append(r.archives[:0], archives...)
	}
}

// WithMaxFileSize limits the size of loose files.
// Set limit to 0 to disable the limit.
func WithMaxFileSize(limit uint64) ResolverOption {
	return func(r *Resolver) {
		r.maxFileSize = limit
	}
}

// WithLockBackOff sets the policy used while a loose file is locked.
// The factory is called once per acquisition. The default retries forever
// with exponential delays capped at two seconds.
func WithLockBackOff(newBackOff func() backoff.BackOff) ResolverOption {
	return func(r *Resolver) {
		if newBackOff != nil {
			r.newBackOff = newBackOff
		}
	}
}

// WithResolverLogger sets the logger for resolution events.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

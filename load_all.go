package nif

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// LoadOption configures LoadAll.
type LoadOption func(*loadConfig)

type loadConfig struct {
	concurrency int
	opts        []Option
}

// WithConcurrency limits the number of files loaded at once.
// Values <= 0 use GOMAXPROCS.
func WithConcurrency(n int) LoadOption {
	return func(c *loadConfig) {
		c.concurrency = n
	}
}

// WithContainerOptions applies opts to every container LoadAll creates.
func WithContainerOptions(opts ...Option) LoadOption {
	return func(c *loadConfig) {
		c.opts = append(c.opts, opts...)
	}
}

// LoadAll loads each name into its own Container, concurrently.
//
// Each file is still decoded sequentially; only independent files run in
// parallel. The registry is shared read-only. The first failure cancels the
// remaining loads and is returned; the result is nil in that case.
func LoadAll(ctx context.Context, reg *Registry, res *Resolver, names []string, opts ...LoadOption) ([]*Container, error) {
	cfg := loadConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.concurrency <= 0 {
		cfg.concurrency = runtime.GOMAXPROCS(0)
	}

	containers := make([]*Container, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.concurrency)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c := New(reg, append([]Option{WithResolver(res)}, cfg.opts...)...)
			if err := c.Load(ctx, name); err != nil {
				return err
			}
			containers[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return containers, nil
}

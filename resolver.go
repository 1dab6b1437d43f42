package nif

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/meigma/nif/internal/platform"
	"github.com/meigma/nif/internal/sizing"
)

// DefaultMaxFileSize is the default limit on loose file size (256MB).
const DefaultMaxFileSize = 256 << 20

// ErrSizeOverflow is returned when a loose file exceeds the size limit.
var ErrSizeOverflow = errors.New("nif: size overflow")

// Archive is a packed secondary byte source.
//
// ReadFile returns the decompressed content of an entry. A failing ReadFile
// after Exists reported the entry is fatal.
type Archive interface {
	Exists(name string) bool
	ReadFile(name string) ([]byte, error)
}

// Resolver turns a logical file name into bytes, preferring a loose file
// under the base directory and falling back to archives in order.
type Resolver struct {
	baseDir     string
	archives    []Archive
	maxFileSize uint64
	newBackOff  func() backoff.BackOff
	logger      *slog.Logger
}

// NewResolver creates a Resolver rooted at baseDir.
func NewResolver(baseDir string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		baseDir:     baseDir,
		maxFileSize: DefaultMaxFileSize,
		newBackOff:  defaultBackOff,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// defaultBackOff retries without an elapsed-time limit.
func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// log returns the logger, falling back to a discard logger if nil.
func (r *Resolver) log() *slog.Logger {
	if r.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.logger
}

// Path returns the loose-file path for name.
func (r *Resolver) Path(name string) string {
	return filepath.Join(r.baseDir, filepath.FromSlash(strings.ReplaceAll(name, `\`, "/")))
}

// Resolve returns the content of name.
//
// A loose file wins over archive entries. While the loose file is locked by
// another process, Resolve blocks and retries until the lock is released or
// ctx is done. All failures are returned as *Error.
func (r *Resolver) Resolve(ctx context.Context, name string) ([]byte, error) {
	path := r.Path(name)
	info, err := os.Stat(path)
	switch {
	case err == nil:
		if info.IsDir() {
			return nil, newError(KindSourceAccess, name, fmt.Errorf("%s is a directory", path))
		}
		data, readErr := r.readLoose(ctx, path)
		if readErr != nil {
			return nil, newError(KindFileRead, name, readErr)
		}
		r.log().Debug("resolved loose file", "name", name, "path", path, "size", len(data))
		return data, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, newError(KindSourceAccess, name, err)
	}

	for i, a := range r.archives {
		if !a.Exists(name) {
			continue
		}
		data, readErr := a.ReadFile(name)
		if readErr != nil {
			return nil, newError(KindArchiveRead, name, readErr)
		}
		r.log().Debug("resolved archive entry", "name", name, "archive", i, "size", len(data))
		return data, nil
	}

	return nil, newError(KindSourceNotFound, name, nil)
}

// readLoose opens path, retrying while it is locked, and reads it whole.
func (r *Resolver) readLoose(ctx context.Context, path string) ([]byte, error) {
	var f *os.File
	open := func() error {
		var err error
		f, err = platform.OpenShared(path)
		if errors.Is(err, platform.ErrLocked) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		r.log().Debug("file locked, retrying", "path", path, "wait", wait, "error", err)
	}
	if err := backoff.RetryNotify(open, backoff.WithContext(r.newBackOff(), ctx), notify); err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := sizing.ReadAllWithLimit(f, r.maxFileSize, ErrSizeOverflow)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

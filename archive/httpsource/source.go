// Package httpsource reads archives served over HTTP with range requests.
//
// A Source satisfies archive.ByteSource, so a remote archive can be opened
// with archive.New without downloading it:
//
//	src, err := httpsource.New(ctx, "https://mirror.example/meshes.npak")
//	if err != nil {
//		return err
//	}
//	a, err := archive.New(src)
//
// The Source pins the ETag (or Last-Modified date) seen when it was
// created, so a file replaced on the server fails reads instead of mixing
// bytes from two versions.
package httpsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Sentinel errors.
var (
	// ErrRangeUnsupported is returned when the server ignores range requests.
	ErrRangeUnsupported = errors.New("httpsource: range requests not supported")

	// ErrChanged is returned when the remote file changed after the Source
	// was created.
	ErrChanged = errors.New("httpsource: remote content changed")
)

// Source implements io.ReaderAt and Size over HTTP range requests.
//
// Source is safe for concurrent use.
type Source struct {
	ctx          context.Context
	url          string
	client       *http.Client
	headers      http.Header
	newBackOff   func() backoff.BackOff
	logger       *slog.Logger
	size         int64
	etag         string
	lastModified string
}

// Option configures a Source.
type Option func(*Source)

// WithClient sets the HTTP client used for requests.
func WithClient(client *http.Client) Option {
	return func(s *Source) {
		s.client = client
	}
}

// WithHeader sets a header sent with every request.
func WithHeader(key, value string) Option {
	return func(s *Source) {
		if s.headers == nil {
			s.headers = make(http.Header)
		}
		s.headers.Set(key, value)
	}
}

// WithBackOff sets the retry policy for transient failures (transport errors
// and 5xx responses). The default makes up to three attempts.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(s *Source) {
		if newBackOff != nil {
			s.newBackOff = newBackOff
		}
	}
}

// WithLogger sets the logger for request events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	return backoff.WithMaxRetries(b, 2)
}

// New probes url and returns a Source for it. ctx bounds every request the
// Source makes, including later reads.
func New(ctx context.Context, url string, opts ...Option) (*Source, error) {
	s := &Source{
		ctx:        ctx,
		url:        url,
		client:     http.DefaultClient,
		newBackOff: defaultBackOff,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = http.DefaultClient
	}
	if err := s.probe(); err != nil {
		return nil, fmt.Errorf("probe %s: %w", url, err)
	}
	s.log().Debug("remote archive probed", "url", url, "size", s.size, "etag", s.etag)
	return s, nil
}

func (s *Source) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// Size returns the size of the remote content.
func (s *Source) Size() int64 {
	return s.size
}

// ReadAt implements io.ReaderAt with one range request per call.
func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, fmt.Errorf("httpsource: negative offset %d", off)
	}
	if off >= s.size {
		return 0, io.EOF
	}
	want := int64(len(p))
	if want > s.size-off {
		want = s.size - off
	}

	var n int
	err := s.do(fmt.Sprintf("bytes=%d-%d", off, off+want-1), func(resp *http.Response) error {
		var err error
		n, err = io.ReadFull(resp.Body, p[:want])
		return err
	})
	if err != nil {
		return n, err
	}
	if want < int64(len(p)) {
		return n, io.EOF
	}
	return n, nil
}

// probe learns the size and validators with a one-byte range request.
func (s *Source) probe() error {
	return s.do("bytes=0-0", func(resp *http.Response) error {
		size, err := parseContentRange(resp.Header.Get("Content-Range"))
		if err != nil {
			return err
		}
		s.size = size
		s.etag = resp.Header.Get("ETag")
		s.lastModified = resp.Header.Get("Last-Modified")
		return nil
	})
}

// do issues a GET for rng and hands a 206 response to fn, retrying
// transient failures.
func (s *Source) do(rng string, fn func(*http.Response) error) error {
	op := func() error {
		req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, s.url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		for key, values := range s.headers {
			for _, v := range values {
				req.Header.Add(key, v)
			}
		}
		req.Header.Set("Range", rng)
		req.Header.Set("Accept-Encoding", "identity")
		if s.etag != "" {
			req.Header.Set("If-Match", s.etag)
		} else if s.lastModified != "" {
			req.Header.Set("If-Unmodified-Since", s.lastModified)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
			_ = resp.Body.Close()                 //nolint:errcheck // body already consumed
		}()

		switch {
		case resp.StatusCode == http.StatusPartialContent:
			if err := fn(resp); err != nil {
				return backoff.Permanent(err)
			}
			return nil
		case resp.StatusCode == http.StatusOK:
			return backoff.Permanent(ErrRangeUnsupported)
		case resp.StatusCode == http.StatusPreconditionFailed:
			return backoff.Permanent(ErrChanged)
		case resp.StatusCode >= 500:
			return fmt.Errorf("httpsource: %s", resp.Status)
		default:
			return backoff.Permanent(fmt.Errorf("httpsource: range %s: %s", rng, resp.Status))
		}
	}
	notify := func(err error, wait time.Duration) {
		s.log().Debug("range request failed, retrying", "url", s.url, "range", rng, "wait", wait, "error", err)
	}
	return backoff.RetryNotify(op, backoff.WithContext(s.newBackOff(), s.ctx), notify)
}

// parseContentRange returns the complete length from a
// "bytes first-last/length" header.
func parseContentRange(value string) (int64, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(value), "bytes ")
	if !ok {
		return 0, fmt.Errorf("httpsource: invalid Content-Range %q", value)
	}
	_, total, ok := strings.Cut(rest, "/")
	if !ok || total == "*" {
		return 0, fmt.Errorf("httpsource: invalid Content-Range %q", value)
	}
	size, err := strconv.ParseInt(total, 10, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("httpsource: invalid Content-Range %q", value)
	}
	return size, nil
}

package loader

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
)

// Resolver turns source references into drawable handles.
type Resolver interface {
	LoadImage(ctx context.Context, src string) (*ImageHandle, error)
	LoadVideo(ctx context.Context, src string) (*VideoHandle, error)
}

// Loader is the default Resolver.
type Loader struct {
	fetcher Fetcher
	group   singleflight.Group
	timeout time.Duration
}

// Option configures a Loader.
type Option func(*Loader)

// WithFetcher replaces the byte fetcher.
func WithFetcher(f Fetcher) Option {
	return func(l *Loader) {
		if f != nil {
			l.fetcher = f
		}
	}
}

// WithTimeout bounds each fetch. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) {
		if d >= 0 {
			l.timeout = d
		}
	}
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(l)
	}
	if l.fetcher == nil {
		l.fetcher = &DefaultFetcher{Client: &http.Client{}, Timeout: l.timeout}
	}
	return l
}

// LoadImage fetches and decodes the image behind src.
func (l *Loader) LoadImage(ctx context.Context, src string) (*ImageHandle, error) {
	s, err := l.fetch(ctx, src)
	if err != nil {
		return nil, &LoadError{Kind: "image", Src: src, Err: err}
	}
	h, err := decodeImage(src, s.data)
	if err != nil {
		return nil, &LoadError{Kind: "image", Src: src, Err: err}
	}
	return h, nil
}

// LoadVideo fetches src and probes its metadata. The returned handle is
// paused.
func (l *Loader) LoadVideo(ctx context.Context, src string) (*VideoHandle, error) {
	s, err := l.fetch(ctx, src)
	if err != nil {
		return nil, &LoadError{Kind: "video", Src: src, Err: err}
	}
	meta, err := probeVideo(s.data)
	if err != nil {
		return nil, &LoadError{Kind: "video", Src: src, Err: err}
	}
	return NewVideoHandle(src, meta), nil
}

// fetch coalesces concurrent reads of the same reference. The shared fetch
// runs detached from any one caller so a cancelled caller does not fail the
// others; each caller still stops waiting when its own context ends.
func (l *Loader) fetch(ctx context.Context, src string) (source, error) {
	if src == "" {
		return source{}, ErrEmptySource
	}
	if err := ctx.Err(); err != nil {
		return source{}, err
	}

	ch := l.group.DoChan(src, func() (any, error) {
		fctx := context.Background()
		if l.timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, l.timeout)
			defer cancel()
		}
		data, mediaType, err := l.fetcher.Fetch(fctx, src)
		if err != nil {
			return nil, err
		}
		return source{data: data, mediaType: mediaType}, nil
	})

	select {
	case <-ctx.Done():
		return source{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return source{}, res.Err
		}
		return res.Val.(source), nil
	}
}

package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/vidyasagar/navshell/internal/nav"
)

// Result is a surface's answer to one load. ID zero marks a navigation the
// surface started on its own.
type Result struct {
	ID        nav.LoadID
	Kind      nav.IntentKind
	Requested nav.Location
	Final     nav.Location
	Page      *RenderedPage
	Err       error
}

// Apply hands r to the session as exactly one finish or failure callback. It
// must run on the session's owner goroutine.
func (r Result) Apply(s *nav.Session) {
	if r.Err != nil {
		s.OnLoadFailed(r.ID, r.Err.Error())
		return
	}
	s.OnLoadFinished(r.ID, r.Final)
}

// Sink receives load results. Implementations forward them to the session
// owner; a Sink must not block for long.
type Sink func(Result)

// HTTPOptions configures an HTTPSurface.
type HTTPOptions struct {
	Timeout   time.Duration
	CacheSize int
	Style     string
	Logger    *zap.Logger
}

// cachedPage keeps the article so a page can be re-rendered when the width
// has changed since it was cached.
type cachedPage struct {
	article *Article
	page    *RenderedPage
	width   int
}

// HTTPSurface loads pages with a plain HTTP fetch, extracts the readable
// article and renders it for the terminal.
type HTTPSurface struct {
	fetcher  *Fetcher
	renderer *Renderer
	sink     Sink
	timeout  time.Duration
	cache    *lru.Cache[nav.Location, cachedPage]
	log      *zap.Logger
	width    atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHTTPSurface creates a surface that reports through sink.
func NewHTTPSurface(fetcher *Fetcher, sink Sink, opts HTTPOptions) (*HTTPSurface, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 50
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	cache, err := lru.New[nav.Location, cachedPage](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating page cache: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &HTTPSurface{
		fetcher:  fetcher,
		renderer: NewRenderer(opts.Style),
		sink:     sink,
		timeout:  opts.Timeout,
		cache:    cache,
		log:      opts.Logger.Named("http-surface"),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.width.Store(80)
	return s, nil
}

// SetWidth sets the render width used by subsequent loads.
func (s *HTTPSurface) SetWidth(width int) {
	if width > 0 {
		s.width.Store(int64(width))
	}
}

// IssueLoad implements nav.Surface. History moves are served from the page
// cache when possible; new loads always go to the network. The result is
// always delivered from another goroutine, since the caller is the owner the
// sink posts back to.
func (s *HTTPSurface) IssueLoad(req nav.LoadRequest) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if req.Kind != nav.IntentLoadURL {
			if page, ok := s.cached(req.Location); ok {
				s.sink(Result{ID: req.ID, Kind: req.Kind, Requested: req.Location, Final: req.Location, Page: page})
				return
			}
		}
		s.sink(s.load(req))
	}()
}

func (s *HTTPSurface) load(req nav.LoadRequest) Result {
	res := Result{ID: req.ID, Kind: req.Kind, Requested: req.Location}

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	fetched, err := s.fetcher.Fetch(ctx, string(req.Location))
	if err != nil {
		res.Err = loadFailure(ctx, s.timeout, err)
		s.log.Debug("fetch failed", zap.String("location", string(req.Location)), zap.Error(err))
		return res
	}

	article, err := Extract(fetched)
	if err != nil {
		res.Err = err
		return res
	}

	width := int(s.width.Load())
	page := s.renderer.Render(article, width)
	final := nav.Location(fetched.FinalURL)
	entry := cachedPage{article: article, page: page, width: width}
	s.cache.Add(final, entry)
	if final != req.Location {
		s.cache.Add(req.Location, entry)
	}

	res.Final = final
	res.Page = page
	return res
}

// cached returns the cached page for loc at the current width.
func (s *HTTPSurface) cached(loc nav.Location) (*RenderedPage, bool) {
	entry, ok := s.cache.Get(loc)
	if !ok {
		return nil, false
	}
	width := int(s.width.Load())
	if entry.width != width {
		entry.page = s.renderer.Render(entry.article, width)
		entry.width = width
		s.cache.Add(loc, entry)
	}
	s.log.Debug("page cache hit", zap.String("location", string(loc)), zap.Int("width", width))
	return entry.page, true
}

// Close cancels loads in flight and waits for their results to be delivered.
func (s *HTTPSurface) Close() error {
	s.cancel()
	s.wg.Wait()
	return nil
}

// loadFailure turns a fetch error into the reason reported to the session.
func loadFailure(ctx context.Context, timeout time.Duration, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("timed out after %s", timeout)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return errors.New("canceled")
	}
	return err
}

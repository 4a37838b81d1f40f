package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/vidyasagar/navshell/internal/nav"
)

// ChromeOptions configures a ChromeSurface. With ControlURL empty a browser
// is launched, from Bin if set.
type ChromeOptions struct {
	ControlURL      string
	Bin             string
	Headless        bool
	TrackNavigation bool
	Timeout         time.Duration
	Style           string
	Logger          *zap.Logger
}

// ChromeSurface drives a single Chrome page over the DevTools protocol and
// renders what it shows like the HTTP surface does.
type ChromeSurface struct {
	browser  *rod.Browser
	page     *rod.Page
	launch   *launcher.Launcher
	renderer *Renderer
	sink     Sink
	timeout  time.Duration
	log      *zap.Logger
	width    atomic.Int64

	// loads counts navigations issued by us, so self-started ones can be
	// told apart.
	loads atomic.Int32

	mu     sync.Mutex // serializes page operations
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewChromeSurface connects to (or launches) Chrome and opens a blank page.
func NewChromeSurface(ctx context.Context, sink Sink, opts ChromeOptions) (*ChromeSurface, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &ChromeSurface{
		renderer: NewRenderer(opts.Style),
		sink:     sink,
		timeout:  opts.Timeout,
		log:      opts.Logger.Named("chrome-surface"),
	}
	s.width.Store(80)

	controlURL := opts.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(opts.Headless)
		if opts.Bin != "" {
			l = l.Bin(opts.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		s.launch = l
		controlURL = u
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	browser := rod.New().ControlURL(controlURL).Context(s.ctx)
	if err := browser.Connect(); err != nil {
		s.shutdown()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	s.browser = browser

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		s.shutdown()
		return nil, fmt.Errorf("create page: %w", err)
	}
	s.page = page.Context(s.ctx)
	s.log.Info("connected", zap.String("control_url", controlURL))

	if opts.TrackNavigation {
		s.trackNavigation()
	}
	return s, nil
}

// SetWidth sets the render width used by subsequent loads.
func (s *ChromeSurface) SetWidth(width int) {
	if width > 0 {
		s.width.Store(int64(width))
	}
}

// IssueLoad implements nav.Surface.
func (s *ChromeSurface) IssueLoad(req nav.LoadRequest) {
	s.wg.Add(1)
	s.loads.Add(1)
	go func() {
		defer s.wg.Done()
		res := s.load(req)
		s.loads.Add(-1)
		s.sink(res)
	}()
}

func (s *ChromeSurface) load(req nav.LoadRequest) Result {
	res := Result{ID: req.ID, Kind: req.Kind, Requested: req.Location}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	page := s.page.Context(ctx)

	start := time.Now()
	if err := page.Navigate(string(req.Location)); err != nil {
		res.Err = loadFailure(ctx, s.timeout, err)
		return res
	}
	if err := page.WaitLoad(); err != nil {
		res.Err = loadFailure(ctx, s.timeout, err)
		return res
	}

	rendered, final, err := s.render(page, time.Since(start))
	if err != nil {
		res.Err = loadFailure(ctx, s.timeout, err)
		return res
	}
	res.Final = final
	res.Page = rendered
	return res
}

func (s *ChromeSurface) render(page *rod.Page, took time.Duration) (*RenderedPage, nav.Location, error) {
	info, err := page.Info()
	if err != nil {
		return nil, "", fmt.Errorf("reading page info: %w", err)
	}
	html, err := page.HTML()
	if err != nil {
		return nil, "", fmt.Errorf("reading page html: %w", err)
	}

	article, err := Extract(&FetchResult{
		URL:         info.URL,
		FinalURL:    info.URL,
		StatusCode:  200,
		ContentType: "text/html",
		Body:        []byte(html),
		Duration:    took,
	})
	if err != nil {
		return nil, "", err
	}
	if article.Title == info.URL && info.Title != "" {
		article.Title = info.Title
	}
	return s.renderer.Render(article, int(s.width.Load())), nav.Location(info.URL), nil
}

// trackNavigation reports main-frame navigations the page starts itself,
// such as script redirects, as results with ID zero.
func (s *ChromeSurface) trackNavigation() {
	wait := s.page.EachEvent(func(ev *proto.PageFrameNavigated) {
		if ev.Frame == nil || ev.Frame.ParentID != "" || s.loads.Load() > 0 {
			return
		}
		loc, err := nav.ParseLocation(ev.Frame.URL)
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.mu.Lock()
			rendered, _, err := s.render(s.page, 0)
			s.mu.Unlock()
			if err != nil {
				s.log.Debug("render after self navigation", zap.Error(err))
			}
			s.sink(Result{Final: loc, Requested: loc, Page: rendered})
		}()
	})
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		wait()
	}()
}

// Close stops in-flight loads, closes the browser and, if it was launched
// here, cleans up its process.
func (s *ChromeSurface) Close() error {
	s.cancel()
	s.wg.Wait()
	return s.shutdown()
}

func (s *ChromeSurface) shutdown() error {
	var err error
	if s.cancel != nil {
		s.cancel()
	}
	if s.browser != nil {
		// The browser context is already canceled; close on a fresh one.
		err = s.browser.Context(context.Background()).Close()
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	}
	if s.launch != nil {
		s.launch.Cleanup()
	}
	return err
}

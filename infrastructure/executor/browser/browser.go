// Package browser applies actions to live pages in Chrome through go-rod.
//
// Page code is never built from action parameters. Every mutation evaluates
// one of two fixed functions and passes selector, property, value and label
// as call arguments.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/felixgeelhaar/domguard/domain/action"
	"github.com/felixgeelhaar/domguard/domain/dispatch"
	"github.com/felixgeelhaar/domguard/infrastructure/logging"
)

// SetStyleJS applies one inline style property to every matching element.
const SetStyleJS = `(sel, prop, value) => {
	document.querySelectorAll(sel).forEach(el => el.style.setProperty(prop, value));
}`

// FeedbackJS flashes a border on the page body and restores it.
const FeedbackJS = `(label, border, ms) => {
	const body = document.body;
	if (!body) return;
	const prev = body.style.border;
	body.style.border = border;
	console.log("domguard: " + label);
	setTimeout(() => { body.style.border = prev; }, ms);
}`

// Config holds browser configuration.
type Config struct {
	// ControlURL connects to a running Chrome. When empty a browser is launched.
	ControlURL string `json:"control_url" yaml:"control_url"`

	// Bin is the Chrome binary used when launching.
	Bin string `json:"bin" yaml:"bin"`

	Headless bool `json:"headless" yaml:"headless"`

	// LoadTimeout bounds waiting for a newly opened page.
	LoadTimeout time.Duration `json:"load_timeout" yaml:"load_timeout"`

	// FeedbackDuration is how long the feedback highlight stays visible.
	FeedbackDuration time.Duration `json:"feedback_duration" yaml:"feedback_duration"`
}

// DefaultConfig returns the default browser configuration.
func DefaultConfig() Config {
	return Config{
		Headless:         true,
		LoadTimeout:      15 * time.Second,
		FeedbackDuration: 1500 * time.Millisecond,
	}
}

// Executor applies actions to the page whose URL equals the target handle,
// opening it when no tab shows it yet.
type Executor struct {
	registry *action.Registry
	cfg      Config

	// launch starts Chrome and returns its control URL and a stop func.
	launch func() (string, func(), error)

	mu      sync.Mutex
	browser *rod.Browser
	stop    func()
}

var _ dispatch.Executor = (*Executor)(nil)

// NewExecutor creates a browser executor. The browser is started lazily on
// the first invocation.
func NewExecutor(registry *action.Registry, cfg Config) *Executor {
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultConfig().LoadTimeout
	}
	if cfg.FeedbackDuration <= 0 {
		cfg.FeedbackDuration = DefaultConfig().FeedbackDuration
	}
	e := &Executor{registry: registry, cfg: cfg}
	e.launch = e.launchChrome
	return e
}

// Invoke applies the action to the page at target.
func (e *Executor) Invoke(ctx context.Context, id action.ID, params action.Params, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := e.registry.Get(id); !ok {
		return fmt.Errorf("%w: %s", action.ErrUnknownAction, id)
	}

	b, err := e.ensureBrowser(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", dispatch.ErrTargetUnavailable, err)
	}

	page, err := e.page(ctx, b, target)
	if err != nil {
		return fmt.Errorf("%w: %w", dispatch.ErrTargetUnavailable, err)
	}

	return e.registry.Apply(id, params, NewTarget(ctx, page, e.cfg.FeedbackDuration))
}

// Close disconnects from the browser and stops it if it was launched here.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var err error
	if e.browser != nil {
		err = e.browser.Close()
		e.browser = nil
	}
	if e.stop != nil {
		e.stop()
		e.stop = nil
	}
	return err
}

func (e *Executor) ensureBrowser(ctx context.Context) (*rod.Browser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.browser != nil {
		return e.browser, nil
	}

	controlURL := e.cfg.ControlURL
	var stop func()
	if controlURL == "" {
		url, kill, err := e.launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL, stop = url, kill
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		if stop != nil {
			stop()
		}
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	logging.Info().
		Add(logging.Component("browser")).
		Add(logging.Str("control_url", controlURL)).
		Msg("browser connected")

	e.browser = b
	e.stop = stop
	return b, nil
}

func (e *Executor) launchChrome() (string, func(), error) {
	l := launcher.New().Headless(e.cfg.Headless)
	if e.cfg.Bin != "" {
		l = l.Bin(e.cfg.Bin)
	}
	url, err := l.Launch()
	if err != nil {
		return "", nil, err
	}
	return url, l.Kill, nil
}

func (e *Executor) page(ctx context.Context, b *rod.Browser, url string) (*rod.Page, error) {
	pages, err := b.Context(ctx).Pages()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	for _, p := range pages {
		info, err := p.Info()
		if err == nil && info.URL == url {
			return p.Context(ctx), nil
		}
	}

	page, err := b.Context(ctx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", url, err)
	}
	if err := page.Timeout(e.cfg.LoadTimeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("load %s: %w", url, err)
	}
	return page.Context(ctx), nil
}

// Package browser drives a single headless Chrome tab over the DevTools
// protocol. A Session is not safe for concurrent Navigate or Evaluate
// calls; host functions may run while an evaluation is in flight.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"episode-crawler/pkg/logger"
)

const (
	defaultNavigationTimeout = 60 * time.Second
	defaultEvaluationTimeout = 30 * time.Second
	defaultReadySelector     = "body"
)

// Options configures the browser process and per-call deadlines.
type Options struct {
	Headless          bool          `mapstructure:"headless"`
	NoSandbox         bool          `mapstructure:"no_sandbox"`
	UserAgent         string        `mapstructure:"user_agent"`
	ExecPath          string        `mapstructure:"exec_path"`
	ReadySelector     string        `mapstructure:"ready_selector"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	EvaluationTimeout time.Duration `mapstructure:"evaluation_timeout"`
}

// DefaultOptions returns headless options with default timeouts.
func DefaultOptions() Options {
	return Options{
		Headless:          true,
		ReadySelector:     defaultReadySelector,
		NavigationTimeout: defaultNavigationTimeout,
		EvaluationTimeout: defaultEvaluationTimeout,
	}
}

func (o Options) withDefaults() Options {
	if o.ReadySelector == "" {
		o.ReadySelector = defaultReadySelector
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = defaultNavigationTimeout
	}
	if o.EvaluationTimeout <= 0 {
		o.EvaluationTimeout = defaultEvaluationTimeout
	}
	return o
}

// Session is one browser process with one tab.
type Session struct {
	log  logger.Interface
	opts Options

	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	mu       sync.Mutex
	funcs    map[string]HostFunc
	inflight context.Context

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Open launches the browser and attaches to a blank tab. The browser
// outlives ctx; only Close terminates it.
func Open(ctx context.Context, opts Options, log logger.Interface) (*Session, error) {
	if log == nil {
		log = logger.NewNoOp()
	}
	opts = opts.withDefaults()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.DisableGPU,
	)
	if opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	s := &Session{
		log:   log.WithComponent("browser"),
		opts:  opts,
		funcs: make(map[string]HostFunc),
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			s.log.Debug(fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			s.log.Warn(fmt.Sprintf(format, args...))
		}),
	)
	s.allocCancel = allocCancel
	s.tabCtx = tabCtx
	s.tabCancel = tabCancel

	chromedp.ListenTarget(tabCtx, s.onTargetEvent)

	// The first Run allocates the browser and binds its lifetime to the
	// context it is given, so it gets tabCtx itself and ctx only bounds the wait.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(tabCtx) }()

	select {
	case err := <-started:
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("start browser: %w", err)
		}
	case <-ctx.Done():
		_ = s.Close()
		return nil, fmt.Errorf("start browser: %w", ctx.Err())
	}

	s.log.Info("Browser session opened", "headless", opts.Headless)
	return s, nil
}

// Navigate loads url and waits for the ready selector. Failures and
// timeouts are reported as *NavigationError.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if s.closed.Load() {
		return &NavigationError{URL: url, Err: ErrClosed}
	}

	runCtx, cancel := s.callContext(ctx, s.opts.NavigationTimeout)
	defer cancel()

	start := time.Now()
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(s.opts.ReadySelector, chromedp.ByQuery),
	)
	if err != nil {
		return &NavigationError{URL: url, Err: callError(ctx, runCtx, err)}
	}

	s.log.Debug("Page loaded", "url", url, "duration", time.Since(start))
	return nil
}

// Evaluate calls the function expression script in the page with args
// encoded as JSON, awaits the result if it is a promise and decodes the
// JSON value into out. out may be nil to discard the result.
func (s *Session) Evaluate(ctx context.Context, script string, out any, args ...any) error {
	if s.closed.Load() {
		return &EvaluationError{Err: ErrClosed}
	}

	expr, err := invocation(script, args)
	if err != nil {
		return &EvaluationError{Err: err}
	}

	runCtx, cancel := s.callContext(ctx, s.opts.EvaluationTimeout)
	defer cancel()

	s.setInflight(runCtx)
	defer s.setInflight(nil)

	var raw json.RawMessage
	if err := chromedp.Run(runCtx, chromedp.Evaluate(expr, &raw, awaitPromise)); err != nil {
		return &EvaluationError{Err: callError(ctx, runCtx, err)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &EvaluationError{Err: fmt.Errorf("decode result: %w", err)}
	}
	return nil
}

// ExposeHostFunction makes fn callable from page scripts as an async
// function window[name]. The binding survives navigations.
func (s *Session) ExposeHostFunction(ctx context.Context, name string, fn HostFunc) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if !hostFunctionName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidHostFunctionName, name)
	}

	s.mu.Lock()
	if _, ok := s.funcs[name]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrHostFunctionExists, name)
	}
	s.funcs[name] = fn
	s.mu.Unlock()

	install := installScript(name)

	runCtx, cancel := s.callContext(ctx, s.opts.EvaluationTimeout)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			if err := runtime.AddBinding(bindingPrefix + name).Do(ctx); err != nil {
				return fmt.Errorf("add binding: %w", err)
			}
			if _, err := page.AddScriptToEvaluateOnNewDocument(install).Do(ctx); err != nil {
				return fmt.Errorf("add init script: %w", err)
			}
			return nil
		}),
		chromedp.Evaluate(install, nil),
	)
	if err != nil {
		s.mu.Lock()
		delete(s.funcs, name)
		s.mu.Unlock()
		return fmt.Errorf("expose host function %s: %w", name, callError(ctx, runCtx, err))
	}

	s.log.Debug("Host function exposed", "name", name)
	return nil
}

// Close terminates the browser. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if err := chromedp.Cancel(s.tabCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = fmt.Errorf("close browser: %w", err)
		}
		s.tabCancel()
		s.allocCancel()
		s.log.Info("Browser session closed")
	})
	return s.closeErr
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// callContext derives a context from the tab bounded by timeout and
// cancelled together with the caller's ctx.
func (s *Session) callContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// callError prefers the caller's cancellation cause over the derived
// context error chromedp reports.
func callError(callerCtx, runCtx context.Context, err error) error {
	if callerCtx.Err() != nil {
		return fmt.Errorf("%w: %w", callerCtx.Err(), err)
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return err
}

func (s *Session) setInflight(ctx context.Context) {
	s.mu.Lock()
	s.inflight = ctx
	s.mu.Unlock()
}

// hostContext is the context handed to host functions: the in-flight
// evaluation's when there is one, so a cancelled evaluation cancels its
// host calls too.
func (s *Session) hostContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight != nil {
		return s.inflight
	}
	return s.tabCtx
}

func (s *Session) onTargetEvent(ev any) {
	call, ok := ev.(*runtime.EventBindingCalled)
	if !ok || !strings.HasPrefix(call.Name, bindingPrefix) {
		return
	}
	// Listeners must not block the event loop.
	go s.handleBindingCall(strings.TrimPrefix(call.Name, bindingPrefix), call.Payload)
}

func (s *Session) handleBindingCall(name, payload string) {
	var req bindingRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		s.log.Warn("Malformed host function call", "name", name, "error", err)
		return
	}

	s.mu.Lock()
	fn, ok := s.funcs[name]
	s.mu.Unlock()

	var (
		result any
		err    error
	)
	if !ok {
		err = fmt.Errorf("host function %s is not exposed", name)
	} else {
		result, err = fn(s.hostContext(), req.Args)
	}

	expr, encErr := deliverExpression(req.Seq, result, err)
	if encErr != nil {
		expr, _ = deliverExpression(req.Seq, nil, encErr)
	}

	ctx, cancel := context.WithTimeout(s.tabCtx, s.opts.EvaluationTimeout)
	defer cancel()
	if runErr := chromedp.Run(ctx, chromedp.Evaluate(expr, nil)); runErr != nil && !s.closed.Load() {
		s.log.Warn("Failed to deliver host function result", "name", name, "seq", req.Seq, "error", runErr)
	}
}

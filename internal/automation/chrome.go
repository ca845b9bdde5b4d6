package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/tunelark/crossfade/internal/shared"
)

// ChromeSession implements [Session] on top of chromedp.
//
// The session owns its browser context; caller contexts bound individual
// operations while the browser's lifetime is tied to Start/Stop.
type ChromeSession struct {
	headless    bool
	browserCtx  context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// NewChromeSession creates an unstarted Chrome-backed session.
func NewChromeSession(headless bool) *ChromeSession {
	return &ChromeSession{headless: headless}
}

// Start launches the browser process with a fixed window size.
func (s *ChromeSession) Start(ctx context.Context) error {
	if s.browserCtx != nil {
		return fmt.Errorf("automation session already started")
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.headless),
		chromedp.WindowSize(1000, 800),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelCtx := chromedp.NewContext(allocCtx)

	// Eagerly launch so a missing chrome binary surfaces here, not on the
	// first page operation.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelCtx()
		cancelAlloc()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	s.browserCtx = browserCtx
	s.cancelCtx = cancelCtx
	s.cancelAlloc = cancelAlloc
	return nil
}

// Stop tears the browser down. Idempotent.
func (s *ChromeSession) Stop() error {
	if s.browserCtx == nil {
		return nil
	}
	s.cancelCtx()
	s.cancelAlloc()
	s.browserCtx = nil
	s.cancelCtx = nil
	s.cancelAlloc = nil
	return nil
}

// run executes chromedp actions against the session, bounded by the caller's
// context deadline when one is set.
func (s *ChromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	if s.browserCtx == nil {
		return shared.ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	runCtx := s.browserCtx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(s.browserCtx, deadline)
		defer cancel()
	}

	return chromedp.Run(runCtx, actions...)
}

func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *ChromeSession) WaitVisible(ctx context.Context, sel string, timeout time.Duration) (bool, error) {
	if s.browserCtx == nil {
		return false, shared.ErrSessionClosed
	}

	waitCtx, cancel := context.WithTimeout(s.browserCtx, timeout)
	defer cancel()

	err := chromedp.Run(waitCtx, chromedp.WaitVisible(sel, chromedp.ByQuery))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %s: %v", shared.ErrElementWait, sel, err)
}

func (s *ChromeSession) Click(ctx context.Context, sel string) error {
	return s.run(ctx, chromedp.Click(sel, chromedp.ByQuery))
}

func (s *ChromeSession) SendKeys(ctx context.Context, sel, keys string) error {
	return s.run(ctx, chromedp.SendKeys(sel, keys, chromedp.ByQuery))
}

func (s *ChromeSession) ClearInput(ctx context.Context, sel string) error {
	return s.run(ctx, chromedp.SetValue(sel, "", chromedp.ByQuery))
}

func (s *ChromeSession) PressEnter(ctx context.Context, sel string) error {
	return s.run(ctx, chromedp.SendKeys(sel, kb.Enter, chromedp.ByQuery))
}

// ZoomOut shrinks the page body so virtualized playlist rows all render.
func (s *ChromeSession) ZoomOut(ctx context.Context) error {
	return s.run(ctx, chromedp.Evaluate(`document.body.style.zoom='5%'`, nil))
}

func (s *ChromeSession) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

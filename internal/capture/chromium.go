package capture

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/chromedp/chromedp"

	"agecalc/internal/model"
)

// Default capture parameters for a result page.
const (
	DefaultWidth      = 800
	DefaultHeight     = 600
	DefaultTimeoutSec = 30
)

// Options defines parameters for a Chromium-based screenshot capture.
type Options struct {
	// BaseURL is where the form is served, e.g. "http://127.0.0.1:8080".
	BaseURL string

	// Date is the entered birth date rendered on the captured page.
	Date model.CalendarDate

	// OutputPath is where the PNG screenshot will be written.
	OutputPath string

	// Width and Height are the viewport dimensions in pixels. If zero,
	// DefaultWidth / DefaultHeight are used.
	Width  int
	Height int

	// Timeout bounds the entire capture operation. If zero,
	// DefaultTimeoutSec is used.
	Timeout time.Duration
}

// ResultURL returns the page URL that renders the result for d.
func ResultURL(baseURL string, d model.CalendarDate) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("capture: base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("capture: base URL %q must be absolute", baseURL)
	}
	u.Path = "/"
	q := url.Values{}
	q.Set("day", strconv.Itoa(d.Day))
	q.Set("month", strconv.Itoa(d.Month))
	q.Set("year", strconv.Itoa(d.Year))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (o *Options) normalize() error {
	if o.BaseURL == "" {
		return fmt.Errorf("capture: BaseURL is required")
	}
	if o.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
	return nil
}

// ResultPNG launches headless Chromium via chromedp, opens the result page
// for opts.Date, waits for the page root to carry data-ready="true" and
// writes a full-page PNG screenshot to opts.OutputPath.
func ResultPNG(parentCtx context.Context, opts Options) error {
	if err := opts.normalize(); err != nil {
		return err
	}
	target, err := ResultURL(opts.BaseURL, opts.Date)
	if err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(target),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		chromedp.FullScreenshot(&png, 100),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}
	return nil
}

package snapshot

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	apperrors "coffee-eda/internal/errors"
)

// ReadySelector is the element the dashboard shows once every chart has
// been drawn.
const ReadySelector = "#charts-ready"

type Options struct {
	Width   int64
	Height  int64
	Timeout time.Duration
	// ExecPath overrides Chrome discovery.
	ExecPath string
}

func DefaultOptions() Options {
	return Options{Width: 1600, Height: 1000, Timeout: 60 * time.Second}
}

// Available reports whether a Chrome or Chromium binary can be found.
func Available(execPath string) bool {
	if execPath != "" {
		_, err := os.Stat(execPath)
		return err == nil
	}
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell", "chrome"} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

// Capture loads url in headless Chrome, waits for the charts to render and
// writes a full-page PNG to out.
func Capture(ctx context.Context, url, out string, opts Options, logger *slog.Logger) error {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.WindowSize(int(opts.Width), int(opts.Height)),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancel()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, opts.Timeout)
	defer cancelTimeout()

	var png []byte
	err := chromedp.Run(browserCtx,
		timed(logger, "viewport", chromedp.EmulateViewport(opts.Width, opts.Height)),
		timed(logger, "navigate", chromedp.Navigate(url)),
		timed(logger, "wait charts", chromedp.WaitVisible(ReadySelector, chromedp.ByQuery)),
		timed(logger, "screenshot", chromedp.FullScreenshot(&png, 100)),
	)
	if err != nil {
		return apperrors.InternalWrap(err, "capture "+url)
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return apperrors.IOWrap(err, "create output directory for "+out)
	}
	if err := os.WriteFile(out, png, 0o644); err != nil {
		return apperrors.IOWrap(err, "write "+out)
	}

	logger.Info("snapshot written", "path", out, "bytes", len(png))
	return nil
}

func timed(logger *slog.Logger, name string, act chromedp.Action) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		start := time.Now()
		err := act.Do(ctx)
		logger.Debug("browser step", "step", name, "duration", time.Since(start), "error", err)
		return err
	})
}

// Package browser renders web pages to PNG with a headless Chrome instance.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// Chrome starts a fresh headless browser for every Render call and tears it
// down when the call returns, on success and on error alike.
type Chrome struct {
	settle  time.Duration // Wait after navigation for client-side rendering
	timeout time.Duration // Upper bound for a whole render
	width   int64
	height  int64
	opts    []chromedp.ExecAllocatorOption // Extra allocator options, e.g. chromedp.ExecPath
}

// NewChrome creates a renderer with a viewport of width x height pixels.
func NewChrome(settle, timeout time.Duration, width, height int64, opts ...chromedp.ExecAllocatorOption) *Chrome {
	return &Chrome{
		settle:  settle,
		timeout: timeout,
		width:   width,
		height:  height,
		opts:    opts,
	}
}

// Render loads pageURL, waits for the settle delay and captures a full-page PNG.
func (c *Chrome) Render(pageURL string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Headless,
		chromedp.DisableGPU,
		chromedp.WindowSize(int(c.width), int(c.height)),
	)
	opts = append(opts, c.opts...)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	ctx, cancel := context.WithTimeout(browserCtx, c.timeout)
	defer cancel()

	start := time.Now()
	var screenshot []byte
	err := chromedp.Run(ctx,
		chromedp.EmulateViewport(c.width, c.height),
		chromedp.Navigate(pageURL),
		chromedp.Sleep(c.settle),
		chromedp.FullScreenshot(&screenshot, 100),
	)
	if err != nil {
		return nil, fmt.Errorf("headless render: %w", err)
	}
	logrus.Debugf("Rendered page in %v (%d bytes)", time.Since(start), len(screenshot))
	return screenshot, nil
}

package fetcher

import (
	"fmt"
	"math/rand"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// StealthConfig configures fingerprint spoofing for the browser fetcher.
type StealthConfig struct {
	// Custom viewport dimensions
	ViewportWidth  int
	ViewportHeight int

	// Window size for browser launch
	WindowSize string

	// UserDataDir for persistent browser profile
	UserDataDir string

	// Language sent as Accept-Language (e.g., "en-US")
	Language string
}

// DefaultStealthConfig returns a stealth configuration that mimics a typical desktop browser.
func DefaultStealthConfig() *StealthConfig {
	viewports := []struct{ w, h int }{
		{1920, 1080}, {1366, 768}, {1536, 864},
		{1440, 900}, {1280, 720}, {2560, 1440},
	}
	vp := viewports[rand.Intn(len(viewports))]

	return &StealthConfig{
		ViewportWidth:  vp.w,
		ViewportHeight: vp.h,
		WindowSize:     fmt.Sprintf("%d,%d", vp.w, vp.h),
		Language:       "en-US",
	}
}

// apply sets the viewport and language on a freshly created page.
func (sc *StealthConfig) apply(page *rod.Page) error {
	if sc.ViewportWidth > 0 && sc.ViewportHeight > 0 {
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             sc.ViewportWidth,
			Height:            sc.ViewportHeight,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			return fmt.Errorf("set viewport: %w", err)
		}
	}
	if sc.Language != "" {
		if _, err := page.SetExtraHeaders([]string{"Accept-Language", sc.Language}); err != nil {
			return fmt.Errorf("set language: %w", err)
		}
	}
	return nil
}

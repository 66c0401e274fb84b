package browser

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"

	"github.com/pagepilot-ai/pagepilot/internal/config"
)

func TestCombineContext(t *testing.T) {
	t.Run("cancels when secondary cancels", func(t *testing.T) {
		primary := context.Background()
		secondary, cancelSecondary := context.WithCancel(context.Background())

		combined, cancel := combineContext(primary, secondary)
		defer cancel()

		cancelSecondary()
		select {
		case <-combined.Done():
		case <-time.After(time.Second):
			t.Fatal("combined context not canceled after secondary cancellation")
		}
	})

	t.Run("cancels when primary cancels", func(t *testing.T) {
		primary, cancelPrimary := context.WithCancel(context.Background())
		combined, cancel := combineContext(primary, context.Background())
		defer cancel()

		cancelPrimary()
		select {
		case <-combined.Done():
		case <-time.After(time.Second):
			t.Fatal("combined context not canceled after primary cancellation")
		}
	})
}

func TestJSONEncode(t *testing.T) {
	assert.Equal(t, `"#go"`, jsonEncode("#go"))
	assert.Equal(t, `"a \"quoted\" value"`, jsonEncode(`a "quoted" value`))
}

func TestExecOptionsBuilds(t *testing.T) {
	cfg := config.BrowserConfig{
		Headless:        true,
		IgnoreTLSErrors: true,
		Viewport:        map[string]int{"width": 1024, "height": 768},
		Args:            []string{"--lang=en-US", "disable-sync"},
	}
	opts := execOptions(cfg)
	// Default options plus headless, gpu, tls, window size, and two args.
	assert.GreaterOrEqual(t, len(opts), len(chromedp.DefaultExecAllocatorOptions)+6)
}

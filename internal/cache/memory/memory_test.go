package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/website-audit/internal/audit"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func TestCacheRoundTripAndExpiry(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New(time.Minute, clock)
	ctx := context.Background()
	page := audit.ExtractedPage{Title: "Acme", URL: "https://acme.test"}

	_, ok, err := c.Get(ctx, page.URL)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, page.URL, page))
	got, ok, err := c.Get(ctx, page.URL)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, page, got)

	clock.now = clock.now.Add(time.Minute)
	_, ok, err = c.Get(ctx, page.URL)
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, c.Len())
}

func TestCacheZeroTTLNeverExpires(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(0, 0)}
	c := New(0, clock)
	require.NoError(t, c.Set(context.Background(), "u", audit.ExtractedPage{URL: "u"}))
	clock.now = clock.now.Add(24 * time.Hour)
	_, ok, err := c.Get(context.Background(), "u")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCacheSetSweepsExpiredEntries(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New(time.Minute, clock)
	ctx := context.Background()
	for _, u := range []string{"https://a.test", "https://b.test", "https://c.test"} {
		require.NoError(t, c.Set(ctx, u, audit.ExtractedPage{URL: u}))
	}
	require.Equal(t, 3, c.Len())

	clock.now = clock.now.Add(2 * time.Minute)
	require.NoError(t, c.Set(ctx, "https://d.test", audit.ExtractedPage{URL: "https://d.test"}))
	require.Equal(t, 1, c.Len())

	got, ok, err := c.Get(ctx, "https://d.test")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "https://d.test", got.URL)
}

// hookClock runs onNow once, the first time Now is called after it is armed.
type hookClock struct {
	now   time.Time
	onNow func()
}

func (h *hookClock) Now() time.Time {
	if fn := h.onNow; fn != nil {
		h.onNow = nil
		fn()
	}
	return h.now
}

func TestCacheExpiredGetKeepsConcurrentReplacement(t *testing.T) {
	t.Parallel()

	clock := &hookClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New(time.Minute, clock)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "u", audit.ExtractedPage{Title: "old"}))

	clock.now = clock.now.Add(time.Minute)
	// The replacement lands after Get has seen the stale entry and released its read lock.
	clock.onNow = func() {
		c.mu.Lock()
		c.entries["u"] = entry{page: audit.ExtractedPage{Title: "new"}, expires: clock.now.Add(time.Minute)}
		c.mu.Unlock()
	}

	_, ok, err := c.Get(ctx, "u")
	require.NoError(t, err)
	require.False(t, ok)

	got, ok, err := c.Get(ctx, "u")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "new", got.Title)
}

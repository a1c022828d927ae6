package notifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAlert() *Alert {
	return &Alert{
		Direction:    Buy,
		TokenAddress: "0x1111111111111111111111111111111111111111",
		TokenName:    "Chog",
		TokenSymbol:  "CHOG",
		TokenImage:   "https://img.example/chog.png",
		TokenURL:     "https://testnet.nad.fun/tokens/0x1111111111111111111111111111111111111111",
		TxHash:       "0xabc",
		TxURL:        "https://testnet.monadexplorer.com/tx/0xabc",
		Trader:       "0x2222222222222222222222222222222222222222",
		TraderName:   "whale",
		TraderURL:    "https://testnet.monadexplorer.com/address/0x2222222222222222222222222222222222222222",
		Quantity:     "1,000.00",
		Price:        "0.00000123",
		Amount:       "0.00123000",
		Liquidity:    "1.50K",
		MarketCap:    "2.50M",
		Age:          "1h 5s",
		ObservedAt:   time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC),
	}
}

type webhookRecorder struct {
	mu     sync.Mutex
	bodies [][]byte
	hits   atomic.Int64
}

func (r *webhookRecorder) record(req *http.Request) {
	b, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.bodies = append(r.bodies, b)
	r.mu.Unlock()
	r.hits.Add(1)
}

func newDiscord(t *testing.T, url string, opts DiscordOptions) *Discord {
	t.Helper()
	opts.WebhookURL = url
	d, err := NewDiscord(opts)
	require.NoError(t, err)
	return d
}

func TestNewDiscordRequiresURL(t *testing.T) {
	_, err := NewDiscord(DiscordOptions{WebhookURL: "  "})
	assert.Error(t, err)
}

func TestDiscordRateCapDropsOverflow(t *testing.T) {
	rec := &webhookRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := newDiscord(t, srv.URL, DiscordOptions{UseEmbeds: true, PerMinute: 2})
	for i := 0; i < 3; i++ {
		assert.NoError(t, d.Send(context.Background(), sampleAlert()))
	}

	assert.EqualValues(t, 2, rec.hits.Load())
	st := d.Stats()
	assert.EqualValues(t, 2, st.Delivered)
	assert.EqualValues(t, 1, st.Dropped)
}

func TestDiscordRateWindowResets(t *testing.T) {
	rec := &webhookRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := newDiscord(t, srv.URL, DiscordOptions{PerMinute: 1})
	now := time.Unix(1_700_000_000, 0)
	d.now = func() time.Time { return now }
	d.windowStart = now

	require.NoError(t, d.Send(context.Background(), sampleAlert()))
	require.NoError(t, d.Send(context.Background(), sampleAlert()))
	assert.EqualValues(t, 1, rec.hits.Load())

	now = now.Add(61 * time.Second)
	require.NoError(t, d.Send(context.Background(), sampleAlert()))
	assert.EqualValues(t, 2, rec.hits.Load())
}

func TestDiscordUnlimitedWhenCapIsZero(t *testing.T) {
	rec := &webhookRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := newDiscord(t, srv.URL, DiscordOptions{PerMinute: 0})
	for i := 0; i < 5; i++ {
		require.NoError(t, d.Send(context.Background(), sampleAlert()))
	}
	assert.EqualValues(t, 5, rec.hits.Load())
}

func TestDiscordRetriesAfterTooManyRequests(t *testing.T) {
	rec := &webhookRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		if rec.hits.Load() == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := newDiscord(t, srv.URL, DiscordOptions{UseEmbeds: true, PerMinute: 1})
	start := time.Now()
	err := d.Send(context.Background(), sampleAlert())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.EqualValues(t, 2, rec.hits.Load())
	assert.GreaterOrEqual(t, elapsed, time.Second)
	st := d.Stats()
	assert.EqualValues(t, 1, st.Retried)
	assert.EqualValues(t, 1, st.Delivered)
	assert.EqualValues(t, 0, st.Dropped)
}

func TestDiscordOtherFailuresAreNotRetried(t *testing.T) {
	rec := &webhookRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := newDiscord(t, srv.URL, DiscordOptions{})
	err := d.Send(context.Background(), sampleAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.EqualValues(t, 1, rec.hits.Load())
	assert.EqualValues(t, 1, d.Stats().Failed)
}

func TestDiscordRetryStopsOnContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := newDiscord(t, srv.URL, DiscordOptions{})
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := d.Send(ctx, sampleAlert())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDiscordEmbedBody(t *testing.T) {
	rec := &webhookRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := newDiscord(t, srv.URL, DiscordOptions{UseEmbeds: true, RoleID: "42", Footer: "Monad Testnet • nad.fun"})
	require.NoError(t, d.Send(context.Background(), sampleAlert()))
	require.Len(t, rec.bodies, 1)

	var msg webhookMessage
	require.NoError(t, json.Unmarshal(rec.bodies[0], &msg))
	assert.Equal(t, "<@&42> ", msg.Content)
	require.Len(t, msg.Embeds, 1)

	e := msg.Embeds[0]
	assert.Equal(t, "🟢 **BUY DETECTED**", e.Title)
	assert.Equal(t, buyColor, e.Color)
	assert.Equal(t, "https://testnet.monadexplorer.com/tx/0xabc", e.URL)
	require.NotNil(t, e.Thumbnail)
	assert.Equal(t, "https://img.example/chog.png", e.Thumbnail.URL)
	assert.Contains(t, e.Description, "Chog (`CHOG`)")
	assert.Equal(t, "2025-03-01T12:30:00Z", e.Timestamp)
	require.NotNil(t, e.Footer)
	assert.Equal(t, "Monad Testnet • nad.fun • 12:30:00", e.Footer.Text)

	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{
		"👤 Trader", spacer, "📊 Quantity", "💰 Price (MON)", "💵 Amount (MON)",
		spacer, "💧 Liquidity", "📈 Market Cap", "⏰ Age",
	}, names)
	assert.Equal(t, "```1,000.00```", e.Fields[2].Value)
	assert.Equal(t, "**2.50M** MON", e.Fields[7].Value)
}

func TestDiscordSellEmbedWithoutImage(t *testing.T) {
	d := newDiscord(t, "http://unused.invalid", DiscordOptions{UseEmbeds: true})
	a := sampleAlert()
	a.Direction = Sell
	a.TokenImage = ""

	msg := d.buildMessage(a)
	require.Len(t, msg.Embeds, 1)
	assert.Equal(t, "🔴 **SELL DETECTED**", msg.Embeds[0].Title)
	assert.Equal(t, sellColor, msg.Embeds[0].Color)
	assert.Nil(t, msg.Embeds[0].Thumbnail)
	assert.Equal(t, "", msg.Content)
}

func TestDiscordPlainTextFallback(t *testing.T) {
	d := newDiscord(t, "http://unused.invalid", DiscordOptions{UseEmbeds: false, RoleID: "7"})
	msg := d.buildMessage(sampleAlert())
	assert.Empty(t, msg.Embeds)
	assert.Contains(t, msg.Content, "<@&7> 🟢 **BUY DETECTED**")
	assert.Contains(t, msg.Content, "Price: 0.00000123 MON")
	assert.Contains(t, msg.Content, "Trader: whale (0x2222222222222222222222222222222222222222)")
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Second, parseRetryAfter("", now))
	assert.Equal(t, 2*time.Second, parseRetryAfter("2", now))
	assert.Equal(t, 750*time.Millisecond, parseRetryAfter("0.75", now))
	assert.Equal(t, time.Second, parseRetryAfter("soon", now))
	assert.Equal(t, 10*time.Second, parseRetryAfter(now.Add(10*time.Second).Format(http.TimeFormat), now))
}

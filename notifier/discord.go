package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	rateWindow        = time.Minute
	defaultRetryAfter = time.Second
	maxContentLen     = 2000
)

var errEmptyWebhook = errors.New("DISCORD_WEBHOOK_URL boş")

// DiscordOptions webhook ayarları
type DiscordOptions struct {
	WebhookURL string
	RoleID     string
	UseEmbeds  bool
	PerMinute  int // dakikalık gönderim sınırı, 0 = sınırsız
	Timeout    time.Duration
	Footer     string
}

// Discord posts alerts to a Discord-compatible webhook.
type Discord struct {
	webhookURL string
	roleID     string
	useEmbeds  bool
	perMinute  int
	footer     string
	httpClient *http.Client
	now        func() time.Time

	// per-minute window
	mu           sync.Mutex
	windowStart  time.Time
	sentInWindow int

	delivered atomic.Int64
	dropped   atomic.Int64
	retried   atomic.Int64
	failed    atomic.Int64
}

func NewDiscord(opts DiscordOptions) (*Discord, error) {
	url := strings.TrimSpace(strings.Trim(opts.WebhookURL, "\"'"))
	if url == "" {
		return nil, errEmptyWebhook
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	perMinute := opts.PerMinute
	if perMinute < 0 {
		perMinute = 0
	}
	return &Discord{
		webhookURL:  url,
		roleID:      strings.TrimSpace(opts.RoleID),
		useEmbeds:   opts.UseEmbeds,
		perMinute:   perMinute,
		footer:      opts.Footer,
		httpClient:  &http.Client{Timeout: timeout},
		now:         time.Now,
		windowStart: time.Now(),
	}, nil
}

// allow checks and advances the per-minute window atomically.
func (d *Discord) allow() bool {
	if d.perMinute <= 0 {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if now.Sub(d.windowStart) >= rateWindow {
		d.windowStart = now
		d.sentInWindow = 0
	}
	if d.sentInWindow >= d.perMinute {
		return false
	}
	d.sentInWindow++
	return true
}

// Send delivers one alert. When the per-minute cap is reached the alert is
// dropped and nil is returned. A 429 answer is retried after Retry-After.
func (d *Discord) Send(ctx context.Context, alert *Alert) error {
	if alert == nil {
		return nil
	}
	if !d.allow() {
		d.dropped.Add(1)
		return nil
	}
	return d.post(ctx, d.buildMessage(alert))
}

// SendText posts a plain content message under the same cap.
func (d *Discord) SendText(ctx context.Context, text string) error {
	if !d.allow() {
		d.dropped.Add(1)
		return nil
	}
	return d.post(ctx, webhookMessage{Content: truncate(d.mention()+text, maxContentLen)})
}

func (d *Discord) post(ctx context.Context, msg webhookMessage) error {
	body, err := json.Marshal(&msg)
	if err != nil {
		return fmt.Errorf("discord mesaj encode hatası: %w", err)
	}

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
		if err != nil {
			d.failed.Add(1)
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := d.httpClient.Do(req)
		if err != nil {
			d.failed.Add(1)
			return fmt.Errorf("discord webhook isteği başarısız: %w", err)
		}
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		if resp.StatusCode/100 == 2 {
			d.delivered.Add(1)
			return nil
		}

		// 429 için Retry-After'a saygı duy
		if resp.StatusCode == http.StatusTooManyRequests {
			wait := parseRetryAfter(resp.Header.Get("Retry-After"), d.now())
			d.retried.Add(1)
			if err := sleepContext(ctx, wait); err != nil {
				d.failed.Add(1)
				return err
			}
			continue
		}

		d.failed.Add(1)
		return fmt.Errorf("discord webhook hata: %s body=%s", resp.Status, string(b))
	}
}

// DispatchStats counters since start.
type DispatchStats struct {
	Delivered int64 `json:"delivered"`
	Dropped   int64 `json:"dropped"`
	Retried   int64 `json:"retried"`
	Failed    int64 `json:"failed"`
}

func (d *Discord) Stats() DispatchStats {
	return DispatchStats{
		Delivered: d.delivered.Load(),
		Dropped:   d.dropped.Load(),
		Retried:   d.retried.Load(),
		Failed:    d.failed.Load(),
	}
}

// parseRetryAfter reads seconds ("2", "0.75") or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return defaultRetryAfter
	}
	if sec, err := strconv.ParseFloat(v, 64); err == nil && sec >= 0 {
		return time.Duration(sec * float64(time.Second))
	}
	if t, err := http.ParseTime(v); err == nil {
		if wait := t.Sub(now); wait > 0 {
			return wait
		}
		return 0
	}
	return defaultRetryAfter
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

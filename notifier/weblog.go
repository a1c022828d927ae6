package notifier

import (
	"context"
	"strings"
	"sync"
	"time"
)

// TextSender posts plain text. *Discord satisfies it.
type TextSender interface {
	SendText(ctx context.Context, text string) error
}

// WebhookLogWriter implements io.Writer and forwards logs to an ops webhook.
// It batches frequent writes to reduce spam.
type WebhookLogWriter struct {
	sender   TextSender
	queue    chan string
	interval time.Duration
	maxBatch int
	once     sync.Once
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewWebhookLogWriter starts the background flusher.
func NewWebhookLogWriter(sender TextSender) *WebhookLogWriter {
	w := &WebhookLogWriter{
		sender:   sender,
		queue:    make(chan string, 100),
		interval: 2 * time.Second,
		maxBatch: 10,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	w.start()
	return w
}

func (w *WebhookLogWriter) start() {
	w.once.Do(func() {
		go func() {
			defer close(w.done)
			var buffer []string
			ticker := time.NewTicker(w.interval)
			defer ticker.Stop()
			for {
				select {
				case msg := <-w.queue:
					buffer = append(buffer, strings.TrimSpace(msg))
					if len(buffer) >= w.maxBatch {
						w.flush(&buffer)
					}
				case <-ticker.C:
					if len(buffer) > 0 {
						w.flush(&buffer)
					}
				case <-w.stop:
					for {
						select {
						case msg := <-w.queue:
							buffer = append(buffer, strings.TrimSpace(msg))
						default:
							w.flush(&buffer)
							return
						}
					}
				}
			}
		}()
	})
}

func (w *WebhookLogWriter) flush(buf *[]string) {
	if len(*buf) == 0 {
		return
	}
	joined := strings.Join(*buf, "\n")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = w.sender.SendText(ctx, "🧾 Log\n```\n"+joined+"\n```")
	*buf = (*buf)[:0]
}

// Write implements io.Writer. It is non-blocking when the queue is full.
func (w *WebhookLogWriter) Write(p []byte) (int, error) {
	select {
	case w.queue <- string(p):
	default:
		// Drop if queue is full to avoid blocking the app
	}
	return len(p), nil
}

// Close flushes what is queued and stops the flusher.
func (w *WebhookLogWriter) Close() error {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
	return nil
}

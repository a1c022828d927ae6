package listener

import (
	"sync/atomic"
	"time"

	"trade-alert-backend/notifier"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats counts pipeline activity. Counters are plain atomics exported to
// Prometheus through CounterFuncs. A nil *Stats is valid and counts nothing.
type Stats struct {
	startedAt time.Time
	reg       prometheus.Registerer

	logs         atomic.Int64
	duplicates   atomic.Int64
	removed      atomic.Int64
	ignored      atomic.Int64
	buys         atomic.Int64
	sells        atomic.Int64
	sendFailures atomic.Int64
	tokenFetches atomic.Int64
	reconnects   atomic.Int64
	lastBlock    atomic.Uint64
}

// StatsSnapshot /stats cevabı
type StatsSnapshot struct {
	StartedAt     time.Time `json:"startedAt"`
	UptimeSeconds int64     `json:"uptimeSeconds"`
	LogsReceived  int64     `json:"logsReceived"`
	Duplicates    int64     `json:"duplicates"`
	Removed       int64     `json:"removed"`
	Ignored       int64     `json:"ignored"`
	Buys          int64     `json:"buys"`
	Sells         int64     `json:"sells"`
	SendFailures  int64     `json:"sendFailures"`
	TokenFetches  int64     `json:"tokenFetches"`
	Reconnects    int64     `json:"reconnects"`
	LastBlock     uint64    `json:"lastBlock"`
}

// NewStats registers the pipeline counters on reg.
func NewStats(reg prometheus.Registerer) *Stats {
	s := &Stats{startedAt: time.Now(), reg: reg}
	counter := func(name, help string, src *atomic.Int64, labels prometheus.Labels) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   "tradealert",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, func() float64 { return float64(src.Load()) })
	}
	reg.MustRegister(
		counter("logs_received_total", "Transfer logs delivered by the subscriptions.", &s.logs, nil),
		counter("duplicate_logs_total", "Logs skipped because their key was already seen.", &s.duplicates, nil),
		counter("removed_logs_total", "Logs skipped because they were removed by a reorg.", &s.removed, nil),
		counter("ignored_transfers_total", "Transfers not related to a watched wallet on nad.fun.", &s.ignored, nil),
		counter("alerts_total", "Alerts handed to the dispatcher.", &s.buys, prometheus.Labels{"direction": "buy"}),
		counter("alerts_total", "Alerts handed to the dispatcher.", &s.sells, prometheus.Labels{"direction": "sell"}),
		counter("alert_send_failures_total", "Alerts the dispatcher failed to deliver.", &s.sendFailures, nil),
		counter("token_fetches_total", "Token metadata fetches against the nad.fun API.", &s.tokenFetches, nil),
		counter("subscription_reconnects_total", "Log subscription reconnects.", &s.reconnects, nil),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "tradealert",
			Name:      "last_block",
			Help:      "Highest block number seen in a transfer log.",
		}, func() float64 { return float64(s.lastBlock.Load()) }),
	)
	return s
}

// DispatchSource is implemented by *notifier.Discord.
type DispatchSource interface {
	Stats() notifier.DispatchStats
}

// RegisterDispatcher exports the dispatcher counters.
func (s *Stats) RegisterDispatcher(d DispatchSource) {
	if s == nil {
		return
	}
	metric := func(name, help string, read func(notifier.DispatchStats) int64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "tradealert",
			Subsystem: "webhook",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(read(d.Stats())) })
	}
	s.reg.MustRegister(
		metric("delivered_total", "Webhook messages accepted.", func(st notifier.DispatchStats) int64 { return st.Delivered }),
		metric("dropped_total", "Messages dropped by the per-minute cap.", func(st notifier.DispatchStats) int64 { return st.Dropped }),
		metric("retried_total", "Retries after a 429 answer.", func(st notifier.DispatchStats) int64 { return st.Retried }),
		metric("failed_total", "Messages that could not be delivered.", func(st notifier.DispatchStats) int64 { return st.Failed }),
	)
}

// RegisterCacheSize exports the token cache size.
func (s *Stats) RegisterCacheSize(size func() int) {
	if s == nil {
		return
	}
	s.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "tradealert",
		Name:      "cached_tokens",
		Help:      "Tokens held in the metadata cache.",
	}, func() float64 { return float64(size()) }))
}

func (s *Stats) Snapshot() StatsSnapshot {
	if s == nil {
		return StatsSnapshot{}
	}
	return StatsSnapshot{
		StartedAt:     s.startedAt,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		LogsReceived:  s.logs.Load(),
		Duplicates:    s.duplicates.Load(),
		Removed:       s.removed.Load(),
		Ignored:       s.ignored.Load(),
		Buys:          s.buys.Load(),
		Sells:         s.sells.Load(),
		SendFailures:  s.sendFailures.Load(),
		TokenFetches:  s.tokenFetches.Load(),
		Reconnects:    s.reconnects.Load(),
		LastBlock:     s.lastBlock.Load(),
	}
}

func (s *Stats) logReceived(block uint64) {
	if s == nil {
		return
	}
	s.logs.Add(1)
	for {
		cur := s.lastBlock.Load()
		if block <= cur || s.lastBlock.CompareAndSwap(cur, block) {
			return
		}
	}
}

func (s *Stats) duplicate() {
	if s != nil {
		s.duplicates.Add(1)
	}
}

func (s *Stats) removedLog() {
	if s != nil {
		s.removed.Add(1)
	}
}

func (s *Stats) ignoredTransfer() {
	if s != nil {
		s.ignored.Add(1)
	}
}

func (s *Stats) alertSent(dir notifier.Direction) {
	if s == nil {
		return
	}
	if dir == notifier.Buy {
		s.buys.Add(1)
	} else {
		s.sells.Add(1)
	}
}

func (s *Stats) sendFailed() {
	if s != nil {
		s.sendFailures.Add(1)
	}
}

func (s *Stats) tokenFetched() {
	if s != nil {
		s.tokenFetches.Add(1)
	}
}

func (s *Stats) reconnected() {
	if s != nil {
		s.reconnects.Add(1)
	}
}

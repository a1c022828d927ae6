package listener

import (
	"context"
	"errors"
	"log"
	"math/big"
	"strings"
	"sync"
	"time"

	"trade-alert-backend/notifier"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TransferEvent is a decoded ERC-20 Transfer log.
type TransferEvent struct {
	Token       common.Address
	From        common.Address
	To          common.Address
	Value       *big.Int
	TxHash      common.Hash
	LogIndex    uint
	BlockNumber uint64
}

// Key is the identity of the underlying log.
func (e *TransferEvent) Key() string {
	return eventKey(e.TxHash, e.LogIndex)
}

func parseTransfer(lg types.Log) (*TransferEvent, bool) {
	if len(lg.Topics) < 3 || lg.Topics[0] != transferTopic {
		return nil, false
	}
	value := big.NewInt(0)
	if len(lg.Data) >= 32 {
		value = new(big.Int).SetBytes(lg.Data[:32])
	}
	return &TransferEvent{
		Token:       lg.Address,
		From:        common.BytesToAddress(lg.Topics[1].Bytes()),
		To:          common.BytesToAddress(lg.Topics[2].Bytes()),
		Value:       value,
		TxHash:      lg.TxHash,
		LogIndex:    lg.Index,
		BlockNumber: lg.BlockNumber,
	}, true
}

// TokenLookup is satisfied by *TokenResolver.
type TokenLookup interface {
	Resolve(ctx context.Context, token common.Address) *TokenInfo
}

// LiquidityLookup is satisfied by *LiquidityReader.
type LiquidityLookup interface {
	Liquidity(ctx context.Context, token common.Address, marketType MarketType, marketID string) (*big.Int, bool)
}

// PipelineDeps wires a Pipeline.
type PipelineDeps struct {
	Book      *AddressBook
	Seen      *SeenSet
	Tokens    TokenLookup
	Liquidity LiquidityLookup
	Composer  *AlertComposer
	Sender    notifier.Sender
	Stats     *Stats
	Debug     bool
}

// Pipeline turns log batches into alerts. It is shared by both subscriptions.
type Pipeline struct {
	PipelineDeps
}

func NewPipeline(deps PipelineDeps) *Pipeline {
	if deps.Seen == nil {
		deps.Seen = NewSeenSet(0)
	}
	return &Pipeline{PipelineDeps: deps}
}

// HandleLogs processes one batch in delivery order. Errors of a single event
// are logged and never stop the batch.
func (p *Pipeline) HandleLogs(ctx context.Context, logs []types.Log) {
	for _, lg := range logs {
		ev, ok := parseTransfer(lg)
		if !ok {
			continue
		}
		p.Stats.logReceived(ev.BlockNumber)
		if lg.Removed {
			p.Stats.removedLog()
			continue
		}
		if !p.Seen.MarkNew(ev.Key()) {
			p.Stats.duplicate()
			continue
		}
		p.handleTransfer(ctx, ev)
	}
}

// classify returns the trade direction; to-side wins when both are watched.
func (p *Pipeline) classify(ev *TransferEvent) (notifier.Direction, bool) {
	if p.Book.IsWatched(ev.To) {
		return notifier.Buy, true
	}
	if p.Book.IsWatched(ev.From) {
		return notifier.Sell, true
	}
	return "", false
}

func (p *Pipeline) handleTransfer(ctx context.Context, ev *TransferEvent) {
	dir, ok := p.classify(ev)
	if !ok {
		p.Stats.ignoredTransfer()
		return
	}

	// olay bir kez işlenmeye başladıysa kapanışta yarıda kesilmez
	ectx := context.WithoutCancel(ctx)

	var info *TokenInfo
	related := p.Book.IsPlatform(ev.From) || p.Book.IsPlatform(ev.To)
	if !related {
		info = p.Tokens.Resolve(ectx, ev.Token)
		related = info.OnNadMarket()
	}
	if !related {
		p.Stats.ignoredTransfer()
		if p.Debug {
			log.Printf("🔍 nad.fun dışı transfer atlandı: %s token=%s", ev.Key(), ev.Token.Hex())
		}
		return
	}
	if info == nil {
		info = p.Tokens.Resolve(ectx, ev.Token)
	}

	var (
		liq   *big.Int
		liqOK bool
	)
	if p.Liquidity != nil && info != nil {
		liq, liqOK = p.Liquidity.Liquidity(ectx, ev.Token, info.MarketType, info.MarketID)
	}

	alert := p.Composer.Compose(ev, info, liq, liqOK, dir)
	if err := p.Sender.Send(ectx, alert); err != nil {
		p.Stats.sendFailed()
		log.Printf("❌ Bildirim gönderilemedi (%s %s): %v", dir, ev.TxHash.Hex(), err)
		return
	}
	p.Stats.alertSent(dir)
	log.Printf("✅ %s bildirimi: %s %s qty=%s tx=%s", dir, alert.TraderName, alert.TokenSymbol, alert.Quantity, alert.TxHash)
}

// LogSource is the RPC surface the watcher needs. *ethclient.Client
// satisfies it.
type LogSource interface {
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

const (
	// topic pozisyonları: 1 = from (SELL adayı), 2 = to (BUY adayı)
	topicFrom = 1
	topicTo   = 2

	logBuffer    = 256
	maxPollRange = 300
)

var errSubscriptionClosed = errors.New("abonelik kapandı")

// Watcher runs the two Transfer subscriptions and feeds the Pipeline.
type Watcher struct {
	sub      LogSource
	poll     LogSource
	book     *AddressBook
	pipeline *Pipeline
	stats    *Stats

	minBackoff   time.Duration
	maxBackoff   time.Duration
	pollInterval time.Duration
}

// NewWatcher subscribes through sub. poll is used for FilterLogs when sub
// cannot push logs; it may be the same client.
func NewWatcher(sub, poll LogSource, book *AddressBook, pipeline *Pipeline, stats *Stats) *Watcher {
	if poll == nil {
		poll = sub
	}
	return &Watcher{
		sub:          sub,
		poll:         poll,
		book:         book,
		pipeline:     pipeline,
		stats:        stats,
		minBackoff:   time.Second,
		maxBackoff:   30 * time.Second,
		pollInterval: 4 * time.Second,
	}
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	if len(w.book.Watched()) == 0 {
		log.Println("⚠️ WATCH_WALLETS boş, dinleme başlatılmadı.")
		<-ctx.Done()
		return
	}
	var wg sync.WaitGroup
	for _, idx := range []int{topicTo, topicFrom} {
		wg.Add(1)
		go func(topicIndex int) {
			defer wg.Done()
			w.subscribeTransferSide(ctx, topicIndex)
		}(idx)
	}
	wg.Wait()
}

// İzlenen adresler için topics alanında kullanılacak 32-byte adres hash listesi
func (w *Watcher) watchedTopics() []common.Hash {
	watched := w.book.Watched()
	topics := make([]common.Hash, 0, len(watched))
	for _, a := range watched {
		topics = append(topics, common.BytesToHash(common.LeftPadBytes(a.Bytes(), 32)))
	}
	return topics
}

// Topics: [transferTopic, from?, to?]; AND semantiği, aynı pozisyonda OR
func (w *Watcher) query(topicIndex int, from, to *big.Int) ethereum.FilterQuery {
	topics := make([][]common.Hash, 3)
	topics[0] = []common.Hash{transferTopic}
	topics[topicIndex] = w.watchedTopics()
	return ethereum.FilterQuery{FromBlock: from, ToBlock: to, Topics: topics}
}

func sideName(topicIndex int) string {
	if topicIndex == topicTo {
		return "to/BUY"
	}
	return "from/SELL"
}

func subscribeUnsupported(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "notifications not supported") ||
		strings.Contains(msg, "invalid logs options")
}

func (w *Watcher) subscribeTransferSide(ctx context.Context, topicIndex int) {
	backoff := w.minBackoff
	side := sideName(topicIndex)

	for ctx.Err() == nil {
		logsCh := make(chan types.Log, logBuffer)
		sub, err := w.sub.SubscribeFilterLogs(ctx, w.query(topicIndex, nil, nil), logsCh)
		if err != nil {
			if subscribeUnsupported(err) {
				log.Printf("ℹ️ Transfer subscribe desteklenmiyor (%s), HTTP polling moduna geçiliyor...", side)
				w.pollTransfers(ctx, topicIndex)
				return
			}
			log.Printf("❌ Transfer subscribe hatası (%s): %v", side, err)
			if sleepCtx(ctx, backoff) != nil {
				return
			}
			backoff = min(backoff*2, w.maxBackoff)
			continue
		}

		log.Printf("🔍 Transfer dinleme başlatıldı (%s)", side)
		backoff = w.minBackoff
		err = w.consume(ctx, sub, logsCh)
		sub.Unsubscribe()
		if err == nil {
			return
		}
		log.Printf("⛔️ Transfer dinleme hatası (%s): %v", side, err)
		w.stats.reconnected()
		log.Printf("↪️ Transfer dinleyici yeniden bağlanıyor (%s)...", side)
		if sleepCtx(ctx, backoff) != nil {
			return
		}
	}
}

// consume reads logs until the subscription fails (error) or ctx ends (nil).
// Logs already queued are drained into one batch to keep stream order.
func (w *Watcher) consume(ctx context.Context, sub ethereum.Subscription, logsCh <-chan types.Log) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			if err == nil {
				err = errSubscriptionClosed
			}
			return err
		case lg := <-logsCh:
			batch := []types.Log{lg}
		drain:
			for {
				select {
				case more := <-logsCh:
					batch = append(batch, more)
				default:
					break drain
				}
			}
			w.pipeline.HandleLogs(ctx, batch)
		}
	}
}

// HTTP polling ile transferleri tarar
func (w *Watcher) pollTransfers(ctx context.Context, topicIndex int) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	side := sideName(topicIndex)

	last, err := w.poll.BlockNumber(ctx)
	if err != nil {
		log.Printf("⚠️ Transfer polling başlangıç head alınamadı: %v", err)
	}
	log.Printf("🧭 Transfer polling başlatıldı. head=%d aralık=%s (%s)", last, w.pollInterval, side)

	for {
		select {
		case <-ctx.Done():
			log.Printf("🛑 Transfer polling durduruldu (%s)", side)
			return
		case <-ticker.C:
			cur, err := w.poll.BlockNumber(ctx)
			if err != nil {
				log.Printf("⚠️ Transfer polling head alınamadı: %v", err)
				continue
			}
			if last == 0 {
				last = cur
				continue
			}
			if cur <= last {
				continue
			}
			blockRange := min(cur-last, maxPollRange)
			from := new(big.Int).SetUint64(last + 1)
			to := new(big.Int).SetUint64(last + blockRange)

			logs, err := w.poll.FilterLogs(ctx, w.query(topicIndex, from, to))
			if err != nil {
				log.Printf("⚠️ Transfer polling log hatası (%d-%d): %v", from.Uint64(), to.Uint64(), err)
				continue
			}
			if len(logs) > 0 && w.pipeline.Debug {
				log.Printf("📊 %d transfer event bulundu (%d-%d, %s)", len(logs), from.Uint64(), to.Uint64(), side)
			}
			w.pipeline.HandleLogs(ctx, logs)
			last += blockRange
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

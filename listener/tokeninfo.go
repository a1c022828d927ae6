package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/big"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"trade-alert-backend/internal/fixedpoint"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// MarketType token'ın işlem gördüğü yer
type MarketType string

const (
	MarketCurve MarketType = "CURVE"
	MarketDEX   MarketType = "DEX"
)

// TokenInfo is the merged metadata and market data of one token. Every field
// except Address may be empty. Values are shared between callers and must
// not be modified after Resolve returns them.
type TokenInfo struct {
	Address     common.Address `json:"address"`
	Name        string         `json:"name,omitempty"`
	Symbol      string         `json:"symbol,omitempty"`
	ImageURI    string         `json:"imageUri,omitempty"`
	CreatedAt   int64          `json:"createdAt,omitempty"`
	TotalSupply string         `json:"totalSupply,omitempty"`
	MarketType  MarketType     `json:"marketType,omitempty"`
	MarketID    string         `json:"marketId,omitempty"`
	Price       string         `json:"price,omitempty"`
}

// PriceScaled returns the price in MON as a scaled value.
func (t *TokenInfo) PriceScaled() (*big.Int, bool) {
	if t == nil || t.Price == "" {
		return nil, false
	}
	v, err := fixedpoint.Parse(t.Price)
	if err != nil {
		return nil, false
	}
	return v, true
}

// SupplyRaw returns total supply in smallest units.
func (t *TokenInfo) SupplyRaw() (*big.Int, bool) {
	if t == nil || t.TotalSupply == "" {
		return nil, false
	}
	v, err := fixedpoint.ParseRaw(t.TotalSupply)
	if err != nil {
		return nil, false
	}
	return v, true
}

// OnNadMarket reports whether the token trades on the curve or a nad.fun pool.
func (t *TokenInfo) OnNadMarket() bool {
	return t != nil && (t.MarketType == MarketCurve || t.MarketType == MarketDEX)
}

// TokenMetadata /token/metadata cevabı
type TokenMetadata struct {
	Name        string
	Symbol      string
	ImageURI    string
	CreatedAt   int64
	TotalSupply string
}

// MarketData /trade/market cevabı
type MarketData struct {
	MarketType  MarketType
	MarketID    string
	Price       string
	TotalSupply string
}

// TokenSource fetches token data from the nad.fun API.
type TokenSource interface {
	Metadata(ctx context.Context, token common.Address) (*TokenMetadata, error)
	Market(ctx context.Context, token common.Address) (*MarketData, error)
}

// NadAPI is the HTTP TokenSource.
type NadAPI struct {
	base   string
	client *http.Client
}

func NewNadAPI(base string, timeout time.Duration) *NadAPI {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	if timeout <= 0 {
		timeout = 6 * time.Second
	}
	return &NadAPI{base: base, client: &http.Client{Timeout: timeout}}
}

// looseString accepts a JSON string, a number or null.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	switch {
	case raw == "null":
		*s = ""
	case strings.HasPrefix(raw, `"`):
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = looseString(strings.TrimSpace(str))
	default:
		*s = looseString(raw)
	}
	return nil
}

type metadataResponse struct {
	TokenMetadata *struct {
		Name        string      `json:"name"`
		Symbol      string      `json:"symbol"`
		ImageURI    string      `json:"image_uri"`
		CreatedAt   looseString `json:"created_at"`
		TotalSupply looseString `json:"total_supply"`
	} `json:"token_metadata"`
}

type marketResponse struct {
	MarketType  string      `json:"market_type"`
	MarketID    string      `json:"market_id"`
	Price       looseString `json:"price"`
	TotalSupply looseString `json:"total_supply"`
}

func (a *NadAPI) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("nad.fun API %s: %s %s", path, resp.Status, strings.TrimSpace(string(b)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (a *NadAPI) Metadata(ctx context.Context, token common.Address) (*TokenMetadata, error) {
	var r metadataResponse
	if err := a.getJSON(ctx, "token/metadata/"+token.Hex(), &r); err != nil {
		return nil, err
	}
	if r.TokenMetadata == nil {
		return nil, fmt.Errorf("token_metadata alanı yok (%s)", token.Hex())
	}
	m := r.TokenMetadata
	return &TokenMetadata{
		Name:        m.Name,
		Symbol:      m.Symbol,
		ImageURI:    m.ImageURI,
		CreatedAt:   unixSeconds(string(m.CreatedAt)),
		TotalSupply: string(m.TotalSupply),
	}, nil
}

func (a *NadAPI) Market(ctx context.Context, token common.Address) (*MarketData, error) {
	var r marketResponse
	if err := a.getJSON(ctx, "trade/market/"+token.Hex(), &r); err != nil {
		return nil, err
	}
	return &MarketData{
		MarketType:  MarketType(strings.ToUpper(strings.TrimSpace(r.MarketType))),
		MarketID:    strings.TrimSpace(r.MarketID),
		Price:       string(r.Price),
		TotalSupply: string(r.TotalSupply),
	}, nil
}

// unixSeconds reads "1719000000", "1.719e9" or an RFC3339 time; 0 if unknown.
func unixSeconds(s string) int64 {
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d.IntPart()
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Unix()
	}
	return 0
}

// TokenResolver caches TokenInfo per token for the life of the process.
// Concurrent misses for one token share a single fetch.
type TokenResolver struct {
	src     TokenSource
	timeout time.Duration
	stats   *Stats
	debug   bool

	mu    sync.RWMutex
	cache map[common.Address]*TokenInfo
	group singleflight.Group
}

func NewTokenResolver(src TokenSource, timeout time.Duration, stats *Stats) *TokenResolver {
	if timeout <= 0 {
		timeout = 6 * time.Second
	}
	return &TokenResolver{
		src:     src,
		timeout: timeout,
		stats:   stats,
		cache:   make(map[common.Address]*TokenInfo),
	}
}

// SetDebug fetch hatalarını loglar
func (r *TokenResolver) SetDebug(on bool) { r.debug = on }

// Get returns a cached entry without fetching.
func (r *TokenResolver) Get(token common.Address) (*TokenInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.cache[token]
	return info, ok
}

// Resolve returns the cached TokenInfo or fetches it once. It never fails;
// fields that could not be fetched stay empty.
func (r *TokenResolver) Resolve(ctx context.Context, token common.Address) *TokenInfo {
	if info, ok := r.Get(token); ok {
		return info
	}
	v, _, _ := r.group.Do(token.Hex(), func() (any, error) {
		// a flight that finished just before this one may have filled it
		if info, ok := r.Get(token); ok {
			return info, nil
		}
		info := r.fetch(ctx, token)
		r.mu.Lock()
		r.cache[token] = info
		r.mu.Unlock()
		return info, nil
	})
	return v.(*TokenInfo)
}

func (r *TokenResolver) fetch(ctx context.Context, token common.Address) *TokenInfo {
	r.stats.tokenFetched()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	var (
		meta *TokenMetadata
		mkt  *MarketData
		g    errgroup.Group
	)
	// bir istek hata verirse diğeri iptal edilmez
	g.Go(func() error {
		m, err := r.src.Metadata(ctx, token)
		if err != nil {
			r.logf("⚠️ Token metadata alınamadı (%s): %v", token.Hex(), err)
			return nil
		}
		meta = m
		return nil
	})
	g.Go(func() error {
		m, err := r.src.Market(ctx, token)
		if err != nil {
			r.logf("⚠️ Market verisi alınamadı (%s): %v", token.Hex(), err)
			return nil
		}
		mkt = m
		return nil
	})
	_ = g.Wait()

	info := &TokenInfo{Address: token}
	if meta != nil {
		info.Name = meta.Name
		info.Symbol = meta.Symbol
		info.ImageURI = meta.ImageURI
		info.CreatedAt = meta.CreatedAt
		info.TotalSupply = meta.TotalSupply
	}
	if mkt != nil {
		info.MarketType = mkt.MarketType
		info.MarketID = mkt.MarketID
		info.Price = mkt.Price
		if info.TotalSupply == "" {
			info.TotalSupply = mkt.TotalSupply
		}
	}
	return info
}

func (r *TokenResolver) logf(format string, args ...any) {
	if r.debug {
		log.Printf(format, args...)
	}
}

// Len önbellekteki token sayısı
func (r *TokenResolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

// Snapshot returns the cached entries ordered by address.
func (r *TokenResolver) Snapshot() []*TokenInfo {
	r.mu.RLock()
	out := make([]*TokenInfo, 0, len(r.cache))
	for _, info := range r.cache {
		out = append(out, info)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Address.Hex()) < strings.ToLower(out[j].Address.Hex())
	})
	return out
}

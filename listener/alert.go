package listener

import (
	"math/big"
	"time"

	"trade-alert-backend/internal/fixedpoint"
	"trade-alert-backend/notifier"
)

const (
	unknownTokenName   = "Unknown Token"
	unknownTokenSymbol = "N/A"
)

// AlertComposer turns a classified transfer into a notifier.Alert. It does no
// I/O; every missing input is rendered as fixedpoint.Placeholder.
type AlertComposer struct {
	book       *AddressBook
	txPrefix   string
	addrPrefix string
	tokenPage  string
	now        func() time.Time
}

func NewAlertComposer(cfg *Config, book *AddressBook) *AlertComposer {
	return &AlertComposer{
		book:       book,
		txPrefix:   cfg.ExplorerTxPrefix,
		addrPrefix: cfg.ExplorerAddrPrefix,
		tokenPage:  cfg.TokenPagePrefix,
		now:        time.Now,
	}
}

// Compose builds the alert. liquidity is only used when liqOK is true.
func (c *AlertComposer) Compose(ev *TransferEvent, info *TokenInfo, liquidity *big.Int, liqOK bool, dir notifier.Direction) *notifier.Alert {
	now := c.now()

	trader := ev.From
	if dir == notifier.Buy {
		trader = ev.To
	}
	traderName, ok := c.book.NameOf(trader)
	if !ok {
		traderName = shortAddress(trader)
	}

	a := &notifier.Alert{
		Direction:    dir,
		TokenAddress: ev.Token.Hex(),
		TokenName:    unknownTokenName,
		TokenSymbol:  unknownTokenSymbol,
		TokenURL:     c.tokenPage + ev.Token.Hex(),
		TxHash:       ev.TxHash.Hex(),
		TxURL:        c.txPrefix + ev.TxHash.Hex(),
		Trader:       trader.Hex(),
		TraderName:   traderName,
		TraderURL:    c.addrPrefix + trader.Hex(),
		Quantity:     fixedpoint.FormatFixed(ev.Value, 2),
		Price:        fixedpoint.Placeholder,
		Amount:       fixedpoint.Placeholder,
		Liquidity:    fixedpoint.Placeholder,
		MarketCap:    fixedpoint.Placeholder,
		Age:          fixedpoint.Placeholder,
		ObservedAt:   now,
	}

	if info != nil {
		if info.Name != "" {
			a.TokenName = info.Name
		}
		if info.Symbol != "" {
			a.TokenSymbol = info.Symbol
		}
		a.TokenImage = info.ImageURI
		a.Age = fixedpoint.FormatAge(info.CreatedAt, now)

		if price, ok := info.PriceScaled(); ok {
			a.Price = fixedpoint.FormatFixed(price, 8)
			if ev.Value != nil {
				a.Amount = fixedpoint.FormatFixed(fixedpoint.Mul(price, ev.Value), 8)
			}
			// MC = price18 * totalSupplyRaw / 1e18
			if supply, ok := info.SupplyRaw(); ok {
				a.MarketCap = fixedpoint.FormatShort(fixedpoint.Mul(price, supply))
			}
		}
	}
	if liqOK && liquidity != nil {
		a.Liquidity = fixedpoint.FormatShort(liquidity)
	}
	return a
}

package notifier

import (
	"context"
	"time"
)

// Direction trade yönü
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// Alert is a fully formatted trade notification. It is built once by the
// listener and handed to a Sender unchanged.
type Alert struct {
	Direction Direction

	TokenAddress string
	TokenName    string
	TokenSymbol  string
	TokenImage   string
	TokenURL     string

	TxHash string
	TxURL  string

	Trader     string
	TraderName string
	TraderURL  string

	Quantity  string
	Price     string
	Amount    string
	Liquidity string
	MarketCap string
	Age       string

	ObservedAt time.Time
}

// Sender delivers alerts to an external channel.
type Sender interface {
	Send(ctx context.Context, alert *Alert) error
}

package listener

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var errShortResult = errors.New("geçersiz response uzunluğu")

// LiquidityReader reads the MON side of a token's market.
type LiquidityReader struct {
	caller   ethereum.ContractCaller
	curve    common.Address
	wmon     common.Address
	curveABI abi.ABI
	debug    bool
}

func NewLiquidityReader(caller ethereum.ContractCaller) (*LiquidityReader, error) {
	parsed, err := loadABI("BondingCurve", bondingCurveABIJSON)
	if err != nil {
		return nil, err
	}
	return &LiquidityReader{
		caller:   caller,
		curve:    BondingCurveAddress,
		wmon:     WMONAddress,
		curveABI: parsed,
	}, nil
}

func (r *LiquidityReader) SetDebug(on bool) { r.debug = on }

// Liquidity returns the MON reserve (scaled, 18 decimals) for the token's
// market. CURVE reads realMonReserve from the bonding curve, DEX reads the
// WMON balance of the pool. Anything else, or a failed read, is unknown.
func (r *LiquidityReader) Liquidity(ctx context.Context, token common.Address, marketType MarketType, marketID string) (*big.Int, bool) {
	var (
		v   *big.Int
		err error
	)
	switch {
	case marketType == MarketCurve:
		v, err = r.curveReserve(ctx, token)
	case marketType == MarketDEX && common.IsHexAddress(marketID):
		v, err = erc20BalanceAt(ctx, r.caller, r.wmon, common.HexToAddress(marketID), nil)
	default:
		return nil, false
	}
	if err != nil {
		if r.debug {
			log.Printf("⚠️ Likidite okunamadı (%s, %s): %v", token.Hex(), marketType, err)
		}
		return nil, false
	}
	return v, true
}

func (r *LiquidityReader) curveReserve(ctx context.Context, token common.Address) (*big.Int, error) {
	data, err := r.curveABI.Pack("curves", token)
	if err != nil {
		return nil, err
	}
	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &r.curve, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	vals, err := r.curveABI.Unpack("curves", out)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, errShortResult
	}
	reserve, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("realMonReserve tipi beklenmedik: %T", vals[0])
	}
	return reserve, nil
}

func erc20BalanceAt(ctx context.Context, caller ethereum.ContractCaller, token, holder common.Address, block *big.Int) (*big.Int, error) {
	// data = selector 0x70a08231 + 12 bytes pad + holder
	data := []byte{0x70, 0xa0, 0x82, 0x31}
	data = append(data, make([]byte, 12)...)
	data = append(data, holder.Bytes()...)
	msg := ethereum.CallMsg{To: &token, Data: data}
	b, err := caller.CallContract(ctx, msg, block)
	if err != nil {
		return nil, err
	}
	if len(b) < 32 {
		return nil, errShortResult
	}
	return new(big.Int).SetBytes(b[:32]), nil
}

package listener

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	calls []ethereum.CallMsg
	reply func(call ethereum.CallMsg) ([]byte, error)
}

func (f *fakeCaller) CallContract(ctx context.Context, call ethereum.CallMsg, block *big.Int) ([]byte, error) {
	f.calls = append(f.calls, call)
	return f.reply(call)
}

func curveReply(t *testing.T, realMon *big.Int) []byte {
	t.Helper()
	parsed, err := loadABI("BondingCurve", bondingCurveABIJSON)
	require.NoError(t, err)
	vals := []any{realMon}
	for i := 1; i < 8; i++ {
		vals = append(vals, big.NewInt(int64(i)))
	}
	out, err := parsed.Methods["curves"].Outputs.Pack(vals...)
	require.NoError(t, err)
	return out
}

func TestLiquidityCurve(t *testing.T) {
	reserve, _ := new(big.Int).SetString("1500000000000000000000", 10)
	caller := &fakeCaller{reply: func(call ethereum.CallMsg) ([]byte, error) {
		return curveReply(t, reserve), nil
	}}
	r, err := NewLiquidityReader(caller)
	require.NoError(t, err)

	v, ok := r.Liquidity(context.Background(), testToken, MarketCurve, "")
	require.True(t, ok)
	assert.Equal(t, reserve.String(), v.String())

	require.Len(t, caller.calls, 1)
	assert.Equal(t, BondingCurveAddress, *caller.calls[0].To)
	// selector + one address argument
	assert.Len(t, caller.calls[0].Data, 4+32)
	assert.Equal(t, common.LeftPadBytes(testToken.Bytes(), 32), caller.calls[0].Data[4:])
}

func TestLiquidityDEX(t *testing.T) {
	pool := common.HexToAddress("0x5555555555555555555555555555555555555555")
	caller := &fakeCaller{reply: func(call ethereum.CallMsg) ([]byte, error) {
		return common.LeftPadBytes(big.NewInt(42).Bytes(), 32), nil
	}}
	r, err := NewLiquidityReader(caller)
	require.NoError(t, err)

	v, ok := r.Liquidity(context.Background(), testToken, MarketDEX, pool.Hex())
	require.True(t, ok)
	assert.EqualValues(t, 42, v.Int64())

	require.Len(t, caller.calls, 1)
	call := caller.calls[0]
	assert.Equal(t, WMONAddress, *call.To)
	assert.Equal(t, []byte{0x70, 0xa0, 0x82, 0x31}, call.Data[:4])
	assert.Equal(t, pool.Bytes(), call.Data[16:])
}

func TestLiquidityUnknown(t *testing.T) {
	caller := &fakeCaller{reply: func(call ethereum.CallMsg) ([]byte, error) {
		return nil, errors.New("should not be called")
	}}
	r, err := NewLiquidityReader(caller)
	require.NoError(t, err)

	for _, tc := range []struct {
		name       string
		marketType MarketType
		marketID   string
	}{
		{"no market", "", ""},
		{"dex without id", MarketDEX, ""},
		{"dex with bad id", MarketDEX, "pool"},
		{"other type", MarketType("CEX"), "0x5555555555555555555555555555555555555555"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			v, ok := r.Liquidity(context.Background(), testToken, tc.marketType, tc.marketID)
			assert.False(t, ok)
			assert.Nil(t, v)
		})
	}
	assert.Empty(t, caller.calls)
}

func TestLiquidityReadFailure(t *testing.T) {
	caller := &fakeCaller{reply: func(call ethereum.CallMsg) ([]byte, error) {
		if *call.To == WMONAddress {
			return []byte{0x01}, nil
		}
		return nil, errors.New("execution reverted")
	}}
	r, err := NewLiquidityReader(caller)
	require.NoError(t, err)

	_, ok := r.Liquidity(context.Background(), testToken, MarketCurve, "")
	assert.False(t, ok)
	_, ok = r.Liquidity(context.Background(), testToken, MarketDEX, "0x5555555555555555555555555555555555555555")
	assert.False(t, ok)
}

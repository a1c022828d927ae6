package listener

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

// Transfer(address,address,uint256) topic0
var transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// BondingCurve.curves(address) görünümü
const bondingCurveABIJSON = `[{
	"type": "function",
	"name": "curves",
	"stateMutability": "view",
	"inputs": [{"name": "token", "type": "address"}],
	"outputs": [
		{"name": "realMonReserve", "type": "uint256"},
		{"name": "realTokenReserve", "type": "uint256"},
		{"name": "virtualMonReserve", "type": "uint256"},
		{"name": "virtualTokenReserve", "type": "uint256"},
		{"name": "k", "type": "uint256"},
		{"name": "targetTokenAmount", "type": "uint256"},
		{"name": "initVirtualMonReserve", "type": "uint256"},
		{"name": "initVirtualTokenReserve", "type": "uint256"}
	]
}]`

// loadABI parses one ABI JSON document.
func loadABI(name, raw string) (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("ABI parse hatası (%s): %w", name, err)
	}
	return parsed, nil
}

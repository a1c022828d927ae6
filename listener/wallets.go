package listener

import (
	"log"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// nad.fun kontratları
var (
	BondingCurveAddress = common.HexToAddress("0x52D34d8536350Cd997bCBD0b9E9d722452f341F5")
	WMONAddress         = common.HexToAddress("0x760AfE86e5de5fa0Ee542fc7B7B713e1c5425701")
)

// Bilinen platform adresleri (etiketleriyle)
var nadKnown = map[common.Address]string{
	common.HexToAddress("0x52D34d8536350Cd997bCBD0b9E9d722452f341F5"): "BondingCurve",
	common.HexToAddress("0x4F5A3518F082275edf59026f72B66AC2838c0414"): "BondingCurveRouter",
	common.HexToAddress("0x4FBDC27FAE5f99E7B09590bEc8Bf20481FCf9551"): "DexRouter",
	common.HexToAddress("0x961235a9020B05C44DF1026D956D1F4D78014276"): "Factory",
	common.HexToAddress("0x760AfE86e5de5fa0Ee542fc7B7B713e1c5425701"): "WMON",
}

// ParseWatchList virgülle ayrılmış adres listesini çözer. Geçersiz girdiler
// ayrıca döner, tekrar eden adresler bir kez alınır.
func ParseWatchList(raw string) ([]common.Address, []string) {
	var (
		out     []common.Address
		invalid []string
		seen    = make(map[common.Address]bool)
	)
	for _, part := range strings.Split(raw, ",") {
		s := strings.TrimSpace(part)
		if s == "" {
			continue
		}
		if !common.IsHexAddress(s) {
			invalid = append(invalid, s)
			continue
		}
		addr := common.HexToAddress(s)
		if seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, addr)
	}
	return out, invalid
}

// ParseLabels "addr=name;addr=name" biçimini çözer. Hatalı çiftler atlanır.
func ParseLabels(raw string) map[common.Address]string {
	out := make(map[common.Address]string)
	for _, pair := range strings.Split(raw, ";") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		addr, name := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])
		if addr == "" || name == "" || !common.IsHexAddress(addr) {
			continue
		}
		out[common.HexToAddress(addr)] = name
	}
	return out
}

// AddressBook holds the watch set, display names and the platform address
// set. It is built once at startup and only read afterwards.
type AddressBook struct {
	watched  []common.Address
	watchSet map[common.Address]struct{}
	names    map[common.Address]string
	labels   map[common.Address]string
	platform map[common.Address]struct{}
}

func NewAddressBook(watch []common.Address, names, labels map[common.Address]string) *AddressBook {
	b := &AddressBook{
		watchSet: make(map[common.Address]struct{}, len(watch)),
		names:    make(map[common.Address]string, len(names)),
		labels:   make(map[common.Address]string, len(labels)),
		platform: make(map[common.Address]struct{}, len(nadKnown)),
	}
	for _, a := range watch {
		if _, ok := b.watchSet[a]; ok {
			continue
		}
		b.watchSet[a] = struct{}{}
		b.watched = append(b.watched, a)
	}
	for a, n := range names {
		b.names[a] = n
	}
	for a := range nadKnown {
		b.platform[a] = struct{}{}
	}
	for a, l := range labels {
		b.labels[a] = l
		// ADDR_LABELS içinde "nad.fun" geçen adresler de platform sayılır
		if strings.Contains(strings.ToLower(l), "nad.fun") {
			b.platform[a] = struct{}{}
		}
	}
	return b
}

// NewAddressBookFromConfig is a shorthand for the values in cfg.
func NewAddressBookFromConfig(cfg *Config) *AddressBook {
	return NewAddressBook(cfg.WatchWallets, cfg.WalletNames, cfg.AddrLabels)
}

// Watched returns the watch list in configuration order.
func (b *AddressBook) Watched() []common.Address {
	out := make([]common.Address, len(b.watched))
	copy(out, b.watched)
	return out
}

func (b *AddressBook) IsWatched(a common.Address) bool {
	_, ok := b.watchSet[a]
	return ok
}

// NameOf WALLET_LABELS içindeki görünen adı döner
func (b *AddressBook) NameOf(a common.Address) (string, bool) {
	n, ok := b.names[a]
	return n, ok
}

// LabelOf returns the ADDR_LABELS entry, falling back to the built-in
// nad.fun contract names.
func (b *AddressBook) LabelOf(a common.Address) string {
	if l, ok := b.labels[a]; ok {
		return l
	}
	return nadKnown[a]
}

// IsPlatform reports whether a is a nad.fun contract or labelled as one.
func (b *AddressBook) IsPlatform(a common.Address) bool {
	_, ok := b.platform[a]
	return ok
}

// LogActiveWallets aktif adresleri ve isimlerini loglar
func (b *AddressBook) LogActiveWallets() {
	if len(b.watched) == 0 {
		log.Printf("⚠️ İzlenecek adres yok. WATCH_WALLETS boş.")
		return
	}
	for _, a := range b.watched {
		name, ok := b.NameOf(a)
		if !ok {
			name = shortAddress(a)
		}
		log.Printf("🔎 %s: %s", name, a.Hex())
	}
}

// shortAddress 0x1234...abcd
func shortAddress(a common.Address) string {
	h := a.Hex()
	return h[:6] + "..." + h[len(h)-4:]
}

package listener

import (
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// eventKey is the identity of a log: "<txHash>-<logIndex>".
func eventKey(txHash common.Hash, logIndex uint) string {
	return txHash.Hex() + "-" + strconv.FormatUint(uint64(logIndex), 10)
}

// SeenSet remembers event keys so a log delivered by both subscriptions is
// handled once. Keys older than ttl are forgotten; ttl <= 0 keeps them for
// the life of the process.
type SeenSet struct {
	mu        sync.Mutex
	ttl       time.Duration
	seen      map[string]time.Time
	lastSweep time.Time
	now       func() time.Time
}

func NewSeenSet(ttl time.Duration) *SeenSet {
	return &SeenSet{
		ttl:       ttl,
		seen:      make(map[string]time.Time),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// MarkNew records key and reports whether it was unseen. Check and insert
// happen under one lock.
func (s *SeenSet) MarkNew(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.ttl > 0 && now.Sub(s.lastSweep) >= s.ttl {
		for k, t := range s.seen {
			if now.Sub(t) >= s.ttl {
				delete(s.seen, k)
			}
		}
		s.lastSweep = now
	}

	if t, ok := s.seen[key]; ok {
		if s.ttl <= 0 || now.Sub(t) < s.ttl {
			return false
		}
	}
	s.seen[key] = now
	return true
}

func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

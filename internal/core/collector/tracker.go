package collector

import (
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"code.dogecoin.org/bittune/internal/spec"
)

// Lock peer addresses for a short time during connection attempts.
const PeerLockTime = 5 * time.Minute

// How long our version nonces are remembered.
const NonceTime = 10 * time.Minute

// Tracker is shared by all collectors: it hands out peer addresses one
// collector at a time and remembers the nonces we sent, so that a
// connection to ourselves can be detected.
type Tracker struct {
	locked *cache.Cache
	nonces *cache.Cache
}

func NewTracker() *Tracker {
	return &Tracker{
		locked: cache.New(PeerLockTime, 2*PeerLockTime),
		nonces: cache.New(NonceTime, 2*NonceTime),
	}
}

// LockPeer reserves addr for PeerLockTime; false if already reserved.
func (t *Tracker) LockPeer(addr spec.Address) bool {
	return t.locked.Add(addr.String(), struct{}{}, cache.DefaultExpiration) == nil
}

func (t *Tracker) UnlockPeer(addr spec.Address) {
	t.locked.Delete(addr.String())
}

func (t *Tracker) AddNonce(nonce uint64) {
	t.nonces.SetDefault(strconv.FormatUint(nonce, 16), struct{}{})
}

// IsOwnNonce reports whether we sent nonce in a recent version message.
func (t *Tracker) IsOwnNonce(nonce uint64) bool {
	_, found := t.nonces.Get(strconv.FormatUint(nonce, 16))
	return found
}

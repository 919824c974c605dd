package spec

import (
	"context"
)

// Keep peers in the store for 30 days after they were last seen.
const PeerExpiryDays = 30

type Store interface {
	Close()
	WithCtx(ctx context.Context) StoreCtx
}

// StoreCtx is a Store bound to a context (cancelling it aborts retries).
type StoreCtx interface {
	// AddPeer adds a discovered peer address, or refreshes a known one.
	AddPeer(address Address, unixTimeSec int64, services uint64) error
	// ChoosePeer picks a random peer, preferring peers never contacted.
	// Returns an invalid Address if the store is empty.
	ChoosePeer() (Address, error)
	// UpdatePeerVersion records what a peer said in its version message.
	UpdatePeerVersion(address Address, ver PeerVersion) error
	PeerStats() (mapSize int, newPeers int, err error)
	PeerList() (PeerListRes, error)
	// TrimPeers expires peers not seen for PeerExpiryDays.
	TrimPeers() (advanced bool, removed int64, err error)
}

// PeerVersion is the part of a peer's version message worth keeping.
type PeerVersion struct {
	Version  int32
	Services uint64
	Agent    string
	Height   int32
}

type PeerListRes struct {
	Peers []PeerInfo `json:"peers"`
}

type PeerInfo struct {
	Address  string `json:"address"`
	Time     int64  `json:"time"`
	Services uint64 `json:"services"`
	Version  int32  `json:"version"`
	Agent    string `json:"agent"`
	Height   int32  `json:"height"`
	IsNew    bool   `json:"isnew"`
}

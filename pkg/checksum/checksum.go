// Package checksum computes the 4-byte header checksum of a message
// payload: the first 4 bytes of SHA256(SHA256(payload)).
package checksum

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// Size of the checksum field in a message header.
const Size = 4

func Sum(payload []byte) (sum [Size]byte) {
	hash := chainhash.DoubleHashB(payload)
	copy(sum[:], hash[:Size])
	return
}

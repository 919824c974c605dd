package msg

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Magic identifies the network a message belongs to. The value is
// the little-endian reading of the 4 wire bytes, so encoding writes
// the bytes in the order they appear on the wire.
type Magic uint32

const (
	MagicMain     Magic = 0xD9B4BEF9 // F9 BE B4 D9
	MagicTest     Magic = 0xDAB5BFFA // FA BF B5 DA (regtest)
	MagicTestnet3 Magic = 0x0709110B // 0B 11 09 07
	MagicSignet   Magic = 0x40CF030A // 0A 03 CF 40
)

var magicNames = map[Magic]string{
	MagicMain:     "main",
	MagicTest:     "test",
	MagicTestnet3: "testnet3",
	MagicSignet:   "signet",
}

var defaultPorts = map[Magic]uint16{
	MagicMain:     8333,
	MagicTest:     18444,
	MagicTestnet3: 18333,
	MagicSignet:   38333,
}

func (m Magic) IsValid() bool {
	_, ok := magicNames[m]
	return ok
}

func (m Magic) String() string {
	if name, ok := magicNames[m]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%08x)", uint32(m))
}

// DefaultPort is the TCP port nodes listen on for this network.
func (m Magic) DefaultPort() uint16 {
	return defaultPorts[m]
}

// ParseMagic maps a network name ("main", "test", "testnet3", "signet")
// to its Magic.
func ParseMagic(name string) (Magic, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for m, n := range magicNames {
		if n == name {
			return m, nil
		}
	}
	return 0, errors.Join(ErrInvalidData, fmt.Errorf("unknown network: %q", name))
}

func (e *Encoder) Magic(m Magic) {
	if !m.IsValid() {
		e.fail(errors.Join(ErrInvalidData, fmt.Errorf("unknown magic: %08x", uint32(m))))
		return
	}
	e.UInt32le(uint32(m))
}

func (d *Decoder) Magic() Magic {
	m := Magic(d.UInt32le())
	if d.err != nil {
		return 0
	}
	if !m.IsValid() {
		d.fail(errors.Join(ErrInvalidData, fmt.Errorf("unknown magic: % x", TagBytes(m))))
		return 0
	}
	return m
}

// TagBytes returns the 4 bytes of m as they appear on the wire.
func TagBytes(m Magic) []byte {
	return []byte{byte(m), byte(m >> 8), byte(m >> 16), byte(m >> 24)}
}

func EncodeMagic(w io.Writer, m Magic) (int, error) {
	e := NewEncoder(w)
	e.Magic(m)
	return e.Result()
}

func DecodeMagic(r io.Reader) (Magic, error) {
	d := NewDecoder(r)
	m := d.Magic()
	return m, d.err
}

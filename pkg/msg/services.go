package msg

import (
	"fmt"
	"io"
	"math/bits"
	"strings"
)

// ServiceFlag is a single capability bit advertised by a node.
type ServiceFlag uint64

// ServiceFlag bits:
const (
	ServiceNetwork        ServiceFlag = 1 << 0  // full block history; can be asked for full blocks
	ServiceGetUTXO        ServiceFlag = 1 << 1  // See BIP 0064
	ServiceBloom          ServiceFlag = 1 << 2  // See BIP 0111
	ServiceWitness        ServiceFlag = 1 << 3  // See BIP 0144
	ServiceCompactFilters ServiceFlag = 1 << 6  // See BIP 0157
	ServiceNetworkLimited ServiceFlag = 1 << 10 // See BIP 0159
	ServiceP2PV2          ServiceFlag = 1 << 11 // See BIP 0324
)

var serviceNames = map[ServiceFlag]string{
	ServiceNetwork:        "NETWORK",
	ServiceGetUTXO:        "GETUTXO",
	ServiceBloom:          "BLOOM",
	ServiceWitness:        "WITNESS",
	ServiceCompactFilters: "COMPACT_FILTERS",
	ServiceNetworkLimited: "NETWORK_LIMITED",
	ServiceP2PV2:          "P2P_V2",
}

func (f ServiceFlag) String() string {
	if name, ok := serviceNames[f]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN[%d]", bits.TrailingZeros64(uint64(f)))
}

// ServicesList is a set of ServiceFlag values. On the wire it is the
// bitwise OR of its flags as a little-endian 64-bit word.
type ServicesList struct {
	flags uint64
}

func NewServicesList(flags ...ServiceFlag) ServicesList {
	var s ServicesList
	for _, f := range flags {
		s.Add(f)
	}
	return s
}

// ServicesFromWord splits a wire word into its flags. Bits with no
// named flag are kept.
func ServicesFromWord(word uint64) ServicesList {
	return ServicesList{flags: word}
}

func (s *ServicesList) Add(f ServiceFlag) {
	s.flags |= uint64(f)
}

func (s *ServicesList) Remove(f ServiceFlag) {
	s.flags &^= uint64(f)
}

func (s ServicesList) Has(f ServiceFlag) bool {
	return f != 0 && s.flags&uint64(f) == uint64(f)
}

// Flags returns each set bit as its own flag, lowest bit first.
func (s ServicesList) Flags() []ServiceFlag {
	res := make([]ServiceFlag, 0, bits.OnesCount64(s.flags))
	for word := s.flags; word != 0; word &= word - 1 {
		res = append(res, ServiceFlag(word&-word))
	}
	return res
}

// Word folds the flags into the 8-byte wire word.
func (s ServicesList) Word() uint64 {
	var word uint64
	for _, f := range s.Flags() {
		word |= uint64(f)
	}
	return word
}

func (s ServicesList) String() string {
	flags := s.Flags()
	if len(flags) == 0 {
		return "NONE"
	}
	names := make([]string, 0, len(flags))
	for _, f := range flags {
		names = append(names, f.String())
	}
	return strings.Join(names, "|")
}

func (e *Encoder) Services(s ServicesList) {
	e.UInt64le(s.Word())
}

func (d *Decoder) Services() ServicesList {
	return ServicesFromWord(d.UInt64le())
}

func EncodeServices(w io.Writer, s ServicesList) (int, error) {
	e := NewEncoder(w)
	e.Services(s)
	return e.Result()
}

func DecodeServices(r io.Reader) (ServicesList, error) {
	d := NewDecoder(r)
	s := d.Services()
	if d.err != nil {
		return ServicesList{}, d.err
	}
	return s, nil
}

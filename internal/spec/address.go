package spec

import (
	"net"
	"strconv"

	"code.dogecoin.org/gossip/dnet"
)

// Address is an IP:Port combination.
type Address = dnet.Address

// ParseHostPort parses "host:port", or a bare host with defaultPort.
// Only IP literals are accepted.
func ParseHostPort(hostport string, defaultPort uint16) (Address, error) {
	if _, _, err := net.SplitHostPort(hostport); err != nil {
		hostport = net.JoinHostPort(hostport, strconv.Itoa(int(defaultPort)))
	}
	return dnet.ParseAddress(hostport)
}

package msg

import (
	"errors"
	"fmt"
	"io"
	"net"
)

// NetAddr represents the structure of a network address
// as embedded in the version message (no time field).
type NetAddr struct {
	Services ServicesList // [8] services bit flags
	IP       net.IP       // [16] IPv4-mapped IPv6 on the wire
	Port     uint16       // [2] network byte order (BE)
}

func NewNetAddr(ip net.IP, port uint16, services ServicesList) NetAddr {
	return NetAddr{Services: services, IP: ip, Port: port}
}

// NetAddrFromTCP builds a NetAddr from a dialled or accepted address.
func NetAddrFromTCP(addr net.Addr, services ServicesList) NetAddr {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return NetAddr{Services: services, IP: tcp.IP, Port: uint16(tcp.Port)}
	}
	return NetAddr{Services: services}
}

func (a NetAddr) String() string {
	ip := a.IP
	if ip == nil {
		ip = net.IPv6unspecified
	}
	return fmt.Sprintf("%s svc=%s", net.JoinHostPort(ip.String(), fmt.Sprint(a.Port)), a.Services)
}

// IP writes the 16-byte form: IPv4 a.b.c.d becomes ::ffff:a.b.c.d
// and a nil IP becomes all zeroes.
func (e *Encoder) IP(ip net.IP) {
	if ip == nil {
		e.Bytes(make([]byte, net.IPv6len))
		return
	}
	ip16 := ip.To16()
	if ip16 == nil {
		e.fail(errors.Join(ErrInvalidData, fmt.Errorf("bad ip address: %v", []byte(ip))))
		return
	}
	e.Bytes(ip16)
}

func (d *Decoder) IP() net.IP {
	return net.IP(d.Bytes(net.IPv6len))
}

func (e *Encoder) NetAddr(a NetAddr) {
	e.Services(a.Services)
	e.IP(a.IP)
	e.UInt16be(a.Port)
}

func (d *Decoder) NetAddr() (a NetAddr) {
	a.Services = d.Services()
	a.IP = d.IP()
	a.Port = d.UInt16be()
	if d.err != nil {
		return NetAddr{}
	}
	return
}

func EncodeNetAddr(w io.Writer, a NetAddr) (int, error) {
	e := NewEncoder(w)
	e.NetAddr(a)
	return e.Result()
}

func DecodeNetAddr(r io.Reader) (NetAddr, error) {
	d := NewDecoder(r)
	a := d.NetAddr()
	return a, d.err
}

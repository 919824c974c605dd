package msg

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// Protocol version this client speaks.
const ProtocolVersion int32 = 70016

// Longest user agent accepted when encoding or decoding (matches Bitcoin Core).
const MaxUserAgentLen = 256

// VersionMsg represents the structure of the version message
type VersionMsg struct {
	Version     int32        // protocol version
	Services    ServicesList // services of the sending node
	Timestamp   time.Time    // whole seconds since the unix epoch
	RecvAddr    NetAddr      // addrYou: network address of the node receiving this message
	FromAddr    NetAddr      // addrMe: network address of the node emitting this message
	Nonce       uint64       // randomly generated every time a version packet is sent
	UserAgent   string       // strSubVersion, VarInt length prefixed
	StartHeight int32        // best block height of the sender
	Relay       bool         // always present here, regardless of Version
}

func (VersionMsg) Command() Command { return CmdVersion }

func (v VersionMsg) encode(e *Encoder) {
	if len(v.UserAgent) > MaxUserAgentLen {
		e.fail(errors.Join(ErrInvalidData, fmt.Errorf("user agent length %d exceeds %d", len(v.UserAgent), MaxUserAgentLen)))
		return
	}
	e.Int32le(v.Version)
	e.Services(v.Services)
	e.Timestamp(v.Timestamp)
	e.NetAddr(v.RecvAddr)
	e.NetAddr(v.FromAddr)
	e.UInt64le(v.Nonce)
	e.VarString(v.UserAgent)
	e.Int32le(v.StartHeight)
	e.Bool(v.Relay)
}

func (d *Decoder) version() (v VersionMsg) {
	v.Version = d.Int32le()
	v.Services = d.Services()
	v.Timestamp = d.Timestamp()
	v.RecvAddr = d.NetAddr()
	v.FromAddr = d.NetAddr()
	v.Nonce = d.UInt64le()
	v.UserAgent = d.VarString(MaxUserAgentLen)
	v.StartHeight = d.Int32le()
	v.Relay = d.Bool()
	if d.err != nil {
		return VersionMsg{}
	}
	return
}

func EncodeVersion(w io.Writer, v VersionMsg) (int, error) {
	return EncodePayload(w, v)
}

func DecodeVersion(r io.Reader) (VersionMsg, error) {
	d := NewDecoder(r)
	v := d.version()
	return v, d.err
}

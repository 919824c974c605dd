package msg

import (
	"errors"
	"fmt"
	"io"
)

// Payload is the body of a message. The set of payload types is
// closed: each one lives in this package and has exactly one arm in
// decodePayload.
type Payload interface {
	// Command is the header command that carries this payload.
	Command() Command
	encode(e *Encoder)
}

// decodePayload selects the payload decoder for cmd.
// To support a new command: add its Payload type and one case here.
func decodePayload(cmd Command, d *Decoder) Payload {
	var p Payload
	switch cmd {
	case CmdVersion:
		p = d.version()
	case CmdVerack:
		p = VerackMsg{}
	case CmdPing:
		p = PingMsg{Nonce: d.UInt64le()}
	case CmdPong:
		p = PongMsg{Nonce: d.UInt64le()}
	case CmdReject:
		p = d.reject()
	default:
		d.fail(errors.Join(ErrUnsupportedCommand, fmt.Errorf("no payload decoder for %q", string(cmd))))
	}
	if d.err != nil {
		return nil
	}
	return p
}

// HasDecoder reports whether messages with this command can be decoded.
func HasDecoder(cmd Command) bool {
	switch cmd {
	case CmdVersion, CmdVerack, CmdPing, CmdPong, CmdReject:
		return true
	}
	return false
}

func EncodePayload(w io.Writer, p Payload) (int, error) {
	if p == nil {
		return 0, errors.Join(ErrInvalidData, errors.New("nil payload"))
	}
	e := NewEncoder(w)
	p.encode(e)
	return e.Result()
}

// DecodePayload decodes the payload for cmd from r. Some payloads
// (reject) run to the end of r, so r should hold exactly one payload.
func DecodePayload(cmd Command, r io.Reader) (Payload, error) {
	d := NewDecoder(r)
	p := decodePayload(cmd, d)
	return p, d.err
}

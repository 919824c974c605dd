package msg

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
)

// ChecksumFunc computes the header checksum of a serialized payload.
// The hash lives outside this package (see pkg/checksum).
type ChecksumFunc func(payload []byte) [4]byte

// Message is one complete wire message.
//
// Producers must keep Header.Command equal to Payload.Command() and
// Header.Length equal to the encoded payload size; EncodeMessage does
// not recompute either. NewMessage fills both in.
type Message struct {
	Header  MessageHeader
	Payload Payload
}

// NewMessage wraps payload in a header for the given network, with
// the command, length and checksum (if sum is not nil) filled in.
func NewMessage(magic Magic, payload Payload, sum ChecksumFunc) (Message, error) {
	var buf bytes.Buffer
	if _, err := EncodePayload(&buf, payload); err != nil {
		return Message{}, err
	}
	hdr, err := headerFor(magic, payload.Command(), buf.Bytes(), sum)
	if err != nil {
		return Message{}, err
	}
	return Message{Header: hdr, Payload: payload}, nil
}

func headerFor(magic Magic, cmd Command, payload []byte, sum ChecksumFunc) (MessageHeader, error) {
	if uint64(len(payload)) > math.MaxUint32 {
		return MessageHeader{}, errors.Join(ErrPayloadTooLarge, fmt.Errorf("%d bytes", len(payload)))
	}
	hdr := MessageHeader{Magic: magic, Command: cmd, Length: uint32(len(payload))}
	if sum != nil {
		hdr.Checksum = sum(payload)
	}
	return hdr, nil
}

// EncodeMessage writes the header followed by the payload and returns
// the combined byte count.
func EncodeMessage(w io.Writer, m Message) (int, error) {
	if m.Payload == nil {
		return 0, errors.Join(ErrInvalidData, errors.New("message has no payload"))
	}
	e := NewEncoder(w)
	e.Header(m.Header)
	m.Payload.encode(e)
	return e.Result()
}

// DecodeMessage reads exactly one header, then decodes the payload
// selected by the header's command. The payload decoder cannot read
// past Header.Length bytes.
func DecodeMessage(r io.Reader) (Message, error) {
	d := NewDecoder(r)
	hdr := d.Header()
	if d.err != nil {
		return Message{}, d.err
	}
	pd := NewDecoder(io.LimitReader(r, int64(hdr.Length)))
	payload := decodePayload(hdr.Command, pd)
	if pd.err != nil {
		return Message{}, fmt.Errorf("decoding %q payload: %w", string(hdr.Command), pd.err)
	}
	return Message{Header: hdr, Payload: payload}, nil
}

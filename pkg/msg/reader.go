package msg

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Largest payload ReadMessage accepts by default (32MB, as Bitcoin Core).
const MaxPayloadSize = 0x2000000

// ReadMessage reads one framed message from a stream: the header,
// then exactly Header.Length payload bytes, then the checksum check
// (skipped if sum is nil), then the payload decode.
//
// The raw payload is returned whenever it was read, including with
// ErrUnsupportedCommand, so the caller can log or skip it and keep
// reading the stream.
func ReadMessage(r io.Reader, magic Magic, maxPayload uint32, sum ChecksumFunc) (Message, []byte, error) {
	hdr, err := DecodeHeader(r)
	if err != nil {
		return Message{}, nil, fmt.Errorf("reading header: %w", err)
	}
	if hdr.Magic != magic {
		return Message{}, nil, errors.Join(ErrWrongNetwork, fmt.Errorf("expected %v, received %v", magic, hdr.Magic))
	}
	if hdr.Length > maxPayload {
		return Message{}, nil, errors.Join(ErrPayloadTooLarge, fmt.Errorf("[%s] size is %d bytes", hdr.Command, hdr.Length))
	}
	payload := make([]byte, hdr.Length)
	n, err := io.ReadFull(r, payload)
	if err != nil {
		return Message{}, nil, errors.Join(ErrTruncated, fmt.Errorf("short payload: [%s] received %d of %d bytes: %w", hdr.Command, n, hdr.Length, err))
	}
	if sum != nil {
		if got := sum(payload); got != hdr.Checksum {
			return Message{}, payload, errors.Join(ErrChecksumMismatch, fmt.Errorf("[%s] %x vs %x", hdr.Command, hdr.Checksum, got))
		}
	}
	p, err := DecodePayload(hdr.Command, bytes.NewReader(payload))
	if err != nil {
		return Message{Header: hdr}, payload, fmt.Errorf("decoding %q payload: %w", string(hdr.Command), err)
	}
	return Message{Header: hdr, Payload: p}, payload, nil
}

// WriteMessage frames payload for the given network and writes it
// to w in a single Write call.
func WriteMessage(w io.Writer, magic Magic, payload Payload, sum ChecksumFunc) (int, error) {
	var body bytes.Buffer
	if _, err := EncodePayload(&body, payload); err != nil {
		return 0, err
	}
	hdr, err := headerFor(magic, payload.Command(), body.Bytes(), sum)
	if err != nil {
		return 0, err
	}
	var frame bytes.Buffer
	frame.Grow(HeaderSize + body.Len())
	if _, err := EncodeHeader(&frame, hdr); err != nil {
		return 0, err
	}
	frame.Write(body.Bytes())
	e := NewEncoder(w)
	e.Bytes(frame.Bytes())
	return e.Result()
}

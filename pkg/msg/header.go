package msg

import "io"

// HeaderSize is the wire size of a MessageHeader.
const HeaderSize = 4 + CommandSize + 4 + 4

type MessageHeader struct {
	Magic    Magic   // [4] network identifier
	Command  Command // [12] zero-padded ASCII
	Length   uint32  // [4] payload byte count
	Checksum [4]byte // [4] opaque; first 4 bytes of the payload hash
}

func NewHeader(magic Magic, cmd Command, length uint32, checksum [4]byte) MessageHeader {
	return MessageHeader{Magic: magic, Command: cmd, Length: length, Checksum: checksum}
}

func (e *Encoder) Header(hdr MessageHeader) {
	e.Magic(hdr.Magic)
	e.Command(hdr.Command)
	e.UInt32le(hdr.Length)
	e.Bytes(hdr.Checksum[:])
}

func (d *Decoder) Header() (hdr MessageHeader) {
	hdr.Magic = d.Magic()
	hdr.Command = d.Command()
	hdr.Length = d.UInt32le()
	d.Fill(hdr.Checksum[:])
	if d.err != nil {
		return MessageHeader{}
	}
	return
}

// EncodeHeader writes the 24-byte header. Length is not checked
// against any payload.
func EncodeHeader(w io.Writer, hdr MessageHeader) (int, error) {
	e := NewEncoder(w)
	e.Header(hdr)
	return e.Result()
}

func DecodeHeader(r io.Reader) (MessageHeader, error) {
	d := NewDecoder(r)
	hdr := d.Header()
	return hdr, d.err
}

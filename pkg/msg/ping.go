package msg

type PingMsg struct {
	Nonce uint64 // random nonce
}

func (PingMsg) Command() Command { return CmdPing }

func (p PingMsg) encode(e *Encoder) {
	e.UInt64le(p.Nonce)
}

// PongMsg answers a ping with the same nonce.
type PongMsg struct {
	Nonce uint64
}

func (PongMsg) Command() Command { return CmdPong }

func (p PongMsg) encode(e *Encoder) {
	e.UInt64le(p.Nonce)
}

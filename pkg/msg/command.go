package msg

import (
	"errors"
	"fmt"
	"io"
)

// CommandSize is the fixed width of the command field.
const CommandSize = 12

// Command names the payload type of a message.
type Command string

const (
	CmdVersion      Command = "version"
	CmdVerack       Command = "verack"
	CmdPing         Command = "ping"
	CmdPong         Command = "pong"
	CmdAddr         Command = "addr"
	CmdAddrV2       Command = "addrv2"
	CmdGetAddr      Command = "getaddr"
	CmdInv          Command = "inv"
	CmdGetData      Command = "getdata"
	CmdNotFound     Command = "notfound"
	CmdGetBlocks    Command = "getblocks"
	CmdGetHeaders   Command = "getheaders"
	CmdHeaders      Command = "headers"
	CmdBlock        Command = "block"
	CmdTx           Command = "tx"
	CmdMempool      Command = "mempool"
	CmdReject       Command = "reject"
	CmdSendHeaders  Command = "sendheaders"
	CmdFeeFilter    Command = "feefilter"
	CmdSendCmpct    Command = "sendcmpct"
	CmdWtxidRelay   Command = "wtxidrelay"
	CmdSendAddrV2   Command = "sendaddrv2"
	CmdAlert        Command = "alert"
	CmdSendTxRcncl  Command = "sendtxrcncl"
	CmdMerkleBlock  Command = "merkleblock"
	CmdFilterLoad   Command = "filterload"
	CmdFilterAdd    Command = "filteradd"
	CmdFilterClear  Command = "filterclear"
	CmdCmpctBlock   Command = "cmpctblock"
	CmdGetBlockTxn  Command = "getblocktxn"
	CmdBlockTxn     Command = "blocktxn"
	CmdGetCFilters  Command = "getcfilters"
	CmdCFilter      Command = "cfilter"
	CmdGetCFHeaders Command = "getcfheaders"
	CmdCFHeaders    Command = "cfheaders"
	CmdGetCFCheckpt Command = "getcfcheckpt"
	CmdCFCheckpt    Command = "cfcheckpt"
)

// commands the decoder recognizes; only some have payload decoders
// (see decodePayload).
var knownCommands = map[Command]struct{}{
	CmdVersion: {}, CmdVerack: {}, CmdPing: {}, CmdPong: {},
	CmdAddr: {}, CmdAddrV2: {}, CmdGetAddr: {}, CmdInv: {}, CmdGetData: {},
	CmdNotFound: {}, CmdGetBlocks: {}, CmdGetHeaders: {}, CmdHeaders: {},
	CmdBlock: {}, CmdTx: {}, CmdMempool: {}, CmdReject: {},
	CmdSendHeaders: {}, CmdFeeFilter: {}, CmdSendCmpct: {},
	CmdWtxidRelay: {}, CmdSendAddrV2: {}, CmdAlert: {}, CmdSendTxRcncl: {},
	CmdMerkleBlock: {}, CmdFilterLoad: {}, CmdFilterAdd: {}, CmdFilterClear: {},
	CmdCmpctBlock: {}, CmdGetBlockTxn: {}, CmdBlockTxn: {},
	CmdGetCFilters: {}, CmdCFilter: {}, CmdGetCFHeaders: {}, CmdCFHeaders: {},
	CmdGetCFCheckpt: {}, CmdCFCheckpt: {},
}

func (c Command) IsValid() bool {
	_, ok := knownCommands[c]
	return ok
}

func (c Command) String() string {
	return string(c)
}

// ParseCommand maps a command name to its Command.
func ParseCommand(name string) (Command, error) {
	c := Command(name)
	if !c.IsValid() {
		return "", errors.Join(ErrInvalidData, fmt.Errorf("unknown command: %q", name))
	}
	return c, nil
}

func (e *Encoder) Command(c Command) {
	if len(c) > CommandSize {
		e.fail(errors.Join(ErrCommandTooLong, fmt.Errorf("command: %q", string(c))))
		return
	}
	if !c.IsValid() {
		e.fail(errors.Join(ErrInvalidData, fmt.Errorf("unknown command: %q", string(c))))
		return
	}
	e.PadString(CommandSize, string(c))
}

// Command reads the 12-byte field, truncates at the first zero byte
// and maps the name to a Command.
func (d *Decoder) Command() Command {
	name := d.PadString(CommandSize)
	if d.err != nil {
		return ""
	}
	c, err := ParseCommand(name)
	if err != nil {
		d.fail(err)
		return ""
	}
	return c
}

func EncodeCommand(w io.Writer, c Command) (int, error) {
	e := NewEncoder(w)
	e.Command(c)
	return e.Result()
}

func DecodeCommand(r io.Reader) (Command, error) {
	d := NewDecoder(r)
	c := d.Command()
	return c, d.err
}

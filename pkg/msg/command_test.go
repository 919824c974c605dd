package msg_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"code.dogecoin.org/bittune/pkg/msg"
)

func pad12(s string) []byte {
	buf := make([]byte, msg.CommandSize)
	copy(buf, s)
	return buf
}

func TestCommandEncode(t *testing.T) {
	var buf bytes.Buffer

	n, err := msg.EncodeCommand(&buf, msg.CmdVerack)

	require.NoError(t, err)
	require.Equal(t, msg.CommandSize, n)
	require.Equal(t, []byte{'v', 'e', 'r', 'a', 'c', 'k', 0, 0, 0, 0, 0, 0}, buf.Bytes())
}

func TestCommandDecode(t *testing.T) {
	t.Run("known", func(t *testing.T) {
		for _, c := range []msg.Command{msg.CmdVersion, msg.CmdVerack, msg.CmdSendHeaders, msg.CmdWtxidRelay} {
			cmd, err := msg.DecodeCommand(bytes.NewReader(pad12(string(c))))
			require.NoError(t, err)
			require.Equal(t, c, cmd)
		}
	})

	t.Run("unknown command", func(t *testing.T) {
		src := bytes.NewReader(pad12("foobar"))

		cmd, err := msg.DecodeCommand(src)

		require.ErrorIs(t, err, msg.ErrInvalidData)
		require.Empty(t, cmd)
		require.Zero(t, src.Len(), "all 12 bytes are consumed")
	})

	t.Run("truncates at first zero", func(t *testing.T) {
		field := pad12("ping")
		field[6] = 'x' // garbage after the terminator

		cmd, err := msg.DecodeCommand(bytes.NewReader(field))

		require.NoError(t, err)
		require.Equal(t, msg.CmdPing, cmd)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := msg.DecodeCommand(bytes.NewReader([]byte("verack")))
		require.ErrorIs(t, err, msg.ErrTruncated)
	})
}

func TestCommandEncodeInvalid(t *testing.T) {
	_, err := msg.EncodeCommand(&bytes.Buffer{}, msg.Command("foobar"))
	require.ErrorIs(t, err, msg.ErrInvalidData)

	_, err = msg.EncodeCommand(&bytes.Buffer{}, msg.Command("thisistoolong"))
	require.ErrorIs(t, err, msg.ErrCommandTooLong)
}

package msg_test

import (
	"bytes"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"code.dogecoin.org/bittune/pkg/msg"
)

const testAgent = "/bittune:0.1.0/"

func testVersion() msg.VersionMsg {
	return msg.VersionMsg{
		Version:     msg.ProtocolVersion,
		Services:    msg.NewServicesList(msg.ServiceNetwork, msg.ServiceWitness),
		Timestamp:   time.Unix(1700000000, 0),
		RecvAddr:    msg.NewNetAddr(net.ParseIP("203.0.113.7"), 8333, msg.NewServicesList(msg.ServiceNetwork)),
		FromAddr:    msg.NewNetAddr(net.IPv6zero, 0, msg.ServicesList{}),
		Nonce:       0x1122334455667788,
		UserAgent:   testAgent,
		StartHeight: 820000,
		Relay:       true,
	}
}

func TestVersionEncode(t *testing.T) {
	// given
	var buf bytes.Buffer

	// when
	n, err := msg.EncodeVersion(&buf, testVersion())

	// then
	require.NoError(t, err)
	require.Equal(t, 86+len(testAgent), n)
	raw := buf.Bytes()
	require.Equal(t, []byte{0x80, 0x11, 0x01, 0x00}, raw[0:4]) // 70016
	require.Equal(t, byte(len(testAgent)), raw[80])
	require.Equal(t, testAgent, string(raw[81:81+len(testAgent)]))
	require.Equal(t, byte(1), raw[len(raw)-1])
}

func TestVersionRoundTrip(t *testing.T) {
	want := testVersion()
	var buf bytes.Buffer
	_, err := msg.EncodeVersion(&buf, want)
	require.NoError(t, err)

	got, err := msg.DecodeVersion(&buf)

	require.NoError(t, err)
	require.Zero(t, buf.Len())
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(msg.ServicesList{})); diff != "" {
		t.Fatalf("version mismatch (-want +got):\n%s", diff)
	}
}

func TestVersionDecodeFailure(t *testing.T) {
	encoded := func(v msg.VersionMsg) []byte {
		var buf bytes.Buffer
		_, err := msg.EncodeVersion(&buf, v)
		require.NoError(t, err)
		return buf.Bytes()
	}

	t.Run("missing relay byte", func(t *testing.T) {
		raw := encoded(testVersion())

		_, err := msg.DecodeVersion(bytes.NewReader(raw[:len(raw)-1]))

		require.ErrorIs(t, err, msg.ErrTruncated)
	})

	t.Run("user agent too long", func(t *testing.T) {
		// fields before the user agent are 80 bytes
		raw := append([]byte{}, encoded(testVersion())[:80]...)
		raw = append(raw, 0xFD, 0x01, 0x01) // 257
		raw = append(raw, strings.Repeat("x", msg.MaxUserAgentLen+1)...)
		raw = append(raw, 0, 0, 0, 0, 1)

		_, err := msg.DecodeVersion(bytes.NewReader(raw))

		require.ErrorIs(t, err, msg.ErrInvalidData)
	})

	t.Run("user agent shorter than its prefix", func(t *testing.T) {
		raw := encoded(testVersion())

		_, err := msg.DecodeVersion(bytes.NewReader(raw[:85]))

		require.ErrorIs(t, err, msg.ErrTruncated)
	})
}

func TestVersionEncodeUserAgentLimit(t *testing.T) {
	t.Run("longest user agent round trips", func(t *testing.T) {
		v := testVersion()
		v.UserAgent = strings.Repeat("x", msg.MaxUserAgentLen)
		var buf bytes.Buffer

		_, err := msg.EncodeVersion(&buf, v)
		require.NoError(t, err)
		got, err := msg.DecodeVersion(&buf)

		require.NoError(t, err)
		require.Equal(t, v.UserAgent, got.UserAgent)
	})

	t.Run("longer user agent is not written", func(t *testing.T) {
		v := testVersion()
		v.UserAgent = strings.Repeat("x", msg.MaxUserAgentLen+1)
		var buf bytes.Buffer

		_, err := msg.EncodeVersion(&buf, v)

		require.ErrorIs(t, err, msg.ErrInvalidData)
		require.Zero(t, buf.Len())
	})
}

func TestVersionEncodeBeforeEpoch(t *testing.T) {
	v := testVersion()
	v.Timestamp = time.Time{}

	_, err := msg.EncodeVersion(&bytes.Buffer{}, v)

	require.ErrorIs(t, err, msg.ErrTimestampBeforeEpoch)
}

func TestVerack(t *testing.T) {
	var buf bytes.Buffer

	n, err := msg.EncodeVerack(&buf, msg.VerackMsg{})

	require.NoError(t, err)
	require.Zero(t, n)
	require.Zero(t, buf.Len())

	for _, src := range [][]byte{nil, {0x01, 0x02}} {
		r := bytes.NewReader(src)
		v, err := msg.DecodeVerack(r)
		require.NoError(t, err)
		require.Equal(t, msg.VerackMsg{}, v)
		require.Equal(t, len(src), r.Len())
	}
}

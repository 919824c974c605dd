package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"code.dogecoin.org/bittune/pkg/msg"
)

// Metrics are the counters shared by the peer collectors.
type Metrics struct {
	MessagesSent     *prometheus.CounterVec
	MessagesReceived *prometheus.CounterVec
	ReadErrors       *prometheus.CounterVec
	Handshakes       *prometheus.CounterVec
	ConnectedPeers   prometheus.Gauge
	KnownPeers       prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bittune_messages_sent_total",
			Help: "Messages sent to peers, by command",
		}, []string{"command"}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bittune_messages_received_total",
			Help: "Messages received from peers, by command",
		}, []string{"command"}),
		ReadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bittune_read_errors_total",
			Help: "Messages that could not be read or decoded, by kind",
		}, []string{"kind"}),
		Handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bittune_handshakes_total",
			Help: "Handshake attempts, by outcome",
		}, []string{"outcome"}),
		ConnectedPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bittune_connected_peers",
			Help: "Peers with a completed handshake",
		}),
		KnownPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bittune_known_peers",
			Help: "Peers in the peer store",
		}),
	}
	reg.MustRegister(m.MessagesSent, m.MessagesReceived, m.ReadErrors, m.Handshakes, m.ConnectedPeers, m.KnownPeers)
	return m
}

// ErrorKind labels a codec error for the read_errors counter.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, msg.ErrUnsupportedCommand):
		return "unsupported_command"
	case errors.Is(err, msg.ErrChecksumMismatch):
		return "checksum_mismatch"
	case errors.Is(err, msg.ErrWrongNetwork):
		return "wrong_network"
	case errors.Is(err, msg.ErrPayloadTooLarge):
		return "payload_too_large"
	case errors.Is(err, msg.ErrTruncated):
		return "truncated"
	case errors.Is(err, msg.ErrInvalidData):
		return "invalid_data"
	default:
		return "io"
	}
}

package config

import (
	"time"

	"code.dogecoin.org/bittune/pkg/msg"
)

type Config struct {
	Network         string        `json:"network" mapstructure:"network"`
	MinPeers        int           `json:"minPeers" mapstructure:"minPeers"`
	Peer            string        `json:"peer" mapstructure:"peer"`
	Seeds           []string      `json:"seeds" mapstructure:"seeds"`
	SeedPort        uint16        `json:"seedPort" mapstructure:"seedPort"`
	DNSServer       string        `json:"dnsServer" mapstructure:"dnsServer"`
	DBFile          string        `json:"dbFile" mapstructure:"dbFile"`
	LogLevel        string        `json:"logLevel" mapstructure:"logLevel"`
	LogFormat       string        `json:"logFormat" mapstructure:"logFormat"`
	WebBind         string        `json:"webBind" mapstructure:"webBind"`
	UserAgent       string        `json:"userAgent" mapstructure:"userAgent"`
	ProtocolVersion int32         `json:"protocolVersion" mapstructure:"protocolVersion"`
	StartHeight     int32         `json:"startHeight" mapstructure:"startHeight"`
	Relay           bool          `json:"relay" mapstructure:"relay"`
	DialTimeout     time.Duration `json:"dialTimeout" mapstructure:"dialTimeout"`
	MaxSessionTime  time.Duration `json:"maxSessionTime" mapstructure:"maxSessionTime"`
	MaxPayloadSize  uint32        `json:"maxPayloadSize" mapstructure:"maxPayloadSize"`
}

func getDefaultConfig() *Config {
	return &Config{
		Network:         "main",
		MinPeers:        3,
		Peer:            "",
		Seeds:           nil, // per-network defaults
		SeedPort:        0,   // network default port
		DNSServer:       "1.1.1.1:53",
		DBFile:          "bittune.db",
		LogLevel:        "INFO",
		LogFormat:       "tint",
		WebBind:         "localhost:8086",
		UserAgent:       "/bittune:0.1.0/",
		ProtocolVersion: msg.ProtocolVersion,
		StartHeight:     0,
		Relay:           false,
		DialTimeout:     30 * time.Second,
		MaxSessionTime:  10 * time.Minute,
		MaxPayloadSize:  msg.MaxPayloadSize,
	}
}

// Magic returns the network magic for the configured network name.
func (c *Config) Magic() msg.Magic {
	m, _ := msg.ParseMagic(c.Network)
	return m
}

// Port is the port used for discovered peers.
func (c *Config) Port() uint16 {
	if c.SeedPort != 0 {
		return c.SeedPort
	}
	return c.Magic().DefaultPort()
}

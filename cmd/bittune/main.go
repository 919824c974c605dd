package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"code.dogecoin.org/governor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"code.dogecoin.org/bittune/internal/config"
	"code.dogecoin.org/bittune/internal/core/collector"
	"code.dogecoin.org/bittune/internal/logger"
	"code.dogecoin.org/bittune/internal/metrics"
	"code.dogecoin.org/bittune/internal/seeds"
	"code.dogecoin.org/bittune/internal/spec"
	"code.dogecoin.org/bittune/internal/store"
	"code.dogecoin.org/bittune/internal/trimmer"
	"code.dogecoin.org/bittune/internal/web"
	"code.dogecoin.org/bittune/pkg/msg"
)

// Limit on DNS seed discovery at startup.
const DiscoveryTimeout = 30 * time.Second

var RootCmd = &cobra.Command{
	Use:          "bittune",
	Short:        "Tune into the chit-chat between nodes of the Bitcoin P2P network",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd)
	},
}

// flag name -> config key
var flagKeys = map[string]string{
	"min-peers":  "minPeers",
	"network":    "network",
	"log-level":  "logLevel",
	"log-format": "logFormat",
	"peer":       "peer",
	"web":        "webBind",
	"db":         "dbFile",
}

func init() {
	flags := RootCmd.Flags()
	flags.String("config", "", "Path to a YAML config file")
	flags.Int("min-peers", 3, "Number of peers to stay connected to")
	flags.String("network", "main", "Network to join: main, test, testnet3 or signet")
	flags.String("log-level", "INFO", "Log level: DEBUG, INFO, WARN or ERROR")
	flags.String("log-format", "tint", "Log format: json, text or tint")
	flags.String("peer", "", "Connect only to this node (ip or ip:port)")
	flags.String("web", "localhost:8086", "Bind address of the web API, empty to disable")
	flags.String("db", "bittune.db", "Path to the peer database")
}

func main() {
	err := RootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command) error {
	v := viper.New()
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("binding flag %s: %w", flag, err)
		}
	}
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	slog.SetDefault(log)

	db, err := store.NewSQLiteStore(cfg.DBFile, context.Background())
	if err != nil {
		return fmt.Errorf("cannot open database %s: %w", cfg.DBFile, err)
	}
	defer db.Close()

	// a fixed peer from the command line, or peers from DNS seeds.
	var fixed spec.Address
	numCollectors := cfg.MinPeers
	if cfg.Peer != "" {
		fixed, err = spec.ParseHostPort(cfg.Peer, cfg.Port())
		if err != nil {
			return fmt.Errorf("invalid peer address %q: %w", cfg.Peer, err)
		}
		numCollectors = 1
	} else {
		err = discoverPeers(cfg, db, log)
		if err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	gov := governor.New().CatchSignals().Restart(1 * time.Second)

	// periodically expire old peers.
	gov.Add("trimmer", trimmer.New(db, m, log))

	// stay connected to peers.
	tracker := collector.NewTracker()
	ccfg := collector.Config{
		Magic:           cfg.Magic(),
		ProtocolVersion: cfg.ProtocolVersion,
		Services:        msg.NewServicesList(),
		UserAgent:       cfg.UserAgent,
		StartHeight:     cfg.StartHeight,
		Relay:           cfg.Relay,
		DialTimeout:     cfg.DialTimeout,
		MaxSessionTime:  cfg.MaxSessionTime,
		MaxPayloadSize:  cfg.MaxPayloadSize,
	}
	for n := 0; n < numCollectors; n++ {
		gov.Add(fmt.Sprintf("peer-%d", n), collector.New(db, fixed, ccfg, tracker, m, log))
	}

	// start the web server.
	if cfg.WebBind != "" {
		gov.Add("web-api", web.New(cfg.WebBind, db, reg, cfg.Port(), log))
	}

	// run services until interrupted.
	gov.Start()
	gov.WaitForShutdown()
	log.Info("finished.")
	return nil
}

// discoverPeers adds peers from the network's DNS seeds to the store.
// Discovery failing is fine while the store still knows some peers.
func discoverPeers(cfg *config.Config, db spec.Store, log *slog.Logger) error {
	seedHosts := cfg.Seeds
	if len(seedHosts) == 0 {
		seedHosts = seeds.DefaultSeeds[cfg.Magic()]
	}
	sctx := db.WithCtx(context.Background())
	if len(seedHosts) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), DiscoveryTimeout)
		addrs, err := seeds.New(cfg.DNSServer, 5*time.Second, log).Discover(ctx, seedHosts, cfg.Port())
		cancel()
		if err != nil {
			log.Warn("peer discovery failed", "err", err)
		}
		now := time.Now().Unix()
		for _, a := range addrs {
			if err := sctx.AddPeer(a, now, 0); err != nil {
				return fmt.Errorf("cannot add peer %v: %w", a, err)
			}
		}
		log.Info("discovered peers", "network", cfg.Network, "seeds", len(seedHosts), "found", len(addrs))
	}
	size, fresh, err := sctx.PeerStats()
	if err != nil {
		return err
	}
	if size == 0 {
		return errors.Join(seeds.ErrNoPeers, fmt.Errorf("no peers for network %s: use --peer", cfg.Network))
	}
	if size < cfg.MinPeers {
		log.Warn("fewer peers than requested", "known", size, "minPeers", cfg.MinPeers)
	}
	log.Info("peer store", "peers", size, "new", fresh)
	return nil
}

package seeds

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"

	"code.dogecoin.org/bittune/internal/spec"
	"code.dogecoin.org/bittune/pkg/msg"
)

var ErrNoPeers = errors.New("no peers found")

// DNS seeds per network (from Bitcoin Core chainparams).
var DefaultSeeds = map[msg.Magic][]string{
	msg.MagicMain: {
		"seed.bitcoin.sipa.be",
		"dnsseed.bluematt.me",
		"dnsseed.bitcoin.dashjr-list-of-p2p-nodes.us",
		"seed.bitcoinstats.com",
		"seed.bitcoin.jonasschnelli.ch",
		"seed.btc.petertodd.net",
		"seed.bitcoin.sprovoost.nl",
		"dnsseed.emzy.de",
		"seed.bitcoin.wiz.biz",
	},
	msg.MagicTestnet3: {
		"testnet-seed.bitcoin.jonasschnelli.ch",
		"seed.tbtc.petertodd.net",
		"seed.testnet.bitcoin.sprovoost.nl",
		"testnet-seed.bluematt.me",
	},
	msg.MagicSignet: {
		"seed.signet.bitcoin.sprovoost.nl",
	},
}

type Resolver struct {
	server string
	client *dns.Client
	log    *slog.Logger
}

// New returns a Resolver that sends queries to server ("ip:port").
func New(server string, timeout time.Duration, logger *slog.Logger) *Resolver {
	return &Resolver{
		server: server,
		client: &dns.Client{Net: "udp", Timeout: timeout},
		log:    logger,
	}
}

// Discover looks up A and AAAA records for every seed in parallel.
// Seeds that fail are logged and skipped; the result is de-duplicated
// and sorted. No addresses at all is ErrNoPeers.
func (r *Resolver) Discover(ctx context.Context, seeds []string, port uint16) ([]spec.Address, error) {
	var mu sync.Mutex
	found := make(map[string]net.IP)
	g, gctx := errgroup.WithContext(ctx)
	for _, seed := range seeds {
		for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
			g.Go(func() error {
				ips, err := r.lookup(gctx, seed, qtype)
				if err != nil {
					r.log.Warn("seed lookup failed", "seed", seed, "type", dns.TypeToString[qtype], "err", err)
					return nil
				}
				r.log.Debug("seed lookup", "seed", seed, "type", dns.TypeToString[qtype], "found", len(ips))
				mu.Lock()
				for _, ip := range ips {
					found[ip.String()] = ip
				}
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait() // lookups never fail the group
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, errors.Join(ErrNoPeers, fmt.Errorf("queried %d seeds", len(seeds)))
	}
	res := make([]spec.Address, 0, len(found))
	for _, ip := range found {
		res = append(res, spec.Address{Host: ip, Port: port})
	}
	sort.Slice(res, func(i, j int) bool {
		return bytes.Compare(res[i].Host.To16(), res[j].Host.To16()) < 0
	})
	return res, nil
}

func (r *Resolver) lookup(ctx context.Context, host string, qtype uint16) ([]net.IP, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), qtype)
	m.RecursionDesired = true
	in, _, err := r.client.ExchangeContext(ctx, m, r.server)
	if err != nil {
		return nil, err
	}
	if in.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("unsuccessful request: %s", dns.RcodeToString[in.Rcode])
	}
	var ips []net.IP
	for _, rr := range in.Answer {
		switch a := rr.(type) {
		case *dns.A:
			ips = append(ips, a.A)
		case *dns.AAAA:
			ips = append(ips, a.AAAA)
		}
	}
	return ips, nil
}

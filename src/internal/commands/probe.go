package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/multihome/mhroute/src/internal/config"
	"github.com/multihome/mhroute/src/internal/endpoint"
	"github.com/multihome/mhroute/src/internal/log"
	"github.com/multihome/mhroute/src/internal/service"
)

func CreateProbeCommand() *ProbeCommand {
	pc := &ProbeCommand{
		fs:  flag.NewFlagSet("probe", flag.ContinueOnError),
		out: os.Stdout,
	}

	pc.fs.StringVar(&pc.peerList, "peer", "", "Comma-separated list of host:port peers")
	pc.fs.BoolVar(&pc.ipv4, "4", false, "Bind IPv4 endpoints")
	pc.fs.BoolVar(&pc.ipv6, "6", false, "Bind IPv6 endpoints")
	pc.fs.BoolVar(&pc.mapIPv4, "map-ipv4", false, "Reach IPv4 peers from IPv6 endpoints via ::ffff:a.b.c.d")
	pc.fs.StringVar(&pc.payload, "payload", "mhroute probe", "Datagram payload")
	pc.fs.DurationVar(&pc.timeout, "timeout", 5*time.Second, "Overall timeout")

	return pc
}

// ProbeCommand binds an endpoint on every interface, sends one datagram from
// each endpoint to each peer and tears everything down again.
type ProbeCommand struct {
	fs  *flag.FlagSet
	ctx *AppContext
	cfg *config.Config
	out io.Writer

	peerList string
	ipv4     bool
	ipv6     bool
	mapIPv4  bool
	payload  string
	timeout  time.Duration

	peers []endpoint.PeerTarget
}

func (p *ProbeCommand) Name() string {
	return p.fs.Name()
}

func (p *ProbeCommand) Init(args []string, ctx *AppContext) error {
	p.ctx = ctx

	if err := p.fs.Parse(args); err != nil {
		return err
	}

	peers, err := parsePeers(p.peerList, p.mapIPv4)
	if err != nil {
		return err
	}
	p.peers = peers

	if !p.ipv4 && !p.ipv6 {
		p.ipv4, p.ipv6 = true, true
	}

	if cfg, err := loadAndValidateConfigOrFail(ctx.ConfigPath); err != nil {
		return err
	} else {
		p.cfg = cfg
	}

	logConfigWarnings(p.cfg, ctx.catalog())
	return nil
}

func (p *ProbeCommand) Run() error {
	svc, err := service.NewDefaultMultihomeService(p.cfg, p.ctx.catalog())
	if err != nil {
		return err
	}
	defer func() {
		removed := svc.Shutdown()
		log.Debugf("Removed %d routing tables", removed)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	endpoints, err := svc.BindAll(ctx, p.ipv4, p.ipv6)
	if err != nil {
		return err
	}
	if len(endpoints) == 0 {
		return fmt.Errorf("no endpoints could be bound")
	}

	results := svc.Probe(ctx, p.peers, []byte(p.payload))

	failed, skipped := 0, 0
	for _, res := range results {
		switch {
		case res.Skipped:
			skipped++
			fmt.Fprintf(p.out, "%-40s -> %-30s SKIP address family mismatch\n", res.From, res.Peer)
		case res.Error != "":
			failed++
			fmt.Fprintf(p.out, "%-40s -> %-30s FAIL %s\n", res.From, res.Peer, res.Error)
		default:
			fmt.Fprintf(p.out, "%-40s -> %-30s OK   %d bytes\n", res.From, res.Peer, res.Bytes)
		}
	}

	sent := len(results) - skipped
	if sent == 0 {
		return fmt.Errorf("no peer is reachable from the bound endpoints")
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d probes failed", failed, sent)
	}
	return nil
}

func parsePeers(list string, mapIPv4 bool) ([]endpoint.PeerTarget, error) {
	if strings.TrimSpace(list) == "" {
		return nil, fmt.Errorf("-peer is required")
	}

	var peers []endpoint.PeerTarget
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		peer, err := endpoint.ParsePeer(item)
		if err != nil {
			return nil, fmt.Errorf("invalid peer %q: %w", item, err)
		}
		peer.MapIPv4 = mapIPv4
		peers = append(peers, peer)
	}
	if len(peers) == 0 {
		return nil, fmt.Errorf("-peer is required")
	}
	return peers, nil
}

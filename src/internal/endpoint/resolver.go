package endpoint

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/multihome/mhroute/src/internal/log"
	"github.com/multihome/mhroute/src/internal/networking"
)

const (
	defaultDNSPort    = "53"
	defaultResolvConf = "/etc/resolv.conf"
)

// Resolver looks up one address of a peer host name for a family.
type Resolver interface {
	Lookup(ctx context.Context, host string, family networking.Family) (net.IP, error)
}

// DNSResolver asks a single nameserver for A or AAAA records.
type DNSResolver struct {
	address string
	client  *dns.Client
}

// NewDNSResolver creates a resolver for nameserver (ip or ip:port). An empty
// nameserver uses the first server of /etc/resolv.conf.
func NewDNSResolver(nameserver string, timeout time.Duration) (*DNSResolver, error) {
	address, err := nameserverAddress(nameserver, defaultResolvConf)
	if err != nil {
		return nil, err
	}

	return &DNSResolver{
		address: address,
		client: &dns.Client{
			Net:     "udp",
			Timeout: timeout,
		},
	}, nil
}

func nameserverAddress(nameserver, resolvConf string) (string, error) {
	if nameserver == "" {
		cfg, err := dns.ClientConfigFromFile(resolvConf)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", resolvConf, err)
		}
		if len(cfg.Servers) == 0 {
			return "", fmt.Errorf("no nameserver in %s", resolvConf)
		}
		return net.JoinHostPort(cfg.Servers[0], cfg.Port), nil
	}

	if ip := net.ParseIP(strings.Trim(nameserver, "[]")); ip != nil {
		return net.JoinHostPort(ip.String(), defaultDNSPort), nil
	}
	if _, _, err := net.SplitHostPort(nameserver); err != nil {
		return "", fmt.Errorf("invalid nameserver address %q: %w", nameserver, err)
	}
	return nameserver, nil
}

// Address returns the nameserver queried, as host:port.
func (r *DNSResolver) Address() string {
	return r.address
}

func (r *DNSResolver) Lookup(ctx context.Context, host string, family networking.Family) (net.IP, error) {
	qtype := dns.TypeA
	if family == networking.FamilyIPv6 {
		qtype = dns.TypeAAAA
	}

	req := new(dns.Msg)
	req.SetQuestion(dns.Fqdn(host), qtype)
	req.RecursionDesired = true

	log.Debugf("[%04x] Querying %s for %s %s", req.Id, r.address, host, dns.TypeToString[qtype])
	resp, _, err := r.client.ExchangeContext(ctx, req, r.address)
	if err != nil {
		return nil, fmt.Errorf("lookup %s %s: %w", host, dns.TypeToString[qtype], err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("lookup %s %s: %s", host, dns.TypeToString[qtype], dns.RcodeToString[resp.Rcode])
	}

	if ip := firstAddress(resp, qtype); ip != nil {
		return ip, nil
	}
	return nil, fmt.Errorf("lookup %s %s: no records", host, dns.TypeToString[qtype])
}

func firstAddress(resp *dns.Msg, qtype uint16) net.IP {
	for _, rr := range resp.Answer {
		switch rec := rr.(type) {
		case *dns.A:
			if qtype == dns.TypeA {
				return rec.A
			}
		case *dns.AAAA:
			if qtype == dns.TypeAAAA {
				return rec.AAAA
			}
		}
	}
	return nil
}

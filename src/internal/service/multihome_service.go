package service

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"

	"github.com/multihome/mhroute/src/internal/config"
	"github.com/multihome/mhroute/src/internal/endpoint"
	"github.com/multihome/mhroute/src/internal/errors"
	"github.com/multihome/mhroute/src/internal/log"
	"github.com/multihome/mhroute/src/internal/networking"
	"github.com/multihome/mhroute/src/internal/utils"
)

// EndpointInfo describes a bound endpoint for status output.
type EndpointInfo struct {
	Family    string `json:"family"`
	Interface string `json:"interface"`
	LocalAddr string `json:"local_addr"`
	Device    string `json:"device,omitempty"`
	Mark      uint32 `json:"mark,omitempty"`
	Table     int    `json:"table,omitempty"`
}

// SendResult is the outcome of one probe datagram.
type SendResult struct {
	From  string `json:"from"`
	Peer  string `json:"peer"`
	Bytes int    `json:"bytes"`
	Error string `json:"error,omitempty"`
	// Skipped is set when the endpoint family cannot address the peer.
	Skipped bool `json:"skipped,omitempty"`
}

// MultihomeService owns the routing session and the bound endpoints. All
// methods are safe for concurrent use; the session itself is not, so every
// access goes through the service mutex.
type MultihomeService struct {
	mu sync.Mutex

	cfg        *config.Config
	catalog    networking.Catalog
	selector   *networking.InterfaceSelector
	session    *networking.Session
	checker    networking.ComponentBuilder
	binder     *endpoint.Binder
	dispatcher *endpoint.Dispatcher
	interfaces *InterfaceService

	endpoints []*endpoint.Endpoint
	shutdown  bool
}

// NewMultihomeService wires the service from its parts. A nil ctrl disables
// policy routing; a nil resolver limits peers to IP literals.
func NewMultihomeService(cfg *config.Config, catalog networking.Catalog, ctrl networking.RouteController, resolver endpoint.Resolver) *MultihomeService {
	numberer := networking.NewTableNumberer(cfg.Routing.TableBases)

	var session *networking.Session
	if ctrl != nil {
		session = networking.NewSession(ctrl, numberer, networking.SessionOptions{
			Strict:  cfg.Routing.Strict,
			Gateway: networking.GatewayInferrerFor(cfg.Routing.Gateway),
		})
	}

	policy := networking.PriorityPolicy(cfg.PriorityPolicy())
	opts := endpoint.BindOptions{
		BindToDevice: cfg.Endpoint.BindToDevice,
		SetMark:      cfg.Endpoint.SetMark,
		DualStack:    cfg.Endpoint.DualStack,
	}

	checker, _ := ctrl.(networking.ComponentBuilder)

	return &MultihomeService{
		cfg:        cfg,
		checker:    checker,
		catalog:    catalog,
		selector:   networking.NewInterfaceSelector(catalog),
		session:    session,
		binder:     endpoint.NewBinder(catalog, session, policy, opts),
		dispatcher: endpoint.NewDispatcher(catalog, resolver),
		interfaces: NewInterfaceService(catalog, numberer),
	}
}

// NewDefaultMultihomeService builds the service on netlink, iptables and DNS.
// A nil catalog reads interfaces from netlink.
func NewDefaultMultihomeService(cfg *config.Config, catalog networking.Catalog) (*MultihomeService, error) {
	if catalog == nil {
		catalog = networking.NewNetlinkCatalog()
	}

	var ctrl networking.RouteController
	if cfg.Routing.Enabled {
		netlinkCtrl, err := networking.NewNetlinkRouteController(cfg.Routing)
		if err != nil {
			return nil, errors.NewRoutingError("failed to initialize route controller", err)
		}
		ctrl = netlinkCtrl
	} else {
		log.Infof("Policy routing is disabled")
	}

	var resolver endpoint.Resolver
	if dnsResolver, err := endpoint.NewDNSResolver(cfg.Resolver.Nameserver, cfg.Resolver.Timeout()); err != nil {
		log.Warnf("Peer name resolution is unavailable: %v", err)
	} else {
		log.Debugf("Resolving peer names with %s", dnsResolver.Address())
		resolver = dnsResolver
	}

	return NewMultihomeService(cfg, catalog, ctrl, resolver), nil
}

// Interfaces returns the current interface snapshot.
func (s *MultihomeService) Interfaces(includeLoopback bool) ([]InterfaceInfo, error) {
	return s.interfaces.GetInterfaces(includeLoopback)
}

// InterfaceService returns the interface service used for CLI formatting.
func (s *MultihomeService) InterfaceService() *InterfaceService {
	return s.interfaces
}

// Select returns the local side for dst. IPv4 destinations go through the
// selector with the configured policy; IPv6 destinations resolve to the
// interface owning the address, with its scope id when it has one.
func (s *MultihomeService) Select(dst net.IP) (*networking.SelectionResult, error) {
	if dst == nil {
		return nil, errors.NewValidationError("destination is not an IP address", nil)
	}
	if utils.IsIPv4(dst) {
		return s.selector.SelectIPv4(dst, networking.PriorityPolicy(s.cfg.PriorityPolicy()))
	}

	scope, err := s.selector.SelectIPv6(dst)
	if err != nil {
		return nil, err
	}
	zone, err := networking.ZoneForScope(s.catalog, scope)
	if err != nil {
		return nil, err
	}
	// Global addresses carry no scope id; the owner names the interface.
	if zone == "" {
		owner, err := networking.OwnerOf(s.catalog, dst)
		if err != nil {
			return nil, err
		}
		if owner == nil {
			return nil, networking.ErrNoInterfaceFound
		}
		zone = owner.Name
	}
	return &networking.SelectionResult{
		Interface: zone,
		Address:   dst,
		ScopeID:   scope,
		Matched:   networking.MatchScope,
	}, nil
}

// BindAll binds an endpoint on every usable address of the wanted families
// using the configured port.
func (s *MultihomeService) BindAll(ctx context.Context, want4, want6 bool) ([]*endpoint.Endpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown {
		return nil, errors.NewInternalError("service is shut down", nil)
	}

	endpoints, err := s.binder.BindAllInterfaces(ctx, want4, want6, s.cfg.Endpoint.Port)
	if err != nil {
		return nil, err
	}
	s.endpoints = append(s.endpoints, endpoints...)
	return endpoints, nil
}

// Endpoints describes the bound endpoints.
func (s *MultihomeService) Endpoints() []EndpointInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]EndpointInfo, 0, len(s.endpoints))
	for _, ep := range s.endpoints {
		info := EndpointInfo{
			Family:    ep.Family.String(),
			Interface: ep.Interface,
			Device:    ep.Device,
			Mark:      ep.Mark,
			Table:     ep.Table,
		}
		if addr := ep.LocalAddr(); addr != nil {
			info.LocalAddr = addr.String()
		}
		infos = append(infos, info)
	}
	return infos
}

// Tables returns the installed routing tables ordered by number.
func (s *MultihomeService) Tables() []networking.RoutingTable {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil
	}
	tables := s.session.Tables()
	sort.Slice(tables, func(i, j int) bool { return tables[i].Number < tables[j].Number })
	return tables
}

// CheckTables reports whether the kernel objects of every installed table
// are still present. It returns nil when the route controller cannot check.
func (s *MultihomeService) CheckTables() []networking.ComponentStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil || s.checker == nil {
		return nil
	}
	var statuses []networking.ComponentStatus
	for _, t := range s.session.Tables() {
		statuses = append(statuses, networking.CheckComponents(t, s.checker)...)
	}
	return statuses
}

// Probe sends payload from every bound endpoint to every peer its family can
// address. Other pairs are reported as skipped.
func (s *MultihomeService) Probe(ctx context.Context, peers []endpoint.PeerTarget, payload []byte) []SendResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []SendResult
	for _, ep := range s.endpoints {
		for _, peer := range peers {
			res := SendResult{
				From: fmt.Sprintf("%s %s", ep.Interface, ep.LocalAddr()),
				Peer: net.JoinHostPort(peer.Host, fmt.Sprintf("%d", peer.Port)),
			}
			if !endpoint.Addressable(ep.Family, peer) {
				res.Skipped = true
				log.Debugf("Skipping %s from %s endpoint %s", res.Peer, ep.Family, res.From)
				results = append(results, res)
				continue
			}
			n, err := s.dispatcher.SendDatagram(ctx, ep, peer, payload)
			res.Bytes = n
			if err != nil {
				res.Error = err.Error()
				log.Warnf("Probe from %s to %s failed: %v", res.From, res.Peer, err)
			}
			results = append(results, res)
		}
	}
	return results
}

// Undo removes routing tables for names, or for every interface present on
// the host when names is empty.
func (s *MultihomeService) Undo(names []string) ([]networking.CommandResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, errors.NewConfigError("policy routing is disabled", nil)
	}

	if len(names) == 0 {
		entries, err := s.catalog.ListInterfaces()
		if err != nil {
			return nil, err
		}
		seen := make(map[string]bool)
		for _, entry := range entries {
			if !seen[entry.Name] {
				seen[entry.Name] = true
				names = append(names, entry.Name)
			}
		}
	}

	return s.session.Undo(names), nil
}

// Shutdown closes every endpoint and tears the routing tables down. Only the
// first call has an effect; it returns the number of tables removed.
func (s *MultihomeService) Shutdown() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown {
		return 0
	}
	s.shutdown = true

	for _, ep := range s.endpoints {
		if err := ep.Close(); err != nil {
			log.Warnf("Failed to close endpoint %s: %v", ep, err)
		}
	}
	s.endpoints = nil

	if s.session == nil {
		return 0
	}
	return s.session.TeardownAll()
}

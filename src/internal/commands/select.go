package commands

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/multihome/mhroute/src/internal/config"
	"github.com/multihome/mhroute/src/internal/networking"
	"github.com/multihome/mhroute/src/internal/service"
)

func CreateSelectCommand() *SelectCommand {
	sc := &SelectCommand{
		fs:  flag.NewFlagSet("select", flag.ContinueOnError),
		out: os.Stdout,
	}
	sc.fs.StringVar(&sc.dst, "dst", "", "Destination IP address")
	return sc
}

// SelectCommand prints the interface traffic to a destination would leave
// through.
type SelectCommand struct {
	fs  *flag.FlagSet
	ctx *AppContext
	cfg *config.Config
	out io.Writer

	dst  string
	dest net.IP
}

func (s *SelectCommand) Name() string {
	return s.fs.Name()
}

func (s *SelectCommand) Init(args []string, ctx *AppContext) error {
	s.ctx = ctx

	if err := s.fs.Parse(args); err != nil {
		return err
	}

	if s.dst == "" {
		return fmt.Errorf("-dst is required")
	}
	if s.dest = net.ParseIP(s.dst); s.dest == nil {
		return fmt.Errorf("-dst is not an IP address: %s", s.dst)
	}

	cfg, err := loadAndValidateConfigOrFail(ctx.ConfigPath)
	if err != nil {
		return err
	}
	s.cfg = cfg

	return nil
}

func (s *SelectCommand) Run() error {
	svc := service.NewMultihomeService(s.cfg, s.ctx.catalog(), nil, nil)

	result, err := svc.Select(s.dest)
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "destination: %s\n", s.dest)
	fmt.Fprintf(s.out, "interface:   %s\n", result.Interface)
	fmt.Fprintf(s.out, "address:     %s\n", result.Address)
	if result.Netmask != nil {
		fmt.Fprintf(s.out, "netmask:     %s\n", net.IP(result.Netmask))
	}
	if result.ScopeID != 0 {
		fmt.Fprintf(s.out, "scope id:    %d\n", result.ScopeID)
	}
	fmt.Fprintf(s.out, "matched by:  %s\n", result.Matched)

	if result.Matched != networking.MatchScope && s.cfg.Routing.Enabled {
		numberer := networking.NewTableNumberer(s.cfg.Routing.TableBases)
		if table, ok := numberer.TableNumber(result.Interface); ok {
			fmt.Fprintf(s.out, "table:       %d\n", table)
		} else {
			fmt.Fprintf(s.out, "table:       none\n")
		}
	}
	return nil
}

package commands

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/multihome/mhroute/src/internal/config"
	"github.com/multihome/mhroute/src/internal/networking"
	"github.com/multihome/mhroute/src/internal/service"
)

func CreateInterfacesCommand() *InterfacesCommand {
	gc := &InterfacesCommand{
		fs:  flag.NewFlagSet("interfaces", flag.ContinueOnError),
		out: os.Stdout,
	}
	gc.fs.BoolVar(&gc.loopback, "loopback", true, "Include loopback interfaces")
	return gc
}

type InterfacesCommand struct {
	fs       *flag.FlagSet
	ctx      *AppContext
	cfg      *config.Config
	out      io.Writer
	loopback bool
}

func (g *InterfacesCommand) Name() string {
	return g.fs.Name()
}

func (g *InterfacesCommand) Init(args []string, ctx *AppContext) error {
	g.ctx = ctx

	if err := g.fs.Parse(args); err != nil {
		return err
	}

	if cfg, err := loadAndValidateConfigOrFail(ctx.ConfigPath); err != nil {
		return err
	} else {
		g.cfg = cfg
	}

	return nil
}

func (g *InterfacesCommand) Run() error {
	numberer := networking.NewTableNumberer(g.cfg.Routing.TableBases)
	ifaceService := service.NewInterfaceService(g.ctx.catalog(), numberer)

	interfaces, err := ifaceService.GetInterfaces(g.loopback)
	if err != nil {
		return fmt.Errorf("failed to get interfaces: %w", err)
	}

	fmt.Fprint(g.out, ifaceService.FormatInterfacesForCLI(interfaces))
	return nil
}

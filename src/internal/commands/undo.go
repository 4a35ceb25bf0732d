package commands

import (
	"flag"
	"fmt"
	"strings"

	"github.com/multihome/mhroute/src/internal/config"
	"github.com/multihome/mhroute/src/internal/log"
	"github.com/multihome/mhroute/src/internal/service"
)

func CreateUndoCommand() *UndoCommand {
	gc := &UndoCommand{
		fs: flag.NewFlagSet("undo-routing", flag.ContinueOnError),
	}
	gc.fs.StringVar(&gc.only, "interfaces", "", "Comma-separated interface names (default: every interface present)")
	return gc
}

// UndoCommand removes policy routing left behind by a crashed service.
type UndoCommand struct {
	fs   *flag.FlagSet
	ctx  *AppContext
	cfg  *config.Config
	only string
}

func (g *UndoCommand) Name() string {
	return g.fs.Name()
}

func (g *UndoCommand) Init(args []string, ctx *AppContext) error {
	g.ctx = ctx

	if err := g.fs.Parse(args); err != nil {
		return err
	}

	if cfg, err := loadAndValidateConfigOrFail(ctx.ConfigPath); err != nil {
		return err
	} else {
		g.cfg = cfg
	}

	if !g.cfg.Routing.Enabled {
		log.Warnf("Policy routing is disabled in the configuration, removing tables anyway")
		g.cfg.Routing.Enabled = true
	}

	return nil
}

func (g *UndoCommand) Run() error {
	log.Infof("Removing all iptables rules, ip rules and ip routes...")

	svc, err := service.NewDefaultMultihomeService(g.cfg, g.ctx.catalog())
	if err != nil {
		return err
	}

	results, err := svc.Undo(splitNames(g.only))
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if !res.OK {
			failed++
			log.Errorf("%s: %s", res.Op, res.Message)
		} else {
			log.Debugf("%s: %s", res.Op, res.Message)
		}
	}

	if failed > 0 {
		return fmt.Errorf("undo routing finished with %d failed steps", failed)
	}
	log.Infof("Undo routing completed successfully")
	return nil
}

func splitNames(list string) []string {
	var names []string
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

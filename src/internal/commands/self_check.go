package commands

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/multihome/mhroute/src/internal/config"
	"github.com/multihome/mhroute/src/internal/log"
	"github.com/multihome/mhroute/src/internal/networking"
)

func CreateSelfCheckCommand() *SelfCheckCommand {
	gc := &SelfCheckCommand{
		fs:  flag.NewFlagSet("self-check", flag.ContinueOnError),
		out: os.Stdout,
	}
	return gc
}

// SelfCheckCommand prints the effective configuration and checks it against
// the interfaces present on the host.
type SelfCheckCommand struct {
	fs  *flag.FlagSet
	ctx *AppContext
	cfg *config.Config
	out io.Writer
}

func (g *SelfCheckCommand) Name() string {
	return g.fs.Name()
}

func (g *SelfCheckCommand) Init(args []string, ctx *AppContext) error {
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

func (g *SelfCheckCommand) Run() error {
	log.Infof("Running self-check...")
	log.Infof("---------------- Configuration START -----------------")

	buf, err := g.cfg.SerializeConfig()
	if err != nil {
		log.Errorf("Failed to serialize config: %v", err)
		return err
	}
	if _, err := g.out.Write(buf.Bytes()); err != nil {
		return err
	}

	log.Infof("----------------- Configuration END ------------------")

	entries, err := g.ctx.catalog().ListInterfaces()
	if err != nil {
		log.Errorf("Failed to list interfaces: %v", err)
		return err
	}

	numberer := networking.NewTableNumberer(g.cfg.Routing.TableBases)
	seen := make(map[string]bool)
	for _, entry := range entries {
		if entry.Loopback || seen[entry.Name] {
			continue
		}
		seen[entry.Name] = true

		if table, ok := numberer.TableNumber(entry.Name); ok {
			fmt.Fprintf(g.out, "%-12s table %d\n", entry.Name, table)
		} else {
			fmt.Fprintf(g.out, "%-12s no table\n", entry.Name)
		}
	}

	if n := logConfigWarnings(g.cfg, g.ctx.catalog()); n > 0 {
		log.Errorf("Self-check completed with %d warnings", n)
		return fmt.Errorf("self-check failed")
	}

	log.Infof("Self-check completed successfully")
	return nil
}

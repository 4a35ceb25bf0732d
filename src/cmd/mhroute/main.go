package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/multihome/mhroute/src/internal/commands"
	"github.com/multihome/mhroute/src/internal/config"
	"github.com/multihome/mhroute/src/internal/log"
)

var (
	version = "dev"
	commit  = "n/a"
	date    = "n/a"
)

func main() {
	ctx := &commands.AppContext{}

	flag.StringVar(&ctx.ConfigPath, "config", config.DefaultConfigPath, "Path to configuration file")
	flag.BoolVar(&ctx.Verbose, "verbose", false, "Enable debug logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Multi-homed UDP endpoint manager\n")
		fmt.Fprintf(os.Stderr, "Version: %s (Commit: %s, Date: %s)\n\n", version, commit, date)
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <command>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  service                 Bind every interface, install policy routing and serve the status API\n")
		fmt.Fprintf(os.Stderr, "  interfaces              Print available interfaces with their table numbers\n")
		fmt.Fprintf(os.Stderr, "  select -dst <ip>        Print the interface chosen for a destination\n")
		fmt.Fprintf(os.Stderr, "  probe -peer <host:port> Send a test datagram from every interface to peers\n")
		fmt.Fprintf(os.Stderr, "  self-check              Print the effective configuration and check it against the host\n")
		fmt.Fprintf(os.Stderr, "  undo-routing            Remove policy routing left behind by a crashed service\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if ctx.Verbose {
		log.SetVerbose(true)
	}

	cmds := []commands.Runner{
		commands.CreateServiceCommand(),
		commands.CreateInterfacesCommand(),
		commands.CreateSelectCommand(),
		commands.CreateProbeCommand(),
		commands.CreateSelfCheckCommand(),
		commands.CreateUndoCommand(),
	}

	args := flag.Args()

	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	subcommand := args[0]
	for _, cmd := range cmds {
		if cmd.Name() == subcommand {
			if err := cmd.Init(args[1:], ctx); err != nil {
				log.Fatalf("Failed to initialize command: %v", err)
			}

			if err := cmd.Run(); err != nil {
				log.Fatalf("Failed to run command: %v", err)
			}

			os.Exit(0)
		}
	}

	log.Fatalf("Unknown subcommand: %s", subcommand)
}

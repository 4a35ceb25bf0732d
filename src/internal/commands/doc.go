// Package commands implements CLI command handlers for mhroute.
//
// Each command implements the Runner interface and delegates the work to
// the service layer:
//   - Init(): parse arguments and load the configuration
//   - Run(): execute the command
//   - Name(): return the command name used by main for dispatch
//
// # Available Commands
//
//   - interfaces: print the interface catalog with table numbers
//   - select: print the interface chosen for a destination
//   - probe: bind every interface and send a test datagram to peers
//   - undo-routing: remove policy routing left behind by a crashed service
//   - self-check: print the effective configuration and host warnings
//   - service: bind every interface and serve the status API until stopped
//
// # Example Usage
//
//	cmd := commands.CreateSelectCommand()
//	ctx := &commands.AppContext{ConfigPath: "/etc/mhroute/mhroute.conf"}
//	if err := cmd.Init([]string{"-dst", "192.0.2.10"}, ctx); err != nil {
//	    log.Fatalf("Init failed: %v", err)
//	}
//	if err := cmd.Run(); err != nil {
//	    log.Fatalf("Run failed: %v", err)
//	}
package commands

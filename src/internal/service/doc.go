// Package service provides the orchestration layer for mhroute.
//
// The service layer sits between commands (CLI and API) and the networking
// and endpoint packages, wiring the catalog, selector, routing session,
// binder and dispatcher together and keeping commands simple.
//
// # Key Services
//
// MultihomeService: owns the routing session and bound endpoints and
// serializes access to them for concurrent API handlers.
//
// InterfaceService: interface information retrieval and CLI formatting.
//
// ValidationService: configuration validation plus host-dependent warnings.
//
// # Example Usage
//
//	svc, err := service.NewDefaultMultihomeService(cfg, nil)
//	if err != nil {
//	    log.Fatalf("%v", err)
//	}
//	defer svc.Shutdown()
//
//	endpoints, err := svc.BindAll(ctx, true, true)
package service

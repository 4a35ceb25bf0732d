// Package api provides the read-only status API of the mhroute service.
//
// The API server runs inside the "service" command next to the bound
// endpoints and reports what the service holds:
//   - the interface catalog with table numbers
//   - interface selection for a destination address
//   - installed policy routing tables with their kernel objects
//   - bound UDP endpoints
//   - health of the configuration and the interface catalog
//
// # Response Format
//
// All successful responses wrap data in a "data" field:
//
//	{
//	  "data": { /* response payload */ }
//	}
//
// Error responses use the following format:
//
//	{
//	  "error": {
//	    "code": "not_found",
//	    "message": "Human-readable error message"
//	  }
//	}
//
// # Endpoints
//
//	GET /api/v1/interfaces?loopback=true
//	GET /api/v1/select?dst=192.0.2.10
//	GET /api/v1/tables
//	GET /api/v1/tables/check
//	GET /api/v1/endpoints
//	GET /health
//
// # Security
//
// The server listens on 127.0.0.1 by default. PrivateSubnetOnly rejects
// clients outside private and loopback ranges when it is bound wider.
package api

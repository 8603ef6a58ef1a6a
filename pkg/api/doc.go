// Package api exposes the schema evolution lifecycle over HTTP.
//
// # Endpoints
//
// Schema operations (v1 API):
//
//	POST /api/v1/compare   - diff two schema snapshots
//	POST /api/v1/validate  - validate a transition against the evolution strategy
//	POST /api/v1/plan      - generate a dialect-specific migration plan
//	POST /api/v1/execute   - apply a plan transactionally and record history
//
// History:
//
//	GET /api/v1/history/{sourceId}            - full history, newest first
//	GET /api/v1/history/{sourceId}/{version}  - one history entry
//
// Operational:
//
//	GET /health/live, /health/ready, /metrics
//
// All endpoints speak JSON. Handlers are thin: parsing and status mapping
// here, semantics in pkg/evolution.
package api

// Package api hosts the HTTP server, middleware, and REST handlers of the
// audit service. Notable routes:
//   - POST /audit and POST /v1/audits run one audit synchronously.
//   - GET /v1/audits/{id} returns a stored audit record.
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//
// Every response carries permissive CORS headers and OPTIONS is answered
// with 204 on any path.
package api

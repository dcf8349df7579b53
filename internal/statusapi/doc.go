// Package statusapi exposes the tram registry and pipeline metrics over HTTP.
//
// Routes:
// - GET /healthz
// - GET /trams
// - GET /trams/:id
// - GET /metrics
package statusapi

// Package server exposes the registry and the contacts table over HTTP.
//
// Routes:
//
//	GET    /healthz
//	GET    /metrics
//	GET    /api/registry                          manifest
//	GET    /api/registry/events                   websocket reload events
//	GET    /api/registry/{component}              item
//	GET    /api/registry/{component}/tree         file tree of the item
//	GET    /api/registry/{component}/files/*      file content
//	GET    /api/tablestate                        canonical table state of the query
//	GET    /api/contacts                          page of contacts for the query
//	POST   /api/contacts                          create
//	DELETE /api/contacts                          delete {"ids": [...]}
//	GET    /api/contacts/{id}
//	PATCH  /api/contacts/{id}                     update
//	GET    /api/companies
//
// The contacts routes are mounted only when a ContactStore is given.
// Errors are JSON objects {"error": "...", "code": "E012"} with the status
// of the error code.
package server

// Package api hosts the HTTP handlers that front the fieldlog API.
//
// The whole surface hangs off a single endpoint: POST bodies carry an
// "action" discriminator that selects one of the entity handlers, GET
// requests read a sheet back, and OPTIONS answers CORS preflight. Responses
// are always HTTP 200 with a JSON envelope; handler failures travel in the
// body as {"error": ...} rather than as transport status codes, which is the
// contract the clients of this request family rely on.
//
// Persistence is delegated to a tabular.Store and a blob.Store injected at
// construction time; the package holds no globals. Because sheet rows are
// addressed positionally and meeting IDs are derived by scanning the existing
// ID column, every read-modify-write sequence is serialised by a per-sheet
// lock owned by the Handler.
package api

// Package server assembles the HTTP surface: the action endpoint at the
// root path, health and metrics endpoints, and the middleware chain for
// logging, request IDs, metrics, security headers, open CORS, and rate
// limiting.
package server

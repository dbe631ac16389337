// Package handler adapts the engine's operations to JSON over HTTP: the
// flow entry points for protected contracts, the claim surface, the admin
// surface, and the read-only queries.
package handler

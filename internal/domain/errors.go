package domain

import "errors"

// Sentinel errors for domain-level error discrimination. Services wrap these
// so handlers can map failures to HTTP status codes without leaking store or
// hashing internals to the client.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

package config

import "errors"

// ErrNotFound is returned when a store lookup (admin, session, template,
// setting) matches no row. Handlers map it to a 404 envelope; the directory
// client has its own equivalent for upstream lookups.
var ErrNotFound = errors.New("not found")

package server

import "time"

// Requests are small JSON reads, so the read side is tight; responses can
// carry a full match timeline and get more headroom. Polling clients hold
// connections between refreshes, hence the long idle window.
const (
	readTimeout  = 5 * time.Second
	writeTimeout = 15 * time.Second
	idleTimeout  = 90 * time.Second
)

// shutdownTimeout is a var so tests can shorten the drain window.
var shutdownTimeout = 10 * time.Second

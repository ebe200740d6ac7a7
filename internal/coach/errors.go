package coach

import "errors"

// ErrNoProvider is returned by NoopAdapter, the adapter used when no
// provider is configured.
var ErrNoProvider = errors.New("coach: no adapter provider configured")

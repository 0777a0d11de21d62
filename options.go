package mpqset

import "log/slog"

// DefaultMaxListSize is the default cap on a single listing member (64MB).
const DefaultMaxListSize = 64 << 20

// Option configures a Set.
type Option func(*Set)

// WithLogger sets a logger for debug output. By default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Set) {
		s.logger = logger
	}
}

// WithMaxListSize limits the size of a single listing member read while
// building the name index. Set limit to 0 to disable the limit.
func WithMaxListSize(limit uint64) Option {
	return func(s *Set) {
		s.maxListSize = limit
	}
}

package engine

import "go.uber.org/zap"

// Config configures an Environment's tunable internals: beta-memory
// sizing, certainty-factor support, and logging (spec §6.3).
//
// Unlike the teacher's dfa/lazy.Config (a value-receiver builder), Config
// here is built from Option closures — the spec's ambient-stack section
// asks for "functional-options engine.Config/engine.Option" by name, so
// this keeps the teacher's WithXxx naming convention but backs it with
// true closures over *Config instead of value-receiver methods (see
// DESIGN.md).
type Config struct {
	// BetaInitialHashSize is the starting bucket count for every join's
	// left and right memory (spec §4.2 INITIAL_BETA_HASH_SIZE).
	//
	// Default: 17
	BetaInitialHashSize int

	// BetaLoadFactor is the entries-per-bucket average that triggers a
	// beta memory grow.
	//
	// Default: 2
	BetaLoadFactor int

	// CertaintyFactors enables certainty-factor tracking on logical
	// dependencies (spec §4.6 "[cf]" support).
	//
	// Default: false
	CertaintyFactors bool

	// Logger receives structured log entries for internal-consistency
	// violations the retract pathway finds (spec §7). Join-test evaluation
	// errors are coerced without a log entry. A nil Logger is replaced by
	// zap.NewNop() at New time.
	Logger *zap.Logger
}

// Option configures a Config at Environment construction time.
type Option func(*Config)

// WithBetaInitialHashSize overrides the starting bucket count for every
// join's left and right memory.
func WithBetaInitialHashSize(n int) Option {
	return func(c *Config) { c.BetaInitialHashSize = n }
}

// WithBetaLoadFactor overrides the entries-per-bucket average that
// triggers a beta memory grow.
func WithBetaLoadFactor(n int) Option {
	return func(c *Config) { c.BetaLoadFactor = n }
}

// WithCertaintyFactors enables or disables certainty-factor tracking.
func WithCertaintyFactors(enabled bool) Option {
	return func(c *Config) { c.CertaintyFactors = enabled }
}

// WithLogger sets the structured logger an Environment reports internal-
// consistency violations through. Join-test evaluation errors are not
// logged.
func WithLogger(log *zap.Logger) Option {
	return func(c *Config) { c.Logger = log }
}

// DefaultConfig returns a Config with the same beta-memory defaults the
// beta package itself falls back to when left unconfigured, with
// certainty factors off.
func DefaultConfig() Config {
	return Config{
		BetaInitialHashSize: 17,
		BetaLoadFactor:      2,
		CertaintyFactors:    false,
	}
}

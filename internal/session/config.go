package session

import "time"

const (
	// DefaultPollingInterval is how often the polling engine wakes up.
	DefaultPollingInterval = 100 * time.Millisecond

	// DefaultMaxDataSize caps clipboard payloads at 10 MiB.
	DefaultMaxDataSize = 10 << 20
)

// Config controls a session. It is copied at construction and immutable
// afterwards.
type Config struct {
	// PollingInterval is the wait between change-detection polls.
	// Non-positive values fall back to DefaultPollingInterval.
	PollingInterval time.Duration

	// ChangeDetection enables the polling engine. When false,
	// StartMonitoring returns an already-completed run.
	ChangeDetection bool

	// MaxDataSize is the largest payload, in bytes, accepted on set and
	// returned on get. Zero means unlimited.
	MaxDataSize int

	// TrimWhitespace trims leading and trailing whitespace from text on
	// both set and get.
	TrimWhitespace bool
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		PollingInterval: DefaultPollingInterval,
		ChangeDetection: true,
		MaxDataSize:     DefaultMaxDataSize,
	}
}

func (c Config) normalized() Config {
	if c.PollingInterval <= 0 {
		c.PollingInterval = DefaultPollingInterval
	}
	return c
}

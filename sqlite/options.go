package sqlite

import "github.com/offlinekit/outbox"

const defaultTable = "outbox_mutations"

// Config defines SQLite store behavior.
type Config struct {
	Table string
	Clock outbox.Clock
}

func (c Config) withDefaults() Config {
	if c.Table == "" {
		c.Table = defaultTable
	}
	if c.Clock == nil {
		c.Clock = outbox.SystemClock{}
	}

	return c
}

// Option configures the SQLite store.
type Option func(*Config)

// WithTable sets the mutation queue table name.
func WithTable(name string) Option {
	return func(c *Config) {
		c.Table = name
	}
}

// WithClock sets the time source used for save timestamps.
func WithClock(clock outbox.Clock) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}

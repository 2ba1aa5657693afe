package outbox

import "time"

const (
	defaultPollInterval = 250 * time.Millisecond
	defaultOwnerName    = "outbox"
	defaultPendingCheck = 0
)

// EngineConfig defines engine collaborators beyond storage and schema.
type EngineConfig struct {
	Logger  Logger
	Metrics Metrics
	Owner   *OwnerToken
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.Logger == nil {
		c.Logger = NopLogger{}
	}
	if c.Metrics == nil {
		c.Metrics = NopMetrics{}
	}
	if c.Owner == nil {
		c.Owner = NewOwnerToken(defaultOwnerName)
	}

	return c
}

// EngineOption configures an Engine.
type EngineOption func(*EngineConfig)

// WithLogger sets the engine logger.
func WithLogger(logger Logger) EngineOption {
	return func(c *EngineConfig) {
		c.Logger = logger
	}
}

// WithMetrics sets the engine metrics recorder.
func WithMetrics(metrics Metrics) EngineOption {
	return func(c *EngineConfig) {
		c.Metrics = metrics
	}
}

// WithOwnerToken sets the token tagging the engine's own storage writes.
func WithOwnerToken(owner *OwnerToken) EngineOption {
	return func(c *EngineConfig) {
		c.Owner = owner
	}
}

// DrainConfig defines how the Drainer paces sends.
type DrainConfig struct {
	PollInterval    time.Duration
	SendTimeout     time.Duration
	PendingInterval time.Duration
	Clock           Clock
	ErrorHandler    FailureHandler
}

func (c DrainConfig) withDefaults() DrainConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	if c.PendingInterval <= 0 {
		c.PendingInterval = defaultPendingCheck
	}

	return c
}

// DrainOption configures Drainer behavior.
type DrainOption func(*DrainConfig)

// WithPollInterval sets the delay after an empty poll or a failed send.
func WithPollInterval(interval time.Duration) DrainOption {
	return func(c *DrainConfig) {
		c.PollInterval = interval
	}
}

// WithSendTimeout sets a per-send timeout.
func WithSendTimeout(timeout time.Duration) DrainOption {
	return func(c *DrainConfig) {
		c.SendTimeout = timeout
	}
}

// WithPendingInterval sets the minimum interval between pending count samples.
// Use a positive value to enable sampling; the default is disabled.
func WithPendingInterval(interval time.Duration) DrainOption {
	return func(c *DrainConfig) {
		c.PendingInterval = interval
	}
}

// WithClock sets the drainer clock.
func WithClock(clock Clock) DrainOption {
	return func(c *DrainConfig) {
		c.Clock = clock
	}
}

// WithFailureHandler registers a callback for failed sends.
func WithFailureHandler(handler FailureHandler) DrainOption {
	return func(c *DrainConfig) {
		c.ErrorHandler = handler
	}
}

package pool

import "time"

// Settings are the connection pool's tunables, per spec.md §6. These
// are policy decisions local to this client, not part of the Bolt/1
// wire protocol.
type Settings struct {
	// MaxSessions bounds the number of live connections per address.
	MaxSessions uint32
	// IdleTimeBeforeConnectionTest is the idle time Release compares a
	// returned connection against. Connections on both sides of it are
	// validated with a RESET, so it does not change the outcome.
	IdleTimeBeforeConnectionTest time.Duration
	// AcquireTimeout bounds how long Acquire blocks waiting for
	// capacity before failing with ErrPoolFull.
	AcquireTimeout time.Duration
	// ConnectionTimeout bounds dialing and the handshake when creating
	// a brand new connection.
	ConnectionTimeout time.Duration
}

// DefaultSettings returns the pool's default policy.
func DefaultSettings() Settings {
	return Settings{
		MaxSessions:                  10,
		IdleTimeBeforeConnectionTest: 5 * time.Minute,
		AcquireTimeout:               60 * time.Second,
		ConnectionTimeout:            5 * time.Second,
	}
}

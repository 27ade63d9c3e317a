package health

import "context"

// HealthPinger is implemented by backends that can be probed cheaply
// (Redis PING, SQLite ping). HealthPing must return nil when healthy.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}

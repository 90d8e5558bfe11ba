package health

import "context"

// DBPinger checks slice repository availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks an external provider (embedding or reasoning).
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}

package health

import "context"

// CatalogPinger is satisfied by every catalog backend.
type CatalogPinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker is satisfied by the embedding stack.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}

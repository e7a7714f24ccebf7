package ports

import "context"

// HealthChecker verifies connectivity to an external dependency.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string
}

package ports

import "context"

// HealthChecker reports the serving status of one downstream service.
type HealthChecker interface {
	Check(ctx context.Context, service string) (string, error)
}

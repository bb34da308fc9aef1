// Package health provides standard health status reporting for walletsync
// services.
package health

import "time"

// State is the coarse health classification of a service.
type State string

// Possible health states.
const (
	StateHealthy   State = "healthy"
	StateDegraded  State = "degraded"
	StateUnhealthy State = "unhealthy"
)

// Status is a point-in-time health report.
type Status struct {
	Service   string    `json:"service"`
	State     State     `json:"state"`
	Message   string    `json:"message,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// NewHealthy creates a healthy status.
func NewHealthy(service, message string) Status {
	return Status{Service: service, State: StateHealthy, Message: message, CheckedAt: time.Now()}
}

// NewDegraded creates a degraded status.
func NewDegraded(service, message string) Status {
	return Status{Service: service, State: StateDegraded, Message: message, CheckedAt: time.Now()}
}

// NewUnhealthy creates an unhealthy status.
func NewUnhealthy(service, message string) Status {
	return Status{Service: service, State: StateUnhealthy, Message: message, CheckedAt: time.Now()}
}

// IsHealthy reports whether the status is fully healthy.
func (s Status) IsHealthy() bool {
	return s.State == StateHealthy
}

// Package registry holds the gateway's sole persisted entity, the backend
// server record, and the store that mediates all reads and writes to it.
package registry

import "time"

// HealthStatus is the lifecycle state of a registered backend.
type HealthStatus string

const (
	StatusUnknown   HealthStatus = "unknown"
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// Capabilities is purely informational metadata about a backend's abilities.
type Capabilities struct {
	MaxTokens     *int `json:"max_tokens,omitempty"`
	ContextLength *int `json:"context_length,omitempty"`
	Streaming     bool `json:"streaming"`
}

// Owner is opaque metadata about who registered a backend.
type Owner struct {
	StudentID   string `json:"student_id,omitempty"`
	Description string `json:"description,omitempty"`
	Email       string `json:"email,omitempty"`
}

// ServerRecord is the gateway's sole persisted entity: one row per
// registered inference backend.
type ServerRecord struct {
	RegistrationID      string       `json:"registration_id"`
	ModelName           string       `json:"model_name"`
	EndpointURL         string       `json:"endpoint_url"`
	BackendAPIKey       string       `json:"-"`
	Capabilities        Capabilities `json:"capabilities"`
	Owner               Owner        `json:"owner"`
	RegisteredAt        time.Time    `json:"registered_at"`
	LastCheckedAt       *time.Time   `json:"last_checked_at"`
	LastLatencyMs       *int         `json:"last_latency_ms"`
	HealthStatus        HealthStatus `json:"health_status"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	IsActive            bool         `json:"is_active"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// Clone returns a deep-enough copy of the record safe for a caller to
// mutate without affecting the store's internal state.
func (r *ServerRecord) Clone() *ServerRecord {
	cp := *r
	if r.LastCheckedAt != nil {
		t := *r.LastCheckedAt
		cp.LastCheckedAt = &t
	}
	if r.LastLatencyMs != nil {
		v := *r.LastLatencyMs
		cp.LastLatencyMs = &v
	}
	if r.Capabilities.MaxTokens != nil {
		v := *r.Capabilities.MaxTokens
		cp.Capabilities.MaxTokens = &v
	}
	if r.Capabilities.ContextLength != nil {
		v := *r.Capabilities.ContextLength
		cp.Capabilities.ContextLength = &v
	}
	return &cp
}

// Patch describes a partial update to a ServerRecord. Nil fields are left
// unmodified; registered_at can never be patched.
type Patch struct {
	EndpointURL         *string
	BackendAPIKey       *string
	ModelName           *string
	Capabilities        *Capabilities
	Owner               *Owner
	HealthStatus        *HealthStatus
	ConsecutiveFailures *int
	LastCheckedAt       *time.Time
	LastLatencyMs       *int
	IsActive            *bool
}

// Filter narrows a list() call. Zero values mean "no constraint".
type Filter struct {
	ModelName       string
	HealthStatus    HealthStatus
	IncludeInactive bool
}

// Stats aggregates counts over active records for the admin surface.
type Stats struct {
	TotalServers int            `json:"total_servers"`
	Healthy      int            `json:"healthy"`
	Unhealthy    int            `json:"unhealthy"`
	Unknown      int            `json:"unknown"`
	Models       map[string]int `json:"models"`
}

package models

// Health is the liveness response. Providers lists the circuit state of
// each upstream client.
type Health struct {
	Status    HealthStatus           `json:"status"`
	Time      Timestamp              `json:"time"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Providers []ProviderStatus       `json:"providers"`
}

// ProviderStatus represents the status of an external provider.
type ProviderStatus struct {
	Provider            string       `json:"provider"`
	Status              HealthStatus `json:"status"`
	CircuitState        string       `json:"circuitState"`
	ConsecutiveFailures uint32       `json:"consecutiveFailures"`
	LastSuccessAt       *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *Timestamp   `json:"lastFailureAt,omitempty"`
	StateChangedAt      *Timestamp   `json:"stateChangedAt,omitempty"`
	Trips               int          `json:"trips"`
	Message             *string      `json:"message,omitempty"`
}

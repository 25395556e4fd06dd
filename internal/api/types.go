package api

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status" example:"healthy"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Status     string `json:"status" example:"ready"`
	SnapshotID string `json:"snapshotId,omitempty"`
	Degraded   bool   `json:"degraded"`
}

// Package responses defines the JSON bodies of the PageBuilder API endpoints.
package responses

import "time"

// HealthResponse represents the health check API response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Uptime    float64   `json:"uptime"`
}

// ReadyResponse reports whether the static home snapshot has been attempted.
type ReadyResponse struct {
	Status    string    `json:"status"`
	Ready     bool      `json:"ready"`
	Timestamp time.Time `json:"timestamp"`
}

// RevalidateResponse reports an applied revalidation.
type RevalidateResponse struct {
	Revalidated bool      `json:"revalidated"`
	RunID       string    `json:"run_id"`
	All         bool      `json:"all,omitempty"`
	Slug        string    `json:"slug,omitempty"`
	Removed     int       `json:"removed"`
	Broadcasted bool      `json:"broadcasted"`
	Now         time.Time `json:"now"`
}

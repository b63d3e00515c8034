package models

import "time"

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

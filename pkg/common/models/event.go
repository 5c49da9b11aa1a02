package models

import "time"

// Event is the envelope published to kafka for device and observation changes.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // device.registered, device.status_changed, observations.recorded
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

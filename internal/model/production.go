package model

import "time"

// LogSource identifies where a production weight came from.
type LogSource string

const (
	LogSourceScale  LogSource = "scale"
	LogSourceManual LogSource = "manual"
)

// ProductionLog is one weight measurement recorded on the processing floor,
// persisted for the monthly regulatory report.
type ProductionLog struct {
	ID       string    `json:"id"`
	LoggedAt time.Time `json:"logged_at"`
	Product  string    `json:"product"`
	WeightKg float64   `json:"weight_kg"`
	Source   LogSource `json:"source"`
	Note     string    `json:"note,omitempty"`
}

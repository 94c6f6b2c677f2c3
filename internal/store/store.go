// Package store persists production weight logs for the monthly report.
package store

import (
	"context"

	"github.com/dawon-meat/trace-cli/internal/model"
)

// LogFilter specifies criteria for listing production logs.
type LogFilter struct {
	// Month restricts results to one calendar month, formatted YYYY-MM.
	Month  string          `json:"month,omitempty"`
	Source model.LogSource `json:"source,omitempty"`
	Limit  int             `json:"limit,omitempty"`
}

// Store defines the persistence interface for production logs.
type Store interface {
	CreateLog(ctx context.Context, log model.ProductionLog) (*model.ProductionLog, error)
	ListLogs(ctx context.Context, filter LogFilter) ([]model.ProductionLog, error)
	DeleteLog(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

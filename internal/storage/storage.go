// Package storage persists uploaded libraries and selection runs.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/paperselect/internal/models"
)

// ErrNotFound is returned when a library or run does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines library and run persistence operations.
type Storage interface {
	// Library operations
	CreateLibrary(ctx context.Context, lib *models.Library) error
	GetLibrary(ctx context.Context, id string) (*models.Library, error)
	ListLibraries(ctx context.Context, offset, limit int) ([]*models.Library, error)
	DeleteLibrary(ctx context.Context, id string) error

	// Run operations
	CreateRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	ListRuns(ctx context.Context, libraryID string) ([]*models.Run, error)

	// Stats
	CountLibraries(ctx context.Context) (int64, error)
	CountRuns(ctx context.Context) (int64, error)

	Close() error
}

// Package store persists named feature collections so pipeline outputs can
// be inspected and reused across runs. Two backends exist: an embedded
// SQLite file and PostgreSQL/PostGIS.
package store

import (
	"context"
	"time"

	"github.com/atlasgrid/geopipe/internal/feature"
)

// CollectionInfo summarizes a stored collection.
type CollectionInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CRS       string    `json:"crs"`
	Features  int       `json:"features"`
	CreatedAt time.Time `json:"created_at"`
}

// Store defines the persistence interface for feature collections.
type Store interface {
	// SaveCollection persists a collection under a unique name, replacing
	// any previous collection with that name.
	SaveCollection(ctx context.Context, name string, c *feature.Collection) error

	// LoadCollection retrieves a collection by name.
	LoadCollection(ctx context.Context, name string) (*feature.Collection, error)

	// ListCollections returns summaries of all stored collections.
	ListCollections(ctx context.Context) ([]CollectionInfo, error)

	// DeleteCollection removes a collection by name.
	DeleteCollection(ctx context.Context, name string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/atlasgrid/geopipe/internal/crs"
	"github.com/atlasgrid/geopipe/internal/db"
	"github.com/atlasgrid/geopipe/internal/feature"
)

// PostgresStore implements Store on PostgreSQL with PostGIS. Geometries are
// stored in a geometry column via EWKB, attributes as JSONB.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore on an existing pool.
func NewPostgres(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS collections (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	crs        TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS features (
	id            UUID PRIMARY KEY,
	collection_id UUID NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
	seq           INTEGER NOT NULL,
	geom          geometry NOT NULL,
	attrs         JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_features_collection ON features(collection_id, seq);
CREATE INDEX IF NOT EXISTS idx_features_geom ON features USING gist (geom);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// SaveCollection persists a collection, replacing any previous one with the
// same name. Features are bulk-loaded with COPY carrying EWKB geometry.
func (s *PostgresStore) SaveCollection(ctx context.Context, name string, c *feature.Collection) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM collections WHERE name = $1`, name); err != nil {
		return eris.Wrap(err, "postgres: delete previous collection")
	}

	id := uuid.NewString()
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO collections (id, name, crs) VALUES ($1, $2, $3)`,
		id, name, string(c.CRS)); err != nil {
		return eris.Wrap(err, "postgres: insert collection")
	}

	rows := make([][]any, 0, c.Len())
	for i, f := range c.Features {
		geomBytes, err := ewkb.Marshal(f.Geometry, ewkb.NDR)
		if err != nil {
			return eris.Wrapf(err, "postgres: encode geometry %d", i)
		}
		attrBytes, err := json.Marshal(f.Attrs)
		if err != nil {
			return eris.Wrapf(err, "postgres: encode attributes %d", i)
		}
		rows = append(rows, []any{uuid.NewString(), id, i, geomBytes, attrBytes})
	}

	_, err := db.CopyFrom(ctx, s.pool, "features",
		[]string{"id", "collection_id", "seq", "geom", "attrs"}, rows)
	return err
}

// LoadCollection retrieves a collection by name.
func (s *PostgresStore) LoadCollection(ctx context.Context, name string) (*feature.Collection, error) {
	var id, crsStr string
	err := s.pool.QueryRow(ctx,
		`SELECT id, crs FROM collections WHERE name = $1`, name).Scan(&id, &crsStr)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("postgres: collection %q not found", name)
		}
		return nil, eris.Wrap(err, "postgres: query collection")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT ST_AsEWKB(geom), attrs FROM features WHERE collection_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query features")
	}
	defer rows.Close()

	out := feature.NewCollection(crs.ID(crsStr))
	for rows.Next() {
		var geomBytes, attrBytes []byte
		if err := rows.Scan(&geomBytes, &attrBytes); err != nil {
			return nil, eris.Wrap(err, "postgres: scan feature")
		}
		g, err := ewkb.Unmarshal(geomBytes)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: decode geometry")
		}
		var attrs map[string]any
		if err := json.Unmarshal(attrBytes, &attrs); err != nil {
			return nil, eris.Wrap(err, "postgres: decode attributes")
		}
		out.Features = append(out.Features, feature.Feature{Geometry: g, Attrs: attrs})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate features")
	}
	return out, nil
}

// ListCollections returns summaries of all stored collections.
func (s *PostgresStore) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.name, c.crs, COUNT(f.id), c.created_at
		FROM collections c
		LEFT JOIN features f ON f.collection_id = c.id
		GROUP BY c.id, c.name, c.crs, c.created_at
		ORDER BY c.created_at`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list collections")
	}
	defer rows.Close()

	var infos []CollectionInfo
	for rows.Next() {
		var info CollectionInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.CRS, &info.Features, &info.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan collection info")
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate collections")
	}
	return infos, nil
}

// DeleteCollection removes a collection by name.
func (s *PostgresStore) DeleteCollection(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM collections WHERE name = $1`, name)
	if err != nil {
		return eris.Wrap(err, "postgres: delete collection")
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: collection %q not found", name)
	}
	return nil
}

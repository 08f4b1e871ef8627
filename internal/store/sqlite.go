package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/wkb"
	_ "modernc.org/sqlite"

	"github.com/atlasgrid/geopipe/internal/crs"
	"github.com/atlasgrid/geopipe/internal/feature"
)

// SQLiteStore implements Store using modernc.org/sqlite. Geometries are
// stored as WKB blobs, attributes as JSON.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS collections (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	crs        TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS features (
	id            TEXT PRIMARY KEY,
	collection_id TEXT NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
	seq           INTEGER NOT NULL,
	geom          BLOB NOT NULL,
	attrs         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_features_collection ON features(collection_id, seq);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveCollection persists a collection, replacing any previous one with the
// same name.
func (s *SQLiteStore) SaveCollection(ctx context.Context, name string, c *feature.Collection) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name); err != nil {
		return eris.Wrap(err, "sqlite: delete previous collection")
	}

	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO collections (id, name, crs) VALUES (?, ?, ?)`,
		id, name, string(c.CRS)); err != nil {
		return eris.Wrap(err, "sqlite: insert collection")
	}

	for i, f := range c.Features {
		geomBytes, err := wkb.Marshal(f.Geometry, wkb.NDR)
		if err != nil {
			return eris.Wrapf(err, "sqlite: encode geometry %d", i)
		}
		attrBytes, err := json.Marshal(f.Attrs)
		if err != nil {
			return eris.Wrapf(err, "sqlite: encode attributes %d", i)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO features (id, collection_id, seq, geom, attrs) VALUES (?, ?, ?, ?, ?)`,
			uuid.NewString(), id, i, geomBytes, string(attrBytes)); err != nil {
			return eris.Wrapf(err, "sqlite: insert feature %d", i)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

// LoadCollection retrieves a collection by name.
func (s *SQLiteStore) LoadCollection(ctx context.Context, name string) (*feature.Collection, error) {
	var id, crsStr string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, crs FROM collections WHERE name = ?`, name).Scan(&id, &crsStr)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("sqlite: collection %q not found", name)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query collection")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT geom, attrs FROM features WHERE collection_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query features")
	}
	defer func() { _ = rows.Close() }()

	out := feature.NewCollection(crs.ID(crsStr))
	for rows.Next() {
		var geomBytes []byte
		var attrStr string
		if err := rows.Scan(&geomBytes, &attrStr); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan feature")
		}
		g, err := wkb.Unmarshal(geomBytes)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: decode geometry")
		}
		var attrs map[string]any
		if err := json.Unmarshal([]byte(attrStr), &attrs); err != nil {
			return nil, eris.Wrap(err, "sqlite: decode attributes")
		}
		out.Features = append(out.Features, feature.Feature{Geometry: g, Attrs: attrs})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate features")
	}
	return out, nil
}

// ListCollections returns summaries of all stored collections.
func (s *SQLiteStore) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.crs, COUNT(f.id), c.created_at
		FROM collections c
		LEFT JOIN features f ON f.collection_id = c.id
		GROUP BY c.id, c.name, c.crs, c.created_at
		ORDER BY c.created_at`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list collections")
	}
	defer func() { _ = rows.Close() }()

	var infos []CollectionInfo
	for rows.Next() {
		var info CollectionInfo
		var created string
		if err := rows.Scan(&info.ID, &info.Name, &info.CRS, &info.Features, &created); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan collection info")
		}
		// The driver hands DATETIME columns back as RFC3339 text.
		ts, err := time.Parse(time.RFC3339, created)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse created_at %q", created)
		}
		info.CreatedAt = ts.UTC()
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate collections")
	}
	return infos, nil
}

// DeleteCollection removes a collection by name.
func (s *SQLiteStore) DeleteCollection(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name)
	if err != nil {
		return eris.Wrap(err, "sqlite: delete collection")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("sqlite: collection %q not found", name)
	}
	return nil
}

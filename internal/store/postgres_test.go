package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"

	"github.com/atlasgrid/geopipe/internal/crs"
	"github.com/atlasgrid/geopipe/internal/feature"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestPostgresSaveCollection(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM collections").
		WithArgs("stations").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("INSERT INTO collections").
		WithArgs(pgxmock.AnyArg(), "stations", string(crs.TWD97)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"features"},
		[]string{"id", "collection_id", "seq", "geom", "attrs"}).
		WillReturnResult(2)

	s := NewPostgres(mock)
	err = s.SaveCollection(context.Background(), "stations", stationCollection())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveEmptySkipsCopy(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM collections").
		WithArgs("empty").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("INSERT INTO collections").
		WithArgs(pgxmock.AnyArg(), "empty", string(crs.WGS84)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s := NewPostgres(mock)
	err = s.SaveCollection(context.Background(), "empty", feature.NewCollection(crs.WGS84))
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLoadCollection(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	pt := geom.NewPointFlat(geom.XY, []float64{121.5, 25.0})
	geomBytes, err := ewkb.Marshal(pt, ewkb.NDR)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, crs FROM collections").
		WithArgs("stations").
		WillReturnRows(pgxmock.NewRows([]string{"id", "crs"}).
			AddRow("c1", string(crs.WGS84)))
	mock.ExpectQuery("SELECT ST_AsEWKB").
		WithArgs("c1").
		WillReturnRows(pgxmock.NewRows([]string{"geom", "attrs"}).
			AddRow(geomBytes, []byte(`{"name":"A1","temp":22.3}`)))

	s := NewPostgres(mock)
	c, err := s.LoadCollection(context.Background(), "stations")
	require.NoError(t, err)
	assert.Equal(t, crs.WGS84, c.CRS)
	require.Equal(t, 1, c.Len())

	got, ok := c.Features[0].Geometry.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, 121.5, got.X())
	assert.Equal(t, "A1", c.Features[0].Attrs["name"])
	assert.Equal(t, 22.3, c.Features[0].Attrs["temp"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLoadMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, crs FROM collections").
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	s := NewPostgres(mock)
	_, err = s.LoadCollection(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPostgresListCollections(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT c.id, c.name, c.crs").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "crs", "count", "created_at"}).
			AddRow("c1", "stations", string(crs.TWD97), 2, created))

	s := NewPostgres(mock)
	infos, err := s.ListCollections(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "stations", infos[0].Name)
	assert.Equal(t, 2, infos[0].Features)
	assert.Equal(t, created, infos[0].CreatedAt)
}

func TestPostgresDeleteCollection(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM collections").
		WithArgs("stations").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM collections").
		WithArgs("stations").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	s := NewPostgres(mock)
	require.NoError(t, s.DeleteCollection(context.Background(), "stations"))

	err = s.DeleteCollection(context.Background(), "stations")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

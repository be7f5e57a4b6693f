package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-intel/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS clients`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetClient_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, project_id, survey_id, name .* FROM clients WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetClient(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "get client 42")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListPendingClientIDs_WithSurvey(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	survey := int64(4)

	mock.ExpectQuery(`SELECT id FROM clients WHERE project_id = \$1 AND enriched = false AND validation_status = \$2 AND survey_id = \$3 ORDER BY id`).
		WithArgs(int64(1), "pending", int64(4)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)).AddRow(int64(8)))

	ids, err := s.ListPendingClientIDs(context.Background(), model.PopulationSelector{ProjectID: 1, SurveyID: &survey})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 8}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertMarket_Created(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`INSERT INTO markets .* ON CONFLICT \(project_id, hash\) DO NOTHING`).
		WithArgs(int64(1), pgxmock.AnyArg(), "Embalagens", "Indústria", "B2B", "", "h1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))

	m := &model.Market{ProjectID: 1, Name: "Embalagens", Category: "Indústria", Segmentation: "B2B", Hash: "h1"}
	id, created, err := s.UpsertMarket(context.Background(), m)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(11), id)
	assert.Equal(t, int64(11), m.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertMarket_Existing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`INSERT INTO markets`).
		WithArgs(int64(1), pgxmock.AnyArg(), "Embalagens", "", "", "", "h1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT id FROM markets WHERE project_id = \$1 AND hash = \$2`).
		WithArgs(int64(1), "h1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(5)))

	id, created, err := s.UpsertMarket(context.Background(), &model.Market{ProjectID: 1, Name: "Embalagens", Hash: "h1"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(5), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertMarket_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`INSERT INTO markets`).WillReturnError(errors.New("connection refused"))

	_, _, err := s.UpsertMarket(context.Background(), &model.Market{ProjectID: 1, Name: "x", Hash: "h"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert market")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertProduct_Conflict(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`INSERT INTO products .* ON CONFLICT \(market_id, hash\) DO NOTHING`).
		WithArgs(int64(1), int64(2), int64(3), "Caixa", "", "", "p1").
		WillReturnError(pgx.ErrNoRows)

	created, err := s.InsertProduct(context.Background(), &model.Product{
		ProjectID: 1, ClientID: 2, MarketID: 3, Name: "Caixa", Hash: "p1",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertCompetitor_WithLocation(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	lat, lng := -23.5, -46.6

	mock.ExpectQuery(`INSERT INTO competitors`).
		WithArgs(int64(1), int64(3), "Rival", "", "", "", "", "", "", "",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), 80, "good", "pending", "c1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(99)))

	c := &model.Competitor{ProjectID: 1, MarketID: 3, Name: "Rival", Latitude: &lat, Longitude: &lng,
		QualityScore: 80, QualityClass: "good", Hash: "c1"}
	created, err := s.InsertCompetitor(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(99), c.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MarkClientEnriched_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE clients SET enriched = true`).
		WithArgs(at, int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.MarkClientEnriched(context.Background(), 7, at)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LinkClientMarket(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO client_markets .* ON CONFLICT \(client_id, market_id\) DO NOTHING`).
		WithArgs(int64(1), int64(2)).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	require.NoError(t, s.LinkClientMarket(context.Background(), 1, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ImportClients_Copy(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectCopyFrom(pgx.Identifier{"clients"}, importColumns).WillReturnResult(2)

	n, err := s.ImportClients(context.Background(), []model.Client{
		{ProjectID: 1, Name: "A"},
		{ProjectID: 1, Name: "B"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

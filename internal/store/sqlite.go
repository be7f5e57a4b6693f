package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/market-intel/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
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
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS clients (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id          INTEGER NOT NULL,
	survey_id           INTEGER,
	name                TEXT NOT NULL,
	tax_id              TEXT NOT NULL DEFAULT '',
	site                TEXT NOT NULL DEFAULT '',
	product_description TEXT NOT NULL DEFAULT '',
	city                TEXT NOT NULL DEFAULT '',
	state               TEXT NOT NULL DEFAULT '',
	region              TEXT NOT NULL DEFAULT '',
	industry_code       TEXT NOT NULL DEFAULT '',
	size_class          TEXT NOT NULL DEFAULT '',
	segmentation        TEXT NOT NULL DEFAULT '',
	email               TEXT NOT NULL DEFAULT '',
	phone               TEXT NOT NULL DEFAULT '',
	latitude            REAL,
	longitude           REAL,
	geocoded_at         DATETIME,
	validation_status   TEXT NOT NULL DEFAULT 'pending',
	quality_score       INTEGER NOT NULL DEFAULT 0,
	quality_class       TEXT NOT NULL DEFAULT '',
	enriched            INTEGER NOT NULL DEFAULT 0,
	enriched_at         DATETIME,
	created_at          DATETIME NOT NULL,
	updated_at          DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS markets (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id     INTEGER NOT NULL,
	survey_id      INTEGER,
	name           TEXT NOT NULL,
	category       TEXT NOT NULL DEFAULT '',
	segmentation   TEXT NOT NULL DEFAULT '',
	estimated_size TEXT NOT NULL DEFAULT '',
	hash           TEXT NOT NULL,
	created_at     DATETIME NOT NULL,
	UNIQUE (project_id, hash)
);

CREATE TABLE IF NOT EXISTS client_markets (
	client_id  INTEGER NOT NULL REFERENCES clients(id),
	market_id  INTEGER NOT NULL REFERENCES markets(id),
	created_at DATETIME NOT NULL,
	PRIMARY KEY (client_id, market_id)
);

CREATE TABLE IF NOT EXISTS products (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id  INTEGER NOT NULL,
	client_id   INTEGER NOT NULL REFERENCES clients(id),
	market_id   INTEGER NOT NULL REFERENCES markets(id),
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL DEFAULT '',
	hash        TEXT NOT NULL,
	created_at  DATETIME NOT NULL,
	UNIQUE (market_id, hash)
);

CREATE TABLE IF NOT EXISTS competitors (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id        INTEGER NOT NULL,
	market_id         INTEGER NOT NULL REFERENCES markets(id),
	name              TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	tax_id            TEXT NOT NULL DEFAULT '',
	site              TEXT NOT NULL DEFAULT '',
	city              TEXT NOT NULL DEFAULT '',
	state             TEXT NOT NULL DEFAULT '',
	size_class        TEXT NOT NULL DEFAULT '',
	industry_code     TEXT NOT NULL DEFAULT '',
	latitude          REAL,
	longitude         REAL,
	quality_score     INTEGER NOT NULL DEFAULT 0,
	quality_class     TEXT NOT NULL DEFAULT '',
	validation_status TEXT NOT NULL DEFAULT 'pending',
	hash              TEXT NOT NULL,
	created_at        DATETIME NOT NULL,
	UNIQUE (market_id, hash)
);

CREATE TABLE IF NOT EXISTS leads (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id        INTEGER NOT NULL,
	market_id         INTEGER NOT NULL REFERENCES markets(id),
	name              TEXT NOT NULL,
	segment           TEXT NOT NULL DEFAULT '',
	potential         TEXT NOT NULL DEFAULT '',
	justification     TEXT NOT NULL DEFAULT '',
	tax_id            TEXT NOT NULL DEFAULT '',
	site              TEXT NOT NULL DEFAULT '',
	city              TEXT NOT NULL DEFAULT '',
	state             TEXT NOT NULL DEFAULT '',
	size_class        TEXT NOT NULL DEFAULT '',
	industry_code     TEXT NOT NULL DEFAULT '',
	latitude          REAL,
	longitude         REAL,
	quality_score     INTEGER NOT NULL DEFAULT 0,
	quality_class     TEXT NOT NULL DEFAULT '',
	validation_status TEXT NOT NULL DEFAULT 'pending',
	stage             TEXT NOT NULL DEFAULT 'new',
	hash              TEXT NOT NULL,
	created_at        DATETIME NOT NULL,
	UNIQUE (market_id, hash)
);

CREATE INDEX IF NOT EXISTS idx_clients_pending ON clients(project_id, enriched, validation_status);
CREATE INDEX IF NOT EXISTS idx_competitors_project ON competitors(project_id);
CREATE INDEX IF NOT EXISTS idx_leads_project ON leads(project_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const clientColumns = `id, project_id, survey_id, name, tax_id, site, product_description, city, state,
	region, industry_code, size_class, segmentation, email, phone, latitude, longitude, geocoded_at,
	validation_status, quality_score, quality_class, enriched, enriched_at, created_at, updated_at`

const insertClientSQLite = `INSERT INTO clients (project_id, survey_id, name, tax_id, site, product_description,
	city, state, region, industry_code, size_class, segmentation, email, phone, latitude, longitude,
	validation_status, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func clientInsertArgs(c *model.Client, now time.Time) []any {
	status := c.ValidationStatus
	if status == "" {
		status = model.ValidationPending
	}
	return []any{
		c.ProjectID, c.SurveyID, c.Name, c.TaxID, c.Site, c.ProductDescription,
		c.City, c.State, c.Region, c.IndustryCode, c.SizeClass, c.Segmentation, c.Email, c.Phone,
		c.Latitude, c.Longitude, string(status), now, now,
	}
}

func (s *SQLiteStore) CreateClient(ctx context.Context, c *model.Client) (int64, error) {
	res, err := s.db.ExecContext(ctx, insertClientSQLite, clientInsertArgs(c, time.Now().UTC())...)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: insert client")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: client id")
	}
	c.ID = id
	return id, nil
}

func (s *SQLiteStore) ImportClients(ctx context.Context, clients []model.Client) (int, error) {
	if len(clients) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin import")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, insertClientSQLite)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare import")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	for i := range clients {
		if _, err := stmt.ExecContext(ctx, clientInsertArgs(&clients[i], now)...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: import client %q", clients[i].Name)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit import")
	}
	return len(clients), nil
}

func (s *SQLiteStore) GetClient(ctx context.Context, id int64) (*model.Client, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	c, err := scanClientSQLite(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get client %d", id)
	}
	return c, nil
}

func (s *SQLiteStore) ListClients(ctx context.Context, projectID int64) ([]model.Client, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list clients")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Client
	for rows.Next() {
		c, err := scanClientSQLite(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan client")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate clients")
}

func (s *SQLiteStore) ListPendingClientIDs(ctx context.Context, sel model.PopulationSelector) ([]int64, error) {
	query := `SELECT id FROM clients WHERE project_id = ? AND enriched = 0 AND validation_status = ?`
	args := []any{sel.ProjectID, string(model.ValidationPending)}
	if sel.SurveyID != nil {
		query += ` AND survey_id = ?`
		args = append(args, *sel.SurveyID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list pending clients")
	}
	defer rows.Close() //nolint:errcheck

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan pending id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: iterate pending clients")
}

func (s *SQLiteStore) UpdateClient(ctx context.Context, c *model.Client) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE clients SET name = ?, tax_id = ?, site = ?, product_description = ?, city = ?, state = ?,
			region = ?, industry_code = ?, size_class = ?, segmentation = ?, email = ?, phone = ?,
			latitude = ?, longitude = ?, geocoded_at = ?, quality_score = ?, quality_class = ?, updated_at = ?
		 WHERE id = ?`,
		c.Name, c.TaxID, c.Site, c.ProductDescription, c.City, c.State,
		c.Region, c.IndustryCode, c.SizeClass, c.Segmentation, c.Email, c.Phone,
		c.Latitude, c.Longitude, c.GeocodedAt, c.QualityScore, c.QualityClass, time.Now().UTC(),
		c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update client %d", c.ID)
	}
	return checkRowsAffected(res, "client", c.ID)
}

func (s *SQLiteStore) MarkClientEnriched(ctx context.Context, id int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE clients SET enriched = 1, enriched_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark client %d enriched", id)
	}
	return checkRowsAffected(res, "client", id)
}

func (s *SQLiteStore) UpsertMarket(ctx context.Context, m *model.Market) (int64, bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO markets (project_id, survey_id, name, category, segmentation, estimated_size, hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (project_id, hash) DO NOTHING`,
		m.ProjectID, m.SurveyID, m.Name, m.Category, m.Segmentation, m.EstimatedSize, m.Hash, time.Now().UTC(),
	)
	if err != nil {
		return 0, false, eris.Wrap(err, "sqlite: insert market")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 1 {
		id, err := res.LastInsertId()
		if err != nil {
			return 0, false, eris.Wrap(err, "sqlite: market id")
		}
		m.ID = id
		return id, true, nil
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM markets WHERE project_id = ? AND hash = ?`, m.ProjectID, m.Hash,
	).Scan(&id)
	if err != nil {
		return 0, false, eris.Wrap(err, "sqlite: find market by hash")
	}
	m.ID = id
	return id, false, nil
}

func (s *SQLiteStore) LinkClientMarket(ctx context.Context, clientID, marketID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO client_markets (client_id, market_id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (client_id, market_id) DO NOTHING`,
		clientID, marketID, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: link client %d to market %d", clientID, marketID)
}

func (s *SQLiteStore) InsertProduct(ctx context.Context, p *model.Product) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO products (project_id, client_id, market_id, name, description, category, hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (market_id, hash) DO NOTHING`,
		p.ProjectID, p.ClientID, p.MarketID, p.Name, p.Description, p.Category, p.Hash, time.Now().UTC(),
	)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: insert product")
	}
	return insertedSQLite(res, &p.ID)
}

func (s *SQLiteStore) InsertCompetitor(ctx context.Context, c *model.Competitor) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO competitors (project_id, market_id, name, description, tax_id, site, city, state,
			size_class, industry_code, latitude, longitude, quality_score, quality_class, validation_status, hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (market_id, hash) DO NOTHING`,
		c.ProjectID, c.MarketID, c.Name, c.Description, c.TaxID, c.Site, c.City, c.State,
		c.SizeClass, c.IndustryCode, c.Latitude, c.Longitude, c.QualityScore, c.QualityClass,
		string(pendingIfEmpty(c.ValidationStatus)), c.Hash, time.Now().UTC(),
	)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: insert competitor")
	}
	return insertedSQLite(res, &c.ID)
}

func (s *SQLiteStore) ListCompetitors(ctx context.Context, projectID int64) ([]model.Competitor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, market_id, name, tax_id, city, state, quality_score, hash
		 FROM competitors WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list competitors")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Competitor
	for rows.Next() {
		var c model.Competitor
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.MarketID, &c.Name, &c.TaxID, &c.City, &c.State,
			&c.QualityScore, &c.Hash); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan competitor")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate competitors")
}

func (s *SQLiteStore) InsertLead(ctx context.Context, l *model.Lead) (bool, error) {
	stage := l.Stage
	if stage == "" {
		stage = model.LeadStageNew
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (project_id, market_id, name, segment, potential, justification, tax_id, site,
			city, state, size_class, industry_code, latitude, longitude, quality_score, quality_class,
			validation_status, stage, hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (market_id, hash) DO NOTHING`,
		l.ProjectID, l.MarketID, l.Name, l.Segment, l.Potential, l.Justification, l.TaxID, l.Site,
		l.City, l.State, l.SizeClass, l.IndustryCode, l.Latitude, l.Longitude, l.QualityScore, l.QualityClass,
		string(pendingIfEmpty(l.ValidationStatus)), stage, l.Hash, time.Now().UTC(),
	)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: insert lead")
	}
	return insertedSQLite(res, &l.ID)
}

// insertedSQLite reports whether an INSERT ... ON CONFLICT DO NOTHING wrote a
// row and stores its id.
func insertedSQLite(res sql.Result, id *int64) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return false, nil
	}
	if *id, err = res.LastInsertId(); err != nil {
		return false, eris.Wrap(err, "last insert id")
	}
	return true, nil
}

func pendingIfEmpty(s model.ValidationStatus) model.ValidationStatus {
	if s == "" {
		return model.ValidationPending
	}
	return s
}

func checkRowsAffected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %d", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanClientSQLite(row scannable) (*model.Client, error) {
	var (
		c                      model.Client
		surveyID               sql.NullInt64
		lat, lng               sql.NullFloat64
		geocodedAt, enrichedAt sql.NullTime
		status                 string
	)
	err := row.Scan(&c.ID, &c.ProjectID, &surveyID, &c.Name, &c.TaxID, &c.Site, &c.ProductDescription,
		&c.City, &c.State, &c.Region, &c.IndustryCode, &c.SizeClass, &c.Segmentation, &c.Email, &c.Phone,
		&lat, &lng, &geocodedAt, &status, &c.QualityScore, &c.QualityClass, &c.Enriched, &enrichedAt,
		&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	c.ValidationStatus = model.ValidationStatus(strings.TrimSpace(status))
	if surveyID.Valid {
		c.SurveyID = &surveyID.Int64
	}
	if lat.Valid {
		c.Latitude = &lat.Float64
	}
	if lng.Valid {
		c.Longitude = &lng.Float64
	}
	if geocodedAt.Valid {
		c.GeocodedAt = &geocodedAt.Time
	}
	if enrichedAt.Valid {
		c.EnrichedAt = &enrichedAt.Time
	}
	return &c, nil
}

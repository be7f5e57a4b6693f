package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/market-intel/internal/db"
	"github.com/sells-group/market-intel/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS clients (
	id                  BIGSERIAL PRIMARY KEY,
	project_id          BIGINT NOT NULL,
	survey_id           BIGINT,
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
	latitude            DOUBLE PRECISION,
	longitude           DOUBLE PRECISION,
	location            BYTEA,
	geocoded_at         TIMESTAMPTZ,
	validation_status   TEXT NOT NULL DEFAULT 'pending',
	quality_score       INTEGER NOT NULL DEFAULT 0,
	quality_class       TEXT NOT NULL DEFAULT '',
	enriched            BOOLEAN NOT NULL DEFAULT false,
	enriched_at         TIMESTAMPTZ,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS markets (
	id             BIGSERIAL PRIMARY KEY,
	project_id     BIGINT NOT NULL,
	survey_id      BIGINT,
	name           TEXT NOT NULL,
	category       TEXT NOT NULL DEFAULT '',
	segmentation   TEXT NOT NULL DEFAULT '',
	estimated_size TEXT NOT NULL DEFAULT '',
	hash           TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (project_id, hash)
);

CREATE TABLE IF NOT EXISTS client_markets (
	client_id  BIGINT NOT NULL REFERENCES clients(id),
	market_id  BIGINT NOT NULL REFERENCES markets(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (client_id, market_id)
);

CREATE TABLE IF NOT EXISTS products (
	id          BIGSERIAL PRIMARY KEY,
	project_id  BIGINT NOT NULL,
	client_id   BIGINT NOT NULL REFERENCES clients(id),
	market_id   BIGINT NOT NULL REFERENCES markets(id),
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL DEFAULT '',
	hash        TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (market_id, hash)
);

CREATE TABLE IF NOT EXISTS competitors (
	id                BIGSERIAL PRIMARY KEY,
	project_id        BIGINT NOT NULL,
	market_id         BIGINT NOT NULL REFERENCES markets(id),
	name              TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	tax_id            TEXT NOT NULL DEFAULT '',
	site              TEXT NOT NULL DEFAULT '',
	city              TEXT NOT NULL DEFAULT '',
	state             TEXT NOT NULL DEFAULT '',
	size_class        TEXT NOT NULL DEFAULT '',
	industry_code     TEXT NOT NULL DEFAULT '',
	latitude          DOUBLE PRECISION,
	longitude         DOUBLE PRECISION,
	location          BYTEA,
	quality_score     INTEGER NOT NULL DEFAULT 0,
	quality_class     TEXT NOT NULL DEFAULT '',
	validation_status TEXT NOT NULL DEFAULT 'pending',
	hash              TEXT NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (market_id, hash)
);

CREATE TABLE IF NOT EXISTS leads (
	id                BIGSERIAL PRIMARY KEY,
	project_id        BIGINT NOT NULL,
	market_id         BIGINT NOT NULL REFERENCES markets(id),
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
	latitude          DOUBLE PRECISION,
	longitude         DOUBLE PRECISION,
	location          BYTEA,
	quality_score     INTEGER NOT NULL DEFAULT 0,
	quality_class     TEXT NOT NULL DEFAULT '',
	validation_status TEXT NOT NULL DEFAULT 'pending',
	stage             TEXT NOT NULL DEFAULT 'new',
	hash              TEXT NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (market_id, hash)
);

CREATE INDEX IF NOT EXISTS idx_clients_pending ON clients(project_id, enriched, validation_status);
CREATE INDEX IF NOT EXISTS idx_competitors_project ON competitors(project_id);
CREATE INDEX IF NOT EXISTS idx_leads_project ON leads(project_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateClient(ctx context.Context, c *model.Client) (int64, error) {
	loc, err := model.LocationEWKB(c.Latitude, c.Longitude)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: client location")
	}
	status := pendingIfEmpty(c.ValidationStatus)

	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO clients (project_id, survey_id, name, tax_id, site, product_description, city, state,
			region, industry_code, size_class, segmentation, email, phone, latitude, longitude, location,
			validation_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		 RETURNING id`,
		c.ProjectID, c.SurveyID, c.Name, c.TaxID, c.Site, c.ProductDescription, c.City, c.State,
		c.Region, c.IndustryCode, c.SizeClass, c.Segmentation, c.Email, c.Phone, c.Latitude, c.Longitude, loc,
		string(status),
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert client")
	}
	c.ID = id
	return id, nil
}

var importColumns = []string{
	"project_id", "survey_id", "name", "tax_id", "site", "product_description", "city", "state",
	"size_class", "segmentation", "email", "phone", "validation_status",
}

// ImportClients bulk-loads clients with COPY.
func (s *PostgresStore) ImportClients(ctx context.Context, clients []model.Client) (int, error) {
	rows := make([][]any, 0, len(clients))
	for _, c := range clients {
		rows = append(rows, []any{
			c.ProjectID, c.SurveyID, c.Name, c.TaxID, c.Site, c.ProductDescription, c.City, c.State,
			c.SizeClass, c.Segmentation, c.Email, c.Phone, string(pendingIfEmpty(c.ValidationStatus)),
		})
	}
	n, err := db.CopyFrom(ctx, s.pool, "clients", importColumns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: import clients")
	}
	return int(n), nil
}

const pgClientColumns = `id, project_id, survey_id, name, tax_id, site, product_description, city, state,
	region, industry_code, size_class, segmentation, email, phone, latitude, longitude, geocoded_at,
	validation_status, quality_score, quality_class, enriched, enriched_at, created_at, updated_at`

func (s *PostgresStore) GetClient(ctx context.Context, id int64) (*model.Client, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgClientColumns+` FROM clients WHERE id = $1`, id)
	c, err := scanClientPostgres(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get client %d", id)
	}
	return c, nil
}

func (s *PostgresStore) ListClients(ctx context.Context, projectID int64) ([]model.Client, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgClientColumns+` FROM clients WHERE project_id = $1 ORDER BY id`, projectID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list clients")
	}
	defer rows.Close()

	var out []model.Client
	for rows.Next() {
		c, err := scanClientPostgres(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan client")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate clients")
}

func (s *PostgresStore) ListPendingClientIDs(ctx context.Context, sel model.PopulationSelector) ([]int64, error) {
	query := `SELECT id FROM clients WHERE project_id = $1 AND enriched = false AND validation_status = $2`
	args := []any{sel.ProjectID, string(model.ValidationPending)}
	if sel.SurveyID != nil {
		query += ` AND survey_id = $3`
		args = append(args, *sel.SurveyID)
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list pending clients")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, eris.Wrap(err, "postgres: collect pending ids")
	}
	return ids, nil
}

func (s *PostgresStore) UpdateClient(ctx context.Context, c *model.Client) error {
	loc, err := model.LocationEWKB(c.Latitude, c.Longitude)
	if err != nil {
		return eris.Wrap(err, "postgres: client location")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE clients SET name = $1, tax_id = $2, site = $3, product_description = $4, city = $5, state = $6,
			region = $7, industry_code = $8, size_class = $9, segmentation = $10, email = $11, phone = $12,
			latitude = $13, longitude = $14, location = $15, geocoded_at = $16, quality_score = $17,
			quality_class = $18, updated_at = now()
		 WHERE id = $19`,
		c.Name, c.TaxID, c.Site, c.ProductDescription, c.City, c.State,
		c.Region, c.IndustryCode, c.SizeClass, c.Segmentation, c.Email, c.Phone,
		c.Latitude, c.Longitude, loc, c.GeocodedAt, c.QualityScore, c.QualityClass,
		c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update client %d", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "client %d", c.ID)
	}
	return nil
}

func (s *PostgresStore) MarkClientEnriched(ctx context.Context, id int64, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE clients SET enriched = true, enriched_at = $1, updated_at = now() WHERE id = $2`,
		at.UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark client %d enriched", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "client %d", id)
	}
	return nil
}

func (s *PostgresStore) UpsertMarket(ctx context.Context, m *model.Market) (int64, bool, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO markets (project_id, survey_id, name, category, segmentation, estimated_size, hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (project_id, hash) DO NOTHING
		 RETURNING id`,
		m.ProjectID, m.SurveyID, m.Name, m.Category, m.Segmentation, m.EstimatedSize, m.Hash,
	).Scan(&id)
	if err == nil {
		m.ID = id
		return id, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, eris.Wrap(err, "postgres: insert market")
	}

	err = s.pool.QueryRow(ctx,
		`SELECT id FROM markets WHERE project_id = $1 AND hash = $2`, m.ProjectID, m.Hash,
	).Scan(&id)
	if err != nil {
		return 0, false, eris.Wrap(err, "postgres: find market by hash")
	}
	m.ID = id
	return id, false, nil
}

func (s *PostgresStore) LinkClientMarket(ctx context.Context, clientID, marketID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO client_markets (client_id, market_id) VALUES ($1, $2)
		 ON CONFLICT (client_id, market_id) DO NOTHING`,
		clientID, marketID,
	)
	return eris.Wrapf(err, "postgres: link client %d to market %d", clientID, marketID)
}

func (s *PostgresStore) InsertProduct(ctx context.Context, p *model.Product) (bool, error) {
	return s.insertReturning(ctx, &p.ID, "product",
		`INSERT INTO products (project_id, client_id, market_id, name, description, category, hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (market_id, hash) DO NOTHING
		 RETURNING id`,
		p.ProjectID, p.ClientID, p.MarketID, p.Name, p.Description, p.Category, p.Hash,
	)
}

func (s *PostgresStore) InsertCompetitor(ctx context.Context, c *model.Competitor) (bool, error) {
	loc, err := model.LocationEWKB(c.Latitude, c.Longitude)
	if err != nil {
		// Out-of-range generated coordinates are dropped rather than failing the insert.
		c.Latitude, c.Longitude, loc = nil, nil, nil
	}
	return s.insertReturning(ctx, &c.ID, "competitor",
		`INSERT INTO competitors (project_id, market_id, name, description, tax_id, site, city, state,
			size_class, industry_code, latitude, longitude, location, quality_score, quality_class,
			validation_status, hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 ON CONFLICT (market_id, hash) DO NOTHING
		 RETURNING id`,
		c.ProjectID, c.MarketID, c.Name, c.Description, c.TaxID, c.Site, c.City, c.State,
		c.SizeClass, c.IndustryCode, c.Latitude, c.Longitude, loc, c.QualityScore, c.QualityClass,
		string(pendingIfEmpty(c.ValidationStatus)), c.Hash,
	)
}

func (s *PostgresStore) ListCompetitors(ctx context.Context, projectID int64) ([]model.Competitor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, market_id, name, tax_id, city, state, quality_score, hash
		 FROM competitors WHERE project_id = $1 ORDER BY id`, projectID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list competitors")
	}
	defer rows.Close()

	var out []model.Competitor
	for rows.Next() {
		var c model.Competitor
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.MarketID, &c.Name, &c.TaxID, &c.City, &c.State,
			&c.QualityScore, &c.Hash); err != nil {
			return nil, eris.Wrap(err, "postgres: scan competitor")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate competitors")
}

func (s *PostgresStore) InsertLead(ctx context.Context, l *model.Lead) (bool, error) {
	loc, err := model.LocationEWKB(l.Latitude, l.Longitude)
	if err != nil {
		l.Latitude, l.Longitude, loc = nil, nil, nil
	}
	stage := l.Stage
	if stage == "" {
		stage = model.LeadStageNew
	}
	return s.insertReturning(ctx, &l.ID, "lead",
		`INSERT INTO leads (project_id, market_id, name, segment, potential, justification, tax_id, site,
			city, state, size_class, industry_code, latitude, longitude, location, quality_score,
			quality_class, validation_status, stage, hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		 ON CONFLICT (market_id, hash) DO NOTHING
		 RETURNING id`,
		l.ProjectID, l.MarketID, l.Name, l.Segment, l.Potential, l.Justification, l.TaxID, l.Site,
		l.City, l.State, l.SizeClass, l.IndustryCode, l.Latitude, l.Longitude, loc, l.QualityScore,
		l.QualityClass, string(pendingIfEmpty(l.ValidationStatus)), stage, l.Hash,
	)
}

// insertReturning runs an INSERT ... ON CONFLICT DO NOTHING RETURNING id. No
// returned row means the hash already existed.
func (s *PostgresStore) insertReturning(ctx context.Context, id *int64, entity, query string, args ...any) (bool, error) {
	err := s.pool.QueryRow(ctx, query, args...).Scan(id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "postgres: insert %s", entity)
	}
	return true, nil
}

func scanClientPostgres(row pgx.Row) (*model.Client, error) {
	var c model.Client
	var status string
	err := row.Scan(&c.ID, &c.ProjectID, &c.SurveyID, &c.Name, &c.TaxID, &c.Site, &c.ProductDescription,
		&c.City, &c.State, &c.Region, &c.IndustryCode, &c.SizeClass, &c.Segmentation, &c.Email, &c.Phone,
		&c.Latitude, &c.Longitude, &c.GeocodedAt, &status, &c.QualityScore, &c.QualityClass, &c.Enriched,
		&c.EnrichedAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.ValidationStatus = model.ValidationStatus(status)
	return &c, nil
}

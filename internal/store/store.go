// Package store persists clients and the markets, products, competitors and
// leads generated for them.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-intel/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = eris.New("store: not found")

// Store defines the persistence interface for the enrichment pipeline.
// Insert methods on generated records are idempotent: a record whose
// content hash already exists in its scope is skipped and reported as not
// created.
type Store interface {
	// Clients
	CreateClient(ctx context.Context, c *model.Client) (int64, error)
	ImportClients(ctx context.Context, clients []model.Client) (int, error)
	GetClient(ctx context.Context, id int64) (*model.Client, error)
	ListClients(ctx context.Context, projectID int64) ([]model.Client, error)
	ListPendingClientIDs(ctx context.Context, sel model.PopulationSelector) ([]int64, error)
	UpdateClient(ctx context.Context, c *model.Client) error
	MarkClientEnriched(ctx context.Context, id int64, at time.Time) error

	// Markets
	UpsertMarket(ctx context.Context, m *model.Market) (id int64, created bool, err error)
	LinkClientMarket(ctx context.Context, clientID, marketID int64) error

	// Generated records
	InsertProduct(ctx context.Context, p *model.Product) (bool, error)
	InsertCompetitor(ctx context.Context, c *model.Competitor) (bool, error)
	ListCompetitors(ctx context.Context, projectID int64) ([]model.Competitor, error)
	InsertLead(ctx context.Context, l *model.Lead) (bool, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

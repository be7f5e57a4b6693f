// Package enrich runs the layered enrichment of a single client: generate,
// analyze gaps, fall back to minimum viable data, then deduplicate, merge
// and persist. There is no layer 3; the slot is reserved for a targeted
// gap-filling call.
package enrich

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-intel/internal/dedup"
	"github.com/sells-group/market-intel/internal/generate"
	"github.com/sells-group/market-intel/internal/model"
	"github.com/sells-group/market-intel/internal/quality"
	"github.com/sells-group/market-intel/internal/store"
)

// Enricher enriches one client. Implemented by Orchestrator; the batch
// scheduler depends on this interface.
type Enricher interface {
	Enrich(ctx context.Context, clientID, projectID int64) *model.EnrichmentResult
}

// Options tunes an Orchestrator.
type Options struct {
	Caps      model.Caps
	Threshold float64
	Scorer    *quality.Scorer
}

// Orchestrator wires the generator and the store into the layered pipeline.
type Orchestrator struct {
	store     store.Store
	gen       generate.Generator
	caps      model.Caps
	threshold float64
	scorer    *quality.Scorer
	now       func() time.Time
}

// New creates an Orchestrator. Zero options take their defaults.
func New(st store.Store, gen generate.Generator, opts Options) *Orchestrator {
	if opts.Caps == (model.Caps{}) {
		opts.Caps = model.DefaultCaps()
	}
	if opts.Threshold <= 0 {
		opts.Threshold = dedup.DefaultThreshold
	}
	if opts.Scorer == nil {
		opts.Scorer = quality.Default()
	}
	return &Orchestrator{
		store:     st,
		gen:       gen,
		caps:      opts.Caps,
		threshold: opts.Threshold,
		scorer:    opts.Scorer,
		now:       time.Now,
	}
}

// Enrich runs all layers for one client. It never returns nil; failures are
// reported through Success, Error and Err. Only a failure to load the client
// or to persist results makes the run unsuccessful.
func (o *Orchestrator) Enrich(ctx context.Context, clientID, projectID int64) *model.EnrichmentResult {
	start := time.Now()
	log := zap.L().With(zap.Int64("client_id", clientID), zap.Int64("project_id", projectID))
	result := &model.EnrichmentResult{ClientID: clientID, ProjectID: projectID}
	defer func() { result.Duration = time.Since(start).Milliseconds() }()

	fail := func(err error) *model.EnrichmentResult {
		result.Success = false
		result.Err = err
		result.Error = UserMessage(err)
		log.Error("enrich: failed", zap.Error(err))
		return result
	}

	client, err := o.loadClient(ctx, clientID, projectID)
	if err != nil {
		return fail(err)
	}

	trackLayer := func(name string, fn func() (map[string]any, error)) {
		lr := model.LayerResult{Name: name}
		layerStart := time.Now()
		meta, fnErr := fn()
		lr.Duration = time.Since(layerStart).Milliseconds()
		lr.Metadata = meta

		if fnErr != nil {
			lr.Status = model.LayerStatusFailed
			lr.Error = UserMessage(fnErr)
			log.Warn("enrich: layer failed",
				zap.String("layer", name),
				zap.Int64("duration_ms", lr.Duration),
				zap.Error(fnErr),
			)
		} else {
			lr.Status = model.LayerStatusComplete
			log.Debug("enrich: layer complete",
				zap.String("layer", name),
				zap.Int64("duration_ms", lr.Duration),
			)
		}
		result.Layers = append(result.Layers, lr)
	}
	skipLayer := func(name, reason string) {
		result.Layers = append(result.Layers, model.LayerResult{
			Name:     name,
			Status:   model.LayerStatusSkipped,
			Metadata: map[string]any{"reason": reason},
		})
	}

	// Layer 1: complete generation. A failure here falls through.
	var data *model.GeneratedData
	trackLayer(model.LayerGenerate, func() (map[string]any, error) {
		gen, genErr := o.gen.Generate(ctx, client.Seed())
		if genErr != nil {
			return nil, genErr
		}
		gen.Truncate(o.caps)
		data = gen
		result.Usage.Add(gen.Usage)
		return map[string]any{
			"markets":       len(gen.Markets),
			"input_tokens":  gen.Usage.InputTokens,
			"output_tokens": gen.Usage.OutputTokens,
		}, nil
	})
	if data == nil {
		data = &model.GeneratedData{}
	}

	// Layer 2: gap analysis.
	trackLayer(model.LayerGapAnalysis, func() (map[string]any, error) {
		result.Gaps = analyzeGaps(client, data)
		return map[string]any{"gaps": result.Gaps}, nil
	})

	// Layer 4: minimum viable data.
	if len(data.Markets) == 0 {
		trackLayer(model.LayerMinimumViable, func() (map[string]any, error) {
			m := placeholderMarket(client)
			data.Markets = []model.MarketBundle{m}
			return map[string]any{"market": m.Name}, nil
		})
	} else {
		skipLayer(model.LayerMinimumViable, "markets generated")
	}

	// Layer 5: dedup, merge and persist. Always runs.
	var persistErr error
	trackLayer(model.LayerPersist, func() (map[string]any, error) {
		persistErr = o.persist(ctx, client, data, result)
		return map[string]any{
			"created": result.Created,
			"skipped": result.Skipped,
		}, persistErr
	})
	if persistErr != nil {
		return fail(persistErr)
	}

	result.Success = true
	log.Info("enrich: complete",
		zap.Int("markets", result.Created.Markets),
		zap.Int("competitors", result.Created.Competitors),
		zap.Int("leads", result.Created.Leads),
		zap.Strings("gaps", result.Gaps),
	)
	return result
}

func (o *Orchestrator) loadClient(ctx context.Context, clientID, projectID int64) (*model.Client, error) {
	client, err := o.store.GetClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, eris.Wrapf(ErrClientNotFound, "client %d", clientID)
		}
		return nil, persistFailed("load client", err)
	}
	if client.ProjectID != projectID {
		return nil, eris.Wrapf(ErrClientNotFound, "client %d in project %d", clientID, projectID)
	}
	return client, nil
}

// analyzeGaps lists what neither the client nor the generated data covers.
func analyzeGaps(c *model.Client, data *model.GeneratedData) []string {
	var gaps []string
	if len(data.Markets) == 0 {
		gaps = append(gaps, model.GapMarkets)
	}
	e := data.Client
	if c.IndustryCode == "" && (e == nil || e.IndustryCode == "") {
		gaps = append(gaps, model.GapIndustryCode)
	}
	if !c.HasCoordinates() && (e == nil || !usableCoordinates(e.Latitude, e.Longitude)) {
		gaps = append(gaps, model.GapCoordinates)
	}
	return gaps
}

const genericProduct = "Produtos Industriais"

// placeholderMarket builds the single market persisted when generation
// produced none.
func placeholderMarket(c *model.Client) model.MarketBundle {
	product := c.ProductDescription
	if product == "" {
		product = genericProduct
	}
	return model.MarketBundle{
		Name:          "Mercado de " + product,
		Category:      "Indústria",
		Segmentation:  "B2B",
		EstimatedSize: "Médio porte",
	}
}

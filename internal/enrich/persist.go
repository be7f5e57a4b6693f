package enrich

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/sells-group/market-intel/internal/dedup"
	"github.com/sells-group/market-intel/internal/model"
	"github.com/sells-group/market-intel/internal/quality"
)

// persist is layer 5. Records inserted before an error are kept.
func (o *Orchestrator) persist(ctx context.Context, client *model.Client, data *model.GeneratedData, result *model.EnrichmentResult) error {
	now := o.now()

	mergeClient(client, data.Client, now, o.scorer)
	if err := o.store.UpdateClient(ctx, client); err != nil {
		return persistFailed("update client", err)
	}

	clients, err := o.store.ListClients(ctx, client.ProjectID)
	if err != nil {
		return persistFailed("list clients", err)
	}
	competitors, err := o.store.ListCompetitors(ctx, client.ProjectID)
	if err != nil {
		return persistFailed("list competitors", err)
	}
	clientRefs := dedup.Entries(clients)
	competitorRefs := dedup.Entries(competitors)

	// Competitors of every market are stored before any lead is filtered, so
	// a lead never survives next to a competitor generated for a later market.
	marketIDs := make([]int64, len(data.Markets))
	for i, bundle := range data.Markets {
		marketID, err := o.persistMarket(ctx, client, bundle, result)
		if err != nil {
			return err
		}
		marketIDs[i] = marketID

		created, err := o.persistCompetitors(ctx, client, marketID, bundle.Competitors, clientRefs, result)
		if err != nil {
			return err
		}
		competitorRefs = append(competitorRefs, created...)
	}

	for i, bundle := range data.Markets {
		if err := o.persistLeads(ctx, client, marketIDs[i], bundle.Leads, result, clientRefs, competitorRefs); err != nil {
			return err
		}
	}

	if err := o.store.MarkClientEnriched(ctx, client.ID, now); err != nil {
		return persistFailed("mark enriched", err)
	}

	zap.L().Debug("enrich: persisted",
		zap.Int64("client_id", client.ID),
		zap.Any("created", result.Created),
		zap.Any("skipped", result.Skipped),
	)
	return nil
}

// persistMarket upserts the market, links it to the client and stores its
// products.
func (o *Orchestrator) persistMarket(ctx context.Context, client *model.Client, bundle model.MarketBundle, result *model.EnrichmentResult) (int64, error) {
	market := &model.Market{
		ProjectID:     client.ProjectID,
		SurveyID:      client.SurveyID,
		Name:          bundle.Name,
		Category:      bundle.Category,
		Segmentation:  bundle.Segmentation,
		EstimatedSize: bundle.EstimatedSize,
		Hash:          dedup.ContentHash(bundle.Name, bundle.Category),
	}
	marketID, created, err := o.store.UpsertMarket(ctx, market)
	if err != nil {
		return 0, persistFailed("upsert market", err)
	}
	count(&result.Created.Markets, &result.Skipped.Markets, created)
	if err := o.store.LinkClientMarket(ctx, client.ID, marketID); err != nil {
		return 0, persistFailed("link market", err)
	}

	scope := strconv.FormatInt(marketID, 10)
	for _, p := range bundle.Products {
		ok, err := o.store.InsertProduct(ctx, &model.Product{
			ProjectID:   client.ProjectID,
			ClientID:    client.ID,
			MarketID:    marketID,
			Name:        p.Name,
			Description: p.Description,
			Category:    p.Category,
			Hash:        dedup.ContentHash(p.Name, scope),
		})
		if err != nil {
			return 0, persistFailed("insert product", err)
		}
		count(&result.Created.Products, &result.Skipped.Products, ok)
	}
	return marketID, nil
}

// persistCompetitors stores the competitors that duplicate no client and
// returns the entries of those created.
func (o *Orchestrator) persistCompetitors(ctx context.Context, client *model.Client, marketID int64, generated []model.GeneratedCompany, clientRefs []dedup.Entry, result *model.EnrichmentResult) ([]dedup.Entry, error) {
	scope := strconv.FormatInt(marketID, 10)
	survivors := dedup.FilterDuplicates(generated, o.threshold, clientRefs)
	result.Skipped.Competitors += len(generated) - len(survivors)

	var created []dedup.Entry
	for _, g := range survivors {
		comp := &model.Competitor{
			ProjectID:        client.ProjectID,
			MarketID:         marketID,
			Name:             g.Name,
			Description:      g.Description,
			TaxID:            g.TaxID,
			Site:             g.Site,
			City:             g.City,
			State:            g.State,
			SizeClass:        g.SizeClass,
			IndustryCode:     g.IndustryCode,
			ValidationStatus: model.ValidationPending,
			Hash:             dedup.ContentHash(g.Name, scope),
		}
		comp.Latitude, comp.Longitude = coordinates(g)
		comp.QualityScore, comp.QualityClass = o.score(g, g.Description)

		ok, err := o.store.InsertCompetitor(ctx, comp)
		if err != nil {
			return created, persistFailed("insert competitor", err)
		}
		count(&result.Created.Competitors, &result.Skipped.Competitors, ok)
		if ok {
			created = append(created, g.DedupEntry())
		}
	}
	return created, nil
}

// persistLeads stores the leads that duplicate no reference.
func (o *Orchestrator) persistLeads(ctx context.Context, client *model.Client, marketID int64, generated []model.GeneratedCompany, result *model.EnrichmentResult, refs ...[]dedup.Entry) error {
	scope := strconv.FormatInt(marketID, 10)
	leads := dedup.FilterDuplicates(generated, o.threshold, refs...)
	result.Skipped.Leads += len(generated) - len(leads)

	for _, g := range leads {
		lead := &model.Lead{
			ProjectID:        client.ProjectID,
			MarketID:         marketID,
			Name:             g.Name,
			Segment:          g.Segment,
			Potential:        g.Potential,
			Justification:    g.Justification,
			TaxID:            g.TaxID,
			Site:             g.Site,
			City:             g.City,
			State:            g.State,
			SizeClass:        g.SizeClass,
			IndustryCode:     g.IndustryCode,
			ValidationStatus: model.ValidationPending,
			Stage:            model.LeadStageNew,
			Hash:             dedup.ContentHash(g.Name, scope),
		}
		lead.Latitude, lead.Longitude = coordinates(g)
		lead.QualityScore, lead.QualityClass = o.score(g, g.Justification)

		ok, err := o.store.InsertLead(ctx, lead)
		if err != nil {
			return persistFailed("insert lead", err)
		}
		count(&result.Created.Leads, &result.Skipped.Leads, ok)
	}
	return nil
}

func (o *Orchestrator) score(g model.GeneratedCompany, description string) (int, string) {
	lat, lng := coordinates(g)
	score, class := o.scorer.Evaluate(quality.Fields{
		Name:           g.Name,
		Description:    description,
		SizeClass:      g.SizeClass,
		City:           g.City,
		TaxID:          g.TaxID,
		IndustryCode:   g.IndustryCode,
		HasCoordinates: lat != nil && lng != nil,
	})
	return score, string(class)
}

func coordinates(g model.GeneratedCompany) (*float64, *float64) {
	if !usableCoordinates(g.Latitude, g.Longitude) {
		return nil, nil
	}
	return g.Latitude, g.Longitude
}

func count(created, skipped *int, ok bool) {
	if ok {
		*created++
	} else {
		*skipped++
	}
}

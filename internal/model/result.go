package model

// LayerStatus is the outcome of one orchestration layer.
type LayerStatus string

const (
	LayerStatusComplete LayerStatus = "complete"
	LayerStatusFailed   LayerStatus = "failed"
	LayerStatusSkipped  LayerStatus = "skipped"
)

// Layer names. The numbering has no layer 3.
const (
	LayerGenerate      = "1_generate"
	LayerGapAnalysis   = "2_gap_analysis"
	LayerMinimumViable = "4_minimum_viable"
	LayerPersist       = "5_persist"
)

// Gap names reported by gap analysis.
const (
	GapMarkets      = "markets"
	GapIndustryCode = "industry_code"
	GapCoordinates  = "coordinates"
)

// LayerResult holds the outcome of an orchestration layer.
type LayerResult struct {
	Name     string         `json:"name"`
	Status   LayerStatus    `json:"status"`
	Duration int64          `json:"duration_ms"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Cost         float64 `json:"cost"`
}

// Add merges token usage from another instance.
func (t *TokenUsage) Add(other TokenUsage) {
	t.InputTokens += other.InputTokens
	t.OutputTokens += other.OutputTokens
	t.Cost += other.Cost
}

// Counts tallies records by kind.
type Counts struct {
	Markets     int `json:"markets"`
	Products    int `json:"products"`
	Competitors int `json:"competitors"`
	Leads       int `json:"leads"`
}

// EnrichmentResult is the outcome of enriching one client.
type EnrichmentResult struct {
	ClientID  int64         `json:"client_id"`
	ProjectID int64         `json:"project_id"`
	Success   bool          `json:"success"`
	Created   Counts        `json:"created"`
	Skipped   Counts        `json:"skipped"`
	Layers    []LayerResult `json:"layers"`
	Gaps      []string      `json:"gaps,omitempty"`
	Usage     TokenUsage    `json:"token_usage"`
	Duration  int64         `json:"duration_ms"`
	Error     string        `json:"error,omitempty"`

	// Err is the underlying cause of a failure.
	Err error `json:"-"`
}

// Layer returns the result of the named layer, or nil if it did not run.
func (r *EnrichmentResult) Layer(name string) *LayerResult {
	for i := range r.Layers {
		if r.Layers[i].Name == name {
			return &r.Layers[i]
		}
	}
	return nil
}

package importer

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-intel/internal/dedup"
	"github.com/sells-group/market-intel/internal/model"
)

// ClientStore is the subset of the store used by the importer.
type ClientStore interface {
	ListClients(ctx context.Context, projectID int64) ([]model.Client, error)
	ImportClients(ctx context.Context, clients []model.Client) (int, error)
}

// Options selects the destination of an import.
type Options struct {
	ProjectID int64
	SurveyID  *int64
	// Threshold is the name similarity above which a row duplicates an
	// existing client. Default: dedup.DefaultThreshold.
	Threshold float64
	// DryRun validates and deduplicates without writing.
	DryRun bool
}

// RowError describes a rejected row. Row is 1-based and counts the header.
type RowError struct {
	Row      int      `json:"row"`
	Problems []string `json:"problems"`
}

// Result summarizes an import.
type Result struct {
	TotalRows  int        `json:"total_rows"`
	Imported   int        `json:"imported"`
	Duplicates int        `json:"duplicates"`
	Invalid    int        `json:"invalid"`
	Errors     []RowError `json:"errors,omitempty"`
}

// Import converts rows (header first) into pending clients of the project.
// Rows that duplicate an existing client, or an earlier row, are skipped.
func Import(ctx context.Context, st ClientStore, rows [][]string, opts Options) (*Result, error) {
	if opts.ProjectID <= 0 {
		return nil, eris.New("importer: project id is required")
	}
	if opts.Threshold <= 0 {
		opts.Threshold = dedup.DefaultThreshold
	}
	res := &Result{}
	if len(rows) < 2 {
		return res, nil
	}

	cols := columnMap(rows[0])
	if _, ok := cols[fieldName]; !ok {
		return nil, eris.New("importer: no name column in header")
	}

	existing, err := st.ListClients(ctx, opts.ProjectID)
	if err != nil {
		return nil, eris.Wrap(err, "importer: list clients")
	}
	known := dedup.Entries(existing)

	var accepted []model.Client
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		res.TotalRows++

		c, problems := toClient(row, cols)
		if len(problems) > 0 {
			res.Invalid++
			res.Errors = append(res.Errors, RowError{Row: i + 2, Problems: problems})
			continue
		}

		entry := c.DedupEntry()
		if dedup.IsDuplicate(entry, known, opts.Threshold) {
			res.Duplicates++
			continue
		}
		known = append(known, entry)

		c.ProjectID = opts.ProjectID
		c.SurveyID = opts.SurveyID
		accepted = append(accepted, c)
	}

	if opts.DryRun {
		res.Imported = len(accepted)
	} else if len(accepted) > 0 {
		n, err := st.ImportClients(ctx, accepted)
		if err != nil {
			return res, eris.Wrap(err, "importer: save clients")
		}
		res.Imported = n
	}

	zap.L().Info("importer: rows processed",
		zap.Int64("project_id", opts.ProjectID),
		zap.Int("rows", res.TotalRows),
		zap.Int("imported", res.Imported),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("invalid", res.Invalid),
		zap.Bool("dry_run", opts.DryRun),
	)
	return res, nil
}

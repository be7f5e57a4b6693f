package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/market-intel/internal/dedup"
	"github.com/sells-group/market-intel/internal/importer"
)

var importFlags struct {
	path      string
	projectID int64
	surveyID  int64
	dryRun    bool
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import clients from an .xlsx or .csv file into a project",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("import"); err != nil {
			return err
		}

		rows, err := importer.ReadFile(importFlags.path)
		if err != nil {
			return err
		}

		st, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		opts := importer.Options{
			ProjectID: importFlags.projectID,
			Threshold: cfg.Enrich.SimilarityThreshold,
			DryRun:    importFlags.dryRun,
		}
		if opts.Threshold <= 0 {
			opts.Threshold = dedup.DefaultThreshold
		}
		if cmd.Flags().Changed("survey") {
			survey := importFlags.surveyID
			opts.SurveyID = &survey
		}

		res, err := importer.Import(ctx, st, rows, opts)
		if err != nil {
			return eris.Wrap(err, "import clients")
		}

		for _, re := range res.Errors {
			zap.L().Warn("row rejected", zap.Int("row", re.Row), zap.Strings("problems", re.Problems))
		}
		zap.L().Info("import complete",
			zap.String("file", importFlags.path),
			zap.Int("imported", res.Imported),
			zap.Int("duplicates", res.Duplicates),
			zap.Int("invalid", res.Invalid),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFlags.path, "file", "", "path to .xlsx or .csv file (required)")
	importCmd.Flags().Int64Var(&importFlags.projectID, "project", 0, "project id (required)")
	importCmd.Flags().Int64Var(&importFlags.surveyID, "survey", 0, "survey the clients belong to")
	importCmd.Flags().BoolVar(&importFlags.dryRun, "dry-run", false, "validate and deduplicate without writing")
	_ = importCmd.MarkFlagRequired("file")
	_ = importCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(importCmd)
}

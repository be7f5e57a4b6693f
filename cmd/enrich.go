package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	enrichClientID  int64
	enrichProjectID int64
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich a single client and print the result as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnrichment(ctx, cfg, "enrich")
		if err != nil {
			return err
		}
		defer env.Close()

		res := env.Enricher.Enrich(ctx, enrichClientID, enrichProjectID)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return eris.Wrap(err, "encode result")
		}

		if !res.Success {
			zap.L().Error("enrichment failed",
				zap.Int64("client_id", enrichClientID),
				zap.Error(res.Err),
			)
			return eris.New(res.Error)
		}
		return nil
	},
}

func init() {
	enrichCmd.Flags().Int64Var(&enrichClientID, "client", 0, "client id (required)")
	enrichCmd.Flags().Int64Var(&enrichProjectID, "project", 0, "project id (required)")
	_ = enrichCmd.MarkFlagRequired("client")
	_ = enrichCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(enrichCmd)
}

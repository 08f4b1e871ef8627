package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atlasgrid/geopipe/internal/pipeline"
)

var runNoStore bool

var runCmd = &cobra.Command{
	Use:   "run <job.yaml>",
	Short: "Run a YAML-defined geoprocessing job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		job, err := pipeline.LoadJob(args[0])
		if err != nil {
			return err
		}

		runner := pipeline.NewRunner(cfg, nil)
		if !runNoStore {
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			runner = pipeline.NewRunner(cfg, st)
		}

		result, err := runner.Run(ctx, job)
		if err != nil {
			return err
		}

		zap.L().Info("run complete",
			zap.String("run_id", result.RunID),
			zap.String("job", result.Job),
			zap.Int("steps", len(result.Steps)),
			zap.Duration("duration", result.Duration),
		)
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runNoStore, "no-store", false, "run without opening the feature store")
	rootCmd.AddCommand(runCmd)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atlasgrid/geopipe/internal/vector"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "Manage stored feature collections",
}

var collectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored collections",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		infos, err := st.ListCollections(ctx)
		if err != nil {
			return err
		}
		for _, info := range infos {
			fmt.Printf("%-30s %-12s %6d features  %s\n",
				info.Name, info.CRS, info.Features, info.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var collectionsExportOut string

var collectionsExportCmd = &cobra.Command{
	Use:   "export <name>",
	Short: "Export a stored collection to GeoJSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		c, err := st.LoadCollection(ctx, args[0])
		if err != nil {
			return err
		}
		if err := vector.WriteGeoJSONFile(collectionsExportOut, c); err != nil {
			return err
		}
		zap.L().Info("export complete",
			zap.String("collection", args[0]),
			zap.Int("features", c.Len()),
		)
		return nil
	},
}

var collectionsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a stored collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		if err := st.DeleteCollection(ctx, args[0]); err != nil {
			return err
		}
		zap.L().Info("collection deleted", zap.String("name", args[0]))
		return nil
	},
}

func init() {
	collectionsExportCmd.Flags().StringVar(&collectionsExportOut, "out", "", "output GeoJSON path (required)")
	_ = collectionsExportCmd.MarkFlagRequired("out")

	collectionsCmd.AddCommand(collectionsListCmd)
	collectionsCmd.AddCommand(collectionsExportCmd)
	collectionsCmd.AddCommand(collectionsDeleteCmd)
	rootCmd.AddCommand(collectionsCmd)
}

package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atlasgrid/geopipe/internal/spatial"
	"github.com/atlasgrid/geopipe/internal/vector"
)

var (
	joinRight string
	joinOut   string
	joinInner bool
)

var joinCmd = &cobra.Command{
	Use:   "join <points>",
	Short: "Spatially join point features with polygon attributes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		left, err := loadCollection(args[0])
		if err != nil {
			return err
		}
		right, err := loadCollection(joinRight)
		if err != nil {
			return err
		}

		kind := spatial.LeftJoin
		if joinInner {
			kind = spatial.InnerJoin
		}
		joined, err := spatial.Join(left, right, kind)
		if err != nil {
			return err
		}

		if err := vector.WriteGeoJSONFile(joinOut, joined); err != nil {
			return err
		}

		zap.L().Info("join complete",
			zap.Int("left", left.Len()),
			zap.Int("right", right.Len()),
			zap.Int("joined", joined.Len()),
		)
		return nil
	},
}

func init() {
	joinCmd.Flags().StringVar(&joinRight, "polygons", "", "polygon dataset path (required)")
	joinCmd.Flags().StringVar(&joinOut, "out", "", "output GeoJSON path (required)")
	joinCmd.Flags().BoolVar(&joinInner, "inner", false, "drop points that match no polygon")
	_ = joinCmd.MarkFlagRequired("polygons")
	_ = joinCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(joinCmd)
}

package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atlasgrid/geopipe/internal/crs"
	"github.com/atlasgrid/geopipe/internal/raster"
	"github.com/atlasgrid/geopipe/internal/spatial"
)

var (
	clipMask    string
	clipGridCRS string
	clipOut     string
)

var clipCmd = &cobra.Command{
	Use:   "clip <grid>",
	Short: "Clip a raster to a polygon mask",
	Long:  "Crops the grid to the mask's bounding box on the cell lattice, then sets cells whose centers fall outside the mask to NoData.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gridCRS := crs.ID(cfg.Defaults.CRS)
		if clipGridCRS != "" {
			gridCRS = crs.ID(clipGridCRS)
		}
		g, err := raster.ReadASCII(args[0], gridCRS)
		if err != nil {
			return err
		}

		mask, err := loadCollection(clipMask)
		if err != nil {
			return err
		}
		merged, err := spatial.Union(mask)
		if err != nil {
			return err
		}

		clipped, err := g.Clip(merged, mask.CRS)
		if err != nil {
			return err
		}

		f, err := os.Create(clipOut)
		if err != nil {
			return eris.Wrapf(err, "create %s", clipOut)
		}
		defer func() { _ = f.Close() }()
		if err := raster.WriteASCII(f, clipped); err != nil {
			return err
		}

		zap.L().Info("clip complete",
			zap.String("grid", args[0]),
			zap.Int("width", clipped.Width),
			zap.Int("height", clipped.Height),
		)
		return nil
	},
}

func init() {
	clipCmd.Flags().StringVar(&clipMask, "mask", "", "polygon mask dataset (required)")
	clipCmd.Flags().StringVar(&clipGridCRS, "grid-crs", "", "grid CRS (default from config)")
	clipCmd.Flags().StringVar(&clipOut, "out", "", "output ASCII grid path (required)")
	_ = clipCmd.MarkFlagRequired("mask")
	_ = clipCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(clipCmd)
}

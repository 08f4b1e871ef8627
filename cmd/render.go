package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atlasgrid/geopipe/internal/crs"
	"github.com/atlasgrid/geopipe/internal/raster"
	"github.com/atlasgrid/geopipe/pkg/render"
)

var (
	renderGrid    string
	renderGridCRS string
	renderPoly    string
	renderOut     string
	renderWidth   int
	renderHeight  int
	renderHeat    bool
)

var renderCmd = &cobra.Command{
	Use:   "render [points]",
	Short: "Render datasets to a PNG image",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var layers []render.Layer

		if renderGrid != "" {
			gridCRS := crs.ID(cfg.Defaults.CRS)
			if renderGridCRS != "" {
				gridCRS = crs.ID(renderGridCRS)
			}
			g, err := raster.ReadASCII(renderGrid, gridCRS)
			if err != nil {
				return err
			}
			layer := &render.RasterLayer{Grid: g}
			if renderHeat {
				layer.Ramp = render.HeatRamp
			}
			layers = append(layers, layer)
		}

		if renderPoly != "" {
			polys, err := loadCollection(renderPoly)
			if err != nil {
				return err
			}
			layers = append(layers, &render.PolygonLayer{Collection: polys})
		}

		if len(args) == 1 {
			points, err := loadCollection(args[0])
			if err != nil {
				return err
			}
			layers = append(layers, &render.PointLayer{Collection: points})
		}

		r := &render.Renderer{Width: renderWidth, Height: renderHeight}
		if err := r.WritePNGFile(renderOut, layers...); err != nil {
			return err
		}

		zap.L().Info("render complete",
			zap.String("out", renderOut),
			zap.Int("layers", len(layers)),
		)
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderGrid, "grid", "", "ASCII grid to render as base layer")
	renderCmd.Flags().StringVar(&renderGridCRS, "grid-crs", "", "grid CRS (default from config)")
	renderCmd.Flags().StringVar(&renderPoly, "polygons", "", "polygon dataset to overlay")
	renderCmd.Flags().StringVar(&renderOut, "out", "", "output PNG path (required)")
	renderCmd.Flags().IntVar(&renderWidth, "width", 800, "image width in pixels")
	renderCmd.Flags().IntVar(&renderHeight, "height", 600, "image height in pixels")
	renderCmd.Flags().BoolVar(&renderHeat, "heat", false, "use the heat color ramp for the grid")
	rootCmd.AddCommand(renderCmd)
}

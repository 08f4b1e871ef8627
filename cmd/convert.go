package main

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atlasgrid/geopipe/internal/crs"
	"github.com/atlasgrid/geopipe/internal/feature"
	"github.com/atlasgrid/geopipe/internal/table"
	"github.com/atlasgrid/geopipe/internal/vector"
)

var (
	convertOut      string
	convertFromCRS  string
	convertToCRS    string
	convertLonCol   string
	convertLatCol   string
	convertEncoding string
	convertSheet    string
	convertLenient  bool
)

var convertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Convert a dataset to GeoJSON, optionally reprojecting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := args[0]

		c, err := loadCollection(in)
		if err != nil {
			return err
		}

		if convertToCRS != "" {
			c, err = c.Reproject(crs.ID(convertToCRS))
			if err != nil {
				return eris.Wrap(err, "reproject")
			}
		}

		if err := vector.WriteGeoJSONFile(convertOut, c); err != nil {
			return err
		}

		zap.L().Info("convert complete",
			zap.String("input", in),
			zap.String("output", convertOut),
			zap.Int("features", c.Len()),
		)
		return nil
	},
}

// loadCollection reads any supported vector or tabular format, keyed by
// file extension.
func loadCollection(path string) (*feature.Collection, error) {
	srcCRS := crs.ID(cfg.Defaults.CRS)
	if convertFromCRS != "" {
		srcCRS = crs.ID(convertFromCRS)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return vector.ReadShapefile(path, vector.ShapefileOptions{
			CRS:      srcCRS,
			Encoding: convertEncoding,
		})
	case ".geojson", ".json":
		return vector.ReadGeoJSONFile(path, srcCRS)
	case ".csv", ".xlsx":
		return loadTable(path, srcCRS)
	}
	return nil, eris.Errorf("unsupported input format: %s", path)
}

func loadTable(path string, srcCRS crs.ID) (*feature.Collection, error) {
	var t *table.Table
	var err error
	if strings.ToLower(filepath.Ext(path)) == ".xlsx" {
		t, err = table.ReadXLSX(path, table.XLSXOptions{SheetName: convertSheet})
	} else {
		t, err = table.ReadCSV(path, table.CSVOptions{})
	}
	if err != nil {
		return nil, err
	}

	opts := feature.BuildOptions{
		LonColumn: convertLonCol,
		LatColumn: convertLatCol,
		CRS:       srcCRS,
	}
	if opts.LonColumn == "" {
		opts.LonColumn = cfg.Defaults.LonColumn
	}
	if opts.LatColumn == "" {
		opts.LatColumn = cfg.Defaults.LatColumn
	}

	if convertLenient {
		c, errs := feature.BuildLenient(t, opts)
		if len(errs) > 0 {
			zap.L().Warn("skipped malformed records", zap.Int("skipped", len(errs)))
		}
		return c, nil
	}
	return feature.Build(t, opts)
}

func init() {
	convertCmd.Flags().StringVar(&convertOut, "out", "", "output GeoJSON path (required)")
	convertCmd.Flags().StringVar(&convertFromCRS, "from-crs", "", "source CRS (default from config)")
	convertCmd.Flags().StringVar(&convertToCRS, "to-crs", "", "target CRS (no reprojection when empty)")
	convertCmd.Flags().StringVar(&convertLonCol, "lon", "", "longitude column for tabular input")
	convertCmd.Flags().StringVar(&convertLatCol, "lat", "", "latitude column for tabular input")
	convertCmd.Flags().StringVar(&convertEncoding, "encoding", "", "attribute encoding for shapefiles (latin1, cp1252, gbk)")
	convertCmd.Flags().StringVar(&convertSheet, "sheet", "", "sheet name for XLSX input")
	convertCmd.Flags().BoolVar(&convertLenient, "lenient", false, "skip malformed records instead of failing")
	_ = convertCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(convertCmd)
}

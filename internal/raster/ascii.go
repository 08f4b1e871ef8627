package raster

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/atlasgrid/geopipe/internal/crs"
)

// ReadASCII reads an ESRI ASCII grid (.asc). The format carries no CRS of
// its own, so the caller supplies the identifier the grid is known to be in.
func ReadASCII(path string, id crs.ID) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: open %s", path)
	}
	defer func() { _ = f.Close() }()

	return ParseASCII(f, id)
}

// ParseASCII reads an ESRI ASCII grid from r.
func ParseASCII(r io.Reader, id crs.ID) (*Grid, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	header := map[string]float64{}
	var values []float64

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		// Header lines are "name value" pairs; everything after is data.
		if len(fields) == 2 && len(values) == 0 {
			if _, err := strconv.ParseFloat(fields[0], 64); err != nil {
				v, err := strconv.ParseFloat(fields[1], 64)
				if err != nil {
					return nil, eris.Wrapf(err, "raster: header %s", fields[0])
				}
				header[strings.ToLower(fields[0])] = v
				continue
			}
		}
		for _, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, eris.Wrapf(err, "raster: cell value %q", field)
			}
			values = append(values, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "raster: read ascii grid")
	}

	ncols, ok := header["ncols"]
	if !ok {
		return nil, eris.New("raster: ascii grid missing ncols")
	}
	nrows, ok := header["nrows"]
	if !ok {
		return nil, eris.New("raster: ascii grid missing nrows")
	}
	cellSize, ok := header["cellsize"]
	if !ok {
		return nil, eris.New("raster: ascii grid missing cellsize")
	}

	width, height := int(ncols), int(nrows)
	if len(values) != width*height {
		return nil, eris.Errorf("raster: ascii grid has %d values, want %d", len(values), width*height)
	}

	// xllcorner/yllcorner give the lower-left corner; center variants are
	// offset by half a cell.
	xll, xOK := header["xllcorner"]
	if !xOK {
		xll = header["xllcenter"] - cellSize/2
	}
	yll, yOK := header["yllcorner"]
	if !yOK {
		yll = header["yllcenter"] - cellSize/2
	}

	noData, ok := header["nodata_value"]
	if !ok {
		noData = -9999
	}

	g := New(width, height, id, [6]float64{
		xll, cellSize, 0,
		yll + float64(height)*cellSize, 0, -cellSize,
	}, noData)
	copy(g.Data, values)
	return g, nil
}

// WriteASCII writes the grid as an ESRI ASCII grid. Only axis-aligned grids
// with square cells can be represented in the format.
func WriteASCII(w io.Writer, g *Grid) error {
	t := g.Transform
	if t[2] != 0 || t[4] != 0 || t[1] != -t[5] {
		return eris.New("raster: ascii grid requires axis-aligned square cells")
	}

	bw := bufio.NewWriter(w)
	yll := t[3] + float64(g.Height)*t[5]
	fmt.Fprintf(bw, "ncols %d\n", g.Width)
	fmt.Fprintf(bw, "nrows %d\n", g.Height)
	fmt.Fprintf(bw, "xllcorner %g\n", t[0])
	fmt.Fprintf(bw, "yllcorner %g\n", yll)
	fmt.Fprintf(bw, "cellsize %g\n", t[1])
	fmt.Fprintf(bw, "NODATA_value %g\n", g.NoData)

	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			if col > 0 {
				if err := bw.WriteByte(' '); err != nil {
					return eris.Wrap(err, "raster: write ascii grid")
				}
			}
			if _, err := bw.WriteString(strconv.FormatFloat(g.At(col, row), 'g', -1, 64)); err != nil {
				return eris.Wrap(err, "raster: write ascii grid")
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return eris.Wrap(err, "raster: write ascii grid")
		}
	}
	return eris.Wrap(bw.Flush(), "raster: flush ascii grid")
}

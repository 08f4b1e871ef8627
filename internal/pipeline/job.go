// Package pipeline orchestrates multi-step geoprocessing jobs defined in
// YAML: load sources, transform them through a sequence of steps, and write
// the results.
package pipeline

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/atlasgrid/geopipe/internal/crs"
)

// SourceKind identifies how a source file is parsed.
type SourceKind string

const (
	SourceCSV       SourceKind = "csv"
	SourceXLSX      SourceKind = "xlsx"
	SourceShapefile SourceKind = "shapefile"
	SourceGeoJSON   SourceKind = "geojson"
	SourceASCIIGrid SourceKind = "ascii_grid"
)

// Source declares one input dataset. CSV and XLSX sources are tabular and
// need lon/lat columns to become point collections; the rest load directly.
type Source struct {
	Name      string     `yaml:"name"`
	Kind      SourceKind `yaml:"kind"`
	Path      string     `yaml:"path"`
	CRS       string     `yaml:"crs,omitempty"`
	LonColumn string     `yaml:"lon_column,omitempty"`
	LatColumn string     `yaml:"lat_column,omitempty"`
	Sheet     string     `yaml:"sheet,omitempty"`
	Encoding  string     `yaml:"encoding,omitempty"`
	Lenient   bool       `yaml:"lenient,omitempty"`
}

// Step is one operation in the job. Which fields apply depends on Op; Run
// validates per-op.
type Step struct {
	Op     string `yaml:"op"`
	Input  string `yaml:"input,omitempty"`
	Output string `yaml:"output,omitempty"`

	// reproject
	To string `yaml:"to,omitempty"`

	// join
	Left  string `yaml:"left,omitempty"`
	Right string `yaml:"right,omitempty"`
	Kind  string `yaml:"kind,omitempty"`

	// filter_attr
	Column string `yaml:"column,omitempty"`
	Cmp    string `yaml:"cmp,omitempty"`
	Value  any    `yaml:"value,omitempty"`

	// filter_intersects, clip, clip_raster
	Mask string `yaml:"mask,omitempty"`

	// sample
	Grid string `yaml:"grid,omitempty"`
	Attr string `yaml:"attr,omitempty"`

	// buffer
	Distance float64 `yaml:"distance,omitempty"`
}

// Output declares a result to write once all steps complete.
type Output struct {
	Source string     `yaml:"source"`
	Kind   SourceKind `yaml:"kind"`
	Path   string     `yaml:"path,omitempty"`

	// kind "store" saves to the configured feature store under Name.
	Name string `yaml:"name,omitempty"`
}

// Job is a full YAML-defined geoprocessing job.
type Job struct {
	Name    string   `yaml:"name"`
	CRS     string   `yaml:"crs,omitempty"`
	Sources []Source `yaml:"sources"`
	Steps   []Step   `yaml:"steps"`
	Outputs []Output `yaml:"outputs"`
}

// ParseJob decodes a job definition from YAML.
func ParseJob(r io.Reader) (*Job, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var job Job
	if err := dec.Decode(&job); err != nil {
		return nil, eris.Wrap(err, "pipeline: parse job")
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

// LoadJob reads and parses a job definition file.
func LoadJob(path string) (*Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: open job %s", path)
	}
	defer func() { _ = f.Close() }()
	return ParseJob(f)
}

// Validate checks structural consistency before any file is touched.
func (j *Job) Validate() error {
	if j.Name == "" {
		return eris.New("pipeline: job name is required")
	}
	if len(j.Sources) == 0 {
		return eris.New("pipeline: job declares no sources")
	}

	seen := make(map[string]bool, len(j.Sources))
	for i, src := range j.Sources {
		if src.Name == "" {
			return eris.Errorf("pipeline: source %d has no name", i)
		}
		if seen[src.Name] {
			return eris.Errorf("pipeline: duplicate source name %q", src.Name)
		}
		seen[src.Name] = true
		if src.Path == "" {
			return eris.Errorf("pipeline: source %q has no path", src.Name)
		}
		switch src.Kind {
		case SourceCSV, SourceXLSX, SourceShapefile, SourceGeoJSON, SourceASCIIGrid:
		default:
			return eris.Errorf("pipeline: source %q has unknown kind %q", src.Name, src.Kind)
		}
	}

	for i, out := range j.Outputs {
		if out.Source == "" {
			return eris.Errorf("pipeline: output %d names no source", i)
		}
		switch out.Kind {
		case SourceGeoJSON, SourceASCIIGrid:
			if out.Path == "" {
				return eris.Errorf("pipeline: output %d has no path", i)
			}
		case "store":
			if out.Name == "" {
				return eris.Errorf("pipeline: store output %d has no name", i)
			}
		default:
			return eris.Errorf("pipeline: output %d has unknown kind %q", i, out.Kind)
		}
	}
	return nil
}

// sourceCRS resolves the CRS of a source, falling back to the job default
// and finally WGS84.
func (j *Job) sourceCRS(src Source) crs.ID {
	if src.CRS != "" {
		return crs.ID(src.CRS)
	}
	if j.CRS != "" {
		return crs.ID(j.CRS)
	}
	return crs.WGS84
}

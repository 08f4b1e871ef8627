package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/atlasgrid/geopipe/internal/config"
	"github.com/atlasgrid/geopipe/internal/crs"
	"github.com/atlasgrid/geopipe/internal/feature"
	"github.com/atlasgrid/geopipe/internal/raster"
	"github.com/atlasgrid/geopipe/internal/spatial"
	"github.com/atlasgrid/geopipe/internal/store"
	"github.com/atlasgrid/geopipe/internal/table"
	"github.com/atlasgrid/geopipe/internal/vector"
)

// StepResult records the outcome of one executed step.
type StepResult struct {
	Op       string        `json:"op"`
	Output   string        `json:"output,omitempty"`
	Features int           `json:"features,omitempty"`
	Duration time.Duration `json:"duration"`
}

// RunResult summarizes a completed job.
type RunResult struct {
	RunID    string        `json:"run_id"`
	Job      string        `json:"job"`
	Steps    []StepResult  `json:"steps"`
	Duration time.Duration `json:"duration"`
}

// Runner executes jobs. The store is optional; jobs with "store" outputs
// fail without one.
type Runner struct {
	cfg   *config.Config
	store store.Store

	collections map[string]*feature.Collection
	grids       map[string]*raster.Grid
}

// NewRunner creates a Runner. st may be nil when no job output targets the
// feature store.
func NewRunner(cfg *config.Config, st store.Store) *Runner {
	return &Runner{
		cfg:         cfg,
		store:       st,
		collections: make(map[string]*feature.Collection),
		grids:       make(map[string]*raster.Grid),
	}
}

// Run executes a job end to end: sources load concurrently, steps run in
// order, outputs are written last.
func (r *Runner) Run(ctx context.Context, job *Job) (*RunResult, error) {
	runID := uuid.NewString()
	log := zap.L().With(zap.String("component", "pipeline"),
		zap.String("run_id", runID), zap.String("job", job.Name))
	log.Info("pipeline: starting job",
		zap.Int("sources", len(job.Sources)), zap.Int("steps", len(job.Steps)))

	start := time.Now()
	result := &RunResult{RunID: runID, Job: job.Name}

	if err := r.loadSources(ctx, job, log); err != nil {
		return nil, err
	}

	for i, step := range job.Steps {
		stepStart := time.Now()
		if err := r.runStep(step); err != nil {
			log.Error("pipeline: step failed",
				zap.Int("step", i), zap.String("op", step.Op), zap.Error(err))
			return nil, eris.Wrapf(err, "pipeline: step %d (%s)", i, step.Op)
		}

		sr := StepResult{Op: step.Op, Output: step.Output, Duration: time.Since(stepStart)}
		if c, ok := r.collections[step.Output]; ok {
			sr.Features = c.Len()
		}
		result.Steps = append(result.Steps, sr)
		log.Info("pipeline: step complete",
			zap.Int("step", i), zap.String("op", step.Op),
			zap.Int("features", sr.Features), zap.Duration("duration", sr.Duration))
	}

	for i, out := range job.Outputs {
		if err := r.writeOutput(ctx, out); err != nil {
			return nil, eris.Wrapf(err, "pipeline: output %d", i)
		}
	}

	result.Duration = time.Since(start)
	log.Info("pipeline: job complete", zap.Duration("duration", result.Duration))
	return result, nil
}

// Collection returns a named collection produced by the job, for callers
// that inspect results after Run.
func (r *Runner) Collection(name string) (*feature.Collection, bool) {
	c, ok := r.collections[name]
	return c, ok
}

// Grid returns a named grid produced by the job.
func (r *Runner) Grid(name string) (*raster.Grid, bool) {
	g, ok := r.grids[name]
	return g, ok
}

func (r *Runner) loadSources(ctx context.Context, job *Job, log *zap.Logger) error {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(4)

	type loaded struct {
		name string
		coll *feature.Collection
		grid *raster.Grid
	}
	results := make(chan loaded, len(job.Sources))

	for _, src := range job.Sources {
		g.Go(func() error {
			var l loaded
			l.name = src.Name
			var err error

			switch src.Kind {
			case SourceCSV, SourceXLSX:
				l.coll, err = r.loadTabular(job, src)
			case SourceShapefile:
				l.coll, err = vector.ReadShapefile(src.Path, vector.ShapefileOptions{
					CRS:      job.sourceCRS(src),
					Encoding: src.Encoding,
				})
			case SourceGeoJSON:
				l.coll, err = vector.ReadGeoJSONFile(src.Path, job.sourceCRS(src))
			case SourceASCIIGrid:
				l.grid, err = raster.ReadASCII(src.Path, job.sourceCRS(src))
			}
			if err != nil {
				return eris.Wrapf(err, "pipeline: load source %q", src.Name)
			}

			results <- l
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	close(results)

	for l := range results {
		if l.coll != nil {
			r.collections[l.name] = l.coll
			log.Info("pipeline: source loaded",
				zap.String("source", l.name), zap.Int("features", l.coll.Len()))
		} else {
			r.grids[l.name] = l.grid
			log.Info("pipeline: source loaded",
				zap.String("source", l.name),
				zap.Int("width", l.grid.Width), zap.Int("height", l.grid.Height))
		}
	}
	return nil
}

func (r *Runner) loadTabular(job *Job, src Source) (*feature.Collection, error) {
	var t *table.Table
	var err error
	switch src.Kind {
	case SourceCSV:
		t, err = table.ReadCSV(src.Path, table.CSVOptions{})
	case SourceXLSX:
		t, err = table.ReadXLSX(src.Path, table.XLSXOptions{SheetName: src.Sheet})
	}
	if err != nil {
		return nil, err
	}

	opts := feature.BuildOptions{
		LonColumn: src.LonColumn,
		LatColumn: src.LatColumn,
		CRS:       job.sourceCRS(src),
	}
	if opts.LonColumn == "" {
		opts.LonColumn = r.cfg.Defaults.LonColumn
	}
	if opts.LatColumn == "" {
		opts.LatColumn = r.cfg.Defaults.LatColumn
	}

	if src.Lenient {
		c, errs := feature.BuildLenient(t, opts)
		if len(errs) > 0 {
			zap.L().Warn("pipeline: skipped malformed records",
				zap.String("source", src.Name), zap.Int("skipped", len(errs)))
		}
		return c, nil
	}
	return feature.Build(t, opts)
}

func (r *Runner) runStep(step Step) error {
	switch step.Op {
	case "reproject":
		return r.stepReproject(step)
	case "join":
		return r.stepJoin(step)
	case "filter_attr":
		return r.stepFilterAttr(step)
	case "filter_intersects":
		return r.stepFilterIntersects(step)
	case "clip":
		return r.stepClip(step)
	case "sample":
		return r.stepSample(step)
	case "union":
		return r.stepUnion(step)
	case "buffer":
		return r.stepBuffer(step)
	case "clip_raster":
		return r.stepClipRaster(step)
	default:
		return eris.Errorf("unknown op %q", step.Op)
	}
}

func (r *Runner) collection(name string) (*feature.Collection, error) {
	c, ok := r.collections[name]
	if !ok {
		return nil, eris.Errorf("no collection named %q", name)
	}
	return c, nil
}

func (r *Runner) grid(name string) (*raster.Grid, error) {
	g, ok := r.grids[name]
	if !ok {
		return nil, eris.Errorf("no grid named %q", name)
	}
	return g, nil
}

func outName(step Step, fallback string) string {
	if step.Output != "" {
		return step.Output
	}
	return fallback
}

// stepReproject handles both collections and grids; the input name decides
// which.
func (r *Runner) stepReproject(step Step) error {
	to := crs.ID(step.To)
	if c, ok := r.collections[step.Input]; ok {
		out, err := c.Reproject(to)
		if err != nil {
			return err
		}
		r.collections[outName(step, step.Input)] = out
		return nil
	}
	if g, ok := r.grids[step.Input]; ok {
		out, err := g.Reproject(to)
		if err != nil {
			return err
		}
		r.grids[outName(step, step.Input)] = out
		return nil
	}
	return eris.Errorf("no dataset named %q", step.Input)
}

func (r *Runner) stepJoin(step Step) error {
	left, err := r.collection(step.Left)
	if err != nil {
		return err
	}
	right, err := r.collection(step.Right)
	if err != nil {
		return err
	}

	kind := spatial.LeftJoin
	if step.Kind == "inner" {
		kind = spatial.InnerJoin
	}
	out, err := spatial.Join(left, right, kind)
	if err != nil {
		return err
	}
	r.collections[outName(step, step.Left)] = out
	return nil
}

func (r *Runner) stepFilterAttr(step Step) error {
	c, err := r.collection(step.Input)
	if err != nil {
		return err
	}
	out, err := c.FilterAttr(step.Column, feature.Op(step.Cmp), step.Value)
	if err != nil {
		return err
	}
	r.collections[outName(step, step.Input)] = out
	return nil
}

func (r *Runner) stepFilterIntersects(step Step) error {
	c, err := r.collection(step.Input)
	if err != nil {
		return err
	}
	mask, err := r.collection(step.Mask)
	if err != nil {
		return err
	}
	out, err := spatial.FilterIntersects(c, mask)
	if err != nil {
		return err
	}
	r.collections[outName(step, step.Input)] = out
	return nil
}

func (r *Runner) stepClip(step Step) error {
	c, err := r.collection(step.Input)
	if err != nil {
		return err
	}
	mask, err := r.collection(step.Mask)
	if err != nil {
		return err
	}
	out, err := spatial.Clip(c, mask)
	if err != nil {
		return err
	}
	r.collections[outName(step, step.Input)] = out
	return nil
}

func (r *Runner) stepSample(step Step) error {
	c, err := r.collection(step.Input)
	if err != nil {
		return err
	}
	g, err := r.grid(step.Grid)
	if err != nil {
		return err
	}

	values, err := g.SampleCollection(c)
	if err != nil {
		return err
	}

	attr := step.Attr
	if attr == "" {
		attr = step.Grid
	}
	out := feature.NewCollection(c.CRS)
	out.Features = make([]feature.Feature, len(c.Features))
	for i, f := range c.Features {
		attrs := f.CloneAttrs()
		attrs[attr] = values[i]
		out.Features[i] = feature.Feature{Geometry: f.Geometry, Attrs: attrs}
	}
	r.collections[outName(step, step.Input)] = out
	return nil
}

func (r *Runner) stepUnion(step Step) error {
	c, err := r.collection(step.Input)
	if err != nil {
		return err
	}
	merged, err := spatial.Union(c)
	if err != nil {
		return err
	}
	out := feature.NewCollection(c.CRS)
	out.Features = []feature.Feature{{Geometry: merged, Attrs: map[string]any{}}}
	r.collections[outName(step, step.Input)] = out
	return nil
}

func (r *Runner) stepBuffer(step Step) error {
	c, err := r.collection(step.Input)
	if err != nil {
		return err
	}
	out := feature.NewCollection(c.CRS)
	out.Features = make([]feature.Feature, len(c.Features))
	for i, f := range c.Features {
		buffered, err := spatial.Buffer(f.Geometry, step.Distance, c.CRS)
		if err != nil {
			return eris.Wrapf(err, "feature %d", i)
		}
		out.Features[i] = feature.Feature{Geometry: buffered, Attrs: f.CloneAttrs()}
	}
	r.collections[outName(step, step.Input)] = out
	return nil
}

func (r *Runner) stepClipRaster(step Step) error {
	g, err := r.grid(step.Grid)
	if err != nil {
		return err
	}
	mask, err := r.collection(step.Mask)
	if err != nil {
		return err
	}
	merged, err := spatial.Union(mask)
	if err != nil {
		return err
	}
	out, err := g.Clip(merged, mask.CRS)
	if err != nil {
		return err
	}
	r.grids[outName(step, step.Grid)] = out
	return nil
}

func (r *Runner) writeOutput(ctx context.Context, out Output) error {
	switch out.Kind {
	case SourceGeoJSON:
		c, err := r.collection(out.Source)
		if err != nil {
			return err
		}
		return vector.WriteGeoJSONFile(out.Path, c)

	case SourceASCIIGrid:
		g, err := r.grid(out.Source)
		if err != nil {
			return err
		}
		f, err := os.Create(out.Path)
		if err != nil {
			return eris.Wrapf(err, "create %s", out.Path)
		}
		defer func() { _ = f.Close() }()
		return raster.WriteASCII(f, g)

	case "store":
		if r.store == nil {
			return eris.New("no feature store configured")
		}
		c, err := r.collection(out.Source)
		if err != nil {
			return err
		}
		return r.store.SaveCollection(ctx, out.Name, c)
	}
	return eris.Errorf("unknown output kind %q", out.Kind)
}

package index

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"sc2affordance/internal/encoder"
	"sc2affordance/internal/generator"
	"sc2affordance/internal/graph"
	"sc2affordance/internal/prefab"
	"sc2affordance/internal/unitdata"
)

// ErrNoUnits is returned when the catalog yields nothing to build from.
var ErrNoUnits = errors.New("no unit definitions found")

// Options controls one library build.
type Options struct {
	UnitDir   string
	OutputDir string
	// Race limits the build to one race; empty builds every race.
	Race string
	// SchemaPath overrides the embedded prefab schema.
	SchemaPath string
}

// Result holds what a build produced and where it was written.
type Result struct {
	Graph      *graph.Graph
	Functions  []*prefab.Function
	GraphPath  string
	PrefabPath string
	ReportPath string
	Report     *generator.BuildReport
}

// Indexer orchestrates the catalog -> linkage graph -> prefab library build.
type Indexer struct {
	logger *zap.Logger
	loader *unitdata.Loader
}

// NewIndexer creates a new indexer.
func NewIndexer(logger *zap.Logger, devMode bool) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{
		logger: logger.Named("indexer"),
		loader: unitdata.NewLoader(logger, devMode),
	}
}

// ArtifactPaths returns the graph, prefab and report paths for a race.
func ArtifactPaths(outputDir, race string) (graphPath, prefabPath, reportPath string) {
	prefix := strings.ToLower(strings.TrimSpace(race))
	if prefix == "" {
		prefix = "all"
	}
	return filepath.Join(outputDir, prefix+"_linkage_graph.json"),
		filepath.Join(outputDir, prefix+"_prefab_functions.json"),
		filepath.Join(outputDir, prefix+"_build_report.json")
}

// Build loads the unit catalog, discovers linkages, encodes prefab functions
// and writes the graph, the library and a build report to opts.OutputDir.
// The report is saved even when a stage fails.
func (i *Indexer) Build(ctx context.Context, opts Options) (res *Result, err error) {
	race := ""
	if opts.Race != "" {
		r, ok := unitdata.NormalizeRace(opts.Race)
		if !ok {
			return nil, fmt.Errorf("unknown race %q", opts.Race)
		}
		race = r
	}

	res = &Result{Report: generator.NewBuildReport(strings.ToLower(race), opts.OutputDir)}
	res.GraphPath, res.PrefabPath, res.ReportPath = ArtifactPaths(opts.OutputDir, race)
	defer func() {
		if saveErr := res.Report.Save(res.ReportPath); saveErr != nil {
			i.logger.Error("failed to save build report", zap.String("path", res.ReportPath), zap.Error(saveErr))
		}
	}()

	i.logger.Info("starting build",
		zap.String("unit_dir", opts.UnitDir),
		zap.String("output_dir", opts.OutputDir),
		zap.String("race", race))

	// 1. Load unit catalog
	stage := res.Report.BeginStage("load_units")
	defs, err := i.loader.LoadDir(opts.UnitDir)
	if err == nil {
		defs = filterRace(defs, race)
		if len(defs) == 0 {
			err = fmt.Errorf("%w in %s", ErrNoUnits, opts.UnitDir)
		}
	}
	stage.Count("units", len(defs)).End(err)
	if err != nil {
		res.Report.Flag(generator.SeverityCritical, "load_units", "no_units", err.Error(), 0)
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	// 2. Build graph and run every traversal phase
	stage = res.Report.BeginStage("traverse")
	g := graph.NewGraph(i.logger)
	stage.Count("nodes", g.BuildFromNodes(unitdata.Nodes(defs)))
	for phase, edges := range g.ExecuteFullTraversal() {
		stage.Count(phase.String(), len(edges))
	}
	stage.Count("edges", g.EdgeCount()).End(nil)
	res.Graph = g
	if g.EdgeCount() == 0 {
		res.Report.Flag(generator.SeverityWarning, "traverse", "no_linkages",
			"traversal discovered no linkages between the loaded units", 0)
	}
	for _, id := range g.NodeIDs() {
		if g.Degree(id) == 0 {
			res.Report.Flag(generator.SeverityInfo, "traverse", "isolated_unit", id+" has no linkages", 0)
		}
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	// 3. Encode prefab functions
	stage = res.Report.BeginStage("encode")
	fns := encoder.New(i.logger).Encode(g)
	invalid := 0
	validator, err := prefab.NewValidator(opts.SchemaPath)
	if err == nil {
		for _, fn := range fns {
			if vErr := validator.Validate(fn); vErr != nil {
				invalid++
				i.logger.Warn("encoded function failed validation",
					zap.String("function_id", fn.FunctionID), zap.Error(vErr))
			}
		}
	}
	stage.Count("functions", len(fns)).Count("invalid", invalid).End(err)
	if err != nil {
		return res, err
	}
	if invalid > 0 {
		res.Report.Flag(generator.SeverityWarning, "encode", "invalid_functions",
			fmt.Sprintf("%d encoded functions fail the library schema", invalid), float64(invalid))
	}
	res.Functions = fns

	// 4. Write artifacts
	stage = res.Report.BeginStage("export")
	if !g.ExportJSON(res.GraphPath) {
		err = fmt.Errorf("failed to export graph to %s", res.GraphPath)
	} else {
		err = prefab.SaveFile(res.PrefabPath, fns)
	}
	stage.End(err)
	if err != nil {
		return res, err
	}
	res.Report.AddArtifact("linkage_graph", res.GraphPath, g.NodeCount()+g.EdgeCount())
	res.Report.AddArtifact("prefab_functions", res.PrefabPath, len(fns))

	i.logger.Info("build finished",
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", g.EdgeCount()),
		zap.Int("functions", len(fns)))
	return res, nil
}

func filterRace(defs []*unitdata.Definition, race string) []*unitdata.Definition {
	if race == "" {
		return defs
	}
	var out []*unitdata.Definition
	for _, d := range defs {
		if r, _ := unitdata.NormalizeRace(d.Race); r == race {
			out = append(out, d)
		}
	}
	return out
}

// LoadGraph loads a graph exported by Build.
func LoadGraph(logger *zap.Logger, path string) (*graph.Graph, error) {
	g := graph.NewGraph(logger)
	if !g.LoadJSON(path) {
		return nil, fmt.Errorf("failed to load graph from %s", path)
	}
	return g, nil
}

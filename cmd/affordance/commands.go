package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sc2affordance/internal/analysis"
	"sc2affordance/internal/gamestate"
	"sc2affordance/internal/generator"
	"sc2affordance/internal/handler"
	"sc2affordance/internal/index"
	"sc2affordance/internal/monitor"
	"sc2affordance/internal/prefab"
	"sc2affordance/internal/retrieval"
)

var (
	buildRace   string
	buildOutDir string

	pathDepth    int
	neighborHops int
	mermaidMax   int
	mermaidOut   string

	adviseK          int
	adviseMonitorOut string
)

func init() {
	buildCmd.Flags().StringVarP(&buildRace, "race", "r", "", "Limit the build to one race (default: game.default_race, \"all\" for every race)")
	buildCmd.Flags().StringVarP(&buildOutDir, "out", "o", "build", "Directory for the generated artifacts")

	pathCmd.Flags().IntVar(&pathDepth, "depth", 5, "Maximum path length")
	neighborsCmd.Flags().IntVar(&neighborHops, "hops", retrieval.DefaultConfig().MaxHops, "Maximum hop distance")

	mermaidCmd.Flags().IntVar(&mermaidMax, "max-edges", generator.DefaultMaxEdges, "Keep only the most confident edges (0 keeps all)")
	mermaidCmd.Flags().StringVarP(&mermaidOut, "out", "o", "", "Write the diagram to a file instead of stdout")

	adviseCmd.Flags().IntVarP(&adviseK, "top", "k", 0, "Number of tactics to select (default: handler.top_k)")
	adviseCmd.Flags().StringVar(&adviseMonitorOut, "monitor", "", "Export the monitor summary to this JSON file")
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the linkage graph and prefab function library from the unit catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		race := buildRace
		switch {
		case race == "":
			race = cfg.Game.DefaultRace
		case strings.EqualFold(race, "all"):
			race = ""
		}

		fmt.Printf("📂 Loading unit catalog: %s\n", cfg.Data.Dir)
		start := time.Now()
		ix := index.NewIndexer(logger, cfg.Game.DevMode)
		res, err := ix.Build(cmd.Context(), index.Options{
			UnitDir:    cfg.Data.Dir,
			OutputDir:  buildOutDir,
			Race:       race,
			SchemaPath: cfg.Data.SchemaPath,
		})
		if err != nil {
			if res != nil {
				fmt.Printf("📝 Build report: %s\n", res.ReportPath)
			}
			return fmt.Errorf("build failed: %w", err)
		}

		fmt.Printf("✅ Built in %v: %d units, %d linkages, %d prefab functions\n",
			time.Since(start).Round(time.Millisecond), res.Graph.NodeCount(), res.Graph.EdgeCount(), len(res.Functions))
		fmt.Printf("  -> graph:   %s\n", res.GraphPath)
		fmt.Printf("  -> library: %s\n", res.PrefabPath)
		fmt.Printf("  -> report:  %s\n", res.ReportPath)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print linkage graph and prefab library statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGraph()
		if err != nil {
			return err
		}
		out := map[string]any{"graph": g.Stats()}

		hubs := analysis.NewAnalyzer(g).Hubs(5)
		top := make([]map[string]any, len(hubs))
		for i, h := range hubs {
			top[i] = map[string]any{"unit": h.Node.NodeID, "degree": h.Degree, "by_type": h.ByType}
		}
		out["hubs"] = top

		if m, err := loadLibrary(""); err != nil {
			logger.Warn("prefab library unavailable", zap.Error(err))
		} else {
			out["library"] = m.Statistics()
			if problems := m.ValidateConsistency(); len(problems) > 0 {
				out["inconsistent_functions"] = problems
			}
		}
		return printJSON(out)
	},
}

var pathCmd = &cobra.Command{
	Use:   "path <from> <to>",
	Short: "Find the shortest linkage path between two units",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGraph()
		if err != nil {
			return err
		}
		var ends [2]string
		for i, ref := range args {
			ids, _ := retrieval.ResolveSeeds(g, []string{ref})
			if len(ids) == 0 {
				return fmt.Errorf("unknown unit %q", ref)
			}
			// a bare class name may exist for several races; take the first
			ends[i] = ids[0]
		}
		edges, ok := g.FindPath(ends[0], ends[1], pathDepth)
		if !ok {
			fmt.Printf("No path between %s and %s within %d hops.\n", ends[0], ends[1], pathDepth)
			return nil
		}
		fmt.Printf("🔗 %s -> %s (%d hops)\n", ends[0], ends[1], len(edges))
		for _, e := range edges {
			fmt.Printf("  %s\n", e)
		}
		return nil
	},
}

var neighborsCmd = &cobra.Command{
	Use:   "neighbors <unit>...",
	Short: "Show the linkage neighborhood of one or more units",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGraph()
		if err != nil {
			return err
		}
		rc := retrieval.DefaultConfig()
		rc.MaxHops = neighborHops
		sg := retrieval.Extract(g, args, rc)
		if len(sg.Unresolved) > 0 {
			logger.Warn("unresolved units", zap.Strings("units", sg.Unresolved))
		}
		for _, id := range sg.Ranked() {
			fmt.Printf("  %-24s %.3f\n", id, sg.NodeScores[id])
		}
		return nil
	},
}

var impactCmd = &cobra.Command{
	Use:   "impact <unit>...",
	Short: "List the units that lose support when the given units are lost",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGraph()
		if err != nil {
			return err
		}
		ids, unresolved := retrieval.ResolveSeeds(g, args)
		if len(unresolved) > 0 {
			return fmt.Errorf("unknown unit(s): %s", strings.Join(unresolved, ", "))
		}
		report, err := analysis.NewAnalyzer(g).AnalyzeImpact(ids)
		if err != nil {
			return err
		}
		fmt.Printf("🔍 %d units directly affected\n", len(report.DirectlyAffected))
		fmt.Printf("  -> %d units indirectly affected (dependents)\n", len(report.IndirectlyAffected))
		for _, n := range report.IndirectlyAffected {
			fmt.Printf("     %s\n", n.NodeID)
		}
		return nil
	},
}

var mermaidCmd = &cobra.Command{
	Use:   "mermaid",
	Short: "Render the linkage graph as a Mermaid diagram",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGraph()
		if err != nil {
			return err
		}
		gen := &generator.MermaidGenerator{}
		doc := gen.GenerateLinkageDiagram(g.Nodes(), g.Edges(), mermaidMax) + "\n" +
			gen.GenerateLinkageSummary(g.LinkageSummary())
		if mermaidOut == "" {
			fmt.Print(doc)
			return nil
		}
		if err := os.WriteFile(mermaidOut, []byte(doc), 0o644); err != nil {
			return fmt.Errorf("failed to write diagram: %w", err)
		}
		fmt.Printf("✅ Diagram written to %s\n", mermaidOut)
		return nil
	},
}

var adviseCmd = &cobra.Command{
	Use:   "advise <observation.json>",
	Short: "Select prefab tactics for an observation and print the prompt block",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		obs, err := gamestate.LoadObservation(args[0])
		if err != nil {
			return err
		}
		m, err := loadLibrary("")
		if err != nil {
			return err
		}

		mon := monitor.New(logger)
		h := handler.New(m, mon, logger, handler.Options{
			DefaultRace:   cfg.Game.DefaultRace,
			HistoryWindow: cfg.Handler.HistoryWindow,
			SuccessWindow: cfg.Handler.SuccessWindow,
		})
		k := adviseK
		if k <= 0 {
			k = cfg.Handler.TopK
		}

		d := h.Tick(obs, k)
		logger.Info("tick finished",
			zap.Int("step", obs.Step),
			zap.Int("candidates", d.Candidates),
			zap.Int("selected", len(d.Selected)))
		if len(d.Selected) == 0 {
			fmt.Println("No applicable tactics for this observation.")
		} else {
			fmt.Print(d.Prompt)
		}

		if adviseMonitorOut != "" {
			if err := mon.Export(adviseMonitorOut); err != nil {
				return err
			}
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [library.json]",
	Short: "Validate a prefab function library against the schema",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Data.PrefabPath
		if len(args) > 0 {
			path = args[0]
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read library: %w", err)
		}
		var records []any
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("failed to decode library: %w", err)
		}

		v, err := prefab.NewValidator(cfg.Data.SchemaPath)
		if err != nil {
			return err
		}
		failed := 0
		for i, rec := range records {
			if err := v.ValidateRaw(rec); err != nil {
				failed++
				fmt.Printf("❌ record %d: %v\n", i, err)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d records failed validation", failed, len(records))
		}
		fmt.Printf("✅ %d records valid\n", len(records))
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"shotsmith/internal/config"
	"shotsmith/internal/enrich"
	"shotsmith/internal/pipeline"
	"shotsmith/internal/refdata"
	"shotsmith/internal/slotfill"
	"shotsmith/internal/vbs"
)

var (
	beatEnrichOnly bool
	beatJSON       bool
)

// beatCmd compiles a single beat from a beat file. Useful for tuning
// reference data without running a whole script.
var beatCmd = &cobra.Command{
	Use:   "beat <beat.yaml>",
	Short: "Compile a single beat, or dump its enriched spec",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(workspace, configPath)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read beat file: %w", err)
		}
		var in vbs.BeatInput
		if err := yaml.Unmarshal(data, &in); err != nil {
			return fmt.Errorf("parse beat file %s: %w", args[0], err)
		}

		library, err := refdata.LoadFileLibrary(cfg.RefData)
		if err != nil {
			return fmt.Errorf("load reference data: %w", err)
		}
		builder := enrich.NewBuilder(library)
		builder.SetBudgetPolicy(cfg.Budget)

		if beatEnrichOnly {
			partial, warnings := builder.Build(in, vbs.PersistentState{}, nil)
			for _, w := range warnings {
				fmt.Fprintln(os.Stderr, warnStyle.Render(fmt.Sprintf("! %s: %s", w.Kind, w.Detail)))
			}
			return dumpJSON(partial)
		}

		// Single-beat runs stay offline; the model only earns its keep
		// across a scene's worth of context.
		runner := pipeline.New(builder, slotfill.NewFiller(nil, 0), pipeline.Options{})
		res := runner.RunBeat(cmd.Context(), in, vbs.PersistentState{}, nil)

		if beatJSON {
			return dumpJSON(res)
		}
		printResults([]*pipeline.SceneResult{{Scene: in.SceneNumber, Beats: []*pipeline.BeatResult{res}}})
		return nil
	},
}

func init() {
	beatCmd.Flags().BoolVar(&beatEnrichOnly, "enrich-only", false, "stop after enrichment and dump the partial spec")
	beatCmd.Flags().BoolVar(&beatJSON, "json", false, "emit the full result as JSON")
}

func dumpJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

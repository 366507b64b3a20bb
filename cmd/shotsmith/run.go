package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"shotsmith/internal/audit"
	"shotsmith/internal/compile"
	"shotsmith/internal/config"
	"shotsmith/internal/enrich"
	"shotsmith/internal/llm"
	"shotsmith/internal/logging"
	"shotsmith/internal/pipeline"
	"shotsmith/internal/refdata"
	"shotsmith/internal/slotfill"
)

var (
	runOffline bool
	runStrict  bool

	sceneStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	beatStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	reviewStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).PaddingLeft(2)
)

// sceneScript is the YAML shape of a scene script file.
type sceneScript struct {
	Scenes []pipeline.Scene `yaml:"scenes"`
}

var runCmd = &cobra.Command{
	Use:   "run <script.yaml>",
	Short: "Compile every beat in a scene script to image prompts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
		defer cancelTimeout()

		cfg, err := config.Load(workspace, configPath)
		if err != nil {
			return err
		}
		if runStrict {
			cfg.Strict = true
		}
		if err := logging.Initialize(workspace, cfg.Logging); err != nil {
			logger.Warn("file logging unavailable", zap.Error(err))
		}

		runner, store, err := buildRunner(ctx, cfg)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}

		script, err := loadScript(args[0])
		if err != nil {
			return err
		}

		start := time.Now()
		results, err := runner.RunScenes(ctx, script.Scenes, cfg.SceneConcurrency)
		if err != nil {
			return err
		}

		printResults(results)
		fmt.Printf("\n%d scene(s) in %s\n", len(results), time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runOffline, "offline", false, "skip the model and use the deterministic fallback only")
	runCmd.Flags().BoolVar(&runStrict, "strict", false, "fail on beats with unresolved issues")
}

// buildRunner wires the pipeline from config: reference data, model
// client, budget policy and the optional audit store.
func buildRunner(ctx context.Context, cfg config.Config) (*pipeline.Runner, *audit.Store, error) {
	library, err := refdata.LoadFileLibrary(cfg.RefData)
	if err != nil {
		return nil, nil, fmt.Errorf("load reference data: %w", err)
	}
	if cfg.WatchRefData {
		if err := library.Watch(ctx); err != nil {
			logger.Warn("refdata watch unavailable", zap.Error(err))
		}
	}

	var client llm.Client
	if !runOffline && !cfg.LLM.Disabled {
		client, err = llm.NewClient(ctx, cfg.LLM.ProviderConfig())
		if err != nil {
			logger.Warn("model client unavailable, using fallback", zap.Error(err))
			client = nil
		}
	}
	filler := slotfill.NewFiller(client, time.Duration(cfg.LLM.TimeoutSeconds)*time.Second)

	builder := enrich.NewBuilder(library)
	builder.SetBudgetPolicy(cfg.Budget)

	opts := pipeline.Options{Strict: cfg.Strict}
	var store *audit.Store
	if cfg.AuditDB != "" {
		store, err = audit.Open(cfg.AuditDB)
		if err != nil {
			return nil, nil, fmt.Errorf("open audit store: %w", err)
		}
		opts.Audit = store
	}

	return pipeline.New(builder, filler, opts), store, nil
}

func loadScript(path string) (*sceneScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	var script sceneScript
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parse script %s: %w", path, err)
	}
	if len(script.Scenes) == 0 {
		return nil, fmt.Errorf("script %s has no scenes", path)
	}
	return &script, nil
}

func printResults(results []*pipeline.SceneResult) {
	for _, scene := range results {
		fmt.Println(sceneStyle.Render(fmt.Sprintf("Scene %d", scene.Scene)))
		for _, beat := range scene.Beats {
			header := fmt.Sprintf("%s  [%s, %d/%d tokens]",
				beat.BeatID, beat.Route,
				compile.EstimateTokens(beat.Prompt), beat.Final.Constraints.Budget.Total)
			if beat.NeedsReview() {
				header += "  " + reviewStyle.Render("NEEDS REVIEW")
			}
			fmt.Println(beatStyle.Render(header))
			fmt.Println(promptStyle.Render(beat.Prompt))
			for _, w := range beat.Warnings {
				fmt.Println(warnStyle.Render("  ! " + w))
			}
		}
		fmt.Println()
	}
}

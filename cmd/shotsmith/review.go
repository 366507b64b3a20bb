package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shotsmith/internal/audit"
	"shotsmith/internal/config"
)

var reviewBeatID string

// reviewCmd lists audited beats whose repair loop could not resolve
// every issue.
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "List beats flagged for manual review in the audit trail",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(workspace, configPath)
		if err != nil {
			return err
		}
		if cfg.AuditDB == "" {
			return fmt.Errorf("no audit_db configured; nothing to review")
		}

		store, err := audit.Open(cfg.AuditDB)
		if err != nil {
			return err
		}
		defer store.Close()

		var entries []audit.Entry
		if reviewBeatID != "" {
			entries, err = store.BeatHistory(cmd.Context(), reviewBeatID)
		} else {
			entries, err = store.ReviewQueue(cmd.Context())
		}
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("nothing to review")
			return nil
		}

		for _, e := range entries {
			header := fmt.Sprintf("%s  scene %d  run %s  %s",
				e.BeatID, e.SceneNumber, e.RunID, e.RecordedAt.Format("2006-01-02 15:04"))
			if e.NeedsReview {
				header += "  " + reviewStyle.Render("NEEDS REVIEW")
			}
			if e.FellBack {
				header += "  " + warnStyle.Render("(fallback fill)")
			}
			fmt.Println(beatStyle.Render(header))
			fmt.Println(promptStyle.Render(e.Prompt))
		}
		return nil
	},
}

func init() {
	reviewCmd.Flags().StringVar(&reviewBeatID, "beat", "", "show the full run history for one beat")
}

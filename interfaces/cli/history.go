package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/domguard/application"
	"github.com/felixgeelhaar/domguard/domain/dispatch"
)

type historyListOptions struct {
	source      string
	successOnly bool
	failedOnly  bool
	since       time.Duration
	limit       int
	jsonOutput  bool
}

func (a *App) newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and export recorded dispatch outcomes",
		Long: `Inspect and export recorded dispatch outcomes.

History requires a sqlite or memory reporter in the configuration; only
sqlite persists across invocations.`,
	}
	cmd.AddCommand(a.newHistoryListCmd(), a.newHistoryExportCmd())
	return cmd
}

func (a *App) newHistoryListCmd() *cobra.Command {
	opts := &historyListOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded outcomes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.buildRuntime(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.closeRuntime(rt)

			if rt.HistoryService == nil {
				return application.ErrNoHistory
			}

			filter := dispatch.ListFilter{
				Source:      dispatch.Source(opts.source),
				SuccessOnly: opts.successOnly,
				FailedOnly:  opts.failedOnly,
				Limit:       opts.limit,
			}
			if opts.since > 0 {
				filter.Since = time.Now().Add(-opts.since)
			}

			records, err := rt.HistoryService.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				if records == nil {
					records = []dispatch.Record{}
				}
				return a.printJSON(records)
			}

			if len(records) == 0 {
				_, _ = fmt.Fprintln(a.stdout, "No recorded outcomes.")
				return nil
			}
			for _, r := range records {
				status := "ok"
				if !r.Success {
					status = "FAILED"
				}
				_, _ = fmt.Fprintf(a.stdout, "%-5d %s  %-15s %-6s %-20s %s\n",
					r.ID, r.Timestamp.Format(time.RFC3339), r.Source, status, r.ActionID, r.Command)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.source, "source", "", "Filter by source (generated, client-fallback, error)")
	cmd.Flags().BoolVar(&opts.successOnly, "success", false, "Only successful outcomes")
	cmd.Flags().BoolVar(&opts.failedOnly, "failed", false, "Only failed outcomes")
	cmd.MarkFlagsMutuallyExclusive("success", "failed")
	cmd.Flags().DurationVar(&opts.since, "since", 0, "Only outcomes newer than this (e.g. 24h)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "Maximum number of records (0 = all)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func (a *App) newHistoryExportCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a recorded outcome as a Tampermonkey userscript",
		Long: `Export a recorded outcome as a Tampermonkey userscript.

The action is re-derived from the record and rendered from the whitelist;
the stored generated code is never copied into the script.

Examples:
  # Print the script
  domguard history export 3

  # Write script_3_<command>.user.js into ./scripts
  domguard history export 3 -o scripts`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid record id %q", args[0])
			}

			rt, err := a.buildRuntime(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.closeRuntime(rt)

			if rt.HistoryService == nil {
				return application.ErrNoHistory
			}
			script, err := rt.HistoryService.Export(cmd.Context(), id)
			if err != nil {
				return err
			}

			if outputDir == "" {
				_, _ = fmt.Fprint(a.stdout, script.Content)
				return nil
			}

			if err := os.MkdirAll(outputDir, 0o750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			path := filepath.Join(outputDir, script.Filename)
			if err := os.WriteFile(path, []byte(script.Content), 0o600); err != nil {
				return fmt.Errorf("failed to write script: %w", err)
			}
			_, _ = fmt.Fprintf(a.stdout, "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory to write the script into (default: stdout)")
	return cmd
}

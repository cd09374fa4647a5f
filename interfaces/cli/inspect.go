package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/domguard/domain/action"
	"github.com/felixgeelhaar/domguard/domain/classify"
	"github.com/felixgeelhaar/domguard/domain/fallback"
	"github.com/felixgeelhaar/domguard/domain/validate"
)

func (a *App) newActionsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List the action whitelist",
		Long: `List every whitelisted action in classification order.

The last entry is the catch-all that applies when nothing else matches.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			specs := action.DefaultRegistry().List()
			if jsonOutput {
				type entry struct {
					ID          action.ID     `json:"id"`
					Description string        `json:"description"`
					Slot        string        `json:"slot"`
					Default     action.Params `json:"default"`
				}
				out := make([]entry, 0, len(specs))
				for _, s := range specs {
					out = append(out, entry{s.ID, s.Description, s.Slot.String(), s.Default})
				}
				return a.printJSON(out)
			}

			_, _ = fmt.Fprintf(a.stdout, "Actions (%d):\n", len(specs))
			for _, s := range specs {
				_, _ = fmt.Fprintf(a.stdout, "  %-20s %-6s %s\n", s.ID, s.Slot, s.Description)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func (a *App) newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [code|-]",
		Short: "Check generated code against the validation rules",
		Long: `Check generated code against the four validation rules. The code is
never executed.

Exits non-zero when the code is rejected.

Examples:
  domguard validate "document.body.style.fontWeight = 'bold'"
  cat snippet.js | domguard validate -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := a.readArg(args)
			if err != nil {
				return err
			}

			err = validate.New().Validate(code)
			var rej *validate.Rejection
			if errors.As(err, &rej) {
				_, _ = fmt.Fprintf(a.stdout, "rejected: %s\n", rej.Rule)
				if rej.Detail != "" {
					_, _ = fmt.Fprintf(a.stdout, "  %s\n", rej.Detail)
				}
				return err
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(a.stdout, "valid")
			return nil
		},
	}
	return cmd
}

func (a *App) newClassifyCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "classify [code|-]",
		Short: "Map code onto a whitelisted action",
		Long: `Map code onto the first whitelisted action whose signatures match.
Classification is total: unmatched code maps to the catch-all.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := a.readArg(args)
			if err != nil {
				return err
			}

			r := classify.New(action.DefaultRegistry()).Classify(code)
			if jsonOutput {
				return a.printJSON(r)
			}
			_, _ = fmt.Fprintf(a.stdout, "action:    %s\n", r.ActionID)
			_, _ = fmt.Fprintf(a.stdout, "params:    %s\n", formatParams(r.Params))
			_, _ = fmt.Fprintf(a.stdout, "matched:   %t\n", r.Matched)
			_, _ = fmt.Fprintf(a.stdout, "extracted: %t\n", r.Extracted)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func (a *App) newSynthesizeCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "synthesize [command|-]",
		Short: "Derive an action from a command's keywords",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command, err := a.readArg(args)
			if err != nil {
				return err
			}

			r := fallback.New(action.DefaultRegistry()).Synthesize(command)
			if jsonOutput {
				return a.printJSON(r)
			}
			_, _ = fmt.Fprintf(a.stdout, "action: %s\n", r.ActionID)
			_, _ = fmt.Fprintf(a.stdout, "params: %s\n", formatParams(r.Params))
			_, _ = fmt.Fprintf(a.stdout, "intent: %s\n", r.Intent)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func formatParams(p action.Params) string {
	switch {
	case p.Color != "":
		return "color=" + p.Color.String()
	case p.Size != "":
		return "size=" + p.Size.String()
	case p.Label != "":
		return fmt.Sprintf("label=%q", p.Label)
	default:
		return "-"
	}
}

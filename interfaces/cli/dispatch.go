package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	domainconfig "github.com/felixgeelhaar/domguard/domain/config"
	"github.com/felixgeelhaar/domguard/domain/dispatch"
	infraconfig "github.com/felixgeelhaar/domguard/infrastructure/config"
)

// ErrDispatchFailed is returned when a cycle ends without applying an action.
var ErrDispatchFailed = errors.New("dispatch failed")

type dispatchOptions struct {
	command    string
	code       string
	codeFile   string
	source     string
	target     string
	executor   string
	jsonOutput bool
	watch      bool
}

func (a *App) newDispatchCmd() *cobra.Command {
	opts := &dispatchOptions{}

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Run one dispatch cycle against a target",
		Long: `Run one dispatch cycle: validate the generated code, classify it onto a
whitelisted action (or synthesize one from the command) and apply it to the
target.

With the document executor the target is an HTML file; with the browser
executor it is a page URL.

Examples:
  domguard dispatch -m "make buttons red" -t index.html \
    --code "document.querySelectorAll('button').forEach(b => b.style.backgroundColor = 'red')"

  # Keep re-applying the action whenever index.html is regenerated
  domguard dispatch -m "hide images" -t index.html --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDispatch(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.command, "command", "m", "", "Natural-language command (required)")
	cmd.Flags().StringVar(&opts.code, "code", "", "Generated code")
	cmd.Flags().StringVar(&opts.codeFile, "code-file", "", "Read generated code from a file")
	cmd.Flags().StringVar(&opts.source, "source", "", "Claimed source of the code (empty means the primary generator)")
	cmd.Flags().StringVarP(&opts.target, "target", "t", "", "Target handle (required)")
	cmd.Flags().StringVar(&opts.executor, "executor", "", "Executor kind (overrides config)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the outcome as JSON")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Re-apply the action when the target file changes (document executor)")

	_ = cmd.MarkFlagRequired("command")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func (a *App) runDispatch(ctx context.Context, opts *dispatchOptions) error {
	code := opts.code
	if opts.codeFile != "" {
		data, err := os.ReadFile(opts.codeFile)
		if err != nil {
			return fmt.Errorf("failed to read code file: %w", err)
		}
		code = string(data)
	}

	rt, err := a.buildRuntime(ctx, func(c *domainconfig.Config) {
		if opts.executor != "" {
			c.Executor.Kind = opts.executor
		}
	})
	if err != nil {
		return err
	}
	defer a.closeRuntime(rt)

	out, err := rt.Dispatcher.Dispatch(ctx, dispatch.Request{
		Command: opts.command,
		Code:    code,
		Source:  opts.source,
		Target:  opts.target,
	})
	if err != nil {
		return err
	}
	if err := a.printOutcome(out, opts.jsonOutput); err != nil {
		return err
	}
	if !out.Succeeded {
		return fmt.Errorf("%w: %s", ErrDispatchFailed, out.Reason)
	}

	if opts.watch {
		if rt.Document == nil {
			return errors.New("--watch requires the document executor")
		}
		_, _ = fmt.Fprintf(a.stderr, "watching %s (Ctrl-C to stop)\n", opts.target)
		return rt.Document.Watch(ctx, out.ActionID, out.Params, opts.target, nil)
	}
	return nil
}

type runOptions struct {
	target       string
	generatorURL string
	jsonOutput   bool
}

func (a *App) newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [command|-]",
		Short: "Generate code for a command and dispatch it",
		Long: `Fetch generated code for the command from the configured generator and
dispatch it. When the generator is disabled or unreachable the action is
synthesized from the command.

Examples:
  domguard run -t index.html "make the background green"
  domguard run -t index.html --generator http://localhost:8000 "bold everything"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command, err := a.readArg(args)
			if err != nil {
				return err
			}
			return a.runCommand(cmd.Context(), command, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.target, "target", "t", "", "Target handle (required)")
	cmd.Flags().StringVar(&opts.generatorURL, "generator", "", "Generator base URL (enables generation)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the outcome as JSON")

	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func (a *App) runCommand(ctx context.Context, command string, opts *runOptions) error {
	rt, err := a.buildRuntime(ctx, func(c *domainconfig.Config) {
		if opts.generatorURL != "" {
			c.Generator.Enabled = true
			c.Generator.URL = opts.generatorURL
		}
	})
	if err != nil {
		return err
	}
	defer a.closeRuntime(rt)

	out, err := rt.Dispatcher.Run(ctx, command, opts.target)
	if err != nil {
		return err
	}
	if err := a.printOutcome(out, opts.jsonOutput); err != nil {
		return err
	}
	if !out.Succeeded {
		return fmt.Errorf("%w: %s", ErrDispatchFailed, out.Reason)
	}
	return nil
}

func (a *App) printOutcome(out dispatch.Outcome, jsonOutput bool) error {
	if jsonOutput {
		return a.printJSON(out)
	}

	_, _ = fmt.Fprintf(a.stdout, "cycle:    %s\n", out.CycleID)
	_, _ = fmt.Fprintf(a.stdout, "action:   %s\n", out.ActionID)
	_, _ = fmt.Fprintf(a.stdout, "params:   %s\n", formatParams(out.Params))
	_, _ = fmt.Fprintf(a.stdout, "source:   %s\n", out.Source)
	_, _ = fmt.Fprintf(a.stdout, "success:  %t\n", out.Succeeded)
	if out.Reason != "" {
		_, _ = fmt.Fprintf(a.stdout, "reason:   %s\n", out.Reason)
	}
	_, _ = fmt.Fprintf(a.stdout, "duration: %s\n", out.Duration.Round(time.Microsecond))
	return nil
}

func (a *App) closeRuntime(rt *infraconfig.Runtime) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.Close(ctx); err != nil {
		_, _ = fmt.Fprintf(a.stderr, "warning: shutdown: %v\n", err)
	}
}

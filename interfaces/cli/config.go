package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	infraconfig "github.com/felixgeelhaar/domguard/infrastructure/config"
)

func (a *App) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Check, show and describe configuration",
	}
	cmd.AddCommand(a.newConfigCheckCmd(), a.newConfigShowCmd(), a.newConfigSchemaCmd())
	return cmd
}

func (a *App) newConfigCheckCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a configuration file",
		Long: `Validate a configuration file and build every component it names.

Examples:
  domguard config check -c domguard.yaml

  # Fail on environment variables that are referenced but unset
  domguard config check -c domguard.yaml --strict`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.configPath == "" {
				return fmt.Errorf("configuration file path is required (-c flag)")
			}

			loader := infraconfig.NewLoaderWithOptions(infraconfig.WithStrictEnv(strict))
			cfg, err := loader.LoadFile(a.configPath)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			rt, err := infraconfig.NewBuilder(cfg, infraconfig.WithVersion(Version)).Build(cmd.Context())
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			a.closeRuntime(rt)

			_, _ = fmt.Fprintf(a.stdout, "Configuration is valid: %s\n", a.configPath)
			_, _ = fmt.Fprintf(a.stdout, "  Executor:  %s\n", cfg.Executor.Kind)
			_, _ = fmt.Fprintf(a.stdout, "  Reporters: %v\n", cfg.Reporter.Kinds)
			_, _ = fmt.Fprintf(a.stdout, "  Generator: %t\n", cfg.Generator.Enabled)
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on missing environment variables")
	return cmd
}

func (a *App) newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Reporter.Secret != "" {
				cfg.Reporter.Secret = "********"
			}
			enc := yaml.NewEncoder(a.stdout)
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func (a *App) newConfigSchemaCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Export the configuration JSON schema",
		Long: `Export the JSON Schema for configuration files (draft 2020-12), for
editor validation and CI checks.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := infraconfig.SchemaJSON()
			if err != nil {
				return fmt.Errorf("failed to generate schema: %w", err)
			}
			if outputPath == "" {
				_, _ = fmt.Fprintln(a.stdout, schema)
				return nil
			}
			if err := os.WriteFile(outputPath, []byte(schema+"\n"), 0o600); err != nil {
				return fmt.Errorf("failed to write schema: %w", err)
			}
			_, _ = fmt.Fprintf(a.stdout, "Schema written to %s\n", outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

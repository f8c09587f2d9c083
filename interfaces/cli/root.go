// Package cli defines the appconfig command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"appconfig/infrastructure/config"
	"appconfig/infrastructure/di"

	"github.com/spf13/cobra"
)

// ContainerFactory builds the dependency container for one invocation
type ContainerFactory func(ctx context.Context, cfg *config.Config) (*di.Container, error)

type app struct {
	loadConfig func() (*config.Config, error)
	factory    ContainerFactory
	container  *di.Container
}

// NewRootCommand constructs the root command. loadConfig supplies the base
// configuration that flags override.
func NewRootCommand(loadConfig func() (*config.Config, error), factory ContainerFactory) *cobra.Command {
	a := &app{loadConfig: loadConfig, factory: factory}

	root := &cobra.Command{
		Use:           "appconfig",
		Short:         "Environment-aware configuration lookup",
		Long:          "Looks up configuration sections stored in DynamoDB, merging the default environment with the selected one.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("region", "", "AWS region (default from AWS_REGION)")
	flags.StringP("environment", "e", "", "Environment whose values override the defaults")
	flags.String("table", "", "DynamoDB table holding config records")
	flags.String("endpoint", "", "DynamoDB endpoint override, e.g. http://localhost:8000")
	flags.Bool("consistent-read", false, "Use strongly consistent reads")

	root.AddCommand(newGetCommand(a))
	root.AddCommand(newDumpCommand(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("region") {
		cfg.AWSRegion, _ = flags.GetString("region")
	}
	if flags.Changed("environment") {
		cfg.Environment, _ = flags.GetString("environment")
	}
	if flags.Changed("table") {
		cfg.TableName, _ = flags.GetString("table")
	}
	if flags.Changed("endpoint") {
		cfg.DynamoDBEndpoint, _ = flags.GetString("endpoint")
	}
	if flags.Changed("consistent-read") {
		cfg.ConsistentRead, _ = flags.GetBool("consistent-read")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	container, err := a.factory(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	a.container = container
	return nil
}

// run wraps a command body so the container is closed whether or not the
// body fails; cobra skips post-run hooks after an error.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if a.container == nil {
				return
			}
			if closeErr := a.container.Close(cmd.Context()); err == nil {
				err = closeErr
			}
		}()
		return fn(cmd, args)
	}
}

func newGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <section> [key]",
		Short: "Print a merged section, or one value from it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			section, err := a.container.Resolver.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if len(args) == 1 {
				return writeJSON(cmd.OutOrStdout(), section)
			}

			value, err := section.String(args[1])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), value)
			return err
		}),
	}
}

func newDumpCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dump <section>...",
		Short: "Resolve several sections and print them keyed by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			r := a.container.Resolver
			for _, name := range args {
				if _, err := r.Get(cmd.Context(), name); err != nil {
					return err
				}
			}

			out := make(map[string]any, r.Len())
			for _, name := range r.Sections() {
				section, err := r.Get(cmd.Context(), name)
				if err != nil {
					return err
				}
				out[name] = section
			}
			return writeJSON(cmd.OutOrStdout(), out)
		}),
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

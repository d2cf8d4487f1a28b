package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"alcyxob/workout-journal/internal/bootstrap"
	"alcyxob/workout-journal/internal/config"
	"alcyxob/workout-journal/internal/service"

	"github.com/spf13/cobra"
)

// env is what every subcommand needs once the config is loaded.
type env struct {
	cfg    config.Config
	stores *bootstrap.Stores
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	var configDir string
	e := &env{}

	cmd := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Manage the workout journal exercise catalog",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configDir)
			if err != nil {
				return err
			}
			stores, err := bootstrap.OpenStores(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.stores = stores
			e.logger = bootstrap.NewLogger(cmd.ErrOrStderr(), cfg.Log)
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if e.stores == nil {
				return nil
			}
			return e.stores.Close()
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}
	cmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory containing config.yaml")

	cmd.AddCommand(newSeedCmd(e))
	cmd.AddCommand(newResolveCmd(e))
	cmd.AddCommand(newExercisesCmd(e))
	return cmd
}

func newSeedCmd(e *env) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load exercises and synonyms into the catalog",
		Long: `Load exercises and synonyms into the catalog.

Without --file the built-in catalog is used. Existing exercises and synonyms are
left untouched, so the command can be re-run safely.`,
		Example: `  # Seed the built-in catalog
  catalogctl seed

  # Seed a custom catalog file
  catalogctl seed -f gym-catalog.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data := service.DefaultCatalog()
			if file != "" {
				b, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read catalog file: %w", err)
				}
				data = b
			}
			report, err := service.SeedCatalog(cmd.Context(), e.stores.Catalog, data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exercises: %d created, %d skipped\nsynonyms:  %d created, %d skipped\n",
				report.ExercisesCreated, report.ExercisesSkipped, report.SynonymsCreated, report.SynonymsSkipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog YAML file")
	return cmd
}

func newResolveCmd(e *env) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "resolve <text>",
		Short: "Show how an exercise mention resolves for a user",
		Example: `  catalogctl resolve "становая" --user 6f1c...
  catalogctl resolve "bench press"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exercises := service.NewExerciseService(e.stores.Catalog, e.logger)
			res, err := exercises.Resolve(cmd.Context(), strings.Join(args, " "), userID)
			if err != nil {
				return err
			}
			return printResolve(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID whose mappings and synonyms apply")
	return cmd
}

func printResolve(w io.Writer, res *service.ResolveResult) error {
	fmt.Fprintf(w, "status: %s\n", res.Status)
	if res.Exercise != nil {
		fmt.Fprintf(w, "exercise: %s (%s)\n", res.Exercise.DisplayName(), res.Exercise.ID)
	}
	if len(res.Candidates) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCANONICAL\tNAME\tSCOPE")
	for _, c := range res.Candidates {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.CanonicalName, c.DisplayName(), scope(c.IsGlobal()))
	}
	return tw.Flush()
}

func newExercisesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "exercises",
		Short: "List global exercises",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listExercises(cmd.Context(), cmd.OutOrStdout(), e)
		},
	}
}

func listExercises(ctx context.Context, w io.Writer, e *env) error {
	list, err := e.stores.Catalog.ListGlobalExercises(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CANONICAL\tRU\tEN\tCATEGORY\tMUSCLES")
	for _, x := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", x.CanonicalName, x.DisplayNameRu, x.DisplayNameEn, x.Category, strings.Join(x.MuscleGroups, ","))
	}
	return tw.Flush()
}

func scope(global bool) string {
	if global {
		return "global"
	}
	return "user"
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Additional-Code/procura/internal/app"
	"github.com/Additional-Code/procura/internal/migration"
	"github.com/Additional-Code/procura/internal/ranking"
	"github.com/Additional-Code/procura/internal/seeder"
)

// NewRootCommand builds the root procura CLI command.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "procura",
		Short: "Procura procurement service toolkit",
	}

	root.AddCommand(newStartCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newRankCmd())
	root.AddCommand(newWorkerCmd())

	return root
}

// Execute runs the procura CLI until it finishes or the process is signalled.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "start",
		Aliases: []string{"run"},
		Short:   "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			application := fx.New(app.Module)
			if err := application.Start(cmd.Context()); err != nil {
				return err
			}
			<-cmd.Context().Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return application.Stop(stopCtx)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			var mig *migration.Migrator
			opts := fx.Options(app.Core, migration.Module, fx.Populate(&mig))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				if err := mig.Up(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			all, _ := cmd.Flags().GetBool("all")
			var mig *migration.Migrator
			opts := fx.Options(app.Core, migration.Module, fx.Populate(&mig))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				if err := mig.Down(ctx, steps, all); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
				return nil
			})
		},
	}
	downCmd.Flags().Int("steps", 1, "Number of migration steps to rollback")
	downCmd.Flags().Bool("all", false, "Rollback all applied migrations")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			var mig *migration.Migrator
			opts := fx.Options(app.Core, migration.Module, fx.Populate(&mig))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				st, err := mig.Status(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (latest %d, %d pending)\n", st.Current, st.Latest, len(st.Pending))
				return nil
			})
		},
	}

	cmd.AddCommand(upCmd, downCmd, statusCmd)
	return cmd
}

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Run database seeders",
		RunE: func(cmd *cobra.Command, args []string) error {
			var seed *seeder.Seeder
			opts := fx.Options(app.Core, seeder.Module, fx.Populate(&seed))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				if err := seed.Users(ctx); err != nil {
					return err
				}
				if withRFPs, _ := cmd.Flags().GetBool("rfps"); withRFPs {
					if err := seed.RFPs(ctx); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seed data applied (password %q)\n", seeder.DevPassword)
				return nil
			})
		},
	}
	cmd.Flags().Bool("rfps", false, "Also seed a published demo RFP")
	return cmd
}

type rankInput struct {
	QuoteID      int64   `json:"quote_id"`
	VendorID     int64   `json:"vendor_id"`
	Price        float64 `json:"price"`
	DeliveryDays int     `json:"delivery_days"`
}

func newRankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank quotes read from a JSON file",
		Long:  "Reads a JSON array of {quote_id, vendor_id, price, delivery_days} and prints the evaluation.",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			budget, _ := cmd.Flags().GetFloat64("budget")
			priceWeight, _ := cmd.Flags().GetFloat64("price-weight")
			deliveryWeight, _ := cmd.Flags().GetFloat64("delivery-weight")

			raw, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			var inputs []rankInput
			if err := json.Unmarshal(raw, &inputs); err != nil {
				return fmt.Errorf("parse %s: %w", path, err)
			}

			scorer, err := ranking.NewWeightedScorer(priceWeight, deliveryWeight)
			if err != nil {
				return err
			}
			candidates := make([]ranking.Candidate, len(inputs))
			for i, in := range inputs {
				candidates[i] = ranking.Candidate(in)
			}
			eval, err := ranking.NewEngine(scorer).Rank(candidates, budget)
			if err != nil {
				return err
			}
			return printEvaluation(cmd, eval)
		},
	}
	cmd.Flags().StringP("file", "f", "", "Path to the candidate JSON file")
	cmd.Flags().Float64("budget", 0, "RFP budget used for savings")
	cmd.Flags().Float64("price-weight", ranking.DefaultPriceWeight, "Weight of the price score")
	cmd.Flags().Float64("delivery-weight", ranking.DefaultDeliveryWeight, "Weight of the delivery score")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func printEvaluation(cmd *cobra.Command, eval ranking.Evaluation) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "QUOTE\tVENDOR\tPRICE\tDAYS\tSCORE\tRECOMMENDATION\tRISK\tSAVINGS")
	for _, r := range eval.Ranked {
		fmt.Fprintf(w, "%d\t%d\t%.2f\t%d\t%d\t%s\t%s\t%.2f (%d%%)\n",
			r.QuoteID, r.VendorID, r.Price, r.DeliveryDays, r.Composite,
			r.Recommendation, r.Risk, r.Savings.Amount, r.Savings.Percentage)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%d quotes, average score %d\n", eval.Summary.TotalQuotes, eval.Summary.AverageScore)
	for _, advice := range eval.Summary.Recommendations {
		fmt.Fprintf(out, "- %s\n", advice.Message)
	}
	return nil
}

func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage background workers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run worker engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			application := fx.New(app.Worker)
			if err := application.Start(cmd.Context()); err != nil {
				return err
			}
			<-cmd.Context().Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return application.Stop(stopCtx)
		},
	})
	return cmd
}

func runWithApp(ctx context.Context, opts fx.Option, fn func(context.Context) error) error {
	application := fx.New(opts, fx.NopLogger)
	if err := application.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = application.Stop(stopCtx)
	}()
	return fn(ctx)
}

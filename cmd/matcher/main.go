package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnaf-matcher/internal/bootstrap"
	"github.com/gnaf-matcher/internal/config"
	"github.com/gnaf-matcher/internal/customer"
	"github.com/gnaf-matcher/internal/db"
	"github.com/gnaf-matcher/internal/detailstore"
	"github.com/gnaf-matcher/internal/matcher"
	"github.com/gnaf-matcher/internal/postal"
	"github.com/gnaf-matcher/internal/reference"
)

var (
	cfgFile  string
	debugOut bool
	cfg      *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "matcher",
		Short: "G-NAF address matcher",
		Long:  `Resolves free-text Australian customer addresses to G-NAF address detail records`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(cfgFile); err != nil {
				return err
			}
			if debugOut {
				cfg.Debug = true
				cfg.Log.Level = "debug"
			}
			return config.InitLogger(cfg.Log)
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./matcher.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugOut, "debug", false, "enable per-address trace output")

	rootCmd.AddCommand(createRunCmd())
	rootCmd.AddCommand(createResolveCmd())
	rootCmd.AddCommand(createPingCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = zap.L().Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// createRunCmd creates the batch command over pending customer addresses
func createRunCmd() *cobra.Command {
	var batchSize, workers, limit int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Resolve all pending customer addresses",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if batchSize > 0 {
				cfg.Batch.Size = batchSize
			}
			if workers > 0 {
				cfg.Batch.Workers = workers
			}

			eng, cleanup, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			driver, dsn := customerTarget()
			conn, err := db.Open(ctx, driver, dsn)
			if err != nil {
				return eris.Wrap(err, "open customer database")
			}
			defer conn.Close()

			store := customer.NewStore(conn.DB, driver)
			if err := store.Migrate(ctx); err != nil {
				return err
			}

			bp := matcher.NewBatchProcessor(eng, store, store, matcher.BatchOptions{
				Size:    cfg.Batch.Size,
				Workers: cfg.Batch.Workers,
				Limit:   limit,
			})
			stats, err := bp.Run(ctx, cfg.Debug)
			if err != nil {
				return err
			}

			fmt.Printf("Run %s complete in %v\n", stats.RunID, stats.ProcessingTime)
			fmt.Printf("  Processed:           %d\n", stats.Processed)
			fmt.Printf("  Matched:             %d\n", stats.Matched)
			fmt.Printf("  Ambiguous:           %d\n", stats.Ambiguous)
			fmt.Printf("  Unmatched:           %d\n", stats.Unmatched)
			fmt.Printf("  Invalid:             %d\n", stats.Invalid)
			fmt.Printf("  Errors:              %d\n", stats.Errors)
			fmt.Printf("  Too many candidates: %d\n", stats.TooManyCandidates)
			fmt.Printf("  Post box:            %d\n", stats.PostBox)
			fmt.Printf("  Mail service:        %d\n", stats.MailService)
			return nil
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "records per batch (overrides config)")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent addresses (overrides config)")
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many records")
	return cmd
}

// createResolveCmd creates a command that resolves a single address
func createResolveCmd() *cobra.Command {
	var in matcher.Input

	cmd := &cobra.Command{
		Use:   "resolve [address line]",
		Short: "Resolve one address and print the outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			eng, cleanup, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			in.Line = args[0]
			res := eng.Resolve(ctx, cfg.Debug, in)

			fmt.Printf("Outcome: %s\n", res.Outcome)
			if res.Locality != nil {
				fmt.Printf("Locality: %s %s (%s)\n", res.Locality.ID, res.Locality.Name, res.Method)
			}
			if res.Pass != "" {
				fmt.Printf("Pass: %s, tier %s\n", res.Pass, res.Tier)
			}
			if res.TooManyCandidates {
				fmt.Println("Too many candidates on at least one pass")
			}
			for _, m := range res.Matches {
				fmt.Printf("  %s  %s\n", m.DetailID, m.Full)
			}
			if res.Err != nil {
				return res.Err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Line2, "line2", "", "second address line")
	cmd.Flags().StringVar(&in.Suburb, "suburb", "", "suburb or town")
	cmd.Flags().StringVar(&in.State, "state", "", "state abbreviation or name")
	cmd.Flags().StringVar(&in.Postcode, "postcode", "", "postcode")
	return cmd
}

// createPingCmd creates a command to test database connectivity
func createPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Test database connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			conn, err := db.Open(ctx, "postgres", cfg.Reference.DSN())
			if err != nil {
				return eris.Wrap(err, "open reference database")
			}
			defer conn.Close()
			fmt.Println("Reference database connection successful!")

			var count int
			if err := conn.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM address_detail WHERE date_retired IS NULL").Scan(&count); err != nil {
				zap.L().Warn("count address_detail", zap.Error(err))
			} else {
				fmt.Printf("Address details: %d\n", count)
			}

			driver, dsn := customerTarget()
			cust, err := db.Open(ctx, driver, dsn)
			if err != nil {
				return eris.Wrap(err, "open customer database")
			}
			defer cust.Close()
			fmt.Printf("Customer database (%s) connection successful!\n", driver)
			return nil
		},
	}
}

// newEngine loads the reference index and connects the detail store.
func newEngine(ctx context.Context) (*matcher.Engine, func(), error) {
	conn, err := db.Open(ctx, "postgres", cfg.Reference.DSN())
	if err != nil {
		return nil, nil, eris.Wrap(err, "open reference database")
	}
	defer conn.Close()

	rows, err := bootstrap.Load(ctx, conn.DB)
	if err != nil {
		return nil, nil, err
	}
	index, anomalies := reference.Load(rows)
	for _, a := range anomalies {
		zap.L().Debug("reference anomaly", zap.String("kind", a.Kind), zap.String("ref", a.Ref))
	}
	st := index.Stats()
	zap.L().Info("reference index ready",
		zap.Int("states", st.States),
		zap.Int("localities", st.Localities),
		zap.Int("streets", st.Streets),
		zap.Int("anomalies", st.Anomalies),
	)

	pool, err := db.NewPool(ctx, cfg.Reference.DSN(), cfg.Reference.Pool)
	if err != nil {
		return nil, nil, err
	}
	store := detailstore.New(pool, detailstore.Options{
		MaxConcurrent: cfg.Batch.MaxConcurrentLookups,
		PerSecond:     cfg.Batch.LookupsPerSecond,
	})

	eng := matcher.NewEngine(index, store, matcher.Options{
		CandidateCeiling:     cfg.Resolver.CandidateCeiling,
		FuzzyMaxDistance:     cfg.Resolver.FuzzyMaxDistance,
		CandidateParallelism: cfg.Resolver.CandidateParallelism,
		LookupBudget:         cfg.Resolver.LookupBudget,
		MinLookupTimeout:     cfg.Resolver.MinLookupTimeout,
	})
	if p, err := postal.New(); err == nil {
		eng.WithPostal(p)
	} else {
		zap.L().Debug("libpostal fallback disabled", zap.Error(err))
	}
	return eng, pool.Close, nil
}

// customerTarget returns the customer driver and DSN, defaulting to the
// reference database.
func customerTarget() (string, string) {
	if cfg.Customer.DatabaseURL != "" {
		return cfg.Customer.Driver, cfg.Customer.DatabaseURL
	}
	return cfg.Customer.Driver, cfg.Reference.DSN()
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/squadmarket/internal/config"
	"github.com/okian/squadmarket/internal/marketsim"
	"github.com/spf13/cobra"
)

// Default run settings.
const (
	defaultListings   = 3
	defaultBuyers     = 3
	defaultPageSize   = 5
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	root := &cobra.Command{
		Use:          "marketsim",
		Short:        "End-to-end load and consistency checker for the squad market",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	defaults := config.New()
	cfg := &marketsim.Config{
		BaseURL:  "http://localhost" + defaults.Addr,
		Secret:   defaults.JWTSecret,
		Issuer:   defaults.JWTIssuer,
		Teams:    defaults.SeedTeams,
		Listings: defaultListings,
		Buyers:   defaultBuyers,
		Workers:  runtime.NumCPU() * defaultWorkers,
		PageSize: defaultPageSize,
		Timeout:  defaultTimeout,
	}
	runTimeout := defaultRunTimeout

	cmd := &cobra.Command{
		Use:   "run",
		Short: "List players, walk every search index, race purchases and verify the market",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			closer, err := marketsim.SetupLogging(cfg.LogFile, cfg.Verbose)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
			defer cancel()

			stats, err := marketsim.Run(ctx, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"offers %d, searches %d (%d pages), purchases %d/%d, rejected %d, failed %d in %s\n",
				stats.OffersCreated, stats.SearchQueries, stats.SearchPages,
				stats.Purchases, stats.PurchaseAttempts, stats.PurchasesRejected, stats.PurchasesFailed,
				stats.Duration.Round(time.Millisecond))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "Base URL of the service")
	f.StringVar(&cfg.Secret, "secret", cfg.Secret, "HS256 secret shared with the server")
	f.StringVar(&cfg.Issuer, "issuer", cfg.Issuer, "Token issuer expected by the server")
	f.IntVar(&cfg.Teams, "teams", cfg.Teams, "Number of seeded teams")
	f.IntVar(&cfg.Listings, "listings", cfg.Listings, "Players listed per team")
	f.IntVar(&cfg.Buyers, "buyers", cfg.Buyers, "Competing buyers per listing")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "Number of concurrent workers")
	f.IntVar(&cfg.PageSize, "page-size", cfg.PageSize, "Page size used when walking the indexes")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	f.DurationVar(&runTimeout, "run-timeout", runTimeout, "Overall run timeout")
	f.StringVar(&cfg.LogFile, "log", "", "Log file for run output (default: marketsim_TIMESTAMP.log)")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable verbose logging")
	return cmd
}

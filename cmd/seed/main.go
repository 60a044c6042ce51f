package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tour-booking-api/internal/config"
	"tour-booking-api/internal/database"
	domainReview "tour-booking-api/internal/domain/review"
	domainTour "tour-booking-api/internal/domain/tour"
	domainUser "tour-booking-api/internal/domain/user"
	"tour-booking-api/internal/logger"
	"tour-booking-api/internal/seed"
	"tour-booking-api/pkg/utils"
)

const defaultSeedTimeout = 2 * time.Minute

type seedConfig struct {
	dir     string
	timeout time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &seedConfig{}

	root := &cobra.Command{
		Use:          "seed",
		Short:        "Load or clear the development data set",
		SilenceUsage: true,
	}
	root.PersistentFlags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations")

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import users, tours and reviews from JSON files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, cfg, func(ctx context.Context, s *seed.Seeder) error {
				counts, err := s.Import(ctx, cfg.dir)
				if err != nil {
					return err
				}
				cmd.Printf("Imported %d users, %d tours and %d reviews\n", counts.Users, counts.Tours, counts.Reviews)
				return nil
			})
		},
	}
	importCmd.Flags().StringVar(&cfg.dir, "dir", "dev-data", "directory holding users.json, tours.json and reviews.json")

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete every user, tour and review",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, cfg, func(ctx context.Context, s *seed.Seeder) error {
				if err := s.Delete(ctx); err != nil {
					return err
				}
				cmd.Println("Data deleted")
				return nil
			})
		},
	}

	root.AddCommand(importCmd, deleteCmd)
	return root
}

func run(cmd *cobra.Command, cfg *seedConfig, fn func(context.Context, *seed.Seeder) error) error {
	appCfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(appCfg.Server.Environment); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	db, err := database.NewDatabase(appCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(&domainUser.User{}, &domainTour.Tour{}, &domainReview.Review{}); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	return fn(ctx, seed.New(db.DB, utils.NewBcryptHasher(appCfg.Auth.BcryptCost)))
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/marcelsud/webhook-ledger/config"
	"github.com/marcelsud/webhook-ledger/fixtures"
	"github.com/marcelsud/webhook-ledger/internal/auth"
	"github.com/marcelsud/webhook-ledger/internal/store"
	"github.com/marcelsud/webhook-ledger/metrics"
	"github.com/marcelsud/webhook-ledger/webhook"
	"github.com/spf13/cobra"
)

// deps are the seams the commands reach outside the process through
type deps struct {
	open func(ctx context.Context, cfg *config.Config) (*store.Stores, error)
	now  func() time.Time
	out  io.Writer
}

func defaultDeps() deps {
	return deps{
		open: store.Open,
		now:  time.Now,
		out:  os.Stdout,
	}
}

var fakeSources = []string{"github", "stripe", "shopify", "slack", webhook.UnknownSource}

var fakeEvents = []string{"push", "payment.succeeded", "order.created", "message.posted", "refund.created"}

func newRootCmd(d deps) *cobra.Command {
	var configDir string

	loadConfig := func() (*config.Config, error) {
		cfg, err := config.Load(configDir)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}

	root := &cobra.Command{
		Use:           "ledger",
		Short:         "Webhook ledger administration",
		Long:          "ledger issues bearer tokens, seeds the configured store and prints its metrics.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configDir, "config", ".", "directory holding the .env file")
	root.SetOut(d.out)

	root.AddCommand(
		newTokenCmd(loadConfig),
		newSeedCmd(d, loadConfig),
		newStatsCmd(d, loadConfig),
	)
	return root
}

func newTokenCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a bearer token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is required")
			}

			token, err := auth.NewTokenGenerator(cfg.JWTSecret, cfg.GetJWTTTL()).Generate(args[0])
			if err != nil {
				return fmt.Errorf("generating token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

func newSeedCmd(d deps, loadConfig func() (*config.Config, error)) *cobra.Command {
	var (
		file   string
		fake   int
		seed   int64
		userID string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert fixtures or generated webhooks into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" && fake <= 0 {
				return fmt.Errorf("either --file or --fake is required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			stores, err := d.open(ctx, cfg)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer stores.Close(ctx)

			var ids []string
			if file != "" {
				loader := fixtures.NewLoader()
				if err := loader.Load(file); err != nil {
					return err
				}
				seeded, err := loader.Seed(ctx, stores.Webhooks, d.now())
				if err != nil {
					return err
				}
				ids = append(ids, seeded...)
			}
			if fake > 0 {
				s := webhook.NewService(stores.Webhooks)
				s.Now = d.now
				generated, err := seedFake(ctx, s, gofakeit.New(seed), fake, userID)
				if err != nil {
					return err
				}
				ids = append(ids, generated...)
			}

			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "seeded %d webhooks\n", len(ids))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "fixtures YAML file")
	cmd.Flags().IntVar(&fake, "fake", 0, "number of generated webhooks")
	cmd.Flags().Int64Var(&seed, "seed", 0, "generator seed, 0 picks a random one")
	cmd.Flags().StringVar(&userID, "user", "", "owner of the generated webhooks")
	return cmd
}

func seedFake(ctx context.Context, s *webhook.Service, faker *gofakeit.Faker, n int, userID string) ([]string, error) {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		payload, err := json.Marshal(map[string]any{
			"event":  faker.RandomString(fakeEvents),
			"id":     faker.UUID(),
			"email":  faker.Email(),
			"amount": faker.Price(1, 500),
		})
		if err != nil {
			return ids, fmt.Errorf("encoding payload: %w", err)
		}
		id, err := s.Create(ctx, string(payload), faker.RandomString(fakeSources), userID)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func newStatsCmd(d deps, loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print status, source and throughput counts as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			stores, err := d.open(ctx, cfg)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer stores.Close(ctx)

			collector := metrics.NewStoreCollector(stores.Webhooks)
			collector.Now = d.now
			m, err := collector.Collect(ctx)
			if err != nil {
				return fmt.Errorf("collecting metrics: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(m)
		},
	}
}

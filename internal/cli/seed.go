package cli

import (
	"context"
	"fmt"

	"flagguess/internal/config"
	"flagguess/internal/infra/memory"
	"flagguess/internal/infra/postgres"
	redisinfra "flagguess/internal/infra/redis"
	"flagguess/internal/logging"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewSeedCmd loads flags from a YAML file into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load flags from a YAML file into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, file)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "flags YAML file (defaults to quiz.flags_file)")
	return cmd
}

func runSeed(ctx context.Context, configPath, file string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	if file == "" {
		file = cfg.Quiz.FlagsFile
	}
	if file == "" {
		return fmt.Errorf("no flags file given")
	}
	flags, err := memory.LoadFlagsFile(file)
	if err != nil {
		return err
	}

	if err := runMigrations(ctx, cfg, log); err != nil {
		return err
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	n, err := postgres.NewFlagLoader(pool).SaveFlags(ctx, flags)
	if err != nil {
		return err
	}
	log.WithField("flags", n).WithField("file", file).Info("flags seeded")

	// Running instances keep their in-process pool; only the shared cache
	// can be dropped from here.
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := redisinfra.NewFlagCache(client, nil, 0).Invalidate(ctx); err != nil {
			log.WithError(err).Warn("flag cache invalidation failed")
		}
	}
	return nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"flagguess/internal/app"
	"flagguess/internal/config"
	"flagguess/internal/infra/memory"
	"flagguess/internal/infra/password"
	"flagguess/internal/infra/postgres"
	redisinfra "flagguess/internal/infra/redis"
	"flagguess/internal/logging"
	"flagguess/internal/metrics"
	transport "flagguess/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

type backends struct {
	loader   app.FlagLoader
	users    app.UserRepository
	scores   app.HighscoreRepository
	sessions app.SessionRepository
	closers  []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessionTTL := config.TTLDuration(cfg.Session.TTL, time.Hour)
	b, err := openBackends(ctx, cfg, sessionTTL, log)
	if err != nil {
		return err
	}
	defer b.close()

	pool := app.NewQuestionPool(b.loader)
	if _, err := pool.Ensure(ctx); err != nil {
		log.WithError(err).Warn("initial flag load failed, retrying on first request")
	} else if pool.Size() == 0 {
		log.Warn("no flags configured; games cannot start until flags are seeded")
	}

	gateway := app.NewSessionGateway(b.sessions, sessionTTL)
	game := app.NewGameService(gateway, pool, b.scores, log)
	board := app.NewLeaderboardService(b.scores, log)
	game.Subscribe(board)

	handler, err := transport.NewHandler(transport.Options{
		Auth:        app.NewAuthService(b.users, password.NewBcryptHasher(0), log),
		Game:        game,
		Sessions:    gateway,
		Leaderboard: board,
		Metrics:     metrics.New(pool.Size),
		Log:         log,
		Cookie: transport.CookieConfig{
			Name:     cfg.Session.CookieName,
			Secure:   cfg.Session.Secure,
			SameSite: config.SameSiteMode(cfg.Session.SameSite),
		},
		StaticDir: cfg.Server.StaticDir,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", finalPort).Info("starting flagguess")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openBackends picks Postgres and Redis when configured and in-memory
// stores otherwise.
func openBackends(ctx context.Context, cfg config.Config, sessionTTL time.Duration, log logrus.FieldLogger) (*backends, error) {
	b := &backends{}

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		b.loader = postgres.NewFlagLoader(pool)
		b.users = postgres.NewUserRepository(pool)
		b.scores = postgres.NewHighscoreRepository(pool)
		log.Info("using postgres storage")
	} else {
		flags := memory.SampleFlags()
		if cfg.Quiz.FlagsFile != "" {
			loaded, err := memory.LoadFlagsFile(cfg.Quiz.FlagsFile)
			if err != nil {
				return nil, err
			}
			flags = loaded
		}
		users := memory.NewUserRepository()
		b.loader = memory.NewStaticFlagLoader(flags)
		b.users = users
		b.scores = memory.NewHighscoreRepository(users)
		log.WithField("flags", len(flags)).Warn("no postgres url, using in-memory storage")
	}

	if cfg.Redis.Addr == "" {
		b.sessions = memory.NewSessionStore(sessionTTL)
		return b, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	b.closers = append(b.closers, func() { _ = client.Close() })
	if err := client.Ping(ctx).Err(); err != nil {
		b.close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	b.sessions = redisinfra.NewSessionStore(client, sessionTTL)
	if cfg.Postgres.URL != "" {
		b.loader = redisinfra.NewFlagCache(client, b.loader, config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute))
	}
	log.WithField("addr", cfg.Redis.Addr).Info("using redis for sessions")
	return b, nil
}

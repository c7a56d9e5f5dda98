package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hospverse/internal/config"
	"hospverse/internal/http/handlers"
	applog "hospverse/internal/log"
	"hospverse/internal/nav"
	"hospverse/internal/repos"
	"hospverse/internal/session"
	"hospverse/internal/telemetry"

	"github.com/jmoiron/sqlx"
	"github.com/olekukonko/tablewriter"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hospverse",
		Short:         "Multi-tenant clinic administration server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), config.Load())
		},
	}
	root.AddCommand(newServeCmd(), newSeedCmd(), newNavCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), config.Load())
		},
	}
}

func newSeedCmd() *cobra.Command {
	var tenantsFile string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Apply the schema, seed demo data and upsert tenants from YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if tenantsFile == "" {
				tenantsFile = cfg.TenantsFile
			}
			db, err := repos.OpenDB(cfg.DBDSN)
			if err != nil {
				return err
			}
			defer db.Close()
			n, err := upsertTenants(cmd.Context(), db, tenantsFile)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %s, %d tenants from %s\n", cfg.DBDSN, n, tenantsFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantsFile, "tenants", "", "tenant definitions (default $TENANTS_FILE)")
	return cmd
}

func upsertTenants(ctx context.Context, db *sqlx.DB, path string) (int, error) {
	ts, err := repos.LoadTenantsYAML(path)
	if err != nil {
		return 0, err
	}
	repo := repos.NewTenantRepo(db)
	for i := range ts {
		if err := repo.Upsert(ctx, &ts[i]); err != nil {
			return 0, fmt.Errorf("upsert %s: %w", ts[i].ID, err)
		}
	}
	return len(ts), nil
}

func newNavCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nav <path>",
		Short: "Show the portal and sidebar a path resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printNav(cmd.OutOrStdout(), args[0])
		},
	}
}

func printNav(w io.Writer, path string) error {
	sb := nav.Build(path)
	fmt.Fprintf(w, "%s (%s)\n", sb.Title, sb.Role)
	rows := make([][]string, 0, len(sb.Items))
	for _, it := range sb.Items {
		mark := ""
		if it.Active {
			mark = "*"
		}
		rows = append(rows, []string{mark, it.Title, it.URL, it.Icon})
	}
	tbl := tablewriter.NewTable(w)
	tbl.Header("", "Item", "URL", "Icon")
	if err := tbl.Bulk(rows); err != nil {
		return err
	}
	return tbl.Render()
}

func openSessions(ctx context.Context, cfg config.Config, db *sqlx.DB) (session.Store, func(), error) {
	if cfg.SessionBackend != "redis" {
		return session.NewSQLStore(db), func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
	}
	return session.NewRedisStore(rdb, 24*time.Hour), func() { _ = rdb.Close() }, nil
}

func serve(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := applog.Init(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	shutdownTracing := telemetry.Setup("hospverse")
	defer func() { _ = shutdownTracing(context.Background()) }()

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if _, err := os.Stat(cfg.TenantsFile); err == nil {
		if n, err := upsertTenants(ctx, db, cfg.TenantsFile); err != nil {
			logger.Warn("tenants.yaml.fail", zap.Error(err))
		} else {
			logger.Info("tenants.yaml.loaded", zap.Int("count", n), zap.String("file", cfg.TenantsFile))
		}
	}

	sessions, closeSessions, err := openSessions(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeSessions()

	deps := handlers.NewDeps(ctx, db, cfg, sessions)
	go func() {
		if err := deps.Tenants.Warm(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("tenants.warm.fail", zap.Error(err))
		}
	}()

	app := handlers.NewApp(deps)
	errc := make(chan error, 1)
	go func() {
		logger.Info("server.start", zap.String("port", cfg.Port), zap.String("sessions", cfg.SessionBackend))
		errc <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("server.shutdown")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(sctx)
}

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/catwalkhq/catwalk/internal/config"
	"github.com/catwalkhq/catwalk/internal/server"
	"github.com/catwalkhq/catwalk/internal/service"
	"github.com/catwalkhq/catwalk/internal/telemetry"
)

const banner = `
  ___   _ _____ __      ___   _   _  __
 / __| /_\_   _/ / /\ \ / /_\ | | | |/ /
| (__ / _ \| | \ \/  \ V / _ \| |_| ' <
 \___/_/ \_\_|  \_/\_/\_/_/ \_\___|_|\_\
`

func newServeCmd() *cobra.Command {
	var (
		port    int
		host    string
		dev     bool
		dataDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Catwalk admin API server",
		Long:  "Start the HTTP server that exposes the admin REST API for the Catwalk dashboard.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, dev, dataDir)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging, CORS *)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory for SQLite state (default: ~/.catwalk)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(host string, port int, dev bool, dataDir string) error {
	fmt.Print(banner)
	fmt.Println()

	// Set up logger
	logLevel := slog.LevelInfo
	if dev {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	// 1. Initialize the state store (SQLite)
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = home + "/.catwalk"
	}
	store, err := config.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("init state store: %w", err)
	}
	defer store.Close()
	logger.Info("state store initialized", "path", dataDir)

	// 2. Auth and session services
	accessTTL := viper.GetDuration("auth.access_expiry")
	if accessTTL == 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := viper.GetDuration("auth.refresh_expiry")
	if refreshTTL == 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	auth := service.NewAuthService(store, resolveJWTSecret(), accessTTL, refreshTTL)
	sessions := service.NewSessionService(store, logger)

	// 3. Directory client for the mobile backend
	dir := newDirectoryClient()
	if err := dir.Ping(context.Background()); err != nil {
		logger.Warn("directory unreachable at startup", "error", err)
	}

	// 4. Check for first-run (no admin exists)
	hasAdmin, err := store.HasAnyAdmin(context.Background())
	if err != nil {
		logger.Warn("failed to check for admin", "error", err)
	}
	if !hasAdmin {
		logger.Warn("no admin account found - run: catwalk admin create")
	}

	// 5. Telemetry heartbeat
	tracker := telemetry.New(context.Background(), store, func() telemetry.Properties {
		ctx := context.Background()
		admins, _ := store.CountAdmins(ctx)
		templates, _ := store.CountTemplates(ctx)
		sessions, _ := store.CountActiveSessions(ctx)
		return telemetry.Properties{
			Version:   appVersion,
			GoVersion: runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			Admins:    admins,
			Templates: templates,
			Sessions:  sessions,
		}
	})
	if tracker != nil {
		telemetry.PrintNotice()
		tracker.Start()
		defer tracker.Shutdown()
	}

	// 6. Build and start HTTP server
	srvCfg := server.DefaultConfig()
	srvCfg.Host = host
	srvCfg.Port = port
	srvCfg.Version = appVersion
	if origins := viper.GetStringSlice("server.cors.origins"); len(origins) > 0 && !dev {
		srvCfg.CORSOrigins = origins
	}
	if limit := viper.GetInt("server.login_rate_limit"); limit > 0 {
		srvCfg.LoginRateLimit = limit
	}

	srv := server.New(srvCfg, store, auth, sessions, dir, logger)

	fmt.Printf("→ Catwalk %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d\n", host, port)
	fmt.Printf("→ OpenAPI:    http://%s:%d/openapi.json\n", host, port)
	fmt.Printf("→ Health:     http://%s:%d/healthz\n", host, port)
	fmt.Println()

	return srv.ListenAndServe()
}

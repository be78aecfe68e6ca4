// Command backend is the main entrypoint for the streamsupport API and
// background workers. It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations.
//   - Restores the persisted account and auth state.
//   - Starts background jobs: the session scoring engine, the token expiry
//     watcher, the live-stream refresher, and record retention.
//   - Exposes the HTTP API with /healthz, /readyz, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/milozanoo/streamsupport/backend/auth"
	"github.com/milozanoo/streamsupport/backend/chat"
	"github.com/milozanoo/streamsupport/backend/config"
	"github.com/milozanoo/streamsupport/backend/db"
	"github.com/milozanoo/streamsupport/backend/server"
	"github.com/milozanoo/streamsupport/backend/streams"
	"github.com/milozanoo/streamsupport/backend/support"
	"github.com/milozanoo/streamsupport/backend/telemetry"
	"github.com/milozanoo/streamsupport/backend/twitchapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load("backend/.env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("streamsupport", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// DB
	database, err := db.Connect()
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	// Run database migrations: versioned migrations (golang-migrate) from
	// db/migrations/ first, embedded SQL (db.Migrate) as fallback for
	// deployments without a schema_migrations table.
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(database); err != nil {
		slog.Warn("versioned migrations failed, attempting fallback to embedded SQL",
			slog.Any("err", err),
			slog.String("component", "db_migrate"))
		if err := db.Migrate(context.Background(), database); err != nil {
			slog.Error("failed to migrate db (both versioned and embedded SQL failed)", slog.Any("err", err))
			os.Exit(1)
		}
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Scoring account: restore the persisted blob or start fresh.
	acct := &support.Account{Name: cfg.TwitchBotUsername, Channel: cfg.TwitchChannel}
	if stored, err := db.LoadAccount(ctx, database); err != nil {
		slog.Warn("account restore failed, starting fresh", slog.Any("err", err))
	} else if stored != nil {
		acct = stored
		slog.Info("account restored", slog.String("name", acct.Name), slog.Int("points", acct.Points))
	}

	// Interaction source: real Twitch chat when CHAT_SOURCE=twitch, else the
	// simulated Bernoulli draw.
	var source support.InteractionSource
	if cfg.ChatSourceEnabled && cfg.TwitchChannel != "" {
		chatSrc := chat.NewSource(cfg.TwitchChannel, cfg.TwitchBotUsername, cfg.TwitchOAuthToken)
		go func() {
			if err := chatSrc.Run(ctx); err != nil && ctx.Err() == nil {
				slog.Error("chat source exited", slog.Any("err", err))
			}
		}()
		source = chatSrc
		slog.Info("chat interaction source enabled", slog.String("channel", cfg.TwitchChannel))
	} else {
		source = support.NewSimulatedSource(cfg.InteractionProbability, time.Now().UnixNano())
		slog.Info("simulated interaction source enabled", slog.Float64("probability", cfg.InteractionProbability))
	}

	engine := support.NewEngine(acct, source, nil)
	go engine.Run(ctx)

	// Auth lifecycle: encrypted token storage, introspection, expiry watcher.
	authMgr := auth.NewManager(&db.AuthStore{DB: database}, &twitchapi.Validator{}, nil)
	if err := authMgr.Restore(ctx); err != nil {
		slog.Warn("auth restore failed", slog.Any("err", err))
	} else if authMgr.State() != auth.Unauthenticated {
		slog.Info("auth state restored", slog.String("state", authMgr.State().String()))
	}
	authMgr.ExpiredFunc = func() {
		telemetry.TokensExpired.Inc()
		slog.Warn("twitch token expired, re-authentication required")
	}
	auth.StartExpiryWatcher(ctx, authMgr, cfg.ExpiryCheckInterval)

	// Helix client on app credentials for channel lookups and live polling.
	helix := &twitchapi.HelixClient{
		TokenSource: &twitchapi.TokenSource{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret},
		ClientID:    cfg.TwitchClientID,
	}
	if cfg.TwitchClientID != "" && cfg.TwitchClientSecret != "" {
		go streams.StartLiveRefreshJob(ctx, database, helix, cfg.StreamRefreshInterval)
	} else {
		slog.Info("live refresh disabled (missing twitch app credentials)")
	}
	go streams.StartRetentionJob(ctx, database, cfg.RetentionMaxAge, 0)

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	// HTTP server
	handlers := server.NewHandlers(ctx, database, engine, authMgr, helix)
	go func() {
		if err := server.Start(ctx, handlers, cfg.Addr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}

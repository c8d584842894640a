// forged is the SkillForge progress daemon. It consumes scored submissions
// from RabbitMQ, drives the progress and gamification engines, and publishes
// completed-submission events for external listeners.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/skillforge/skillforge/internal/adaptivity"
	"github.com/skillforge/skillforge/internal/analysis"
	"github.com/skillforge/skillforge/internal/config"
	"github.com/skillforge/skillforge/internal/domain"
	"github.com/skillforge/skillforge/internal/gamification"
	"github.com/skillforge/skillforge/internal/mission"
	"github.com/skillforge/skillforge/internal/progress"
	"github.com/skillforge/skillforge/internal/queue"
	"github.com/skillforge/skillforge/internal/storage/postgres"
	"github.com/skillforge/skillforge/internal/storage/sqlite"
)

const pidFileName = "forged.pid"

// settings is the merged runtime configuration from either env (server
// mode) or ~/.skillforge/config.yaml (local mode).
type settings struct {
	logLevel        string
	dbDriver        string
	sqlitePath      string
	databaseURL     string
	rabbitMQURL     string
	analysisURL     string
	analysisEnabled bool
	missionsPath    string
	workers         int
	prefetch        int
	timeout         time.Duration
}

func main() {
	localMode := flag.Bool("local", false, "load configuration from ~/.skillforge instead of the environment")
	flag.Parse()

	if err := run(*localMode); err != nil {
		slog.Error("daemon error", "error", err)
		os.Exit(1)
	}
}

func run(localMode bool) error {
	var st settings

	if localMode {
		dir, err := config.EnsureSkillforgeDir()
		if err != nil {
			return fmt.Errorf("ensure skillforge dir: %w", err)
		}

		cfg, err := config.LoadLocalConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		st = localSettings(cfg)

		logFile, err := setupLocalLogging(dir, parseLogLevel(st.logLevel))
		if err != nil {
			return fmt.Errorf("setup logging: %w", err)
		}
		defer logFile.Close()

		pidPath := filepath.Join(dir, pidFileName)
		if err := writePIDFile(pidPath); err != nil {
			return fmt.Errorf("write pid file: %w", err)
		}
		defer os.Remove(pidPath)
	} else {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		st = envSettings(cfg)

		level := slog.LevelInfo
		if cfg.Debug {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	var (
		profiles progress.ProfileStore
		ledgers  gamification.LedgerStore
		catalog  gamification.Catalog
	)

	switch st.dbDriver {
	case config.DriverSQLite:
		db, err := sqlite.Open(st.sqlitePath)
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
		store := sqlite.NewAchievementStore(db)
		if err := store.Seed(ctx, gamification.DefaultDefinitions()); err != nil {
			return fmt.Errorf("seed achievement catalog: %w", err)
		}
		profiles = sqlite.NewProfileStore(db)
		ledgers = sqlite.NewLedgerStore(db)
		catalog = store

	case config.DriverPostgres:
		db, err := postgres.Open(ctx, st.databaseURL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
		store := postgres.NewAchievementStore(db)
		if err := store.Seed(ctx, gamification.DefaultDefinitions()); err != nil {
			return fmt.Errorf("seed achievement catalog: %w", err)
		}
		profiles = postgres.NewProfileStore(db)
		ledgers = postgres.NewLedgerStore(db)
		catalog = store

	default:
		return fmt.Errorf("unsupported storage driver %q", st.dbDriver)
	}

	slog.Info("storage ready", "driver", st.dbDriver)

	// Mission catalog. A missing catalog degrades recommendations but must
	// not keep the daemon from committing progress.
	registry := mission.NewRegistry(mission.NewLoader(st.missionsPath))
	if err := registry.Load(); err != nil {
		slog.Warn("mission catalog unavailable", "path", st.missionsPath, "error", err)
	} else {
		stats := registry.Stats()
		slog.Info("mission catalog loaded", "packs", stats.PackCount, "missions", stats.MissionCount)
	}

	// Engines
	dispatcher := domain.NewEventDispatcher()
	dispatcher.SubscribeAll(func(event domain.Event) {
		slog.Debug("domain event",
			"type", event.EventType(),
			"aggregate_id", event.AggregateID(),
		)
	})

	progressEngine := progress.NewEngine(profiles, dispatcher)
	rewardEngine := gamification.NewEngine(ledgers, catalog, dispatcher)

	// Queue
	conn, err := queue.NewConnection(st.rabbitMQURL)
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	defer conn.Close()

	producer := queue.NewProducer(conn)
	orchestrator := adaptivity.NewOrchestrator(progressEngine, rewardEngine, registry, dispatcher, producer)

	// Analysis fallback for submissions that arrive unscored.
	var analyzer analysis.Analyzer
	if st.analysisEnabled {
		resilient := analysis.NewResilientAnalyzer(analysis.NewClient(st.analysisURL), analysis.DefaultResilientConfig())
		defer resilient.Close()
		analyzer = resilient
		slog.Info("analysis service enabled", "url", st.analysisURL)
	}

	consumer := queue.NewConsumer(conn, newSubmissionHandler(orchestrator, registry, analyzer), queue.ConsumerConfig{
		Workers:  st.workers,
		Prefetch: st.prefetch,
		Timeout:  st.timeout,
	})
	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	slog.Info("forged started", "queue", queue.SubmissionQueueName, "workers", st.workers)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	slog.Info("received signal, shutting down", "signal", sig.String())
	consumer.Stop()
	slog.Info("daemon stopped")
	return nil
}

// newSubmissionHandler bridges queue deliveries into the orchestrator. A
// returned error dead-letters the message; submissions for unknown missions
// are dead-lettered rather than awarded blind XP.
func newSubmissionHandler(orchestrator *adaptivity.Orchestrator, registry *mission.Registry, analyzer analysis.Analyzer) queue.SubmissionHandler {
	return func(ctx context.Context, sub *queue.ScoredSubmission) error {
		m, err := registry.Get(sub.MissionID)
		if err != nil {
			return fmt.Errorf("resolve mission %q: %w", sub.MissionID, err)
		}

		feedback := resolveFeedback(ctx, analyzer, sub, m)

		submittedAt := sub.SubmittedAt
		if submittedAt.IsZero() {
			submittedAt = time.Now()
		}

		outcome, err := orchestrator.ProcessSubmission(ctx, adaptivity.SubmissionSignal{
			UserID:       sub.UserID,
			MissionID:    sub.MissionID,
			SubmissionID: sub.ID,
			Mission:      *m,
			Feedback:     feedback,
			Attempts:     sub.Attempts,
			HintsUsed:    sub.HintsUsed,
			TimeSpent:    sub.TimeSpent,
			SubmittedAt:  submittedAt,
		})
		if err != nil {
			return fmt.Errorf("process submission %s: %w", sub.ID, err)
		}

		slog.Info("submission committed",
			"submission_id", sub.ID,
			"user_id", sub.UserID,
			"mission_id", sub.MissionID,
			"xp_gained", outcome.XPGained,
			"level", outcome.Level,
			"streak", outcome.Streak,
			"new_achievements", len(outcome.NewAchievements),
		)
		return nil
	}
}

// resolveFeedback returns the upstream score when present, asks the analysis
// service otherwise, and falls back to a neutral result when the service is
// disabled or unavailable.
func resolveFeedback(ctx context.Context, analyzer analysis.Analyzer, sub *queue.ScoredSubmission, m *domain.Mission) domain.AnalysisResult {
	if sub.Feedback != nil {
		return *sub.Feedback
	}
	if analyzer == nil {
		return domain.AnalysisResult{}
	}

	result, err := analyzer.Analyze(ctx, &analysis.Request{
		SubmissionID: sub.ID.String(),
		MissionID:    sub.MissionID,
		Language:     sub.Language,
		Code:         sub.Code,
		Concepts:     m.Concepts,
	})
	if err != nil {
		slog.Warn("analysis unavailable, using neutral feedback",
			"submission_id", sub.ID,
			"error", err,
		)
		return domain.AnalysisResult{}
	}
	return *result
}

func envSettings(cfg *config.Config) settings {
	level := "info"
	if cfg.Debug {
		level = "debug"
	}
	return settings{
		logLevel:        level,
		dbDriver:        cfg.DBDriver,
		sqlitePath:      cfg.SQLitePath,
		databaseURL:     cfg.DatabaseURL,
		rabbitMQURL:     cfg.RabbitMQURL,
		analysisURL:     cfg.AnalysisURL,
		analysisEnabled: cfg.AnalysisEnabled,
		missionsPath:    cfg.MissionsPath,
		workers:         cfg.ConsumerWorkers,
		prefetch:        cfg.ConsumerPrefetch,
		timeout:         time.Duration(cfg.ConsumerTimeout) * time.Second,
	}
}

func localSettings(cfg *config.LocalConfig) settings {
	return settings{
		logLevel:        cfg.Daemon.LogLevel,
		dbDriver:        cfg.Storage.Driver,
		sqlitePath:      cfg.Storage.SQLitePath,
		databaseURL:     cfg.Storage.DatabaseURL,
		rabbitMQURL:     cfg.Queue.URL,
		analysisURL:     cfg.Analysis.URL,
		analysisEnabled: cfg.Analysis.Enabled,
		missionsPath:    cfg.Missions.Path,
		workers:         cfg.Queue.Workers,
		prefetch:        cfg.Queue.Prefetch,
		timeout:         30 * time.Second,
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupLocalLogging writes JSON logs to ~/.skillforge/logs/forged.log and
// text logs to stderr for foreground runs.
func setupLocalLogging(dir string, level slog.Level) (*os.File, error) {
	logPath := filepath.Join(dir, "logs", "forged.log")

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	handler := &multiHandler{
		handlers: []slog.Handler{
			slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: level}),
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
		},
	}
	slog.SetDefault(slog.New(handler))

	return logFile, nil
}

func writePIDFile(path string) error {
	pid := os.Getpid()
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", pid)), 0644)
}

// multiHandler logs to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

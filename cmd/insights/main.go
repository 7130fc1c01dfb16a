package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"shop-insights/internal/analytics"
	"shop-insights/internal/assistant"
	"shop-insights/internal/auth"
	"shop-insights/internal/chat"
	"shop-insights/internal/config"
	"shop-insights/internal/llm"
	"shop-insights/internal/logging"
	"shop-insights/internal/pending"
	"shop-insights/internal/scheduler"
	"shop-insights/internal/session"
	"shop-insights/internal/storage"
	"shop-insights/internal/telegram"
	"shop-insights/internal/web"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.AppLogPath)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clients, err := llm.NewFactory(cfg)
	if err != nil {
		logger.Fatal("failed to create llm client", zap.Error(err))
	}

	store, closeStore, err := newSessionStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to init session store", zap.Error(err))
	}
	defer closeStore()

	policy, _ := chat.ParsePolicy(cfg.HistoryPolicy)
	opts := []assistant.Option{
		assistant.WithPolicy(policy),
		assistant.WithSystemPrompt(readSystemPrompt(cfg.SystemPromptPath, logger)),
	}

	var rec *storage.FileRecorder
	if cfg.LogFilePath != "" {
		rec, err = storage.NewFileRecorder(cfg.LogFilePath)
		if err != nil {
			logger.Warn("failed to init interaction log", zap.Error(err))
		} else {
			defer rec.Close()
			opts = append(opts, assistant.WithRecorder(rec))
		}
	}

	svc := assistant.New(store, clients, logger, opts...)

	srv := web.New(cfg.HTTPAddr, svc, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("web server stopped", zap.Error(err))
			stop()
		}
	}()

	var bot *telegram.Bot
	if cfg.TelegramEnabled() {
		bot, err = newBot(cfg, svc, logger)
		if err != nil {
			logger.Fatal("failed to create telegram bot", zap.Error(err))
		}
		go bot.Start(ctx)
	}

	sched := scheduler.New(cfg.DailyReportCron, logger)
	if rec != nil {
		sched.SetReportFunction(func(ctx context.Context) error {
			events, err := rec.LoadInteractions()
			if err != nil {
				return err
			}
			stats := analytics.AnalyzeDailyLogs(events, time.Now().UTC())
			summary := stats.GenerateReportSummary()
			logger.Info("daily report",
				zap.Int("messages", stats.TotalMessages),
				zap.Int("sessions", stats.UniqueSessions),
				zap.Float64("failure_rate", stats.FailureRate()))
			if bot != nil {
				bot.SendReport(summary)
			}
			return nil
		})
		if err := sched.Start(); err != nil {
			logger.Warn("daily report disabled", zap.Error(err))
		}
	}

	<-ctx.Done()
	logger.Info("shutting down")
	sched.Stop()
	if err := srv.Stop(context.Background()); err != nil {
		logger.Error("web server shutdown", zap.Error(err))
	}
}

func newSessionStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	if cfg.SessionStore != config.StoreRedis {
		return session.NewMemoryStore(), func() {}, nil
	}
	rs, err := session.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.SessionTTL)
	if err != nil {
		return nil, nil, err
	}
	return rs, func() { _ = rs.Close() }, nil
}

func newBot(cfg *config.Config, svc *assistant.Service, logger *zap.Logger) (*telegram.Bot, error) {
	var repo auth.Repository
	if cfg.AllowlistFilePath != "" {
		fr, err := auth.NewFileRepository(cfg.AllowlistFilePath)
		if err != nil {
			logger.Warn("failed to init allowlist repo", zap.Error(err))
		} else {
			repo = fr
		}
	}
	authSvc, err := auth.NewWithRepo(repo, cfg.AllowedUsers)
	if err != nil {
		return nil, err
	}

	var pendingRepo auth.Repository
	if cfg.PendingFilePath != "" {
		fr, err := auth.NewFileRepository(cfg.PendingFilePath)
		if err != nil {
			logger.Warn("failed to init pending repo", zap.Error(err))
		} else {
			pendingRepo = fr
		}
	}
	queue, err := pending.NewQueue(pendingRepo)
	if err != nil {
		return nil, err
	}
	return telegram.New(cfg.TelegramBotToken, authSvc, queue, svc, logger, cfg.AdminUserID, cfg.MessageParseMode)
}

// readSystemPrompt falls back to the built-in analytics prompt when the file
// is missing or blank.
func readSystemPrompt(path string, logger *zap.Logger) string {
	if path == "" {
		return chat.DefaultSystemPrompt
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("system prompt unreadable", zap.String("path", path), zap.Error(err))
		}
		return chat.DefaultSystemPrompt
	}
	if p := strings.TrimSpace(string(data)); p != "" {
		return p
	}
	return chat.DefaultSystemPrompt
}

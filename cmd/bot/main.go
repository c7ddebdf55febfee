package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/mattn/go-sqlite3"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mareevma/skladbot/internal/adapter/handler"
	"github.com/mareevma/skladbot/internal/adapter/llm"
	"github.com/mareevma/skladbot/internal/adapter/storage"
	"github.com/mareevma/skladbot/internal/config"
	"github.com/mareevma/skladbot/internal/core/service"
	"github.com/mareevma/skladbot/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zlog.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize SQLite. One connection for the whole process: scripts
	// never interleave against the store.
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on", cfg.DBPath))
	if err != nil {
		zlog.Fatal("failed to open database", zap.Error(err))
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		zlog.Fatal("failed to ping database", zap.Error(err))
	}

	if err := storage.InitSchema(ctx, db); err != nil {
		zlog.Fatal("failed to init schema", zap.Error(err))
	}
	zlog.Info("database ready", zap.String("path", cfg.DBPath))

	// Initialize adapters
	store := storage.NewSQLiteStore(db)
	generator := llm.NewOpenAIGenerator(newOpenAIClient(cfg), cfg.OpenAIModel)

	// Initialize service
	commands := service.NewCommandService(store, generator, cfg.ContextLimit, zlog)

	// Initialize Telegram handler
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		zlog.Fatal("failed to connect to telegram", zap.Error(err))
	}
	zlog.Info("authorized on telegram", zap.String("username", bot.Self.UserName))

	tg := handler.NewTelegramHandler(bot, commands, store, cfg.LLMTimeout, zlog)
	if err := tg.SetupCommands(); err != nil {
		zlog.Fatal("failed to set bot commands", zap.Error(err))
	}

	go tg.Run(ctx)

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(commands, store)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", httpHandler.HealthCheck)
	mux.HandleFunc("/api/command", httpHandler.Command)
	mux.HandleFunc("/api/stock", httpHandler.Stock)
	mux.HandleFunc("/api/logs", httpHandler.Logs)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		zlog.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			zlog.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	zlog.Info("HTTP server stopped")

	db.Close()
	zlog.Info("database closed")
}

func newOpenAIClient(cfg *config.Config) *openai.Client {
	oc := openai.DefaultConfig(cfg.OpenAIKey)
	if cfg.OpenAIBaseURL != "" {
		oc.BaseURL = cfg.OpenAIBaseURL
	}
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			log.Fatalf("invalid PROXY url: %v", err)
		}
		oc.HTTPClient = &http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}
	}
	return openai.NewClientWithConfig(oc)
}

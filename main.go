package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ytget/coursegrab/internal/api"
	"github.com/ytget/coursegrab/internal/bot"
	"github.com/ytget/coursegrab/internal/config"
	"github.com/ytget/coursegrab/internal/extract"
	"github.com/ytget/coursegrab/internal/job"
	"github.com/ytget/coursegrab/internal/logger"
	"github.com/ytget/coursegrab/internal/platform"
	"github.com/ytget/coursegrab/internal/transfer"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("coursegrab starting", "version", version)

	if err := platform.CreateDirectoryIfNotExists(cfg.DownloadPath); err != nil {
		log.Fatal("cannot create download directory", "path", cfg.DownloadPath, "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiBase := cfg.APIBaseURL
	if apiBase == "" {
		apiBase = api.DefaultAPIBaseURL
	}
	webBase := cfg.WebBaseURL
	if webBase == "" {
		webBase = api.DefaultWebBaseURL
	}

	client := api.NewClient(apiBase, webBase, log)
	auth := api.NewAuthenticator(client)
	resolver := extract.NewResolver(client, log)
	traverser := extract.NewTraverser(client, resolver, log)

	downloader := transfer.NewDownloader(log)
	pipeline := transfer.NewPipeline(downloader, cfg.DownloadPath, cfg.MaxFileBytes(), log)

	store := job.NewStore()

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal("telegram init failed", "error", err)
	}

	if cfg.DestinationChatID != 0 {
		for _, adminID := range cfg.AdminIDs {
			store.SetDestination(adminID, cfg.DestinationChatID)
		}
	}

	bot.StartHealthServer(ctx, cfg.Port, log)

	b := bot.New(botAPI, cfg, store, auth, traverser, pipeline, log)
	b.Run(ctx)

	log.Info("coursegrab stopped")
}

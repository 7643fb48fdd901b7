package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-telegram/bot"
	"github.com/joho/godotenv"

	"github.com/sharpline/sharpline-go/internal/config"
	"github.com/sharpline/sharpline-go/internal/logging"
	"github.com/sharpline/sharpline-go/internal/providers"
)

func main() {
	fmt.Println("🔧 Validating odds feed configuration...")

	// Load .env file
	if err := godotenv.Load(); err != nil {
		fmt.Printf("⚠️  Warning: Could not load .env file: %v\n", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Check if the odds API key is configured
	if cfg.Providers.OddsAPIKey == "" {
		fmt.Println("❌ ODDS_API_KEY is not configured")
		os.Exit(1)
	}
	fmt.Printf("✅ ODDS_API_KEY is configured (length: %d)\n", len(cfg.Providers.OddsAPIKey))

	if len(cfg.Providers.Sports) == 0 {
		fmt.Println("⚠️  No sports configured, the pipeline will default to NFL")
	} else {
		fmt.Printf("✅ Sports configured: %v\n", cfg.Providers.Sports)
	}

	// Try the feed with a cheap sports listing call
	fmt.Println("🔍 Testing odds API connection...")
	events := logging.NewStandardLogger(cfg.LogLevel, cfg.Environment)
	client := providers.NewTheOddsAPIClient(&cfg.Providers, events)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	sports, err := client.ListSports(ctx)
	if err != nil {
		fmt.Printf("❌ Failed to list sports: %v\n", err)
		os.Exit(1)
	}

	active := 0
	for _, sport := range sports {
		if sport.Active {
			active++
		}
	}
	fmt.Printf("✅ Odds API connection successful (%d sports, %d active)\n", len(sports), active)
	if remaining := client.RemainingRequests(); remaining >= 0 {
		fmt.Printf("   Requests remaining on key: %d\n", remaining)
	}

	// Telegram is optional: if a token is present verify it works
	if cfg.Telegram.BotToken == "" {
		fmt.Println("⚠️  TELEGRAM_BOT_TOKEN is not configured, alert push disabled")
	} else {
		fmt.Printf("✅ TELEGRAM_BOT_TOKEN is configured (length: %d)\n", len(cfg.Telegram.BotToken))

		b, err := bot.New(cfg.Telegram.BotToken)
		if err != nil {
			fmt.Printf("❌ Failed to create Telegram bot: %v\n", err)
			os.Exit(1)
		}

		botInfo, err := b.GetMe(ctx)
		if err != nil {
			fmt.Printf("❌ Failed to get bot info: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✅ Telegram bot connected: @%s\n", botInfo.Username)

		if cfg.Telegram.ChatID == "" {
			fmt.Println("⚠️  TELEGRAM_CHAT_ID is not configured, alerts have nowhere to go")
		}
	}

	fmt.Println("\n🎉 Feed configuration checks passed!")
}

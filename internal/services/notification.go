package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	botModels "github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sharpline/sharpline-go/internal/config"
	"github.com/sharpline/sharpline-go/internal/database"
	"github.com/sharpline/sharpline-go/internal/models"
)

// defaultNotifyInterval is how often the alert poll runs when the
// configured interval is missing or unparseable.
const defaultNotifyInterval = time.Minute

// NotificationAlertStore is the slice of the alert repository the
// notifier polls. Read doubles as notified here: once a push goes out
// the alert is marked read so the next poll skips it.
type NotificationAlertStore interface {
	ListUnnotified(ctx context.Context, minSeverity models.Severity, now time.Time) ([]models.LineMovementAlert, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}

// NotificationGameStore resolves game IDs to matchups for message text.
type NotificationGameStore interface {
	GetGame(ctx context.Context, id string) (*models.Game, error)
}

var _ NotificationAlertStore = (*database.AlertRepository)(nil)
var _ NotificationGameStore = (*database.GameRepository)(nil)

// NotificationService pushes line movement alerts and scan findings to
// a Telegram chat. The bot is optional: with no token configured the
// service still constructs, Start idles, and sends report an error the
// caller logs and moves past.
type NotificationService struct {
	alerts       NotificationAlertStore
	games        NotificationGameStore
	recovery     *ErrorRecoveryManager
	bot          *bot.Bot
	chatID       string
	pollInterval time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	mu           sync.RWMutex
	isRunning    bool
	logger       *logrus.Logger
	lastPush     time.Time
}

// NewNotificationService wires the Telegram push channel over the alert
// store. An empty bot token leaves the bot nil so deployments without
// Telegram run everything else untouched.
func NewNotificationService(alerts NotificationAlertStore, games NotificationGameStore, recovery *ErrorRecoveryManager, cfg config.TelegramConfig) *NotificationService {
	ctx, cancel := context.WithCancel(context.Background())

	logger := logrus.New()

	var telegramBot *bot.Bot
	if cfg.BotToken != "" {
		var err error
		telegramBot, err = bot.New(cfg.BotToken)
		if err != nil {
			logger.WithError(err).Error("Failed to initialize Telegram bot")
		}
	}

	pollInterval := defaultNotifyInterval
	if parsed, err := time.ParseDuration(cfg.PollInterval); err == nil && parsed > 0 {
		pollInterval = parsed
	}

	if recovery == nil {
		recovery = NewErrorRecoveryManager(logger)
	}

	return &NotificationService{
		alerts:       alerts,
		games:        games,
		recovery:     recovery,
		bot:          telegramBot,
		chatID:       cfg.ChatID,
		pollInterval: pollInterval,
		ctx:          ctx,
		cancel:       cancel,
		logger:       logger,
	}
}

// Start begins the periodic alert push. Without a configured bot there
// is nothing to deliver to, so Start logs and stays idle.
func (ns *NotificationService) Start() error {
	if ns.bot == nil {
		ns.logger.Info("Telegram bot not configured, notification service idle")
		return nil
	}

	ns.mu.Lock()
	if ns.isRunning {
		ns.mu.Unlock()
		return fmt.Errorf("notification service is already running")
	}
	ns.isRunning = true
	ns.mu.Unlock()

	ns.logger.WithField("poll_interval", ns.pollInterval.String()).Info("Starting notification service")

	ns.wg.Add(1)
	go ns.pollLoop()

	return nil
}

// Stop gracefully shuts down the notification service.
func (ns *NotificationService) Stop() {
	ns.mu.Lock()
	if !ns.isRunning {
		ns.mu.Unlock()
		return
	}
	ns.isRunning = false
	ns.mu.Unlock()

	ns.logger.Info("Stopping notification service")
	ns.cancel()
	ns.wg.Wait()
	ns.logger.Info("Notification service stopped")
}

// IsRunning returns true if the poll loop is active.
func (ns *NotificationService) IsRunning() bool {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return ns.isRunning
}

// GetStatus returns whether the loop is running and when the last push
// went out.
func (ns *NotificationService) GetStatus() (bool, time.Time) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return ns.isRunning, ns.lastPush
}

// pollLoop flushes pending alerts until the service is stopped.
func (ns *NotificationService) pollLoop() {
	defer ns.wg.Done()

	if _, err := ns.NotifyMovementAlerts(ns.ctx); err != nil {
		ns.logger.WithError(err).Error("Initial movement alert push failed")
	}

	ticker := time.NewTicker(ns.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ns.ctx.Done():
			return
		case <-ticker.C:
			if _, err := ns.NotifyMovementAlerts(ns.ctx); err != nil {
				ns.logger.WithError(err).Error("Movement alert push failed")
			}
		}
	}
}

// NotifyMovementAlerts pushes unread high severity alerts to the
// configured chat in one message and marks them read. The admin API
// calls this directly to force a flush outside the ticker.
//
// Parameters:
//
//	ctx: Context for cancellation.
//
// Returns:
//
//	int: Number of alerts marked notified.
//	error: Error if listing or sending fails.
func (ns *NotificationService) NotifyMovementAlerts(ctx context.Context) (int, error) {
	alerts, err := ns.alerts.ListUnnotified(ctx, models.SeverityHigh, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to list unnotified alerts: %w", err)
	}

	if len(alerts) == 0 {
		return 0, nil
	}

	message := ns.formatAlertMessage(alerts, ns.lookupMatchups(ctx, alerts))

	if err := ns.send(ctx, message); err != nil {
		return 0, err
	}

	notified := 0
	for i := range alerts {
		if err := ns.alerts.MarkRead(ctx, alerts[i].ID); err != nil {
			ns.logger.WithError(err).WithField("alert_id", alerts[i].ID).Error("Failed to mark alert notified")
			continue
		}
		notified++
	}

	ns.mu.Lock()
	ns.lastPush = time.Now()
	ns.mu.Unlock()

	ns.logger.WithFields(logrus.Fields{
		"alerts":   len(alerts),
		"notified": notified,
	}).Info("Sent movement alert notification")

	return notified, nil
}

// NotifyOpportunities pushes scan findings to the configured chat. The
// scan service calls this with its high confidence results.
func (ns *NotificationService) NotifyOpportunities(ctx context.Context, opportunities []models.Opportunity) error {
	if len(opportunities) == 0 {
		return nil
	}

	return ns.send(ctx, ns.formatOpportunityMessage(opportunities))
}

// lookupMatchups resolves the alerts' game IDs to "Away @ Home" labels.
// A game that cannot be loaded falls back to its raw ID in the message.
func (ns *NotificationService) lookupMatchups(ctx context.Context, alerts []models.LineMovementAlert) map[string]string {
	matchups := make(map[string]string, len(alerts))
	if ns.games == nil {
		return matchups
	}

	for i := range alerts {
		gameID := alerts[i].GameID
		if _, ok := matchups[gameID]; ok {
			continue
		}

		game, err := ns.games.GetGame(ctx, gameID)
		if err != nil || game == nil {
			continue
		}
		matchups[gameID] = fmt.Sprintf("%s @ %s", game.AwayTeam, game.HomeTeam)
	}

	return matchups
}

// send delivers one Markdown message under the telegram_send retry
// policy.
func (ns *NotificationService) send(ctx context.Context, text string) error {
	if ns.bot == nil {
		return fmt.Errorf("telegram bot not initialized")
	}

	chatID, err := strconv.ParseInt(ns.chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", ns.chatID, err)
	}

	return ns.recovery.ExecuteWithRetry(ctx, "telegram_send", func() error {
		_, err := ns.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      text,
			ParseMode: botModels.ParseModeMarkdown,
		})
		if err != nil {
			return fmt.Errorf("failed to send telegram message: %w", err)
		}
		return nil
	})
}

// formatAlertMessage renders unread alerts as one Markdown push. The
// first three are spelled out, the rest are summarized by count.
func (ns *NotificationService) formatAlertMessage(alerts []models.LineMovementAlert, matchups map[string]string) string {
	if len(alerts) == 0 {
		return "No line movement alerts."
	}

	message := "🚨 *Sharp Line Movement*\n\n"
	message += fmt.Sprintf("Found %d high severity moves:\n\n", len(alerts))

	maxDisplay := 3
	if len(alerts) < maxDisplay {
		maxDisplay = len(alerts)
	}

	for i := 0; i < maxDisplay; i++ {
		alert := alerts[i]

		label := matchups[alert.GameID]
		if label == "" {
			label = alert.GameID
		}

		message += fmt.Sprintf("*%d. %s*\n", i+1, label)
		message += fmt.Sprintf("   %s %s\n", alertTypeLabel(alert.AlertType), alert.Market)
		message += fmt.Sprintf("   📊 %s: `%s` → `%s` (%s pts)\n",
			alert.Bookmaker,
			alert.OpeningLine.StringFixed(1),
			alert.CurrentLine.StringFixed(1),
			alert.Movement.StringFixed(1))
		if alert.SharpMoney {
			message += "   💪 Sharp money pattern\n"
		}
		if alert.ReverseLine {
			message += "   🔄 Moving against the public\n"
		}
		message += "\n"
	}

	if len(alerts) > maxDisplay {
		message += fmt.Sprintf("...and %d more alerts\n\n", len(alerts)-maxDisplay)
	}

	message += "⚡ *Lines are moving!* Stale numbers will not last."

	return message
}

// formatOpportunityMessage renders scan findings in the same push
// style, legs priced in American odds.
func (ns *NotificationService) formatOpportunityMessage(opportunities []models.Opportunity) string {
	if len(opportunities) == 0 {
		return "No opportunities found."
	}

	hasArbitrage := false
	hasMiddle := false
	for i := range opportunities {
		switch opportunities[i].Kind {
		case models.OpportunityMiddle:
			hasMiddle = true
		default:
			hasArbitrage = true
		}
	}

	var message string
	switch {
	case hasArbitrage && hasMiddle:
		message = "🤖 *Betting Opportunities*\n\n"
	case hasMiddle:
		message = "🎯 *Middle Opportunities*\n\n"
	default:
		message = "🚀 *Arbitrage Opportunities*\n\n"
	}
	message += fmt.Sprintf("Found %d profitable opportunities:\n\n", len(opportunities))

	maxDisplay := 3
	if len(opportunities) < maxDisplay {
		maxDisplay = len(opportunities)
	}

	for i := 0; i < maxDisplay; i++ {
		opp := opportunities[i]

		message += fmt.Sprintf("*%d. %s @ %s*\n", i+1, opp.AwayTeam, opp.HomeTeam)
		message += fmt.Sprintf("   💰 ROI: *%s%%* (%s profit on %s staked)\n",
			opp.ROIPercent.StringFixed(2),
			opp.MaxProfit.StringFixed(2),
			opp.TotalStake.StringFixed(2))
		message += fmt.Sprintf("   📈 %s: %s at `%s`\n",
			opp.Leg1.Bookmaker, opp.Leg1.Selection, formatAmericanOdds(opp.Leg1.AmericanOdds))
		message += fmt.Sprintf("   📉 %s: %s at `%s`\n",
			opp.Leg2.Bookmaker, opp.Leg2.Selection, formatAmericanOdds(opp.Leg2.AmericanOdds))
		if opp.Kind == models.OpportunityMiddle && opp.MiddleRange != nil {
			message += fmt.Sprintf("   🎯 Middle window: %.1f to %.1f\n", opp.MiddleRange.Min, opp.MiddleRange.Max)
		}
		message += "\n"
	}

	if len(opportunities) > maxDisplay {
		message += fmt.Sprintf("...and %d more opportunities\n\n", len(opportunities)-maxDisplay)
	}

	message += "⚡ *Act fast!* These windows close quickly."

	return message
}

// alertTypeLabel maps an alert type to its message heading.
func alertTypeLabel(alertType models.AlertType) string {
	switch alertType {
	case models.AlertSteamMove:
		return "🔥 Steam move on"
	case models.AlertReverseLine:
		return "🔄 Reverse line move on"
	default:
		return "📈 Significant move on"
	}
}

// formatAmericanOdds renders odds with the leading sign bettors expect.
func formatAmericanOdds(odds int) string {
	if odds > 0 {
		return fmt.Sprintf("+%d", odds)
	}
	return strconv.Itoa(odds)
}

package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/quietgrove/kanto/internal/bot"
	"github.com/quietgrove/kanto/internal/event"
)

type Bot struct {
	api    *tgbotapi.BotAPI
	chatID int64
	bot    *bot.Bot
	logger *slog.Logger
}

func NewBot(token string, chatID int64, b *bot.Bot, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("error creating Telegram bot: %w", err)
	}

	return &Bot{
		api:    api,
		chatID: chatID,
		bot:    b,
		logger: logger,
	}, nil
}

func (b *Bot) Start(ctx context.Context) error {
	offset, err := b.getLatestOffset()
	if err != nil {
		return err
	}

	u := tgbotapi.NewUpdate(offset)
	u.Timeout = 5
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			for range updates {
			}
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.Chat == nil || update.Message.Chat.ID != b.chatID {
				continue
			}

			switch strings.ToLower(strings.TrimSpace(update.Message.Text)) {
			case "start":
				if err := b.bot.Start(); err != nil {
					b.send(fmt.Sprintf("Could not start: %s", err.Error()))
					continue
				}
				b.send("Bot started")
			case "stop":
				b.bot.Stop()
				b.send("Bot stopping")
			case "stats":
				stats := b.bot.Stats().Snapshot()
				b.send(fmt.Sprintf(
					"Status: %s\nMovement cycles: %d\nBattles: %d\nFlees: %d",
					b.bot.Status(), stats.MovementCycles, stats.Battles, stats.Flees,
				))
			}
		}
	}
}

func (b *Bot) getLatestOffset() (int, error) {
	upds, err := b.api.GetUpdates(tgbotapi.NewUpdate(-1))
	if err != nil {
		return 0, err
	}
	offset := 0
	if len(upds) > 0 {
		offset = upds[0].UpdateID + 1
	}
	return offset, nil
}

func (b *Bot) Handle(ctx context.Context, e event.Event) error {
	switch evt := e.(type) {
	case event.BotStartedEvent, event.BotStoppedEvent, event.RecoveryStartedEvent, event.RecoveryFinishedEvent:
		b.send(e.Message())
	case event.BattleFinishedEvent:
		if evt.Outcome == event.OutcomeFled {
			b.send(evt.Message())
		}
	case event.NgrokTunnelEvent:
		b.send(fmt.Sprintf("%s: %s", evt.Message(), evt.URL))
	}
	return nil
}

func (b *Bot) send(message string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(b.chatID, message)); err != nil {
		b.logger.Error("error sending Telegram message", slog.Any("error", err))
	}
}

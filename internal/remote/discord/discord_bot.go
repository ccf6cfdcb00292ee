package discord

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/quietgrove/kanto/internal/bot"
	"github.com/quietgrove/kanto/internal/config"
)

type Bot struct {
	discordSession *discordgo.Session
	channelID      string
	bot            *bot.Bot
}

func NewBot(token, channelID string, b *bot.Bot) (*Bot, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	return &Bot{
		discordSession: dg,
		channelID:      channelID,
		bot:            b,
	}, nil
}

func (b *Bot) Start(ctx context.Context) error {
	b.discordSession.AddHandler(b.onMessageCreated)
	b.discordSession.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	if err := b.discordSession.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	<-ctx.Done()

	return b.discordSession.Close()
}

func (b *Bot) onMessageCreated(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == s.State.User.ID {
		return
	}
	if !slices.Contains(config.Snapshot().Discord.BotAdmins, m.Author.ID) {
		return
	}
	if !strings.HasPrefix(m.Content, "!") {
		return
	}

	switch strings.Split(m.Content, " ")[0] {
	case "!start":
		if err := b.bot.Start(); err != nil {
			b.reply(s, m, fmt.Sprintf("Could not start: %s", err.Error()))
			return
		}
		b.reply(s, m, "Bot started")
	case "!stop":
		b.bot.Stop()
		b.reply(s, m, "Bot stopping")
	case "!stats":
		stats := b.bot.Stats().Snapshot()
		b.reply(s, m, fmt.Sprintf(
			"Status: %s\nMovement cycles: %d\nBattles: %d\nFlees: %d",
			b.bot.Status(), stats.MovementCycles, stats.Battles, stats.Flees,
		))
	}
}

func (b *Bot) reply(s *discordgo.Session, m *discordgo.MessageCreate, message string) {
	if _, err := s.ChannelMessageSend(m.ChannelID, message); err != nil {
		fmt.Printf("error sending Discord message: %s\n", err.Error())
	}
}

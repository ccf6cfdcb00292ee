package discord

import (
	"context"
	"fmt"

	"github.com/quietgrove/kanto/internal/event"
)

func (b *Bot) Handle(ctx context.Context, e event.Event) error {
	switch evt := e.(type) {
	case event.BotStartedEvent:
		return b.sendEventMessage(fmt.Sprintf("%s (session %s)", evt.Message(), evt.SessionID))
	case event.BotStoppedEvent:
		return b.sendEventMessage(evt.Message())
	case event.BattleFinishedEvent:
		// resolved battles are routine, only depletion-driven flees are worth a ping
		if evt.Outcome == event.OutcomeFled {
			return b.sendEventMessage(evt.Message())
		}
	case event.RecoveryStartedEvent, event.RecoveryFinishedEvent:
		return b.sendEventMessage(e.Message())
	case event.NgrokTunnelEvent:
		return b.sendEventMessage(fmt.Sprintf("%s: %s", evt.Message(), evt.URL))
	}

	return nil
}

func (b *Bot) sendEventMessage(message string) error {
	if _, err := b.discordSession.ChannelMessageSend(b.channelID, message); err != nil {
		return fmt.Errorf("error sending Discord event message: %w", err)
	}
	return nil
}

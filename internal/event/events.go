package event

import (
	"time"

	"github.com/google/uuid"
)

type Event interface {
	ID() string
	Message() string
	OccurredAt() time.Time
}

type BaseEvent struct {
	id         string
	message    string
	occurredAt time.Time
}

func (b BaseEvent) ID() string {
	return b.id
}

func (b BaseEvent) Message() string {
	return b.message
}

func (b BaseEvent) OccurredAt() time.Time {
	return b.occurredAt
}

func Text(message string) BaseEvent {
	return BaseEvent{
		id:         uuid.NewString(),
		message:    message,
		occurredAt: time.Now(),
	}
}

type BotStartedEvent struct {
	BaseEvent
	SessionID string
}

func BotStarted(be BaseEvent, sessionID string) BotStartedEvent {
	return BotStartedEvent{BaseEvent: be, SessionID: sessionID}
}

type BotStoppedEvent struct {
	BaseEvent
}

func BotStopped(be BaseEvent) BotStoppedEvent {
	return BotStoppedEvent{BaseEvent: be}
}

type BattleStartedEvent struct {
	BaseEvent
}

func BattleStarted(be BaseEvent) BattleStartedEvent {
	return BattleStartedEvent{BaseEvent: be}
}

type BattleOutcome string

const (
	OutcomeResolved BattleOutcome = "resolved"
	OutcomeFled     BattleOutcome = "fled"
)

type BattleFinishedEvent struct {
	BaseEvent
	Outcome BattleOutcome
}

func BattleFinished(be BaseEvent, outcome BattleOutcome) BattleFinishedEvent {
	return BattleFinishedEvent{BaseEvent: be, Outcome: outcome}
}

type RecoveryStartedEvent struct {
	BaseEvent
}

func RecoveryStarted(be BaseEvent) RecoveryStartedEvent {
	return RecoveryStartedEvent{BaseEvent: be}
}

type RecoveryFinishedEvent struct {
	BaseEvent
}

func RecoveryFinished(be BaseEvent) RecoveryFinishedEvent {
	return RecoveryFinishedEvent{BaseEvent: be}
}

type NgrokTunnelEvent struct {
	BaseEvent
	URL string
}

func NgrokTunnel(url string) NgrokTunnelEvent {
	return NgrokTunnelEvent{BaseEvent: Text("control panel tunnel established"), URL: url}
}

package event

import (
	"context"
	"log/slog"
	"sync"
)

var events = make(chan Event, 64)

type Handler func(ctx context.Context, e Event) error

type Listener struct {
	handlers []Handler
	logger   *slog.Logger
	mu       sync.RWMutex
}

func NewListener(logger *slog.Logger) *Listener {
	return &Listener{
		logger: logger,
	}
}

func (l *Listener) Register(h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = append(l.handlers, h)
}

// Send publishes an event to the listener loop. Non-blocking: if the queue is
// full the event is dropped, notifications are best effort.
func Send(e Event) {
	select {
	case events <- e:
	default:
	}
}

func (l *Listener) Listen(ctx context.Context) error {
	for {
		select {
		case e := <-events:
			l.mu.RLock()
			handlers := l.handlers
			l.mu.RUnlock()
			for _, h := range handlers {
				if err := h(ctx, e); err != nil {
					l.logger.Error("error running event handler", slog.Any("error", err))
				}
			}
		case <-ctx.Done():
			return nil
		}
	}
}

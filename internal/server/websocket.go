package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// clientSendBuffer bounds the per-client queue; a panel tab that stops
// reading is disconnected rather than allowed to stall the broadcast.
const clientSendBuffer = 256

type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// WebSocketServer fans the status payload out to every connected panel.
// All client bookkeeping happens on the Run goroutine, so the maps need no
// locking.
type WebSocketServer struct {
	logger     *slog.Logger
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
}

func NewWebSocketServer(logger *slog.Logger) *WebSocketServer {
	return &WebSocketServer{
		logger:     logger,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (s *WebSocketServer) Run() {
	for {
		select {
		case client := <-s.register:
			s.clients[client] = true
		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
		case message := <-s.broadcast:
			for client := range s.clients {
				select {
				case client.send <- message:
				default:
					// slow consumer, drop it
					close(client.send)
					delete(s.clients, client)
				}
			}
		}
	}
}

func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("panel websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := &Client{conn: conn, send: make(chan []byte, clientSendBuffer)}
	s.register <- client

	go s.writePump(client)
	go s.readPump(client)
}

func (s *WebSocketServer) writePump(client *Client) {
	defer client.conn.Close()

	for message := range client.send {
		w, err := client.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)

		if err := w.Close(); err != nil {
			return
		}
	}
	client.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump drains incoming frames. The panel never sends anything
// meaningful; reading is only needed to notice the peer going away.
func (s *WebSocketServer) readPump(client *Client) {
	defer func() {
		s.unregister <- client
		client.conn.Close()
	}()

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Debug("panel websocket closed unexpectedly", slog.Any("error", err))
			}
			return
		}
	}
}

package server

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func receiveOrFail(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a broadcast payload")
		return nil
	}
}

func TestHubBroadcastReachesEveryClient(t *testing.T) {
	hub := NewWebSocketServer(testLogger())
	go hub.Run()

	a := &Client{send: make(chan []byte, 1)}
	b := &Client{send: make(chan []byte, 1)}
	hub.register <- a
	hub.register <- b

	payload := []byte(`{"status":"moving"}`)
	hub.broadcast <- payload

	for _, c := range []*Client{a, b} {
		if got := string(receiveOrFail(t, c)); got != string(payload) {
			t.Errorf("got payload %q, want %q", got, payload)
		}
	}
}

func TestHubDropsClientThatStopsReading(t *testing.T) {
	hub := NewWebSocketServer(testLogger())
	go hub.Run()

	stuck := &Client{send: make(chan []byte)}
	live := &Client{send: make(chan []byte, 2)}
	hub.register <- stuck
	hub.register <- live

	hub.broadcast <- []byte("one")
	hub.broadcast <- []byte("two")

	if got := string(receiveOrFail(t, live)); got != "one" {
		t.Errorf("live client got %q, want %q", got, "one")
	}
	if got := string(receiveOrFail(t, live)); got != "two" {
		t.Errorf("live client got %q, want %q", got, "two")
	}

	select {
	case _, ok := <-stuck.send:
		if ok {
			t.Error("stuck client received a payload instead of being dropped")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stuck client's send channel was never closed")
	}
}

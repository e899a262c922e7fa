package vigil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// FeedConfig configures the live alert feed.
type FeedConfig struct {
	// BufferSize is the per-client outbound queue length. Default: 64.
	BufferSize int

	// PingInterval is how often clients are pinged. Default: 30s.
	PingInterval time.Duration

	// WriteTimeout bounds each outbound write. Default: 10s.
	WriteTimeout time.Duration

	// CheckOrigin overrides the upgrade origin check. Nil allows all origins.
	CheckOrigin func(r *http.Request) bool
}

// DefaultFeedConfig returns the feed defaults.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		BufferSize:   64,
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// AlertFeed broadcasts alert records to WebSocket subscribers. It implements
// Notifier, so it can sit in the pipeline's notifier fan-out. Slow clients
// are disconnected rather than allowed to block the feed.
type AlertFeed struct {
	config   FeedConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*feedClient]struct{}
	closed  bool
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewAlertFeed creates an alert feed.
func NewAlertFeed(config FeedConfig) *AlertFeed {
	if config.BufferSize <= 0 {
		config.BufferSize = 64
	}
	if config.PingInterval <= 0 {
		config.PingInterval = 30 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}
	checkOrigin := config.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &AlertFeed{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger:  slog.Default().With("component", "feed"),
		clients: make(map[*feedClient]struct{}),
	}
}

// ServeHTTP upgrades the request to a WebSocket subscription.
func (f *AlertFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := &feedClient{
		conn: conn,
		send: make(chan []byte, f.config.BufferSize),
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		conn.Close()
		return
	}
	f.clients[client] = struct{}{}
	n := len(f.clients)
	f.mu.Unlock()

	f.logger.Info("client subscribed", "remote", r.RemoteAddr, "clients", n)

	go f.writePump(client)
	f.readPump(client)
}

// Notify broadcasts the alert record to all subscribers.
func (f *AlertFeed) Notify(_ context.Context, record AlertRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for client := range f.clients {
		select {
		case client.send <- data:
		default:
			// Client cannot keep up; drop it.
			delete(f.clients, client)
			close(client.send)
		}
	}
	return nil
}

// Subscribers returns the current subscriber count.
func (f *AlertFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// Close disconnects all subscribers and rejects new ones.
func (f *AlertFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	for client := range f.clients {
		delete(f.clients, client)
		close(client.send)
	}
	return nil
}

func (f *AlertFeed) remove(client *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.clients[client]; ok {
		delete(f.clients, client)
		close(client.send)
	}
}

func (f *AlertFeed) readPump(client *feedClient) {
	defer func() {
		f.remove(client)
		client.conn.Close()
	}()
	client.conn.SetReadLimit(512)
	client.conn.SetPongHandler(func(string) error { return nil })
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *AlertFeed) writePump(client *feedClient) {
	ticker := time.NewTicker(f.config.PingInterval)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()
	for {
		select {
		case data, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

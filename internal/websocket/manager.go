package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"eventstorming-sync-server/internal/metrics"

	"go.uber.org/zap"
)

var ErrTooManyConnections = errors.New("too many connections")

type Options struct {
	MaxConnections int
	SendBufferSize int
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
}

func DefaultOptions() Options {
	return Options{
		MaxConnections: 1000,
		SendBufferSize: 256,
		MaxMessageSize: 1 << 20,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
	}
}

// MessageHandler receives decoded messages on the sending client's read
// goroutine and the disconnect notification once the client is gone.
type MessageHandler interface {
	HandleWebSocketMessage(client *Client, msg *Message) error
	HandleDisconnect(client *Client)
}

// Manager owns the open connections. Sends to a client's queue only happen
// while holding clientsMutex and after checking the client is still
// registered, so a queue is never written after it is closed.
type Manager struct {
	clients        map[string]*Client
	clientsMutex   sync.RWMutex
	unregister     chan *Client
	done           chan struct{}
	opts           Options
	messageHandler MessageHandler
	logger         *zap.Logger
	metrics        *metrics.Collector
}

func NewManager(opts Options, logger *zap.Logger, collector *metrics.Collector) *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
		opts:       opts,
		logger:     logger.Named("ws"),
		metrics:    collector,
	}
}

func (m *Manager) SetMessageHandler(handler MessageHandler) {
	m.messageHandler = handler
}

// Run serves unregistrations until ctx ends, then closes every connection.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(m.done)
			m.closeAll()
			return

		case client := <-m.unregister:
			m.unregisterClient(client)
		}
	}
}

// Register admits a client before its pumps start.
func (m *Manager) Register(client *Client) error {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if len(m.clients) >= m.opts.MaxConnections {
		m.logger.Warn("max connections reached", zap.String("connection_id", client.ID))
		return ErrTooManyConnections
	}

	m.clients[client.ID] = client
	m.metrics.ActiveConnections.Inc()
	m.logger.Info("client registered", zap.String("connection_id", client.ID))
	return nil
}

// Unregister hands the client to Run for removal. It never blocks after
// the manager stopped.
func (m *Manager) Unregister(client *Client) {
	select {
	case m.unregister <- client:
	case <-m.done:
	}
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()
	if _, ok := m.clients[client.ID]; !ok {
		m.clientsMutex.Unlock()
		return
	}
	delete(m.clients, client.ID)
	close(client.Send)
	m.clientsMutex.Unlock()

	m.metrics.ActiveConnections.Dec()
	m.logger.Info("client unregistered", zap.String("connection_id", client.ID))

	if m.messageHandler != nil {
		m.messageHandler.HandleDisconnect(client)
	}
}

func (m *Manager) closeAll() {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	for id, client := range m.clients {
		close(client.Send)
		delete(m.clients, id)
		m.metrics.ActiveConnections.Dec()
	}
	m.logger.Info("all connections closed")
}

func (m *Manager) processMessage(client *Client, raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		m.logger.Warn("error unmarshaling message", zap.String("connection_id", client.ID), zap.Error(err))
		m.metrics.EventsRejected.WithLabelValues("malformed").Inc()
		m.SendError(client.ID, "malformed message")
		return
	}

	if m.messageHandler != nil {
		if err := m.messageHandler.HandleWebSocketMessage(client, &msg); err != nil {
			m.logger.Warn("error handling message",
				zap.String("connection_id", client.ID),
				zap.String("type", string(msg.Type)),
				zap.Error(err),
			)
			m.SendError(client.ID, err.Error())
		}
	}
}

// SendToClient queues a message for one connection. Unknown ids are ignored.
func (m *Manager) SendToClient(clientID string, message *Message) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()
	m.enqueue(clientID, messageBytes)
	return nil
}

// BroadcastTo queues the same message for several connections, dropping
// any connection whose queue is full.
func (m *Manager) BroadcastTo(clientIDs []string, message *Message) error {
	if len(clientIDs) == 0 {
		return nil
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()
	for _, id := range clientIDs {
		m.enqueue(id, messageBytes)
	}
	return nil
}

func (m *Manager) SendError(clientID, text string) {
	msg, err := NewMessage(TypeError, &ErrorPayload{Message: text})
	if err != nil {
		return
	}
	if err := m.SendToClient(clientID, msg); err != nil {
		m.logger.Debug("error message not sent", zap.Error(err))
	}
}

// enqueue must be called with clientsMutex held.
func (m *Manager) enqueue(clientID string, data []byte) bool {
	client, exists := m.clients[clientID]
	if !exists {
		return false
	}

	select {
	case client.Send <- data:
		return true
	default:
		m.metrics.MessagesDropped.Inc()
		m.logger.Warn("client send buffer full, closing connection", zap.String("connection_id", clientID))
		go m.Unregister(client)
		return false
	}
}

func (m *Manager) ConnectionCount() int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()
	return len(m.clients)
}

package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"eventstorming-sync-server/internal/websocket"

	"github.com/cenkalti/backoff/v5"
	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	ErrNotConnected   = errors.New("not connected")
	ErrSendBufferFull = errors.New("send buffer full")
)

// Handler receives what arrives on the transport. All calls come from the
// transport's Run goroutine.
type Handler interface {
	HandleMessage(msg *websocket.Message)
	HandleConnected()
	HandleDisconnected()
}

type TransportOptions struct {
	SendBufferSize int
	WriteWait      time.Duration
	MinRetry       time.Duration
	MaxRetry       time.Duration
}

func DefaultTransportOptions() TransportOptions {
	return TransportOptions{
		SendBufferSize: 256,
		WriteWait:      10 * time.Second,
		MinRetry:       500 * time.Millisecond,
		MaxRetry:       30 * time.Second,
	}
}

// WSTransport keeps one websocket open to the hub, redialing with
// exponential backoff whenever it drops. Messages sent while no connection
// is up are dropped.
type WSTransport struct {
	url    string
	dialer *ws.Dialer
	opts   TransportOptions
	logger *zap.Logger

	mu  sync.Mutex
	out chan []byte
}

func NewWSTransport(url string, opts TransportOptions, logger *zap.Logger) *WSTransport {
	return &WSTransport{
		url:    url,
		dialer: ws.DefaultDialer,
		opts:   opts,
		logger: logger.Named("transport"),
	}
}

func (t *WSTransport) Send(msg *websocket.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.out == nil {
		return ErrNotConnected
	}
	select {
	case t.out <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (t *WSTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.out != nil
}

// Run dials, serves and redials until ctx ends.
func (t *WSTransport) Run(ctx context.Context, h Handler) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.opts.MinRetry
	b.MaxInterval = t.opts.MaxRetry

	for {
		conn, _, err := t.dialer.DialContext(ctx, t.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			wait := b.NextBackOff()
			t.logger.Warn("dial failed, retrying", zap.String("url", t.url), zap.Duration("in", wait), zap.Error(err))

			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}

		b.Reset()
		t.logger.Info("connected", zap.String("url", t.url))
		t.serve(ctx, conn, h)

		if ctx.Err() != nil {
			return
		}
		t.logger.Warn("connection lost", zap.String("url", t.url))
		h.HandleDisconnected()
	}
}

// serve pumps one connection until it fails or ctx ends.
func (t *WSTransport) serve(ctx context.Context, conn *ws.Conn, h Handler) {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan []byte, t.opts.SendBufferSize)
	t.mu.Lock()
	t.out = out
	t.mu.Unlock()

	go func() {
		<-connCtx.Done()
		if ctx.Err() != nil {
			conn.WriteControl(ws.CloseMessage,
				ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
		}
		conn.Close()
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for data := range out {
			conn.SetWriteDeadline(time.Now().Add(t.opts.WriteWait))
			if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
				t.logger.Debug("write failed", zap.Error(err))
				cancel()
				return
			}
		}
	}()

	h.HandleConnected()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ws.IsUnexpectedCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) && ctx.Err() == nil {
				t.logger.Debug("read failed", zap.Error(err))
			}
			break
		}

		var msg websocket.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.logger.Warn("dropping malformed message", zap.Error(err))
			continue
		}
		h.HandleMessage(&msg)
	}

	t.mu.Lock()
	t.out = nil
	close(out)
	t.mu.Unlock()

	cancel()
	<-writerDone
}

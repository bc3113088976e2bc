package node

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/radixdlt/ledger-core/internal/model"
)

// StatusSubscriber streams transaction-status notifications from the
// node over a persistent WebSocket connection, following the same
// connect/readLoop/reconnect shape the teacher's WebSocketRPCClient
// uses for its JSON-RPC subscriptions, narrowed to a single
// subscribe-by-txID notification feed.
type StatusSubscriber struct {
	url    string
	log    *logrus.Entry
	connMu sync.RWMutex
	conn   *websocket.Conn

	subsMu        sync.RWMutex
	subscriptions map[string]chan model.TransactionStatus

	reconnecting atomic.Bool
	closed       atomic.Bool
	closeChan    chan struct{}

	maxReconnectInterval time.Duration
	reconnectBackoff     time.Duration
}

// NewStatusSubscriber dials url and starts its read loop.
func NewStatusSubscriber(url string, log *logrus.Entry) (*StatusSubscriber, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &StatusSubscriber{
		url:                  url,
		log:                  log,
		subscriptions:        make(map[string]chan model.TransactionStatus),
		closeChan:            make(chan struct{}),
		maxReconnectInterval: 60 * time.Second,
		reconnectBackoff:     time.Second,
	}
	if err := s.connect(); err != nil {
		return nil, fmt.Errorf("node: status subscriber connect: %w", err)
	}
	go s.readLoop()
	return s, nil
}

func (s *StatusSubscriber) connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		return err
	}
	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
	return nil
}

// Subscribe sends a status-subscribe request for txID and returns a
// channel of status updates; the channel closes when ctx is cancelled
// or the subscriber is closed.
func (s *StatusSubscriber) Subscribe(ctx context.Context, txID string) (<-chan model.TransactionStatus, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("node: status subscriber is closed")
	}

	s.connMu.RLock()
	conn := s.conn
	s.connMu.RUnlock()
	if conn == nil {
		return nil, fmt.Errorf("node: status subscriber not connected")
	}

	req := map[string]interface{}{"method": "transaction.subscribe", "txID": txID}
	if err := conn.WriteJSON(req); err != nil {
		go s.reconnect()
		return nil, fmt.Errorf("node: status subscribe request: %w", err)
	}

	ch := make(chan model.TransactionStatus, 16)
	s.subsMu.Lock()
	s.subscriptions[txID] = ch
	s.subsMu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.closeChan:
		}
		s.subsMu.Lock()
		delete(s.subscriptions, txID)
		s.subsMu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// Close tears down the connection and every open subscription channel.
func (s *StatusSubscriber) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.closeChan)

	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *StatusSubscriber) reconnect() {
	if !s.reconnecting.CompareAndSwap(false, true) {
		return
	}
	defer s.reconnecting.Store(false)

	backoff := s.reconnectBackoff
	for {
		select {
		case <-s.closeChan:
			return
		case <-time.After(backoff):
			if err := s.connect(); err != nil {
				s.log.WithError(err).Warn("node: status subscriber reconnect failed, backing off")
				backoff *= 2
				if backoff > s.maxReconnectInterval {
					backoff = s.maxReconnectInterval
				}
				continue
			}
			s.log.Info("node: status subscriber reconnected")
			go s.readLoop()
			return
		}
	}
}

func (s *StatusSubscriber) readLoop() {
	s.connMu.RLock()
	conn := s.conn
	s.connMu.RUnlock()
	if conn == nil {
		return
	}

	for {
		select {
		case <-s.closeChan:
			return
		default:
		}

		var msg struct {
			TxID   string                   `json:"txID"`
			Status model.TransactionStatus `json:"status"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			s.log.WithError(err).Warn("node: status subscriber read failed, reconnecting")
			go s.reconnect()
			return
		}

		s.subsMu.RLock()
		ch, ok := s.subscriptions[msg.TxID]
		s.subsMu.RUnlock()
		if !ok {
			continue
		}
		select {
		case ch <- msg.Status:
		default:
			s.log.WithField("txID", msg.TxID).Warn("node: status subscriber channel full, dropping update")
		}
	}
}


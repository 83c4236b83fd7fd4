// Package websocket provides the reusable push transport for venue adapters:
// a managed connection with ping/pong keepalive, exponential-backoff
// reconnection, and subscription replay. The transport is venue-agnostic;
// adapters inject the subscribe payload builder and parse the raw frames.
package websocket

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// SubscribeFunc builds the venue-specific subscription payload for a set of
// external ids. initial is true on the first subscribe after (re)connect.
type SubscribeFunc func(ids []string, initial bool) interface{}

// Manager owns a single WebSocket connection to a venue's push endpoint.
type Manager struct {
	url          string
	conn         *websocket.Conn
	logger       *zap.Logger
	reconnectMgr *ReconnectManager
	config       Config
	subscribeFn  SubscribeFunc
	frameChan    chan []byte
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	mu           sync.RWMutex
	subscribed   map[string]bool
	connected    atomic.Bool
	lastPongTime atomic.Int64
}

// Config holds push transport configuration.
type Config struct {
	URL                   string
	DialTimeout           time.Duration
	PongTimeout           time.Duration
	PingInterval          time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	MessageBufferSize     int
	Subscribe             SubscribeFunc
	Logger                *zap.Logger
}

// New creates a new push transport manager.
func New(cfg Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	reconnectCfg := ReconnectConfig{
		InitialDelay:      cfg.ReconnectInitialDelay,
		MaxDelay:          cfg.ReconnectMaxDelay,
		BackoffMultiplier: cfg.ReconnectBackoffMult,
		JitterPercent:     0.2,
	}

	return &Manager{
		url:          cfg.URL,
		logger:       cfg.Logger,
		reconnectMgr: NewReconnectManager(reconnectCfg, cfg.Logger),
		config:       cfg,
		subscribeFn:  cfg.Subscribe,
		frameChan:    make(chan []byte, cfg.MessageBufferSize),
		ctx:          ctx,
		cancel:       cancel,
		subscribed:   make(map[string]bool),
	}
}

// Start dials the endpoint and launches the read, ping, and reconnect loops.
func (m *Manager) Start() error {
	m.logger.Info("push-transport-starting", zap.String("url", m.url))

	err := m.connect(m.ctx)
	if err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	m.wg.Add(3)
	go m.readLoop()
	go m.pingLoop()
	go m.reconnectLoop()

	return nil
}

func (m *Manager) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: m.config.DialTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, m.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		m.lastPongTime.Store(time.Now().Unix())
		return nil
	})

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	m.connected.Store(true)
	m.lastPongTime.Store(time.Now().Unix())
	ActiveConnections.Set(1)

	m.logger.Info("push-transport-connected", zap.String("url", m.url))

	return nil
}

// Subscribe subscribes to a list of external ids, skipping ones already
// subscribed. Safe to call repeatedly as new markets are matched.
func (m *Manager) Subscribe(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	m.mu.Lock()

	newIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		if !m.subscribed[id] {
			newIDs = append(newIDs, id)
			m.subscribed[id] = true
		}
	}

	if len(newIDs) == 0 {
		m.mu.Unlock()
		return nil
	}

	initial := len(m.subscribed) == len(newIDs)
	payload := m.subscribeFn(newIDs, initial)
	total := len(m.subscribed)
	conn := m.conn
	m.mu.Unlock()

	// Network I/O without holding the lock.
	err := conn.WriteJSON(payload)
	if err != nil {
		m.mu.Lock()
		for _, id := range newIDs {
			delete(m.subscribed, id)
		}
		total = len(m.subscribed)
		m.mu.Unlock()

		SubscriptionCount.Set(float64(total))
		return fmt.Errorf("write subscribe message: %w", err)
	}

	SubscriptionCount.Set(float64(total))

	m.logger.Info("push-subscribed",
		zap.Int("new-count", len(newIDs)),
		zap.Int("total-count", total))

	return nil
}

// readLoop reads frames and hands them to the owner, dropping when the
// buffer is full so a slow consumer never blocks the transport.
func (m *Manager) readLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		m.mu.RLock()
		conn := m.conn
		m.mu.RUnlock()

		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, frame, err := conn.ReadMessage()
		if err != nil {
			m.logger.Warn("push-read-error", zap.Error(err))
			m.connected.Store(false)
			ActiveConnections.Set(0)
			return
		}

		FramesReceivedTotal.Inc()

		select {
		case m.frameChan <- frame:
		default:
			m.logger.Warn("push-frame-buffer-full", zap.Int("bytes", len(frame)))
			FramesDroppedTotal.Inc()
		}
	}
}

// pingLoop sends periodic PING control messages.
func (m *Manager) pingLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if !m.connected.Load() {
				continue
			}

			m.mu.RLock()
			conn := m.conn
			m.mu.RUnlock()

			if conn == nil {
				continue
			}

			err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second))
			if err != nil {
				m.logger.Warn("push-ping-error", zap.Error(err))
			}
		}
	}
}

// reconnectLoop re-establishes the connection after a drop and replays the
// subscription set.
func (m *Manager) reconnectLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		if m.connected.Load() {
			time.Sleep(time.Second)
			continue
		}

		m.logger.Warn("push-connection-lost-reconnecting")

		err := m.reconnectMgr.Reconnect(m.ctx, m.connect)
		if err != nil {
			if err == context.Canceled {
				return
			}
			m.logger.Error("push-reconnection-failed", zap.Error(err))
			continue
		}

		err = m.resubscribeAll()
		if err != nil {
			m.logger.Error("push-resubscribe-failed", zap.Error(err))
			m.connected.Store(false)
			continue
		}

		m.wg.Add(1)
		go m.readLoop()
	}
}

func (m *Manager) resubscribeAll() error {
	m.mu.RLock()
	ids := make([]string, 0, len(m.subscribed))
	for id := range m.subscribed {
		ids = append(ids, id)
	}
	conn := m.conn
	m.mu.RUnlock()

	if len(ids) == 0 {
		return nil
	}

	err := conn.WriteJSON(m.subscribeFn(ids, true))
	if err != nil {
		return fmt.Errorf("write resubscribe message: %w", err)
	}

	m.logger.Info("push-resubscribed", zap.Int("count", len(ids)))

	return nil
}

// Frames returns the channel of raw frames for the owning adapter to parse.
func (m *Manager) Frames() <-chan []byte {
	return m.frameChan
}

// Connected reports whether the transport currently has a live connection.
func (m *Manager) Connected() bool {
	return m.connected.Load()
}

// Close tears down the transport immediately.
func (m *Manager) Close() error {
	m.logger.Info("push-transport-closing")

	m.cancel()

	m.mu.RLock()
	if m.conn != nil {
		m.conn.Close()
	}
	m.mu.RUnlock()

	m.wg.Wait()

	close(m.frameChan)
	ActiveConnections.Set(0)

	m.logger.Info("push-transport-closed")

	return nil
}

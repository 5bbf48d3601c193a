package connections

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// TimeoutConfig holds the keepalive settings for relay WebSocket sessions
type TimeoutConfig struct {
	PongWait   time.Duration
	PingPeriod time.Duration
	WriteWait  time.Duration
}

// DefaultTimeouts are used by the HTTP relay unless a test overrides them
var DefaultTimeouts = TimeoutConfig{
	PongWait:   30 * time.Second,
	PingPeriod: 27 * time.Second, // (PongWait * 9) / 10
	WriteWait:  10 * time.Second,
}

// Manager tracks open relay sessions and keeps them alive
type Manager struct {
	sessions sync.Map
	timeouts TimeoutConfig
}

func NewManager(timeouts TimeoutConfig) *Manager {
	return &Manager{
		timeouts: timeouts,
	}
}

// Track registers conn and returns the function that unregisters it
func (m *Manager) Track(conn *websocket.Conn) func() {
	m.sessions.Store(conn, time.Now())
	return func() {
		m.sessions.Delete(conn)
	}
}

// Count returns the number of open sessions
func (m *Manager) Count() int {
	count := 0
	m.sessions.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}

func (m *Manager) tracked(conn *websocket.Conn) bool {
	_, exists := m.sessions.Load(conn)
	return exists
}

// Keepalive arms the pong handler and pings conn every PingPeriod until ctx
// is done or a ping fails. Pings go through WriteControl, which may run
// alongside the session's own reads and writes.
func (m *Manager) Keepalive(ctx context.Context, conn *websocket.Conn) {
	timeouts := m.timeouts
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(timeouts.PongWait))
	})

	go func() {
		ticker := time.NewTicker(timeouts.PingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				deadline := time.Now().Add(timeouts.WriteWait)
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, deadline); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// ArmRead pushes the read deadline out by PongWait. Call it before every read,
// since a relay can outlast the previous deadline.
func (m *Manager) ArmRead(conn *websocket.Conn) error {
	return conn.SetReadDeadline(time.Now().Add(m.timeouts.PongWait))
}

// ArmWrite bounds the next write by WriteWait
func (m *Manager) ArmWrite(conn *websocket.Conn) error {
	return conn.SetWriteDeadline(time.Now().Add(m.timeouts.WriteWait))
}

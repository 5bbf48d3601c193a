package connections

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTimeouts = TimeoutConfig{
	PongWait:   200 * time.Millisecond,
	PingPeriod: 50 * time.Millisecond,
	WriteWait:  50 * time.Millisecond,
}

func TestManagerTracking(t *testing.T) {
	t.Run("track and release", func(t *testing.T) {
		manager := NewManager(DefaultTimeouts)
		conn := &websocket.Conn{}

		release := manager.Track(conn)
		assert.True(t, manager.tracked(conn))
		assert.Equal(t, 1, manager.Count())

		release()
		assert.False(t, manager.tracked(conn))
		assert.Zero(t, manager.Count())
	})

	t.Run("concurrent sessions", func(t *testing.T) {
		manager := NewManager(DefaultTimeouts)
		const sessions = 100

		releases := make([]func(), sessions)
		var wg sync.WaitGroup
		wg.Add(sessions)
		for i := 0; i < sessions; i++ {
			go func(i int) {
				defer wg.Done()
				releases[i] = manager.Track(&websocket.Conn{})
			}(i)
		}
		wg.Wait()
		assert.Equal(t, sessions, manager.Count())

		for _, release := range releases {
			release()
		}
		assert.Zero(t, manager.Count())
	})

	t.Run("timeouts", func(t *testing.T) {
		assert.Equal(t, testTimeouts, NewManager(testTimeouts).timeouts)
	})
}

func TestKeepalive(t *testing.T) {
	manager := NewManager(testTimeouts)

	serverDone := make(chan error, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			serverDone <- err
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		manager.Keepalive(ctx, conn)

		// outlive several pong waits; pongs from the client keep the session open
		if err := manager.ArmRead(conn); err != nil {
			serverDone <- err
			return
		}
		_, _, err = conn.ReadMessage()
		serverDone <- err
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer client.Close()

	pings := make(chan struct{}, 16)
	client.SetPingHandler(func(data string) error {
		pings <- struct{}{}
		return client.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	// the client must read for control frames to be handled
	go func() {
		for {
			if _, _, err := client.ReadMessage(); err != nil {
				return
			}
		}
	}()

	time.Sleep(2 * testTimeouts.PongWait)
	assert.GreaterOrEqual(t, len(pings), 2, "server should ping periodically")

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("still here")))
	select {
	case err := <-serverDone:
		assert.NoError(t, err, "read deadline should have been extended by pongs")
	case <-time.After(time.Second):
		t.Fatal("server did not receive the message")
	}
}

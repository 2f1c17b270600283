package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*Hub, string) {
	t.Helper()

	hub := NewHub(DefaultHubConfig(), nil, zerolog.Nop())
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, Event{Type: EventHello})
	}))
	t.Cleanup(ts.Close)

	return hub, "ws" + strings.TrimPrefix(ts.URL, "http")
}

// waitClosed runs Close and fails if it does not return in time.
func waitClosed(t *testing.T, hub *Hub) {
	t.Helper()

	done := make(chan struct{})
	go func() {
		hub.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("hub.Close did not return")
	}
}

func TestHub_CloseDisconnectsSubscribers(t *testing.T) {
	hub, url := newTestHub(t)

	var conns []*websocket.Conn
	for i := 0; i < 3; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		defer conn.Close()

		hello := readEvent(t, conn)
		assert.Equal(t, `"hello"`, string(hello["type"]))
		conns = append(conns, conn)
	}
	require.Eventually(t, func() bool { return hub.Subscribers() == 3 }, 2*time.Second, 10*time.Millisecond)

	waitClosed(t, hub)
	assert.Zero(t, hub.Subscribers())

	for _, conn := range conns {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, _, err := conn.ReadMessage()
		assert.Error(t, err)
	}
}

func TestHub_RejectsSubscribersAfterClose(t *testing.T) {
	hub, url := newTestHub(t)
	waitClosed(t, hub)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "closed hub must not stream")
	assert.Zero(t, hub.Subscribers())

	hub.Broadcast(Event{Type: EventWeek})
}

func TestHub_CloseWhileSubscribing(t *testing.T) {
	hub, url := newTestHub(t)

	var dialers sync.WaitGroup
	for i := 0; i < 20; i++ {
		dialers.Add(1)
		go func() {
			defer dialers.Done()
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			if err != nil {
				return
			}
			defer conn.Close()
			conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	waitClosed(t, hub)
	dialers.Wait()

	assert.Zero(t, hub.Subscribers())
}

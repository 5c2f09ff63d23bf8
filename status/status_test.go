package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, h *Hub) *websocket.Conn {
	var upgrader websocket.Upgrader
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Serve(conn)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Message {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHistoryReplay(t *testing.T) {
	h := NewHub()
	h.Info("dog: keeping %d joints.", 3)
	h.Warning("No joint named %s in dog.", "paw")

	conn := dial(t, h)
	msg := read(t, conn)
	assert.Equal(t, "dog: keeping 3 joints.", msg.Text)
	assert.Equal(t, INFO, msg.Type)

	msg = read(t, conn)
	assert.Equal(t, "No joint named paw in dog.", msg.Text)
	assert.Equal(t, WARNING, msg.Type)
}

func TestHistoryIsBounded(t *testing.T) {
	h := NewHub()
	for i := 0; i < historySize+10; i++ {
		h.Info("line %d", i)
	}
	assert.Len(t, h.history, historySize)

	var msg Message
	require.NoError(t, json.Unmarshal(h.history[0], &msg))
	assert.Equal(t, "line 10", msg.Text)
}

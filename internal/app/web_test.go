package app

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
	"go.uber.org/zap"
)

const samplePayload = `{"sessionId":"s1","timestamp":"2026-03-01T12:00:00Z","bandOn":true,"acc":{"x":0,"y":0,"z":1},"gyro":{"x":0,"y":0,"z":0},"alpha":0.7,"beta":0.1,"delta":0.2,"theta":0.4,"gamma":0.05}`

func TestWeb_SnapshotEndpoint(t *testing.T) {
	s := newWebServer(zap.NewNop())
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/snapshot")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	s.onSnapshot([]byte(samplePayload))
	s.onSnapshot([]byte("{broken"))

	resp, err = http.Get(ts.URL + "/api/snapshot")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "s1", got["sessionId"])
	assert.Equal(t, 0.7, got["alpha"])
}

func TestWeb_WebsocketPush(t *testing.T) {
	s := newWebServer(zap.NewNop())
	ts := httptest.NewServer(s.routes())
	defer ts.Close()
	defer s.hub.close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.hub.count() == 1 }, time.Second, 5*time.Millisecond)
	s.onSnapshot([]byte(samplePayload))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, samplePayload, string(msg))
}

func TestHub_DropsForSlowClient(t *testing.T) {
	h := newHub(zap.NewNop())
	c := &wsClient{send: make(chan []byte, 1)}
	h.clients[c] = struct{}{}

	h.broadcast([]byte("a"))
	h.broadcast([]byte("b"))

	assert.Len(t, c.send, 1)
	assert.Equal(t, "a", string(<-c.send))
	h.close()
	assert.Zero(t, h.count())
}

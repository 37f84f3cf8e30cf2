package server

import (
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"commentboard/internal/cache"
	"commentboard/internal/notifications"
	"commentboard/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	gorillaws "github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLiveServer(t *testing.T) (*Server, *fiber.App, string) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	s, err := NewServerWithDeps(testConfig(), testutil.NewSQLiteDB(t), rdb)
	require.NoError(t, err)
	app := s.App()
	require.NoError(t, s.StartWiring())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()

	t.Cleanup(func() {
		s.shutdownFn()
		_ = app.Shutdown()
		_ = s.hub.Shutdown(s.shutdownCtx)
		cache.SetClient(nil)
		_ = rdb.Close()
	})
	return s, app, ln.Addr().String()
}

func TestCommentFeed_UnavailableWithoutRedis(t *testing.T) {
	_, app, _ := newTestServer(t)

	resp, _ := doRequest(t, app, http.MethodGet, "/api/ws/comments", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestCommentFeed_RequiresUpgrade(t *testing.T) {
	_, app, _ := newLiveServer(t)

	resp, _ := doRequest(t, app, http.MethodGet, "/api/ws/comments", nil)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestCommentFeed_RelaysWrites(t *testing.T) {
	s, app, addr := newLiveServer(t)

	conn, _, err := gorillaws.DefaultDialer.Dial("ws://"+addr+"/api/ws/comments", nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	assert.Eventually(t, func() bool { return s.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, data := doRequest(t, app, http.MethodPost, "/api/comments", map[string]any{"text": "live"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(data))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var event notifications.CommentEvent
	require.NoError(t, json.Unmarshal(msg, &event))
	assert.Equal(t, notifications.EventCommentCreated, event.Type)
	require.NotNil(t, event.Comment)
	assert.Equal(t, "live", event.Comment.Text)

	resp, _ = doRequest(t, app, http.MethodDelete, "/api/comments/1", nil)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"comment_deleted","comment_id":1}`, string(msg))
}

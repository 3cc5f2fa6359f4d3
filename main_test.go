package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"polling_station/internal/auth"
	"polling_station/internal/models"
	"polling_station/internal/queue"
	"polling_station/internal/storage"
	"polling_station/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestServer(t *testing.T) (*httptest.Server, *ws.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := storage.ConnectSQLite(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	require.NoError(t, storage.Migrate(db))
	require.NoError(t, storage.SeedRooms(db, []int{1, 2, 3}))
	storage.DB = db
	auth.AccessSecret = []byte("test_secret")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := ws.NewHub()
	go hub.Run(ctx)

	wsHandler := ws.NewHandler(hub, queue.NewService(db).ListAll, ws.LocalPublisher{Hub: hub})
	ts := httptest.NewServer(setupRouter(wsHandler, "http://localhost:5173"))
	t.Cleanup(ts.Close)
	return ts, hub
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/queues/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err, "Ошибка подключения к WS")
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestUpdateThenRefreshReachesUnjoinedClient(t *testing.T) {
	ts, hub := setupTestServer(t)
	token, err := auth.GenerateToken(1, "admin@example.com", models.RoleAdmin, time.Hour, auth.AccessSecret)
	require.NoError(t, err)

	clientA := dialWS(t, ts)
	clientB := dialWS(t, ts)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	// 1. Клиент A меняет очередь помещения 1.
	body, _ := json.Marshal(gin.H{"roomNumber": 1, "currentQueue": 2, "estimatedWaitTime": 10})
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/queues/update", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	// 2. Клиент A просит рассылку.
	require.NoError(t, clientA.WriteJSON(ws.Message{Event: ws.EventRefreshQueues}))

	// 3. Клиент B ни к чему не присоединялся, но получает полный снимок.
	clientB.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := clientB.ReadMessage()
	require.NoError(t, err, "Ошибка чтения WS сообщения")
	var msg ws.Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, ws.EventQueueUpdate, msg.Event)

	var queues []models.Queue
	require.NoError(t, json.Unmarshal(msg.Data, &queues))
	require.Len(t, queues, 3)
	assert.Equal(t, 1, queues[0].RoomNumber)
	assert.Equal(t, 2, queues[0].CurrentQueue)
	assert.Equal(t, 10, queues[0].EstimatedWaitTime)

	// Снимок совпадает с GET /api/queues.
	listRes, err := http.Get(ts.URL + "/api/queues")
	require.NoError(t, err)
	defer listRes.Body.Close()
	var listed []models.Queue
	require.NoError(t, json.NewDecoder(listRes.Body).Decode(&listed))
	require.Len(t, listed, len(queues))
	for i := range listed {
		assert.Equal(t, listed[i].RoomNumber, queues[i].RoomNumber)
		assert.Equal(t, listed[i].CurrentQueue, queues[i].CurrentQueue)
		assert.Equal(t, listed[i].EstimatedWaitTime, queues[i].EstimatedWaitTime)
	}
}

func TestUpdateRequiresToken(t *testing.T) {
	ts, _ := setupTestServer(t)

	res, err := http.Post(ts.URL+"/api/queues/update", "application/json",
		strings.NewReader(`{"roomNumber":1,"currentQueue":2,"estimatedWaitTime":10}`))
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestSwaggerDoc(t *testing.T) {
	ts, _ := setupTestServer(t)

	res, err := http.Get(ts.URL + "/swagger/doc.json")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var doc map[string]interface{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&doc))
	paths, ok := doc["paths"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, paths, "/api/queues")
	assert.Contains(t, paths, "/api/queues/update")
}

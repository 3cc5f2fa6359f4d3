package ws

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"polling_station/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// SnapshotFunc читает полный снимок очередей.
type SnapshotFunc func(ctx context.Context) ([]models.Queue, error)

// Handler принимает WebSocket-подключения и обрабатывает события клиентов.
type Handler struct {
	hub       *Hub
	snapshot  SnapshotFunc
	publisher Publisher
	// Timeout ограничивает чтение снимка при обновлении.
	Timeout time.Duration
}

func NewHandler(hub *Hub, snapshot SnapshotFunc, publisher Publisher) *Handler {
	return &Handler{
		hub:       hub,
		snapshot:  snapshot,
		publisher: publisher,
		Timeout:   5 * time.Second,
	}
}

// Настраиваем апгрейдер для WebSocket с разрешением всех источников.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS обновляет соединение до WebSocket и регистрирует клиента в Hub.
// URL: /api/queues/ws
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ с ошибкой.
		log.Printf("Ошибка обновления до WebSocket: %v", err)
		return
	}
	client := &Client{
		ID:   uuid.NewString(),
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, sendBuffer),
	}
	h.hub.Register(client)
	log.Printf("Клиент %s подключился", client.ID)

	go client.writePump()
	client.readPump(h.handleEvent)
	log.Printf("Клиент %s отключился", client.ID)
}

func (h *Handler) handleEvent(client *Client, msg Message) {
	switch msg.Event {
	case EventJoinQueue:
		room, err := parseRoom(msg.Data)
		if err != nil {
			log.Printf("Клиент %s: joinQueue: %v", client.ID, err)
			return
		}
		h.hub.Join(client, room)
		log.Printf("Клиент %s присоединился к помещению %d", client.ID, room)
	case EventLeaveQueue:
		room, err := parseRoom(msg.Data)
		if err != nil {
			log.Printf("Клиент %s: leaveQueue: %v", client.ID, err)
			return
		}
		h.hub.Leave(client, room)
		log.Printf("Клиент %s покинул помещение %d", client.ID, room)
	case EventRefreshQueues:
		ctx, cancel := context.WithTimeout(context.Background(), h.Timeout)
		defer cancel()
		if err := h.Refresh(ctx); err != nil {
			// Рассылка без гарантий: ошибку только логируем, подписчикам ничего не уходит.
			log.Printf("Ошибка обновления очередей: %v", err)
		}
	default:
		log.Printf("Клиент %s: неизвестное событие %q", client.ID, msg.Event)
	}
}

// Refresh читает снимок всех очередей и рассылает его всем подписчикам одним кадром.
// При ошибке чтения ничего не отправляется.
func (h *Handler) Refresh(ctx context.Context) error {
	queues, err := h.snapshot(ctx)
	if err != nil {
		return fmt.Errorf("чтение снимка: %w", err)
	}
	frame, err := EncodeMessage(EventQueueUpdate, queues)
	if err != nil {
		return fmt.Errorf("кодирование снимка: %w", err)
	}
	if err := h.publisher.Publish(ctx, frame); err != nil {
		return fmt.Errorf("публикация снимка: %w", err)
	}
	return nil
}

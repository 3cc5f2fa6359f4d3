package ws

import (
	"context"
	"sync"
)

// Hub хранит подключения клиентов и их подписки на помещения.
// Все изменения выполняет цикл Run, остальные горутины только читают под mu.
type Hub struct {
	// Для каждого подключения храним множество помещений, к которым оно присоединилось.
	clients map[*Client]map[int]bool
	// Группы подписчиков по номеру помещения.
	groups map[int]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	join       chan membership
	leave      chan membership
	broadcast  chan []byte

	done chan struct{}
	mu   sync.RWMutex
}

type membership struct {
	client *Client
	room   int
}

// NewHub создает новый Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]map[int]bool),
		groups:     make(map[int]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan membership),
		leave:      make(chan membership),
		broadcast:  make(chan []byte),
		done:       make(chan struct{}),
	}
}

// Run запускает цикл обработки каналов хаба до отмены ctx.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.removeLocked(client)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = make(map[int]bool)
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()
		case m := <-h.join:
			h.mu.Lock()
			if rooms, ok := h.clients[m.client]; ok {
				rooms[m.room] = true
				if h.groups[m.room] == nil {
					h.groups[m.room] = make(map[*Client]bool)
				}
				h.groups[m.room][m.client] = true
			}
			h.mu.Unlock()
		case m := <-h.leave:
			h.mu.Lock()
			if rooms, ok := h.clients[m.client]; ok {
				delete(rooms, m.room)
				h.leaveGroupLocked(m.client, m.room)
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			// Рассылка глобальная: группы помещений на неё не влияют.
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// Клиент не успевает читать, отключаем его.
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	rooms, ok := h.clients[client]
	if !ok {
		return
	}
	for room := range rooms {
		h.leaveGroupLocked(client, room)
	}
	delete(h.clients, client)
	close(client.Send)
}

func (h *Hub) leaveGroupLocked(client *Client, room int) {
	if group, ok := h.groups[room]; ok {
		delete(group, client)
		if len(group) == 0 {
			delete(h.groups, room)
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) Join(client *Client, room int) {
	select {
	case h.join <- membership{client: client, room: room}:
	case <-h.done:
	}
}

func (h *Hub) Leave(client *Client, room int) {
	select {
	case h.leave <- membership{client: client, room: room}:
	case <-h.done:
	}
}

// Broadcast отправляет сообщение всем подключённым клиентам одним кадром.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// ClientCount возвращает число активных подключений.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GroupSize возвращает число подписчиков помещения.
func (h *Hub) GroupSize(room int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[room])
}

// Rooms возвращает помещения, к которым присоединился клиент.
func (h *Hub) Rooms(client *Client) []int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rooms := make([]int, 0, len(h.clients[client]))
	for room := range h.clients[client] {
		rooms = append(rooms, room)
	}
	return rooms
}

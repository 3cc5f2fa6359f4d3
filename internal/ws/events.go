package ws

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// Названия событий канала.
const (
	EventJoinQueue     = "joinQueue"
	EventLeaveQueue    = "leaveQueue"
	EventRefreshQueues = "refreshQueues"
	EventQueueUpdate   = "queueUpdate"
)

// Message конверт одного кадра: имя события и его данные.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

var errBadRoom = errors.New("номер помещения должен быть целым числом")

// parseRoom принимает номер помещения числом или строкой: веб-клиент шлёт строку.
func parseRoom(data json.RawMessage) (int, error) {
	if len(data) == 0 || string(data) == "null" {
		return 0, errBadRoom
	}
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return 0, errBadRoom
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, errBadRoom
	}
	return n, nil
}

// EncodeMessage собирает кадр события с данными payload.
func EncodeMessage(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Event: event, Data: data})
}

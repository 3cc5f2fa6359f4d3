package reconciler

import (
	"sync"

	"polling_station/internal/models"
)

// Mirror локальная копия снимка очередей на стороне клиента.
// Снимок всегда заменяется целиком, поля записей не сливаются.
type Mirror struct {
	mu       sync.RWMutex
	queues   []models.Queue
	version  uint64
	onChange func([]models.Queue)
}

// NewMirror создаёт пустое зеркало. onChange, если задан, вызывается после каждого изменения.
func NewMirror(onChange func([]models.Queue)) *Mirror {
	return &Mirror{onChange: onChange}
}

// Apply заменяет зеркало снимком. Единственная точка входа для опроса и для рассылки.
func (m *Mirror) Apply(snapshot []models.Queue) {
	next := make([]models.Queue, len(snapshot))
	copy(next, snapshot)

	m.mu.Lock()
	m.queues = next
	m.version++
	m.mu.Unlock()
	m.notify()
}

// echo подставляет запись, которую вернул сервер после изменения.
// Следующий снимок всё равно заменит её.
func (m *Mirror) echo(record models.Queue) {
	m.mu.Lock()
	next := make([]models.Queue, len(m.queues))
	copy(next, m.queues)
	for i := range next {
		if next[i].RoomNumber == record.RoomNumber {
			next[i] = record
		}
	}
	m.queues = next
	m.version++
	m.mu.Unlock()
	m.notify()
}

func (m *Mirror) notify() {
	if m.onChange != nil {
		m.onChange(m.Snapshot())
	}
}

// Snapshot возвращает копию текущего зеркала.
func (m *Mirror) Snapshot() []models.Queue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Queue, len(m.queues))
	copy(out, m.queues)
	return out
}

func (m *Mirror) Get(room int) (models.Queue, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, q := range m.queues {
		if q.RoomNumber == room {
			return q, true
		}
	}
	return models.Queue{}, false
}

// Version растёт на каждое изменение зеркала.
func (m *Mirror) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

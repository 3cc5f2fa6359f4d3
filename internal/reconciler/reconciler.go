package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"polling_station/internal/models"
	"polling_station/internal/ws"

	"github.com/gorilla/websocket"
)

var (
	// ErrUnknownRoom помещения нет в локальном зеркале.
	ErrUnknownRoom = errors.New("помещение отсутствует в зеркале")
	// ErrNotConnected канал ещё не подключён.
	ErrNotConnected = errors.New("канал не подключён")
)

// Reconciler держит зеркало в актуальном состоянии двумя независимыми путями:
// опросом REST API с интервалом и снимками queueUpdate из канала.
type Reconciler struct {
	Mirror     *Mirror
	API        *API
	WSURL      string
	Interval   time.Duration
	RetryDelay time.Duration
	Dialer     *websocket.Dialer

	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func New(api *API, wsURL string, mirror *Mirror) *Reconciler {
	return &Reconciler{
		Mirror:     mirror,
		API:        api,
		WSURL:      wsURL,
		Interval:   30 * time.Second,
		RetryDelay: 3 * time.Second,
		Dialer:     websocket.DefaultDialer,
	}
}

// Run загружает первый снимок и запускает опрос и подписку на канал до отмены ctx.
func (r *Reconciler) Run(ctx context.Context) {
	if err := r.Sync(ctx); err != nil {
		log.Println("Ошибка загрузки очередей:", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.poll(ctx)
	}()
	go func() {
		defer wg.Done()
		r.subscribe(ctx)
	}()
	wg.Wait()
}

// Sync читает снимок через REST API и применяет его к зеркалу.
func (r *Reconciler) Sync(ctx context.Context) error {
	queues, err := r.API.ListQueues(ctx)
	if err != nil {
		return err
	}
	r.Mirror.Apply(queues)
	return nil
}

func (r *Reconciler) poll(ctx context.Context) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Sync(ctx); err != nil && ctx.Err() == nil {
				log.Println("Ошибка опроса очередей:", err)
			}
		}
	}
}

func (r *Reconciler) subscribe(ctx context.Context) {
	for ctx.Err() == nil {
		if err := r.listen(ctx); err != nil && ctx.Err() == nil {
			log.Println("Канал очередей недоступен:", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.RetryDelay):
		}
	}
}

// listen держит одно подключение к каналу и применяет каждый снимок queueUpdate.
func (r *Reconciler) listen(ctx context.Context) error {
	conn, _, err := r.Dialer.DialContext(ctx, r.WSURL, nil)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()

	stop := make(chan struct{})
	defer func() {
		close(stop)
		r.mu.Lock()
		r.conn = nil
		r.mu.Unlock()
		conn.Close()
	}()
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg ws.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("Некорректное сообщение канала: %s", raw)
			continue
		}
		if msg.Event != ws.EventQueueUpdate {
			continue
		}
		var queues []models.Queue
		if err := json.Unmarshal(msg.Data, &queues); err != nil {
			log.Println("Некорректный снимок очередей:", err)
			continue
		}
		r.Mirror.Apply(queues)
	}
}

// Connected сообщает, есть ли активное подключение к каналу.
func (r *Reconciler) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn != nil
}

func (r *Reconciler) emit(event string, payload interface{}) error {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	msg := ws.Message{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		msg.Data = data
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(msg)
}

// Refresh просит сервер разослать свежий снимок всем подписчикам.
func (r *Reconciler) Refresh() error {
	return r.emit(ws.EventRefreshQueues, nil)
}

// RequestRefresh просит рассылку через открытый канал, а без него через
// отдельное короткое подключение.
func (r *Reconciler) RequestRefresh(ctx context.Context) error {
	err := r.Refresh()
	if !errors.Is(err, ErrNotConnected) {
		return err
	}
	return r.refreshOnce(ctx)
}

func (r *Reconciler) refreshOnce(ctx context.Context) error {
	conn, _, err := r.Dialer.DialContext(ctx, r.WSURL, nil)
	if err != nil {
		return fmt.Errorf("подключение к каналу: %w", err)
	}
	defer conn.Close()

	// Сервер обрабатывает кадры по порядку: refreshQueues будет выполнен до закрытия.
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(ws.Message{Event: ws.EventRefreshQueues}); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (r *Reconciler) Join(room int) error {
	return r.emit(ws.EventJoinQueue, room)
}

func (r *Reconciler) Leave(room int) error {
	return r.emit(ws.EventLeaveQueue, room)
}

// Increment увеличивает очередь помещения на единицу относительно зеркала.
func (r *Reconciler) Increment(ctx context.Context, room int) (models.Queue, error) {
	return r.adjust(ctx, room, 1)
}

// Decrement уменьшает очередь помещения на единицу. При нулевой очереди ничего не делает.
func (r *Reconciler) Decrement(ctx context.Context, room int) (models.Queue, error) {
	return r.adjust(ctx, room, -1)
}

// adjust отправляет изменение сразу, принимая значение из зеркала за базу.
// База может устареть при быстрых повторных нажатиях: итог определяет сервер
// (побеждает последняя запись), а следующий снимок выравнивает зеркало.
func (r *Reconciler) adjust(ctx context.Context, room, delta int) (models.Queue, error) {
	base, ok := r.Mirror.Get(room)
	if !ok {
		return models.Queue{}, fmt.Errorf("помещение %d: %w", room, ErrUnknownRoom)
	}
	next := base.CurrentQueue + delta
	if next < 0 {
		return base, nil
	}

	updated, err := r.API.UpdateQueue(ctx, room, next, base.EstimatedWaitTime)
	if err != nil {
		// Откатываем оптимистичное состояние свежим снимком.
		if syncErr := r.Sync(ctx); syncErr != nil {
			log.Println("Ошибка пересинхронизации очередей:", syncErr)
		}
		return models.Queue{}, err
	}
	r.Mirror.echo(updated)

	if err := r.RequestRefresh(ctx); err != nil {
		log.Println("Ошибка запроса рассылки:", err)
	}
	return updated, nil
}

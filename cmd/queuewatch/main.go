// Команда queuewatch держит локальное зеркало очередей участка и печатает его
// при каждом изменении. С токеном или учётными данными умеет менять очередь помещения.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"polling_station/internal/models"
	"polling_station/internal/reconciler"

	flag "github.com/spf13/pflag"
)

func main() {
	apiURL := flag.String("api", "http://localhost:3001", "адрес REST API")
	wsURL := flag.String("ws", "", "адрес канала (по умолчанию выводится из --api)")
	token := flag.String("token", os.Getenv("QUEUE_TOKEN"), "JWT для изменения очередей")
	email := flag.String("email", "", "email для входа, если токен не задан")
	password := flag.String("password", "", "пароль для входа")
	interval := flag.Duration("interval", 30*time.Second, "интервал опроса REST API")
	join := flag.IntSlice("join", nil, "помещения, к группам которых присоединиться")
	registerAdjustFlags(flag.CommandLine)
	flag.Parse()

	adj, err := adjustmentFromFlags(flag.CommandLine)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := reconciler.NewAPI(*apiURL, *token)
	if api.Token == "" && *email != "" {
		if err := api.Login(ctx, *email, *password); err != nil {
			log.Fatal("Ошибка входа: ", err)
		}
		log.Println("Вход выполнен:", *email)
	}

	if *wsURL == "" {
		*wsURL = channelURL(*apiURL)
	}

	mirror := reconciler.NewMirror(func(queues []models.Queue) {
		log.Println(formatQueues(queues))
	})
	rec := reconciler.New(api, *wsURL, mirror)
	rec.Interval = *interval

	if adj != nil {
		if err := rec.Sync(ctx); err != nil {
			log.Fatal("Ошибка загрузки очередей: ", err)
		}
		adjust := rec.Increment
		if adj.decrement {
			adjust = rec.Decrement
		}
		q, err := adjust(ctx, adj.room)
		if err != nil {
			log.Fatal("Ошибка изменения очереди: ", err)
		}
		log.Printf("Помещение %d: очередь %d, ожидание %d мин", q.RoomNumber, q.CurrentQueue, q.EstimatedWaitTime)
		return
	}

	if len(*join) > 0 {
		go joinWhenConnected(ctx, rec, *join)
	}
	rec.Run(ctx)
}

// adjustment разовое изменение очереди одного помещения.
type adjustment struct {
	room      int
	decrement bool
}

func registerAdjustFlags(fs *flag.FlagSet) {
	fs.Int("increment", 0, "увеличить очередь помещения на единицу и выйти")
	fs.Int("decrement", 0, "уменьшить очередь помещения на единицу и выйти")
}

// adjustmentFromFlags возвращает nil, если ни один из флагов не задан.
func adjustmentFromFlags(fs *flag.FlagSet) (*adjustment, error) {
	inc, dec := fs.Changed("increment"), fs.Changed("decrement")
	switch {
	case inc && dec:
		return nil, errors.New("--increment и --decrement нельзя указывать вместе")
	case inc:
		room, err := fs.GetInt("increment")
		return &adjustment{room: room}, err
	case dec:
		room, err := fs.GetInt("decrement")
		return &adjustment{room: room, decrement: true}, err
	}
	return nil, nil
}

// channelURL http(s)://host -> ws(s)://host/api/queues/ws
func channelURL(apiURL string) string {
	u := strings.TrimRight(apiURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/api/queues/ws"
}

func joinWhenConnected(ctx context.Context, rec *reconciler.Reconciler, rooms []int) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !rec.Connected() {
				continue
			}
			for _, room := range rooms {
				if err := rec.Join(room); err != nil {
					log.Println("Ошибка присоединения к помещению:", err)
				}
			}
			return
		}
	}
}

func formatQueues(queues []models.Queue) string {
	var b strings.Builder
	b.WriteString("Очереди:")
	for _, q := range queues {
		fmt.Fprintf(&b, " [%d: %d чел., %d мин]", q.RoomNumber, q.CurrentQueue, q.EstimatedWaitTime)
	}
	return b.String()
}

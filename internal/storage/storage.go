package storage

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"polling_station/internal/models"

	"github.com/go-redis/redis/v8"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// QueryTimeout ограничивает время одного обращения к базе из обработчика.
var QueryTimeout = 5 * time.Second

func ConnectDatabase() {
	DB = openPostgres("DB_")
	fmt.Println("Подключение к базе данных успешно!")
}

func ConnectTestingDatabase() {
	DB = openPostgres("TEST_DB_")
	fmt.Println("Подключение к тестовой базе данных успешно!")
}

func openPostgres(prefix string) *gorm.DB {
	host := os.Getenv(prefix + "HOST")
	port := os.Getenv(prefix + "PORT")
	user := os.Getenv(prefix + "USER")
	password := os.Getenv(prefix + "PASSWORD")
	dbname := os.Getenv(prefix + "NAME")

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Ошибка подключения к базе данных:", err)
	}
	return db
}

// ConnectSQLite открывает файловую базу SQLite. Используется в тестах и при локальной отладке.
// Все запросы идут через одно соединение, иначе SQLite отвечает "database is locked".
func ConnectSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("открытие sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("получение sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Migrate создаёт или обновляет таблицы приложения.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.Voter{}, &models.Queue{})
}

// SeedRooms создаёт запись очереди для каждого помещения, которого ещё нет в таблице.
// Существующие записи не трогаются.
func SeedRooms(db *gorm.DB, rooms []int) error {
	for _, room := range rooms {
		q := models.Queue{RoomNumber: room}
		if err := db.Where("room_number = ?", room).FirstOrCreate(&q).Error; err != nil {
			return fmt.Errorf("создание очереди для помещения %d: %w", room, err)
		}
	}
	return nil
}

var RedisClient *redis.Client

// InitRedis подключается к Redis по адресу addr и проверяет соединение.
func InitRedis(ctx context.Context, addr, password string) error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := RedisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return nil
}

// Команда seed готовит базу: таблицы, помещения участка, учётные записи персонала
// и, при необходимости, тестовых избирателей.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"polling_station/internal/models"
	"polling_station/internal/storage"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	rooms := flag.IntSlice("rooms", []int{1, 2, 3, 4, 5}, "номера помещений участка")
	adminEmail := flag.String("admin-email", "admin@example.com", "email администратора")
	adminPassword := flag.String("admin-password", "admin123", "пароль администратора")
	userEmail := flag.String("user-email", "user@example.com", "email сотрудника")
	userPassword := flag.String("user-password", "user123", "пароль сотрудника")
	voters := flag.Int("voters", 0, "сколько тестовых избирателей создать")
	useTestDB := flag.Bool("test", false, "использовать тестовую базу (TEST_DB_*)")
	flag.Parse()

	if os.Getenv("ENV_CHEK") == "" {
		if err := godotenv.Load(); err != nil {
			log.Fatal("Ошибка получения .env")
		}
	}

	if *useTestDB {
		storage.ConnectTestingDatabase()
	} else {
		storage.ConnectDatabase()
	}
	if err := storage.Migrate(storage.DB); err != nil {
		log.Fatal("Ошибка при миграции... ", err)
	}

	if err := storage.SeedRooms(storage.DB, *rooms); err != nil {
		log.Fatal(err)
	}
	log.Println("Помещения:", *rooms)

	for _, u := range []struct{ email, password, role string }{
		{*adminEmail, *adminPassword, models.RoleAdmin},
		{*userEmail, *userPassword, models.RoleUser},
	} {
		created, err := seedUser(storage.DB, u.email, u.password, u.role)
		if err != nil {
			log.Fatal(err)
		}
		if created {
			log.Printf("Создан пользователь %s (%s)", u.email, u.role)
		}
	}

	for i := 1; i <= *voters; i++ {
		v := models.Voter{VoterID: fmt.Sprintf("V-%04d", i), Name: fmt.Sprintf("Избиратель %d", i)}
		if err := storage.DB.Where("voter_id = ?", v.VoterID).FirstOrCreate(&v).Error; err != nil {
			log.Fatal("Ошибка создания избирателя: ", err)
		}
	}
	if *voters > 0 {
		log.Println("Избирателей в реестре:", *voters)
	}
}

// seedUser создаёт пользователя, если его ещё нет. Пароль существующего не меняется.
func seedUser(db *gorm.DB, email, password, role string) (bool, error) {
	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("поиск пользователя %s: %w", email, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("хеширование пароля: %w", err)
	}
	u := models.User{Email: email, PasswordHash: string(hash), Role: role}
	if err := db.Create(&u).Error; err != nil {
		return false, fmt.Errorf("создание пользователя %s: %w", email, err)
	}
	return true, nil
}

package tasks

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// CleanOldUploads удаляет снимки избирателей старше retention из каталога dir.
// Возвращает число удалённых файлов.
func CleanOldUploads(dir string, retention time.Duration, now time.Time) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Println("Ошибка чтения каталога снимков:", err)
		}
		return 0
	}

	threshold := now.Add(-retention)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jpg") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(threshold) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			log.Println("Ошибка удаления снимка", entry.Name(), ":", err)
			continue
		}
		removed++
	}
	return removed
}

// InitScheduler инициализирует планировщик cron-задач.
func InitScheduler(uploadDir string, retention time.Duration) *cron.Cron {
	c := cron.New(cron.WithSeconds())

	// Очистка устаревших снимков каждый день в 03:00.
	_, err := c.AddFunc("0 0 3 * * *", func() {
		n := CleanOldUploads(uploadDir, retention, time.Now())
		log.Printf("Удалено устаревших снимков: %d", n)
	})
	if err != nil {
		log.Println("Ошибка запуска cron-задачи CleanOldUploads:", err)
	}

	c.Start()
	log.Println("Cron-планировщик запущен.")
	return c
}

package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"polling_station/internal/models"

	"gorm.io/gorm"
)

// Service владеет таблицей очередей: только он меняет записи.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// Update перезаписывает текущую очередь и время ожидания помещения roomNumber
// и возвращает запись после изменения.
//
// Изменение выполняется одной транзакцией: UPDATE по room_number и чтение результата.
// Конкурентные обновления одного помещения упорядочивает база, побеждает последний коммит.
func (s *Service) Update(ctx context.Context, roomNumber, currentQueue, estimatedWaitTime int) (models.Queue, error) {
	if currentQueue < 0 {
		return models.Queue{}, fmt.Errorf("current_queue %d < 0: %w", currentQueue, ErrInvalidArgument)
	}
	if estimatedWaitTime < 0 {
		return models.Queue{}, fmt.Errorf("estimated_wait_time %d < 0: %w", estimatedWaitTime, ErrInvalidArgument)
	}

	var updated models.Queue
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Queue{}).
			Where("room_number = ?", roomNumber).
			Updates(map[string]interface{}{
				"current_queue":       currentQueue,
				"estimated_wait_time": estimatedWaitTime,
				"updated_at":          s.now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("room %d: %w", roomNumber, ErrNotFound)
		}
		return tx.Where("room_number = ?", roomNumber).First(&updated).Error
	})
	if err != nil {
		return models.Queue{}, err
	}
	return updated, nil
}

// ListAll возвращает снимок всех очередей, упорядоченный по номеру помещения.
// Кэша нет: каждый вызов читает последнее закоммиченное состояние.
func (s *Service) ListAll(ctx context.Context) ([]models.Queue, error) {
	queues := make([]models.Queue, 0)
	if err := s.db.WithContext(ctx).Order("room_number ASC").Find(&queues).Error; err != nil {
		return nil, fmt.Errorf("чтение очередей: %w", err)
	}
	return queues, nil
}

// Get возвращает запись одного помещения.
func (s *Service) Get(ctx context.Context, roomNumber int) (models.Queue, error) {
	var q models.Queue
	err := s.db.WithContext(ctx).Where("room_number = ?", roomNumber).First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Queue{}, fmt.Errorf("room %d: %w", roomNumber, ErrNotFound)
	}
	if err != nil {
		return models.Queue{}, err
	}
	return q, nil
}

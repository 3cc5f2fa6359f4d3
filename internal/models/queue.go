package models

import (
	"time"
)

// Queue хранит текущее состояние очереди одного избирательного помещения.
// Записи создаются при развёртывании (по одной на помещение) и не удаляются.
type Queue struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	RoomNumber        int       `gorm:"uniqueIndex;not null" json:"room_number"`
	CurrentQueue      int       `gorm:"not null;default:0;check:chk_queues_current_queue,current_queue >= 0" json:"current_queue"`
	EstimatedWaitTime int       `gorm:"not null;default:0;check:chk_queues_estimated_wait_time,estimated_wait_time >= 0" json:"estimated_wait_time"` // В минутах
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

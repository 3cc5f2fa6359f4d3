package models

import (
	"time"
)

// Роли пользователей
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"not null;default:user" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type Voter struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	VoterID   string    `gorm:"uniqueIndex;not null" json:"voter_id"` // Номер избирателя из реестра
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

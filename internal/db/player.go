package db

import "time"

type Player struct {
	ID        string    `gorm:"primaryKey;size:36"`
	RoomID    string    `gorm:"size:36;index;not null"`
	Name      string    `gorm:"size:64;not null"`
	Score     int       `gorm:"not null;default:0"`
	IsActive  bool      `gorm:"not null;default:false"`
	IsReady   bool      `gorm:"not null;default:false"`
	Avatar    string    `gorm:"size:16;not null;default:A"`
	Color     string    `gorm:"size:16;not null;default:#3B82F6"`
	JoinedAt  time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

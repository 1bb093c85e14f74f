package db

import "time"

// Activity rows are insert-only.
type Activity struct {
	ID         string    `gorm:"primaryKey;size:36"`
	RoomID     string    `gorm:"size:36;index;not null"`
	PlayerID   *string   `gorm:"size:36;index"`
	PlayerName string    `gorm:"size:64;not null"`
	Type       string    `gorm:"size:32;not null"`
	Expression *string   `gorm:"size:280"`
	Result     *float64
	Points     *int      `gorm:"default:0"`
	Timestamp  time.Time `gorm:"not null;index"`
}

package db

import (
	"time"

	"gorm.io/datatypes"
)

type Room struct {
	ID             string         `gorm:"primaryKey;size:36"`
	Code           string         `gorm:"size:6;uniqueIndex;not null"`
	MaxPlayers     int            `gorm:"not null;default:4"`
	CurrentRound   int            `gorm:"not null;default:0"`
	MaxRounds      int            `gorm:"not null;default:10"`
	GameState      string         `gorm:"size:16;not null;default:waiting"`
	CurrentNumbers datatypes.JSON `gorm:"type:jsonb"`
	Timer          int            `gorm:"not null;default:60"`
	CreatedAt      time.Time      `gorm:"not null"`
	UpdatedAt      time.Time      `gorm:"not null"`
	Players        []Player       `gorm:"constraint:OnDelete:CASCADE"`
	Activities     []Activity     `gorm:"constraint:OnDelete:CASCADE"`
}

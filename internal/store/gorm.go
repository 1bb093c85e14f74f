package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"make24/internal/db"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GormStore persists records in Postgres through gorm.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(conn *gorm.DB) *GormStore {
	return &GormStore{db: conn}
}

func (s *GormStore) CreateRoom(ctx context.Context, room Room) error {
	record, err := roomRecord(room)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return err
	}
	return nil
}

func (s *GormStore) GetRoom(ctx context.Context, id string) (Room, error) {
	var record db.Room
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return Room{}, translate(err)
	}
	return roomFromRecord(record)
}

func (s *GormStore) GetRoomByCode(ctx context.Context, code string) (Room, error) {
	var record db.Room
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&record).Error; err != nil {
		return Room{}, translate(err)
	}
	return roomFromRecord(record)
}

func (s *GormStore) UpdateRoom(ctx context.Context, room Room) error {
	numbers, err := encodeNumbers(room.CurrentNumbers)
	if err != nil {
		return err
	}
	updates := map[string]any{
		"max_players":     room.MaxPlayers,
		"current_round":   room.CurrentRound,
		"max_rounds":      room.MaxRounds,
		"game_state":      room.GameState,
		"current_numbers": numbers,
		"timer":           room.TimerSeconds,
	}
	result := s.db.WithContext(ctx).Model(&db.Room{}).Where("id = ?", room.ID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteRoom(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", id).Delete(&db.Activity{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", id).Delete(&db.Player{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&db.Room{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *GormStore) CreatePlayer(ctx context.Context, player Player) error {
	record := playerRecord(player)
	return s.db.WithContext(ctx).Create(&record).Error
}

func (s *GormStore) GetPlayer(ctx context.Context, id string) (Player, error) {
	var record db.Player
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return Player{}, translate(err)
	}
	return playerFromRecord(record), nil
}

func (s *GormStore) ListPlayers(ctx context.Context, roomID string) ([]Player, error) {
	var records []db.Player
	if err := s.db.WithContext(ctx).Where("room_id = ?", roomID).Order("joined_at ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	list := make([]Player, len(records))
	for i, record := range records {
		list[i] = playerFromRecord(record)
	}
	return list, nil
}

func (s *GormStore) UpdatePlayer(ctx context.Context, player Player) error {
	updates := map[string]any{
		"name":      player.Name,
		"score":     player.Score,
		"is_active": player.IsActive,
		"is_ready":  player.IsReady,
		"avatar":    player.Avatar,
		"color":     player.Color,
	}
	result := s.db.WithContext(ctx).Model(&db.Player{}).Where("id = ?", player.ID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) RemovePlayer(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&db.Player{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateActivity(ctx context.Context, activity Activity) error {
	record := db.Activity{
		ID:         activity.ID,
		RoomID:     activity.RoomID,
		PlayerID:   activity.PlayerID,
		PlayerName: activity.PlayerName,
		Type:       activity.Type,
		Expression: activity.Expression,
		Result:     activity.Result,
		Points:     activity.Points,
		Timestamp:  activity.Timestamp,
	}
	return s.db.WithContext(ctx).Create(&record).Error
}

func (s *GormStore) ListActivities(ctx context.Context, roomID string) ([]Activity, error) {
	var records []db.Activity
	if err := s.db.WithContext(ctx).Where("room_id = ?", roomID).Order("timestamp DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	list := make([]Activity, len(records))
	for i, record := range records {
		list[i] = Activity{
			ID:         record.ID,
			RoomID:     record.RoomID,
			PlayerID:   record.PlayerID,
			PlayerName: record.PlayerName,
			Type:       record.Type,
			Expression: record.Expression,
			Result:     record.Result,
			Points:     record.Points,
			Timestamp:  record.Timestamp,
		}
	}
	return list, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func roomRecord(room Room) (db.Room, error) {
	numbers, err := encodeNumbers(room.CurrentNumbers)
	if err != nil {
		return db.Room{}, err
	}
	return db.Room{
		ID:             room.ID,
		Code:           room.Code,
		MaxPlayers:     room.MaxPlayers,
		CurrentRound:   room.CurrentRound,
		MaxRounds:      room.MaxRounds,
		GameState:      room.GameState,
		CurrentNumbers: numbers,
		Timer:          room.TimerSeconds,
		CreatedAt:      room.CreatedAt,
	}, nil
}

func roomFromRecord(record db.Room) (Room, error) {
	numbers, err := decodeNumbers(record.CurrentNumbers)
	if err != nil {
		return Room{}, fmt.Errorf("room %s numbers: %w", record.ID, err)
	}
	return Room{
		ID:             record.ID,
		Code:           record.Code,
		MaxPlayers:     record.MaxPlayers,
		CurrentRound:   record.CurrentRound,
		MaxRounds:      record.MaxRounds,
		GameState:      record.GameState,
		CurrentNumbers: numbers,
		TimerSeconds:   record.Timer,
		CreatedAt:      record.CreatedAt,
	}, nil
}

func playerRecord(player Player) db.Player {
	return db.Player{
		ID:       player.ID,
		RoomID:   player.RoomID,
		Name:     player.Name,
		Score:    player.Score,
		IsActive: player.IsActive,
		IsReady:  player.IsReady,
		Avatar:   player.Avatar,
		Color:    player.Color,
		JoinedAt: player.JoinedAt,
	}
}

func playerFromRecord(record db.Player) Player {
	return Player{
		ID:       record.ID,
		RoomID:   record.RoomID,
		Name:     record.Name,
		Score:    record.Score,
		IsActive: record.IsActive,
		IsReady:  record.IsReady,
		Avatar:   record.Avatar,
		Color:    record.Color,
		JoinedAt: record.JoinedAt,
	}
}

func encodeNumbers(numbers []int) (datatypes.JSON, error) {
	if len(numbers) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(numbers)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

func decodeNumbers(data datatypes.JSON) ([]int, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var numbers []int
	if err := json.Unmarshal(data, &numbers); err != nil {
		return nil, err
	}
	return numbers, nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

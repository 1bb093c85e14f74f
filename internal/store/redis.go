package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps records as JSON values in Redis. Room codes are claimed
// with SETNX so two rooms can never share one.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "make24:"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisStore) roomKey(id string) string {
	return fmt.Sprintf("%sroom:%s", s.keyPrefix, id)
}

func (s *RedisStore) roomCodeKey(code string) string {
	return fmt.Sprintf("%sroom_code:%s", s.keyPrefix, code)
}

func (s *RedisStore) roomPlayersKey(roomID string) string {
	return fmt.Sprintf("%sroom:%s:players", s.keyPrefix, roomID)
}

func (s *RedisStore) roomActivitiesKey(roomID string) string {
	return fmt.Sprintf("%sroom:%s:activities", s.keyPrefix, roomID)
}

func (s *RedisStore) playerKey(id string) string {
	return fmt.Sprintf("%splayer:%s", s.keyPrefix, id)
}

func (s *RedisStore) CreateRoom(ctx context.Context, room Room) error {
	claimed, err := s.client.SetNX(ctx, s.roomCodeKey(room.Code), room.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("redis: claim room code %s: %w", room.Code, err)
	}
	if !claimed {
		return ErrDuplicateCode
	}
	if err := s.setJSON(ctx, s.roomKey(room.ID), room); err != nil {
		_ = s.client.Del(ctx, s.roomCodeKey(room.Code)).Err()
		return err
	}
	return nil
}

func (s *RedisStore) GetRoom(ctx context.Context, id string) (Room, error) {
	var room Room
	if err := s.getJSON(ctx, s.roomKey(id), &room); err != nil {
		return Room{}, err
	}
	return room, nil
}

func (s *RedisStore) GetRoomByCode(ctx context.Context, code string) (Room, error) {
	id, err := s.client.Get(ctx, s.roomCodeKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Room{}, ErrNotFound
		}
		return Room{}, fmt.Errorf("redis: lookup room code %s: %w", code, err)
	}
	return s.GetRoom(ctx, id)
}

func (s *RedisStore) UpdateRoom(ctx context.Context, room Room) error {
	existing, err := s.GetRoom(ctx, room.ID)
	if err != nil {
		return err
	}
	room.Code = existing.Code
	return s.setJSON(ctx, s.roomKey(room.ID), room)
}

func (s *RedisStore) DeleteRoom(ctx context.Context, id string) error {
	room, err := s.GetRoom(ctx, id)
	if err != nil {
		return err
	}
	playerIDs, err := s.client.LRange(ctx, s.roomPlayersKey(id), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("redis: list players for room %s: %w", id, err)
	}
	keys := []string{
		s.roomKey(id),
		s.roomCodeKey(room.Code),
		s.roomPlayersKey(id),
		s.roomActivitiesKey(id),
	}
	for _, playerID := range playerIDs {
		keys = append(keys, s.playerKey(playerID))
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisStore) CreatePlayer(ctx context.Context, player Player) error {
	exists, err := s.client.Exists(ctx, s.roomKey(player.RoomID)).Result()
	if err != nil {
		return fmt.Errorf("redis: check room %s: %w", player.RoomID, err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.playerKey(player.ID), data, 0)
		pipe.RPush(ctx, s.roomPlayersKey(player.RoomID), player.ID)
		return nil
	})
	return err
}

func (s *RedisStore) GetPlayer(ctx context.Context, id string) (Player, error) {
	var player Player
	if err := s.getJSON(ctx, s.playerKey(id), &player); err != nil {
		return Player{}, err
	}
	return player, nil
}

func (s *RedisStore) ListPlayers(ctx context.Context, roomID string) ([]Player, error) {
	ids, err := s.client.LRange(ctx, s.roomPlayersKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list players for room %s: %w", roomID, err)
	}
	list := make([]Player, 0, len(ids))
	for _, id := range ids {
		player, err := s.GetPlayer(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		list = append(list, player)
	}
	return list, nil
}

func (s *RedisStore) UpdatePlayer(ctx context.Context, player Player) error {
	existing, err := s.GetPlayer(ctx, player.ID)
	if err != nil {
		return err
	}
	player.RoomID = existing.RoomID
	return s.setJSON(ctx, s.playerKey(player.ID), player)
}

func (s *RedisStore) RemovePlayer(ctx context.Context, id string) error {
	player, err := s.GetPlayer(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.playerKey(id))
		pipe.LRem(ctx, s.roomPlayersKey(player.RoomID), 0, id)
		return nil
	})
	return err
}

func (s *RedisStore) CreateActivity(ctx context.Context, activity Activity) error {
	data, err := json.Marshal(activity)
	if err != nil {
		return err
	}
	return s.client.LPush(ctx, s.roomActivitiesKey(activity.RoomID), data).Err()
}

func (s *RedisStore) ListActivities(ctx context.Context, roomID string) ([]Activity, error) {
	values, err := s.client.LRange(ctx, s.roomActivitiesKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list activities for room %s: %w", roomID, err)
	}
	list := make([]Activity, 0, len(values))
	for _, value := range values {
		var activity Activity
		if err := json.Unmarshal([]byte(value), &activity); err != nil {
			return nil, fmt.Errorf("redis: decode activity: %w", err)
		}
		list = append(list, activity)
	}
	return list, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) setJSON(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) getJSON(ctx context.Context, key string, dest any) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("redis: get %s: %w", key, err)
	}
	return json.Unmarshal(data, dest)
}

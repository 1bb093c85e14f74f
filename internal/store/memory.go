package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu         sync.Mutex
	rooms      map[string]Room
	codes      map[string]string
	players    map[string]Player
	playerSeq  map[string]int
	activities map[string][]activityEntry
	nextSeq    int
}

type activityEntry struct {
	seq      int
	activity Activity
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:      make(map[string]Room),
		codes:      make(map[string]string),
		players:    make(map[string]Player),
		playerSeq:  make(map[string]int),
		activities: make(map[string][]activityEntry),
	}
}

func (s *MemoryStore) CreateRoom(_ context.Context, room Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.codes[room.Code]; taken {
		return ErrDuplicateCode
	}
	s.rooms[room.ID] = cloneRoom(room)
	s.codes[room.Code] = room.ID
	return nil
}

func (s *MemoryStore) GetRoom(_ context.Context, id string) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return Room{}, ErrNotFound
	}
	return cloneRoom(room), nil
}

func (s *MemoryStore) GetRoomByCode(_ context.Context, code string) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.codes[code]
	if !ok {
		return Room{}, ErrNotFound
	}
	return cloneRoom(s.rooms[id]), nil
}

func (s *MemoryStore) UpdateRoom(_ context.Context, room Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.rooms[room.ID]
	if !ok {
		return ErrNotFound
	}
	room.Code = existing.Code
	s.rooms[room.ID] = cloneRoom(room)
	return nil
}

func (s *MemoryStore) DeleteRoom(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.rooms, id)
	delete(s.codes, room.Code)
	for playerID, player := range s.players {
		if player.RoomID == id {
			delete(s.players, playerID)
			delete(s.playerSeq, playerID)
		}
	}
	delete(s.activities, id)
	return nil
}

func (s *MemoryStore) CreatePlayer(_ context.Context, player Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[player.RoomID]; !ok {
		return ErrNotFound
	}
	s.nextSeq++
	s.players[player.ID] = player
	s.playerSeq[player.ID] = s.nextSeq
	return nil
}

func (s *MemoryStore) GetPlayer(_ context.Context, id string) (Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, ok := s.players[id]
	if !ok {
		return Player{}, ErrNotFound
	}
	return player, nil
}

func (s *MemoryStore) ListPlayers(_ context.Context, roomID string) ([]Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]Player, 0)
	for _, player := range s.players {
		if player.RoomID == roomID {
			list = append(list, player)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return s.playerSeq[list[i].ID] < s.playerSeq[list[j].ID]
	})
	return list, nil
}

func (s *MemoryStore) UpdatePlayer(_ context.Context, player Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.players[player.ID]
	if !ok {
		return ErrNotFound
	}
	player.RoomID = existing.RoomID
	s.players[player.ID] = player
	return nil
}

func (s *MemoryStore) RemovePlayer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[id]; !ok {
		return ErrNotFound
	}
	delete(s.players, id)
	delete(s.playerSeq, id)
	return nil
}

func (s *MemoryStore) CreateActivity(_ context.Context, activity Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[activity.RoomID]; !ok {
		return ErrNotFound
	}
	s.nextSeq++
	s.activities[activity.RoomID] = append(s.activities[activity.RoomID], activityEntry{
		seq:      s.nextSeq,
		activity: cloneActivity(activity),
	})
	return nil
}

func (s *MemoryStore) ListActivities(_ context.Context, roomID string) ([]Activity, error) {
	s.mu.Lock()
	entries := append([]activityEntry(nil), s.activities[roomID]...)
	s.mu.Unlock()

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].activity.Timestamp, entries[j].activity.Timestamp
		if !a.Equal(b) {
			return a.After(b)
		}
		return entries[i].seq > entries[j].seq
	})
	list := make([]Activity, len(entries))
	for i, entry := range entries {
		list[i] = cloneActivity(entry.activity)
	}
	return list, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

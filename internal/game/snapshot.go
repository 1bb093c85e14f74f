package game

import (
	"context"
	"fmt"

	"make24/internal/store"
)

// GameState is the full view of a room sent to clients. Version increases
// with every snapshot of the same room, so a consumer can drop one that
// arrives after a newer one.
type GameState struct {
	Version        uint64           `json:"version"`
	Room           store.Room       `json:"room"`
	Players        []store.Player   `json:"players"`
	Activities     []store.Activity `json:"activities"`
	TimeRemaining  int              `json:"timeRemaining"`
	IsTimerRunning bool             `json:"isTimerRunning"`
}

type TimerState struct {
	TimeRemaining  int  `json:"timeRemaining"`
	IsTimerRunning bool `json:"isTimerRunning"`
}

// snapshotLocked always reads room, players and activities from the store;
// only the countdown comes from memory.
func (e *Engine) snapshotLocked(ctx context.Context, rt *roomRuntime) (*GameState, error) {
	room, err := e.store.GetRoom(ctx, rt.roomID)
	if err != nil {
		return nil, fmt.Errorf("snapshot room: %w", err)
	}
	players, err := e.store.ListPlayers(ctx, rt.roomID)
	if err != nil {
		return nil, fmt.Errorf("snapshot players: %w", err)
	}
	activities, err := e.store.ListActivities(ctx, rt.roomID)
	if err != nil {
		return nil, fmt.Errorf("snapshot activities: %w", err)
	}
	if players == nil {
		players = []store.Player{}
	}
	if activities == nil {
		activities = []store.Activity{}
	}
	rt.version++
	return &GameState{
		Version:        rt.version,
		Room:           room,
		Players:        players,
		Activities:     activities,
		TimeRemaining:  rt.timeRemaining,
		IsTimerRunning: rt.running,
	}, nil
}

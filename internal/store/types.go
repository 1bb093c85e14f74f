package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("store: record not found")
	ErrDuplicateCode = errors.New("store: duplicate room code")
)

const (
	StateWaiting  = "waiting"
	StatePlaying  = "playing"
	StateFinished = "finished"
)

const (
	ActivitySolved           = "solved"
	ActivityAttempted        = "attempted"
	ActivityHint             = "hint"
	ActivitySolutionRevealed = "solution_revealed"
)

type Room struct {
	ID             string    `json:"id"`
	Code           string    `json:"code"`
	MaxPlayers     int       `json:"maxPlayers"`
	CurrentRound   int       `json:"currentRound"`
	MaxRounds      int       `json:"maxRounds"`
	GameState      string    `json:"gameState"`
	CurrentNumbers []int     `json:"currentNumbers"`
	TimerSeconds   int       `json:"timer"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Player struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"roomId"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	IsActive bool      `json:"isActive"`
	IsReady  bool      `json:"isReady"`
	Avatar   string    `json:"avatar"`
	Color    string    `json:"color"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Activity is an append-only feed entry. PlayerID is nil for system entries.
type Activity struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"roomId"`
	PlayerID   *string   `json:"playerId"`
	PlayerName string    `json:"playerName"`
	Type       string    `json:"type"`
	Expression *string   `json:"expression"`
	Result     *float64  `json:"result"`
	Points     *int      `json:"points"`
	Timestamp  time.Time `json:"timestamp"`
}

// Storage is the source of truth for rooms, players and activities.
// Implementations assign nothing: callers set IDs and timestamps.
type Storage interface {
	CreateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	GetRoomByCode(ctx context.Context, code string) (Room, error)
	UpdateRoom(ctx context.Context, room Room) error
	DeleteRoom(ctx context.Context, id string) error

	CreatePlayer(ctx context.Context, player Player) error
	GetPlayer(ctx context.Context, id string) (Player, error)
	// ListPlayers returns a room's players in join order.
	ListPlayers(ctx context.Context, roomID string) ([]Player, error)
	UpdatePlayer(ctx context.Context, player Player) error
	RemovePlayer(ctx context.Context, id string) error

	CreateActivity(ctx context.Context, activity Activity) error
	// ListActivities returns a room's activities newest first.
	ListActivities(ctx context.Context, roomID string) ([]Activity, error)

	Close() error
}

func cloneRoom(room Room) Room {
	if room.CurrentNumbers != nil {
		room.CurrentNumbers = append([]int(nil), room.CurrentNumbers...)
	}
	return room
}

func cloneActivity(activity Activity) Activity {
	activity.PlayerID = clonePtr(activity.PlayerID)
	activity.Expression = clonePtr(activity.Expression)
	activity.Result = clonePtr(activity.Result)
	activity.Points = clonePtr(activity.Points)
	return activity
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

package game

import "errors"

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrNotEnoughPlayers   = errors.New("need at least 2 players to start")
	ErrAlreadyStarted     = errors.New("game already started")
	ErrNotPlaying         = errors.New("game is not in progress")
	ErrGameFinished       = errors.New("game is finished")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrStaleRound         = errors.New("round already ended")
	ErrInvalidMaxPlayers  = errors.New("maxPlayers must be 2 or 4")
	ErrNoSolution         = errors.New("no solution for the current numbers")
	ErrInvalidTransition  = errors.New("invalid game state transition")
	ErrCodeSpaceExhausted = errors.New("could not allocate a unique room code")
)

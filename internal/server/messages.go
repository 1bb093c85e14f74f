package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"make24/internal/expr"
	"make24/internal/game"
	"make24/internal/store"
)

const (
	msgPlayerJoin       = "player_join"
	msgGameStart        = "game_start"
	msgExpressionSubmit = "expression_submit"
	msgSolutionRequest  = "solution_request"
	msgTimerSync        = "timer_sync"

	msgJoinSuccess      = "join_success"
	msgJoinError        = "join_error"
	msgGameStateUpdate  = "game_state_update"
	msgGameStarted      = "game_started"
	msgStartError       = "start_error"
	msgExpressionResult = "expression_result"
	msgSubmitError      = "submit_error"
	msgSolutionRevealed = "solution_revealed"
	msgSolutionError    = "solution_error"
	msgTimerUpdate      = "timer_update"
	msgError            = "error"
)

const invalidMessageFormat = "Invalid message format"

var errMalformed = errors.New("malformed message")

type inboundEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// inboundMessage is one of the concrete message types below.
type inboundMessage interface {
	messageType() string
}

type playerJoinMessage struct {
	RoomCode   string `json:"roomCode" validate:"required,roomcode"`
	PlayerName string `json:"playerName" validate:"required,name"`
	Avatar     string `json:"avatar" validate:"omitempty,max=8"`
	Color      string `json:"color" validate:"omitempty,hexcolor"`
}

type gameStartMessage struct {
	RoomCode string `json:"roomCode" validate:"required,roomcode"`
}

type expressionSubmitMessage struct {
	RoomCode   string `json:"roomCode" validate:"required,roomcode"`
	PlayerID   string `json:"playerId" validate:"required"`
	Expression string `json:"expression" validate:"max=200"`
	Round      *int   `json:"round,omitempty" validate:"omitempty,min=1"`
}

type solutionRequestMessage struct {
	RoomCode string `json:"roomCode" validate:"required,roomcode"`
	PlayerID string `json:"playerId"`
}

type timerSyncMessage struct{}

func (*playerJoinMessage) messageType() string       { return msgPlayerJoin }
func (*gameStartMessage) messageType() string        { return msgGameStart }
func (*expressionSubmitMessage) messageType() string { return msgExpressionSubmit }
func (*solutionRequestMessage) messageType() string  { return msgSolutionRequest }
func (*timerSyncMessage) messageType() string        { return msgTimerSync }

// invalidPayloadError carries a validation failure for a well-formed message
// so the reply can use that message's own error type.
type invalidPayloadError struct {
	replyType string
	message   string
}

func (e *invalidPayloadError) Error() string {
	return fmt.Sprintf("%s: %s", e.replyType, e.message)
}

var errorReplyTypes = map[string]string{
	msgPlayerJoin:       msgJoinError,
	msgGameStart:        msgStartError,
	msgExpressionSubmit: msgSubmitError,
	msgSolutionRequest:  msgSolutionError,
}

func decodeMessage(raw []byte) (inboundMessage, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errMalformed
	}
	var msg inboundMessage
	switch env.Type {
	case msgPlayerJoin:
		msg = &playerJoinMessage{}
	case msgGameStart:
		msg = &gameStartMessage{}
	case msgExpressionSubmit:
		msg = &expressionSubmitMessage{}
	case msgSolutionRequest:
		msg = &solutionRequestMessage{}
	case msgTimerSync:
		return &timerSyncMessage{}, nil
	default:
		return nil, errMalformed
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, errMalformed
	}
	if err := json.Unmarshal(env.Data, msg); err != nil {
		return nil, errMalformed
	}
	if err := messageValidator.Struct(msg); err != nil {
		return nil, &invalidPayloadError{
			replyType: errorReplyTypes[env.Type],
			message:   resolveBindError(err, messageErrors, invalidMessageFormat),
		}
	}
	return msg, nil
}

type outboundMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type errorPayload struct {
	Error string `json:"error"`
}

type joinSuccessPayload struct {
	Player    store.Player    `json:"player"`
	GameState *game.GameState `json:"gameState"`
}

type expressionResultPayload struct {
	Validation expr.Result     `json:"validation"`
	Points     int             `json:"points"`
	GameState  *game.GameState `json:"gameState"`
}

type solutionRevealedPayload struct {
	Solution  string          `json:"solution"`
	GameState *game.GameState `json:"gameState"`
}

var userMessages = []struct {
	err     error
	message string
}{
	{game.ErrRoomNotFound, "Room not found"},
	{game.ErrRoomFull, "Room is full"},
	{game.ErrNotEnoughPlayers, "Need at least 2 players to start"},
	{game.ErrAlreadyStarted, "Game has already started"},
	{game.ErrGameFinished, "Game is finished"},
	{game.ErrNotPlaying, "Game is not in progress"},
	{game.ErrPlayerNotFound, "Player not found"},
	{game.ErrStaleRound, "That round has already ended"},
	{game.ErrNoSolution, "No solution found for these numbers"},
	{game.ErrInvalidMaxPlayers, "maxPlayers must be 2 or 4"},
}

// userMessage returns the text shown to players for err and whether err is
// an expected game outcome rather than a server fault.
func userMessage(err error) (string, bool) {
	for _, entry := range userMessages {
		if errors.Is(err, entry.err) {
			return entry.message, true
		}
	}
	return "Something went wrong, please try again", false
}

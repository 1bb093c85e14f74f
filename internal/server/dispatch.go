package server

import (
	"context"
	"encoding/json"
	"time"

	"make24/internal/game"

	"github.com/sirupsen/logrus"
)

const messageTimeout = 10 * time.Second

func (s *Server) dispatch(c *client, msg inboundMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), messageTimeout)
	defer cancel()
	switch m := msg.(type) {
	case *playerJoinMessage:
		s.handlePlayerJoin(ctx, c, m)
	case *gameStartMessage:
		s.handleGameStart(ctx, c, m)
	case *expressionSubmitMessage:
		s.handleExpressionSubmit(ctx, c, m)
	case *solutionRequestMessage:
		s.handleSolutionRequest(ctx, c, m)
	case *timerSyncMessage:
		s.handleTimerSync(ctx, c)
	}
}

func (s *Server) handlePlayerJoin(ctx context.Context, c *client, m *playerJoinMessage) {
	player, state, err := s.engine.JoinRoom(ctx, game.JoinRequest{
		Code:   m.RoomCode,
		Name:   normalizeText(m.PlayerName),
		Avatar: m.Avatar,
		Color:  m.Color,
	})
	if err != nil {
		s.replyError(c, msgJoinError, msgPlayerJoin, err)
		return
	}
	code := state.Room.Code
	if previous := s.sessions.bind(c, code, player.ID); previous.playerID != "" {
		s.leave(previous)
	}
	s.broadcastState(code, state.Version, msgGameStateUpdate, state)
	c.sendMessage(msgJoinSuccess, joinSuccessPayload{Player: player, GameState: state})
}

func (s *Server) handleGameStart(ctx context.Context, c *client, m *gameStartMessage) {
	state, err := s.engine.StartGame(ctx, m.RoomCode)
	if err != nil {
		s.replyError(c, msgStartError, msgGameStart, err)
		return
	}
	s.broadcastState(state.Room.Code, state.Version, msgGameStarted, state)
}

func (s *Server) handleExpressionSubmit(ctx context.Context, c *client, m *expressionSubmitMessage) {
	res, err := s.engine.SubmitExpression(ctx, game.Submission{
		Code:       m.RoomCode,
		PlayerID:   m.PlayerID,
		Expression: m.Expression,
		Round:      m.Round,
	})
	if err != nil {
		s.replyError(c, msgSubmitError, msgExpressionSubmit, err)
		return
	}
	s.broadcastState(res.State.Room.Code, res.State.Version, msgExpressionResult, expressionResultPayload{
		Validation: res.Validation,
		Points:     res.Points,
		GameState:  res.State,
	})
}

func (s *Server) handleSolutionRequest(ctx context.Context, c *client, m *solutionRequestMessage) {
	res, err := s.engine.RevealSolution(ctx, m.RoomCode)
	if err != nil {
		s.replyError(c, msgSolutionError, msgSolutionRequest, err)
		return
	}
	s.broadcastState(res.State.Room.Code, res.State.Version, msgSolutionRevealed, solutionRevealedPayload{
		Solution:  res.Solution,
		GameState: res.State,
	})
}

// handleTimerSync answers only connections that have joined a room.
func (s *Server) handleTimerSync(ctx context.Context, c *client) {
	sess, ok := s.sessions.lookup(c)
	if !ok {
		return
	}
	timer, err := s.engine.Timer(ctx, sess.roomCode)
	if err != nil {
		s.replyError(c, msgError, msgTimerSync, err)
		return
	}
	c.sendMessage(msgTimerUpdate, timer)
}

func (s *Server) replyError(c *client, replyType, requestType string, err error) {
	message, expected := userMessage(err)
	if !expected {
		logrus.WithFields(logrus.Fields{
			"remote": c.remote,
			"type":   requestType,
		}).WithError(err).Error("ws request failed")
	}
	c.sendMessage(replyType, errorPayload{Error: message})
}

// broadcastState sends a message carrying full room state to everyone in
// the room. version is the snapshot's version; an older snapshot than the
// room last received is dropped. The heartbeat skips the room for the rest
// of the tick.
func (s *Server) broadcastState(code string, version uint64, messageType string, data any) {
	payload, err := json.Marshal(outboundMessage{Type: messageType, Data: data})
	if err != nil {
		logrus.WithError(err).WithField("type", messageType).Error("encode broadcast failed")
		return
	}
	s.sessions.deliverFull(code, version, payload, time.Now())
}

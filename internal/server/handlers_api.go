package server

import (
	"errors"
	"net/http"

	"make24/internal/game"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type createRoomRequest struct {
	MaxPlayers int `json:"maxPlayers" binding:"omitempty,oneof=2 4"`
}

type roomCodeURI struct {
	Code string `uri:"code" binding:"required,roomcode"`
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	if !s.enforceRateLimit(c, "create_room") {
		return
	}
	var req createRoomRequest
	if !bindJSON(c, &req, createRoomErrors, "Invalid room settings") {
		return
	}
	if req.MaxPlayers == 0 {
		req.MaxPlayers = s.cfg.DefaultMaxPlayers
	}
	room, err := s.engine.CreateRoom(c.Request.Context(), req.MaxPlayers)
	if err != nil {
		if errors.Is(err, game.ErrInvalidMaxPlayers) {
			respondError(c, http.StatusBadRequest, "maxPlayers must be 2 or 4")
			return
		}
		logrus.WithError(err).Error("create room failed")
		respondError(c, http.StatusInternalServerError, "Failed to create room")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"room":    room,
	})
}

func (s *Server) handleGetRoom(c *gin.Context) {
	var uri roomCodeURI
	if !bindURI(c, &uri, "Room not found") {
		return
	}
	state, err := s.engine.State(c.Request.Context(), uri.Code)
	if err != nil {
		if errors.Is(err, game.ErrRoomNotFound) {
			respondError(c, http.StatusNotFound, "Room not found")
			return
		}
		logrus.WithError(err).WithField("room_code", uri.Code).Error("load room failed")
		respondError(c, http.StatusInternalServerError, "Failed to load room")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"gameState": state,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendQueueSize  = 64
	leaveTimeout   = 5 * time.Second
)

// client is one websocket connection. Only writePump writes to conn.
type client struct {
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter
	remote  string
}

func newClient(conn *websocket.Conn, limiter *rate.Limiter, remote string) *client {
	return &client{
		conn:    conn,
		send:    make(chan []byte, sendQueueSize),
		done:    make(chan struct{}),
		limiter: limiter,
		remote:  remote,
	}
}

// enqueue never blocks. A client whose queue is full is disconnected.
func (c *client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		wsDropped.Inc()
		logrus.WithField("remote", c.remote).Warn("ws send queue full; closing connection")
		c.close()
		return false
	}
}

func (c *client) sendMessage(messageType string, data any) {
	payload, err := json.Marshal(outboundMessage{Type: messageType, Data: data})
	if err != nil {
		logrus.WithError(err).WithField("type", messageType).Error("encode ws message failed")
		return
	}
	c.enqueue(payload)
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithField("remote", c.remote).WithError(err).Debug("ws write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleWebsocket(ctx *gin.Context) {
	conn, err := s.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		logrus.WithError(err).Debug("ws upgrade failed")
		return
	}
	c := newClient(conn, newMessageLimiter(s.cfg.MessageRate, s.cfg.MessageBurst), ctx.ClientIP())
	s.sessions.add(c)
	wsConnections.Inc()
	logrus.WithField("remote", c.remote).Info("ws connected")
	go c.writePump()
	go s.readPump(c)
}

func (s *Server) readPump(c *client) {
	defer s.disconnect(c)
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.WithField("remote", c.remote).WithError(err).Debug("ws closed unexpectedly")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if !c.limiter.Allow() {
			rateLimited.WithLabelValues("ws_message").Inc()
			c.sendMessage(msgError, errorPayload{Error: "Too many messages, slow down"})
			continue
		}
		msg, err := decodeMessage(raw)
		if err != nil {
			s.rejectMessage(c, err)
			continue
		}
		wsMessages.WithLabelValues(msg.messageType()).Inc()
		s.dispatch(c, msg)
	}
}

func (s *Server) rejectMessage(c *client, err error) {
	var invalid *invalidPayloadError
	if errors.As(err, &invalid) && invalid.replyType != "" {
		wsMessages.WithLabelValues("invalid").Inc()
		c.sendMessage(invalid.replyType, errorPayload{Error: invalid.message})
		return
	}
	wsMessages.WithLabelValues("malformed").Inc()
	c.sendMessage(msgError, errorPayload{Error: invalidMessageFormat})
}

// disconnect removes the player bound to c, if any, and tells the rest of
// the room.
func (s *Server) disconnect(c *client) {
	c.close()
	wsConnections.Dec()
	sess := s.sessions.remove(c)
	logrus.WithFields(logrus.Fields{
		"remote":    c.remote,
		"room_code": sess.roomCode,
		"player_id": sess.playerID,
	}).Info("ws disconnected")
	if sess.playerID == "" {
		return
	}
	s.leave(sess)
}

func (s *Server) leave(sess session) {
	ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancel()
	state, err := s.engine.LeaveRoom(ctx, sess.roomCode, sess.playerID)
	if err != nil {
		if _, expected := userMessage(err); !expected {
			logrus.WithFields(logrus.Fields{
				"room_code": sess.roomCode,
				"player_id": sess.playerID,
			}).WithError(err).Error("remove player failed")
		}
		return
	}
	s.broadcastState(sess.roomCode, state.Version, msgGameStateUpdate, state)
}

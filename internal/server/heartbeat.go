package server

import (
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

func (s *Server) runHeartbeat() {
	interval := s.cfg.TickInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.heartbeat(now, interval)
		}
	}
}

// heartbeat sends timer_update to every room with a running countdown,
// except rooms that already got a full state during this tick.
func (s *Server) heartbeat(now time.Time, interval time.Duration) {
	since := now.Add(-interval)
	for code, timer := range s.engine.RunningTimers() {
		if s.sessions.members(code) == 0 {
			continue
		}
		payload, err := json.Marshal(outboundMessage{Type: msgTimerUpdate, Data: timer})
		if err != nil {
			logrus.WithError(err).Error("encode timer update failed")
			continue
		}
		if !s.sessions.deliverTimer(code, payload, since) {
			timerUpdatesSkipped.Inc()
		}
	}
}

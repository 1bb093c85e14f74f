package game

import (
	"context"
	"sync"
	"time"

	"make24/internal/store"

	"github.com/sirupsen/logrus"
)

const timerStoreTimeout = 5 * time.Second

// roomRuntime is the transient state of one room. It is never persisted.
type roomRuntime struct {
	mu            sync.Mutex
	roomID        string
	code          string
	timeRemaining int
	running       bool
	// gen identifies the current countdown. A countdown goroutine whose
	// generation no longer matches has been superseded and must exit.
	gen    int64
	cancel context.CancelFunc
	// version numbers snapshots in the order they were taken.
	version uint64
}

func (rt *roomRuntime) timerState() TimerState {
	return TimerState{TimeRemaining: rt.timeRemaining, IsTimerRunning: rt.running}
}

func (rt *roomRuntime) stopLocked() {
	if rt.cancel != nil {
		rt.cancel()
		rt.cancel = nil
	}
	rt.running = false
	rt.gen++
}

func (e *Engine) startTimerLocked(rt *roomRuntime, seconds int) {
	rt.stopLocked()
	ctx, cancel := context.WithCancel(context.Background())
	rt.cancel = cancel
	rt.timeRemaining = seconds
	rt.running = true
	go e.runCountdown(ctx, rt, rt.gen)
}

func (e *Engine) runCountdown(ctx context.Context, rt *roomRuntime, gen int64) {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !e.tick(rt, gen) {
				return
			}
		}
	}
}

// tick takes one second off the countdown identified by gen and ends the
// round when it reaches zero. It reports whether that countdown continues.
func (e *Engine) tick(rt *roomRuntime, gen int64) bool {
	rt.mu.Lock()
	if gen != rt.gen || !rt.running {
		rt.mu.Unlock()
		return false
	}
	if rt.timeRemaining > 0 {
		rt.timeRemaining--
	}
	if rt.timeRemaining > 0 {
		rt.mu.Unlock()
		return true
	}
	state, err := e.expireRoundLocked(rt)
	rt.mu.Unlock()

	if err != nil {
		timerFailures.Inc()
		logrus.WithFields(logrus.Fields{
			"room_code": rt.code,
			"room_id":   rt.roomID,
		}).WithError(err).Error("round expiry failed; countdown stopped")
		return false
	}
	if state != nil {
		e.notify(rt.code, ReasonRoundExpired, state)
	}
	return false
}

// expireRoundLocked advances the room after its countdown ran out. No
// activity is recorded for the expiry itself.
func (e *Engine) expireRoundLocked(rt *roomRuntime) (*GameState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timerStoreTimeout)
	defer cancel()

	rt.stopLocked()
	room, err := e.store.GetRoom(ctx, rt.roomID)
	if err != nil {
		return nil, err
	}
	if room.GameState != store.StatePlaying {
		return nil, nil
	}
	roundsExpired.Inc()
	logrus.WithFields(logrus.Fields{
		"room_code": room.Code,
		"round":     room.CurrentRound,
	}).Info("round expired")
	if err := e.advanceRoundLocked(ctx, rt, &room); err != nil {
		rt.stopLocked()
		return nil, err
	}
	return e.snapshotLocked(ctx, rt)
}

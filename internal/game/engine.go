package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"make24/internal/expr"
	"make24/internal/solver"
	"make24/internal/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	BasePoints  = 50
	BonusPoints = 25
	// The bonus applies while strictly more than this many seconds remain.
	bonusThresholdSeconds = 30

	systemPlayerName = "System"
	defaultAvatar    = "A"
	defaultColor     = "#3B82F6"
)

// ReasonRoundExpired is passed to the transition hook when a countdown ends a round.
const ReasonRoundExpired = "round_expired"

type Config struct {
	RoundSeconds int
	MaxRounds    int
	TickInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		RoundSeconds: 60,
		MaxRounds:    10,
		TickInterval: time.Second,
	}
}

// NumberSource supplies the four numbers for each round.
type NumberSource interface {
	Generate() []int
}

// TransitionFunc is called after a transition the engine performed on its
// own, outside any caller request. It runs without room locks held.
type TransitionFunc func(code, reason string, state *GameState)

type Option func(*Engine)

func WithNumberSource(src NumberSource) Option {
	return func(e *Engine) { e.numbers = src }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithCodeGenerator(next func() string) Option {
	return func(e *Engine) { e.newCode = next }
}

// Engine runs the round state machine for every room. Transitions on one
// room are serialized by that room's runtime lock; different rooms proceed
// independently.
type Engine struct {
	store   store.Storage
	cfg     Config
	numbers NumberSource
	now     func() time.Time
	newCode func() string

	mu           sync.Mutex
	rooms        map[string]*roomRuntime
	onTransition TransitionFunc
}

func New(st store.Storage, cfg Config, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.RoundSeconds <= 0 {
		cfg.RoundSeconds = def.RoundSeconds
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = def.MaxRounds
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	e := &Engine{
		store:   st,
		cfg:     cfg,
		numbers: solver.NewGenerator(),
		now:     func() time.Time { return time.Now().UTC() },
		newCode: newRoomCode,
		rooms:   make(map[string]*roomRuntime),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) OnTransition(fn TransitionFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTransition = fn
}

func (e *Engine) CreateRoom(ctx context.Context, maxPlayers int) (store.Room, error) {
	if maxPlayers != 2 && maxPlayers != 4 {
		return store.Room{}, ErrInvalidMaxPlayers
	}
	for attempt := 0; attempt < roomCodeAttempts; attempt++ {
		room := store.Room{
			ID:           uuid.NewString(),
			Code:         e.newCode(),
			MaxPlayers:   maxPlayers,
			MaxRounds:    e.cfg.MaxRounds,
			GameState:    store.StateWaiting,
			TimerSeconds: e.cfg.RoundSeconds,
			CreatedAt:    e.now(),
		}
		err := e.store.CreateRoom(ctx, room)
		if errors.Is(err, store.ErrDuplicateCode) {
			continue
		}
		if err != nil {
			return store.Room{}, fmt.Errorf("create room: %w", err)
		}
		e.runtime(room)
		roomsCreated.Inc()
		logrus.WithFields(logrus.Fields{
			"room_id":     room.ID,
			"room_code":   room.Code,
			"max_players": room.MaxPlayers,
		}).Info("room created")
		return room, nil
	}
	return store.Room{}, ErrCodeSpaceExhausted
}

type JoinRequest struct {
	Code   string
	Name   string
	Avatar string
	Color  string
}

func (e *Engine) JoinRoom(ctx context.Context, req JoinRequest) (store.Player, *GameState, error) {
	rt, room, err := e.lockRoom(ctx, req.Code)
	if err != nil {
		return store.Player{}, nil, err
	}
	defer rt.mu.Unlock()

	if err := checkAction(room, actionJoin); err != nil {
		return store.Player{}, nil, err
	}
	players, err := e.store.ListPlayers(ctx, room.ID)
	if err != nil {
		return store.Player{}, nil, fmt.Errorf("list players: %w", err)
	}
	if len(players) >= room.MaxPlayers {
		return store.Player{}, nil, ErrRoomFull
	}

	player := store.Player{
		ID:       uuid.NewString(),
		RoomID:   room.ID,
		Name:     strings.TrimSpace(req.Name),
		Avatar:   req.Avatar,
		Color:    req.Color,
		JoinedAt: e.now(),
	}
	if player.Avatar == "" {
		player.Avatar = defaultAvatar
	}
	if player.Color == "" {
		player.Color = defaultColor
	}
	if err := e.store.CreatePlayer(ctx, player); err != nil {
		return store.Player{}, nil, fmt.Errorf("create player: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"room_code": room.Code,
		"player_id": player.ID,
		"players":   len(players) + 1,
	}).Info("player joined")

	state, err := e.snapshotLocked(ctx, rt)
	if err != nil {
		return store.Player{}, nil, err
	}
	return player, state, nil
}

// LeaveRoom removes a player from a room. When the last player leaves, the
// room is discarded: its countdown stops, it is deleted from the store and
// later lookups fail with ErrRoomNotFound. The returned state is the room as
// the last player left it.
func (e *Engine) LeaveRoom(ctx context.Context, code, playerID string) (*GameState, error) {
	rt, room, err := e.lockRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	defer rt.mu.Unlock()

	if _, err := e.playerInRoom(ctx, room, playerID); err != nil {
		return nil, err
	}
	if err := e.store.RemovePlayer(ctx, playerID); err != nil {
		return nil, fmt.Errorf("remove player: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"room_code": room.Code,
		"player_id": playerID,
	}).Info("player left")
	state, err := e.snapshotLocked(ctx, rt)
	if err != nil {
		return nil, err
	}
	if len(state.Players) == 0 {
		e.discardLocked(ctx, rt, room)
		state.IsTimerRunning = false
	}
	return state, nil
}

// discardLocked tears down an empty room. The caller holds rt.mu.
func (e *Engine) discardLocked(ctx context.Context, rt *roomRuntime, room store.Room) {
	rt.stopLocked()
	fields := logrus.Fields{
		"room_code": room.Code,
		"room_id":   room.ID,
		"state":     room.GameState,
	}
	if err := e.store.DeleteRoom(ctx, room.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		logrus.WithFields(fields).WithError(err).Error("delete empty room failed")
		return
	}
	e.forget(rt)
	roomsDiscarded.Inc()
	logrus.WithFields(fields).Info("room discarded")
}

func (e *Engine) StartGame(ctx context.Context, code string) (*GameState, error) {
	rt, room, err := e.lockRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	defer rt.mu.Unlock()

	if err := checkAction(room, actionStart); err != nil {
		return nil, err
	}
	players, err := e.store.ListPlayers(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	if len(players) < 2 {
		return nil, ErrNotEnoughPlayers
	}
	if err := setState(&room, store.StatePlaying); err != nil {
		return nil, err
	}
	room.CurrentRound = 1
	room.CurrentNumbers = e.numbers.Generate()
	if err := e.store.UpdateRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("update room: %w", err)
	}
	e.startTimerLocked(rt, room.TimerSeconds)
	gamesStarted.Inc()
	logrus.WithFields(logrus.Fields{
		"room_code": room.Code,
		"players":   len(players),
		"round":     room.CurrentRound,
	}).Info("game started")
	return e.snapshotLocked(ctx, rt)
}

type Submission struct {
	Code       string
	PlayerID   string
	Expression string
	// Round, when set, must equal the room's current round or the
	// submission is rejected with ErrStaleRound.
	Round *int
}

type SubmitResult struct {
	Validation expr.Result
	Points     int
	State      *GameState
}

func (e *Engine) SubmitExpression(ctx context.Context, sub Submission) (SubmitResult, error) {
	rt, room, err := e.lockRoom(ctx, sub.Code)
	if err != nil {
		return SubmitResult{}, err
	}
	defer rt.mu.Unlock()

	if err := checkAction(room, actionSubmit); err != nil {
		return SubmitResult{}, err
	}
	if sub.Round != nil && *sub.Round != room.CurrentRound {
		submissionsTotal.WithLabelValues("stale").Inc()
		return SubmitResult{}, ErrStaleRound
	}
	player, err := e.playerInRoom(ctx, room, sub.PlayerID)
	if err != nil {
		return SubmitResult{}, err
	}

	validation := expr.Validate(sub.Expression, room.CurrentNumbers)
	points := 0
	kind := store.ActivityAttempted
	if validation.IsValid {
		kind = store.ActivitySolved
		points = pointsFor(rt.timeRemaining)
	}

	playerID := player.ID
	expression := sub.Expression
	activity := store.Activity{
		ID:         uuid.NewString(),
		RoomID:     room.ID,
		PlayerID:   &playerID,
		PlayerName: player.Name,
		Type:       kind,
		Expression: &expression,
		Result:     validation.Result,
		Points:     &points,
		Timestamp:  e.now(),
	}
	// Record the attempt before crediting the score.
	if err := e.store.CreateActivity(ctx, activity); err != nil {
		return SubmitResult{}, fmt.Errorf("create activity: %w", err)
	}
	submissionsTotal.WithLabelValues(kind).Inc()

	if validation.IsValid {
		player.Score += points
		if err := e.store.UpdatePlayer(ctx, player); err != nil {
			return SubmitResult{}, fmt.Errorf("update player: %w", err)
		}
		logrus.WithFields(logrus.Fields{
			"room_code": room.Code,
			"player_id": player.ID,
			"round":     room.CurrentRound,
			"points":    points,
		}).Info("round solved")
		if err := e.advanceRoundLocked(ctx, rt, &room); err != nil {
			return SubmitResult{}, err
		}
	}

	state, err := e.snapshotLocked(ctx, rt)
	if err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{Validation: validation, Points: points, State: state}, nil
}

type RevealResult struct {
	Solution string
	State    *GameState
}

// RevealSolution records a solution for the current numbers and ends the
// round without awarding points.
func (e *Engine) RevealSolution(ctx context.Context, code string) (RevealResult, error) {
	rt, room, err := e.lockRoom(ctx, code)
	if err != nil {
		return RevealResult{}, err
	}
	defer rt.mu.Unlock()

	if err := checkAction(room, actionReveal); err != nil {
		return RevealResult{}, err
	}
	started := time.Now()
	solution, found, err := solver.FindSolution(room.CurrentNumbers)
	solverDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		return RevealResult{}, fmt.Errorf("find solution: %w", err)
	}
	if !found {
		return RevealResult{}, ErrNoSolution
	}

	result := solution.Result
	points := 0
	expression := solution.Expression
	activity := store.Activity{
		ID:         uuid.NewString(),
		RoomID:     room.ID,
		PlayerName: systemPlayerName,
		Type:       store.ActivitySolutionRevealed,
		Expression: &expression,
		Result:     &result,
		Points:     &points,
		Timestamp:  e.now(),
	}
	if err := e.store.CreateActivity(ctx, activity); err != nil {
		return RevealResult{}, fmt.Errorf("create activity: %w", err)
	}
	solutionsRevealed.Inc()
	logrus.WithFields(logrus.Fields{
		"room_code": room.Code,
		"round":     room.CurrentRound,
	}).Info("solution revealed")

	if err := e.advanceRoundLocked(ctx, rt, &room); err != nil {
		return RevealResult{}, err
	}
	state, err := e.snapshotLocked(ctx, rt)
	if err != nil {
		return RevealResult{}, err
	}
	return RevealResult{Solution: solution.Expression, State: state}, nil
}

// advanceRoundLocked ends the current round. The caller holds rt.mu and
// room is the latest stored copy; it is updated in place.
func (e *Engine) advanceRoundLocked(ctx context.Context, rt *roomRuntime, room *store.Room) error {
	rt.stopLocked()
	if room.CurrentRound >= room.MaxRounds {
		if err := setState(room, store.StateFinished); err != nil {
			return err
		}
		if err := e.store.UpdateRoom(ctx, *room); err != nil {
			return fmt.Errorf("update room: %w", err)
		}
		gamesFinished.Inc()
		logrus.WithFields(logrus.Fields{
			"room_code": room.Code,
			"round":     room.CurrentRound,
		}).Info("game finished")
		return nil
	}
	room.CurrentRound++
	room.CurrentNumbers = e.numbers.Generate()
	if err := e.store.UpdateRoom(ctx, *room); err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	e.startTimerLocked(rt, room.TimerSeconds)
	logrus.WithFields(logrus.Fields{
		"room_code": room.Code,
		"round":     room.CurrentRound,
	}).Debug("round advanced")
	return nil
}

func (e *Engine) State(ctx context.Context, code string) (*GameState, error) {
	rt, _, err := e.lockRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	defer rt.mu.Unlock()
	return e.snapshotLocked(ctx, rt)
}

func (e *Engine) Timer(ctx context.Context, code string) (TimerState, error) {
	room, err := e.lookup(ctx, code)
	if err != nil {
		return TimerState{}, err
	}
	rt := e.runtime(room)
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.timerState(), nil
}

// RunningTimers returns the countdown of every room whose timer is running,
// keyed by room code.
func (e *Engine) RunningTimers() map[string]TimerState {
	e.mu.Lock()
	runtimes := make([]*roomRuntime, 0, len(e.rooms))
	for _, rt := range e.rooms {
		runtimes = append(runtimes, rt)
	}
	e.mu.Unlock()

	timers := make(map[string]TimerState)
	for _, rt := range runtimes {
		rt.mu.Lock()
		if rt.running {
			timers[rt.code] = rt.timerState()
		}
		rt.mu.Unlock()
	}
	return timers
}

// Close stops every countdown. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	runtimes := make([]*roomRuntime, 0, len(e.rooms))
	for id, rt := range e.rooms {
		runtimes = append(runtimes, rt)
		delete(e.rooms, id)
	}
	e.mu.Unlock()

	for _, rt := range runtimes {
		rt.mu.Lock()
		rt.stopLocked()
		rt.mu.Unlock()
	}
}

// forget drops rt from the registry unless it has already been replaced.
// It may be called with rt.mu held: e.mu is never held while taking a room
// lock.
func (e *Engine) forget(rt *roomRuntime) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rooms[rt.roomID] == rt {
		delete(e.rooms, rt.roomID)
	}
}

func (e *Engine) runtime(room store.Room) *roomRuntime {
	e.mu.Lock()
	defer e.mu.Unlock()
	rt, ok := e.rooms[room.ID]
	if !ok {
		rt = &roomRuntime{
			roomID:        room.ID,
			code:          room.Code,
			timeRemaining: room.TimerSeconds,
		}
		e.rooms[room.ID] = rt
	}
	return rt
}

// lockRoom resolves code, locks the room's runtime and re-reads the room so
// the caller acts on the state current at its turn. On success the caller
// must unlock rt.mu.
func (e *Engine) lockRoom(ctx context.Context, code string) (*roomRuntime, store.Room, error) {
	room, err := e.lookup(ctx, code)
	if err != nil {
		return nil, store.Room{}, err
	}
	rt := e.runtime(room)
	rt.mu.Lock()
	room, err = e.store.GetRoom(ctx, room.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rt.stopLocked()
			e.forget(rt)
			rt.mu.Unlock()
			return nil, store.Room{}, ErrRoomNotFound
		}
		rt.mu.Unlock()
		return nil, store.Room{}, fmt.Errorf("get room: %w", err)
	}
	return rt, room, nil
}

func (e *Engine) lookup(ctx context.Context, code string) (store.Room, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !validRoomCode(code) {
		return store.Room{}, ErrRoomNotFound
	}
	room, err := e.store.GetRoomByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return store.Room{}, ErrRoomNotFound
	}
	if err != nil {
		return store.Room{}, fmt.Errorf("lookup room %s: %w", code, err)
	}
	return room, nil
}

func (e *Engine) playerInRoom(ctx context.Context, room store.Room, playerID string) (store.Player, error) {
	player, err := e.store.GetPlayer(ctx, playerID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Player{}, ErrPlayerNotFound
	}
	if err != nil {
		return store.Player{}, fmt.Errorf("get player: %w", err)
	}
	if player.RoomID != room.ID {
		return store.Player{}, ErrPlayerNotFound
	}
	return player, nil
}

func (e *Engine) notify(code, reason string, state *GameState) {
	e.mu.Lock()
	fn := e.onTransition
	e.mu.Unlock()
	if fn != nil {
		fn(code, reason, state)
	}
}

func pointsFor(timeRemaining int) int {
	if timeRemaining > bonusThresholdSeconds {
		return BasePoints + BonusPoints
	}
	return BasePoints
}

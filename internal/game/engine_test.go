package game

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"make24/internal/expr"
	"make24/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedNumbers []int

func (f fixedNumbers) Generate() []int {
	return append([]int(nil), f...)
}

func newTestEngine(t *testing.T, cfg Config, opts ...Option) (*Engine, *store.MemoryStore) {
	t.Helper()
	if cfg.TickInterval == 0 {
		cfg.TickInterval = time.Hour
	}
	st := store.NewMemoryStore()
	opts = append([]Option{WithNumberSource(fixedNumbers{6, 8, 2, 4})}, opts...)
	e := New(st, cfg, opts...)
	t.Cleanup(e.Close)
	return e, st
}

func createRoomWithPlayers(t *testing.T, e *Engine, maxPlayers int, names ...string) (store.Room, []store.Player) {
	t.Helper()
	ctx := context.Background()
	room, err := e.CreateRoom(ctx, maxPlayers)
	require.NoError(t, err)
	players := make([]store.Player, 0, len(names))
	for _, name := range names {
		player, _, err := e.JoinRoom(ctx, JoinRequest{Code: room.Code, Name: name})
		require.NoError(t, err)
		players = append(players, player)
	}
	return room, players
}

func startedRoom(t *testing.T, e *Engine, names ...string) (store.Room, []store.Player) {
	t.Helper()
	room, players := createRoomWithPlayers(t, e, 4, names...)
	_, err := e.StartGame(context.Background(), room.Code)
	require.NoError(t, err)
	return room, players
}

func runtimeFor(t *testing.T, e *Engine, roomID string) *roomRuntime {
	t.Helper()
	e.mu.Lock()
	defer e.mu.Unlock()
	rt, ok := e.rooms[roomID]
	require.True(t, ok, "no runtime for room %s", roomID)
	return rt
}

func setTimeRemaining(t *testing.T, e *Engine, roomID string, seconds int) {
	t.Helper()
	rt := runtimeFor(t, e, roomID)
	rt.mu.Lock()
	rt.timeRemaining = seconds
	rt.mu.Unlock()
}

func currentGen(t *testing.T, e *Engine, roomID string) (*roomRuntime, int64) {
	t.Helper()
	rt := runtimeFor(t, e, roomID)
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt, rt.gen
}

func TestCreateRoom(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	room, err := e.CreateRoom(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, validRoomCode(room.Code), "code %q", room.Code)
	assert.Equal(t, store.StateWaiting, room.GameState)
	assert.Equal(t, 0, room.CurrentRound)
	assert.Equal(t, 10, room.MaxRounds)
	assert.Equal(t, 60, room.TimerSeconds)
	assert.Empty(t, room.CurrentNumbers)

	_, err = e.CreateRoom(context.Background(), 3)
	assert.ErrorIs(t, err, ErrInvalidMaxPlayers)
}

func TestCreateRoomRetriesDuplicateCodes(t *testing.T) {
	codes := []string{"AAAAAA", "AAAAAA", "AAAAAA", "BBBBBB"}
	var mu sync.Mutex
	next := func() string {
		mu.Lock()
		defer mu.Unlock()
		code := codes[0]
		codes = codes[1:]
		return code
	}
	e, _ := newTestEngine(t, Config{}, WithCodeGenerator(next))

	first, err := e.CreateRoom(context.Background(), 4)
	require.NoError(t, err)
	second, err := e.CreateRoom(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "AAAAAA", first.Code)
	assert.Equal(t, "BBBBBB", second.Code)
}

func TestJoinRoom(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	ctx := context.Background()
	room, err := e.CreateRoom(ctx, 2)
	require.NoError(t, err)

	player, state, err := e.JoinRoom(ctx, JoinRequest{Code: room.Code, Name: "  Ada  "})
	require.NoError(t, err)
	assert.Equal(t, "Ada", player.Name)
	assert.Equal(t, defaultAvatar, player.Avatar)
	assert.Equal(t, defaultColor, player.Color)
	assert.Equal(t, 0, player.Score)
	require.Len(t, state.Players, 1)
	assert.Equal(t, player.ID, state.Players[0].ID)

	_, _, err = e.JoinRoom(ctx, JoinRequest{Code: room.Code, Name: "Grace", Avatar: "G", Color: "#10B981"})
	require.NoError(t, err)
	_, _, err = e.JoinRoom(ctx, JoinRequest{Code: room.Code, Name: "Linus"})
	assert.ErrorIs(t, err, ErrRoomFull)

	_, _, err = e.JoinRoom(ctx, JoinRequest{Code: "ZZZZZZ", Name: "Ken"})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestJoinRoomCodeIsCaseInsensitive(t *testing.T) {
	e, _ := newTestEngine(t, Config{}, WithCodeGenerator(func() string { return "ABC123" }))
	_, err := e.CreateRoom(context.Background(), 4)
	require.NoError(t, err)
	_, _, err = e.JoinRoom(context.Background(), JoinRequest{Code: "abc123", Name: "Ada"})
	require.NoError(t, err)
}

func TestStartGameNeedsTwoPlayers(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	ctx := context.Background()
	room, _ := createRoomWithPlayers(t, e, 4, "Ada")

	_, err := e.StartGame(ctx, room.Code)
	require.ErrorIs(t, err, ErrNotEnoughPlayers)

	state, err := e.State(ctx, room.Code)
	require.NoError(t, err)
	assert.Equal(t, store.StateWaiting, state.Room.GameState)
	assert.Equal(t, 0, state.Room.CurrentRound)
	assert.False(t, state.IsTimerRunning)
}

func TestStartGame(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	ctx := context.Background()
	room, _ := createRoomWithPlayers(t, e, 4, "Ada", "Grace")

	state, err := e.StartGame(ctx, room.Code)
	require.NoError(t, err)
	assert.Equal(t, store.StatePlaying, state.Room.GameState)
	assert.Equal(t, 1, state.Room.CurrentRound)
	assert.Equal(t, []int{6, 8, 2, 4}, state.Room.CurrentNumbers)
	assert.True(t, state.IsTimerRunning)
	assert.Equal(t, 60, state.TimeRemaining)

	_, err = e.StartGame(ctx, room.Code)
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestSubmitCorrectWithBonus(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	room, players := startedRoom(t, e, "Ada", "Grace")

	res, err := e.SubmitExpression(context.Background(), Submission{
		Code:       room.Code,
		PlayerID:   players[0].ID,
		Expression: "(8-6)*(4+2)",
	})
	require.NoError(t, err)
	assert.True(t, res.Validation.IsValid)
	assert.Equal(t, 75, res.Points)
	assert.Equal(t, 2, res.State.Room.CurrentRound)
	assert.Equal(t, 75, res.State.Players[0].Score)
	assert.Equal(t, 0, res.State.Players[1].Score)
	assert.True(t, res.State.IsTimerRunning)
	assert.Equal(t, 60, res.State.TimeRemaining)

	require.Len(t, res.State.Activities, 1)
	activity := res.State.Activities[0]
	assert.Equal(t, store.ActivitySolved, activity.Type)
	require.NotNil(t, activity.PlayerID)
	assert.Equal(t, players[0].ID, *activity.PlayerID)
	require.NotNil(t, activity.Points)
	assert.Equal(t, 75, *activity.Points)
	require.NotNil(t, activity.Result)
	assert.InDelta(t, 24, *activity.Result, expr.Tolerance)
}

func TestSubmitCorrectWithoutBonus(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	room, players := startedRoom(t, e, "Ada", "Grace")
	setTimeRemaining(t, e, room.ID, 30)

	res, err := e.SubmitExpression(context.Background(), Submission{
		Code:       room.Code,
		PlayerID:   players[1].ID,
		Expression: "6*8/(4-2)",
	})
	require.NoError(t, err)
	require.True(t, res.Validation.IsValid, res.Validation.Error)
	assert.Equal(t, 50, res.Points)
	assert.Equal(t, 50, res.State.Players[1].Score)
}

func TestSubmitWrongAnswer(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	room, players := startedRoom(t, e, "Ada", "Grace")

	res, err := e.SubmitExpression(context.Background(), Submission{
		Code:       room.Code,
		PlayerID:   players[0].ID,
		Expression: "6+8+2+4",
	})
	require.NoError(t, err)
	assert.False(t, res.Validation.IsValid)
	assert.Equal(t, expr.ReasonNotTarget, res.Validation.Reason)
	assert.Equal(t, 0, res.Points)
	assert.Equal(t, 1, res.State.Room.CurrentRound)
	assert.True(t, res.State.IsTimerRunning)
	assert.Equal(t, 0, res.State.Players[0].Score)

	require.Len(t, res.State.Activities, 1)
	activity := res.State.Activities[0]
	assert.Equal(t, store.ActivityAttempted, activity.Type)
	require.NotNil(t, activity.Result)
	assert.Equal(t, 20.0, *activity.Result)
	require.NotNil(t, activity.Points)
	assert.Equal(t, 0, *activity.Points)
}

func TestSubmitRequiresPlayingAndKnownPlayer(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	ctx := context.Background()
	room, players := createRoomWithPlayers(t, e, 4, "Ada", "Grace")

	_, err := e.SubmitExpression(ctx, Submission{Code: room.Code, PlayerID: players[0].ID, Expression: "(8-6)*(4+2)"})
	assert.ErrorIs(t, err, ErrNotPlaying)

	_, err = e.StartGame(ctx, room.Code)
	require.NoError(t, err)
	_, err = e.SubmitExpression(ctx, Submission{Code: room.Code, PlayerID: "nobody", Expression: "(8-6)*(4+2)"})
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	other, strangers := createRoomWithPlayers(t, e, 4, "Ken")
	require.NotEqual(t, room.ID, other.ID)
	_, err = e.SubmitExpression(ctx, Submission{Code: room.Code, PlayerID: strangers[0].ID, Expression: "(8-6)*(4+2)"})
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestGameFinishesAfterMaxRounds(t *testing.T) {
	e, _ := newTestEngine(t, Config{MaxRounds: 3})
	ctx := context.Background()
	room, players := startedRoom(t, e, "Ada", "Grace")

	var state *GameState
	for i := 0; i < 3; i++ {
		res, err := e.SubmitExpression(ctx, Submission{Code: room.Code, PlayerID: players[0].ID, Expression: "(8-6)*(4+2)"})
		require.NoError(t, err)
		state = res.State
	}
	assert.Equal(t, store.StateFinished, state.Room.GameState)
	assert.Equal(t, 3, state.Room.CurrentRound)
	assert.False(t, state.IsTimerRunning)
	assert.Equal(t, 225, state.Players[0].Score)
	assert.Empty(t, e.RunningTimers())

	_, err := e.SubmitExpression(ctx, Submission{Code: room.Code, PlayerID: players[1].ID, Expression: "(8-6)*(4+2)"})
	assert.ErrorIs(t, err, ErrNotPlaying)
	_, err = e.RevealSolution(ctx, room.Code)
	assert.ErrorIs(t, err, ErrNotPlaying)
	_, _, err = e.JoinRoom(ctx, JoinRequest{Code: room.Code, Name: "Late"})
	assert.ErrorIs(t, err, ErrGameFinished)

	final, err := e.State(ctx, room.Code)
	require.NoError(t, err)
	assert.Equal(t, 225, final.Players[0].Score)
	assert.Equal(t, 0, final.Players[1].Score)
	assert.Equal(t, store.StateFinished, final.Room.GameState)
}

func TestRevealSolution(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	room, _ := startedRoom(t, e, "Ada", "Grace")

	res, err := e.RevealSolution(context.Background(), room.Code)
	require.NoError(t, err)
	assert.True(t, expr.Validate(res.Solution, []int{6, 8, 2, 4}).IsValid, res.Solution)
	assert.Equal(t, 2, res.State.Room.CurrentRound)

	require.Len(t, res.State.Activities, 1)
	activity := res.State.Activities[0]
	assert.Equal(t, store.ActivitySolutionRevealed, activity.Type)
	assert.Nil(t, activity.PlayerID)
	assert.Equal(t, "System", activity.PlayerName)
	require.NotNil(t, activity.Result)
	assert.Equal(t, 24.0, *activity.Result)
	require.NotNil(t, activity.Points)
	assert.Equal(t, 0, *activity.Points)
	require.NotNil(t, activity.Expression)
	assert.Equal(t, res.Solution, *activity.Expression)
	for _, player := range res.State.Players {
		assert.Equal(t, 0, player.Score)
	}
}

func TestRevealSolutionBeforeStart(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	room, _ := createRoomWithPlayers(t, e, 4, "Ada")
	_, err := e.RevealSolution(context.Background(), room.Code)
	assert.ErrorIs(t, err, ErrNotPlaying)
}

func TestTimerExpiryAdvancesRound(t *testing.T) {
	e, _ := newTestEngine(t, Config{RoundSeconds: 3})
	type call struct {
		code   string
		reason string
		state  *GameState
	}
	var calls []call
	e.OnTransition(func(code, reason string, state *GameState) {
		calls = append(calls, call{code, reason, state})
	})
	room, _ := startedRoom(t, e, "Ada", "Grace")

	rt, gen := currentGen(t, e, room.ID)
	assert.True(t, e.tick(rt, gen))
	assert.True(t, e.tick(rt, gen))
	timer, err := e.Timer(context.Background(), room.Code)
	require.NoError(t, err)
	assert.Equal(t, TimerState{TimeRemaining: 1, IsTimerRunning: true}, timer)

	assert.False(t, e.tick(rt, gen))
	require.Len(t, calls, 1)
	assert.Equal(t, room.Code, calls[0].code)
	assert.Equal(t, ReasonRoundExpired, calls[0].reason)
	assert.Equal(t, 2, calls[0].state.Room.CurrentRound)
	assert.Empty(t, calls[0].state.Activities)
	assert.True(t, calls[0].state.IsTimerRunning)
	assert.Equal(t, 3, calls[0].state.TimeRemaining)

	// The superseded countdown can no longer change anything.
	assert.False(t, e.tick(rt, gen))
	require.Len(t, calls, 1)
}

func TestTimerExpiryOnLastRoundFinishes(t *testing.T) {
	e, _ := newTestEngine(t, Config{RoundSeconds: 1, MaxRounds: 1})
	room, _ := startedRoom(t, e, "Ada", "Grace")

	rt, gen := currentGen(t, e, room.ID)
	assert.False(t, e.tick(rt, gen))

	state, err := e.State(context.Background(), room.Code)
	require.NoError(t, err)
	assert.Equal(t, store.StateFinished, state.Room.GameState)
	assert.False(t, state.IsTimerRunning)
}

func TestCountdownRunsOnTicker(t *testing.T) {
	e, _ := newTestEngine(t, Config{RoundSeconds: 2, TickInterval: 5 * time.Millisecond})
	expired := make(chan *GameState, 4)
	e.OnTransition(func(code, reason string, state *GameState) {
		select {
		case expired <- state:
		default:
		}
	})
	startedRoom(t, e, "Ada", "Grace")

	select {
	case state := <-expired:
		assert.GreaterOrEqual(t, state.Room.CurrentRound, 2)
	case <-time.After(5 * time.Second):
		t.Fatal("countdown never expired")
	}
}

func TestStaleRoundSubmissionRejected(t *testing.T) {
	e, st := newTestEngine(t, Config{})
	ctx := context.Background()
	room, players := startedRoom(t, e, "Ada", "Grace")

	round := 1
	_, err := e.SubmitExpression(ctx, Submission{Code: room.Code, PlayerID: players[0].ID, Expression: "(8-6)*(4+2)", Round: &round})
	require.NoError(t, err)

	_, err = e.SubmitExpression(ctx, Submission{Code: room.Code, PlayerID: players[1].ID, Expression: "(8-6)*(4+2)", Round: &round})
	require.ErrorIs(t, err, ErrStaleRound)

	activities, err := st.ListActivities(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, activities, 1)
	grace, err := st.GetPlayer(ctx, players[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 0, grace.Score)
}

func TestConcurrentSubmissionsSolveOncePerRound(t *testing.T) {
	e, st := newTestEngine(t, Config{})
	ctx := context.Background()
	room, players := startedRoom(t, e, "Ada", "Grace", "Linus", "Ken")

	round := 1
	var wg sync.WaitGroup
	results := make(chan error, len(players))
	for _, player := range players {
		wg.Add(1)
		go func(playerID string) {
			defer wg.Done()
			_, err := e.SubmitExpression(ctx, Submission{Code: room.Code, PlayerID: playerID, Expression: "(8-6)*(4+2)", Round: &round})
			results <- err
		}(player.ID)
	}
	wg.Wait()
	close(results)

	solved := 0
	for err := range results {
		switch {
		case err == nil:
			solved++
		case errors.Is(err, ErrStaleRound):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, solved)

	stored, err := st.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.CurrentRound)
	list, err := st.ListPlayers(ctx, room.ID)
	require.NoError(t, err)
	total := 0
	for _, player := range list {
		total += player.Score
	}
	assert.Equal(t, 75, total)
}

func TestSnapshotIsStableWithoutTransitions(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	ctx := context.Background()
	room, players := startedRoom(t, e, "Ada", "Grace")
	_, err := e.SubmitExpression(ctx, Submission{Code: room.Code, PlayerID: players[0].ID, Expression: "1+2"})
	require.NoError(t, err)

	first, err := e.State(ctx, room.Code)
	require.NoError(t, err)
	second, err := e.State(ctx, room.Code)
	require.NoError(t, err)
	assert.Greater(t, second.Version, first.Version)
	second.Version = first.Version
	assert.Equal(t, first, second)
}

func TestSnapshotVersionsIncrease(t *testing.T) {
	e, _ := newTestEngine(t, Config{MaxRounds: 100})
	ctx := context.Background()
	room, players := startedRoom(t, e, "Ada", "Grace")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		versions []uint64
	)
	record := func(state *GameState) {
		mu.Lock()
		versions = append(versions, state.Version)
		mu.Unlock()
	}
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			res, err := e.SubmitExpression(ctx, Submission{Code: room.Code, PlayerID: players[0].ID, Expression: "6+8+2+4"})
			if err == nil {
				record(res.State)
			}
		}()
		go func() {
			defer wg.Done()
			res, err := e.RevealSolution(ctx, room.Code)
			if err == nil {
				record(res.State)
			}
		}()
	}
	wg.Wait()

	require.Len(t, versions, 40)
	seen := make(map[uint64]bool)
	for _, v := range versions {
		assert.False(t, seen[v], "version %d handed out twice", v)
		seen[v] = true
	}

	// Later snapshots carry at least as much history as earlier ones.
	last, err := e.State(ctx, room.Code)
	require.NoError(t, err)
	for _, v := range versions {
		assert.Less(t, v, last.Version)
	}
	assert.Len(t, last.Activities, 40)
}

func TestLeaveRoom(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	ctx := context.Background()
	room, players := createRoomWithPlayers(t, e, 4, "Ada", "Grace")

	state, err := e.LeaveRoom(ctx, room.Code, players[0].ID)
	require.NoError(t, err)
	require.Len(t, state.Players, 1)
	assert.Equal(t, players[1].ID, state.Players[0].ID)

	_, err = e.LeaveRoom(ctx, room.Code, players[0].ID)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestLastPlayerLeavingDiscardsRoom(t *testing.T) {
	cases := []struct {
		name  string
		start bool
	}{
		{"waiting", false},
		{"playing", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, st := newTestEngine(t, Config{})
			ctx := context.Background()
			room, players := createRoomWithPlayers(t, e, 4, "Ada", "Grace")
			if tc.start {
				_, err := e.StartGame(ctx, room.Code)
				require.NoError(t, err)
			}
			rt := runtimeFor(t, e, room.ID)

			_, err := e.LeaveRoom(ctx, room.Code, players[0].ID)
			require.NoError(t, err)
			_, err = st.GetRoom(ctx, room.ID)
			require.NoError(t, err, "room with a player left must survive")

			state, err := e.LeaveRoom(ctx, room.Code, players[1].ID)
			require.NoError(t, err)
			assert.Empty(t, state.Players)
			assert.False(t, state.IsTimerRunning)

			_, err = st.GetRoom(ctx, room.ID)
			assert.ErrorIs(t, err, store.ErrNotFound)
			activities, err := st.ListActivities(ctx, room.ID)
			require.NoError(t, err)
			assert.Empty(t, activities)

			e.mu.Lock()
			_, kept := e.rooms[room.ID]
			e.mu.Unlock()
			assert.False(t, kept, "runtime kept for discarded room")

			rt.mu.Lock()
			assert.False(t, rt.running)
			assert.Nil(t, rt.cancel)
			rt.mu.Unlock()

			_, err = e.State(ctx, room.Code)
			assert.ErrorIs(t, err, ErrRoomNotFound)
			_, err = e.Timer(ctx, room.Code)
			assert.ErrorIs(t, err, ErrRoomNotFound)
			_, _, err = e.JoinRoom(ctx, JoinRequest{Code: room.Code, Name: "Linus"})
			assert.ErrorIs(t, err, ErrRoomNotFound)
			assert.NotContains(t, e.RunningTimers(), room.Code)
		})
	}
}

func TestLockRoomForgetsDeletedRoom(t *testing.T) {
	st := &deleteOnGetRoom{MemoryStore: store.NewMemoryStore()}
	e := New(st, Config{TickInterval: time.Hour}, WithNumberSource(fixedNumbers{6, 8, 2, 4}))
	t.Cleanup(e.Close)
	ctx := context.Background()
	room, _ := startedRoom(t, e, "Ada", "Grace")
	rt := runtimeFor(t, e, room.ID)

	// The room disappears between resolving its code and locking it.
	st.armed.Store(true)
	_, err := e.State(ctx, room.Code)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	e.mu.Lock()
	_, kept := e.rooms[room.ID]
	e.mu.Unlock()
	assert.False(t, kept)
	rt.mu.Lock()
	assert.False(t, rt.running)
	rt.mu.Unlock()
}

// deleteOnGetRoom deletes a room on its next GetRoom once armed.
type deleteOnGetRoom struct {
	*store.MemoryStore
	armed atomic.Bool
}

func (s *deleteOnGetRoom) GetRoom(ctx context.Context, id string) (store.Room, error) {
	if s.armed.CompareAndSwap(true, false) {
		_ = s.MemoryStore.DeleteRoom(ctx, id)
	}
	return s.MemoryStore.GetRoom(ctx, id)
}

// failingActivities refuses every activity write.
type failingActivities struct {
	*store.MemoryStore
}

func (failingActivities) CreateActivity(context.Context, store.Activity) error {
	return errors.New("activity log unavailable")
}

func TestSubmitWithoutActivityDoesNotScore(t *testing.T) {
	st := store.NewMemoryStore()
	e := New(failingActivities{st}, Config{TickInterval: time.Hour}, WithNumberSource(fixedNumbers{6, 8, 2, 4}))
	t.Cleanup(e.Close)
	ctx := context.Background()
	room, players := startedRoom(t, e, "Ada", "Grace")

	_, err := e.SubmitExpression(ctx, Submission{Code: room.Code, PlayerID: players[0].ID, Expression: "(8-6)*(4+2)"})
	require.Error(t, err)

	player, err := st.GetPlayer(ctx, players[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 0, player.Score)
	stored, err := st.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CurrentRound)
}

func TestRunningTimers(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	waiting, _ := createRoomWithPlayers(t, e, 4, "Ada")
	playing, _ := startedRoom(t, e, "Grace", "Linus")

	timers := e.RunningTimers()
	assert.Contains(t, timers, playing.Code)
	assert.NotContains(t, timers, waiting.Code)
	assert.Equal(t, TimerState{TimeRemaining: 60, IsTimerRunning: true}, timers[playing.Code])

	e.Close()
	assert.Empty(t, e.RunningTimers())
}

func TestStateTransitionsOnlyMoveForward(t *testing.T) {
	room := store.Room{GameState: store.StatePlaying}
	assert.ErrorIs(t, setState(&room, store.StateWaiting), ErrInvalidTransition)
	require.NoError(t, setState(&room, store.StateFinished))
	assert.ErrorIs(t, setState(&room, store.StatePlaying), ErrInvalidTransition)
	assert.Equal(t, store.StateFinished, room.GameState)
}

func TestPointsFor(t *testing.T) {
	assert.Equal(t, 75, pointsFor(60))
	assert.Equal(t, 75, pointsFor(31))
	assert.Equal(t, 50, pointsFor(30))
	assert.Equal(t, 50, pointsFor(1))
}

package game

import (
	"fmt"

	"make24/internal/store"
)

type action int

const (
	actionJoin action = iota
	actionStart
	actionSubmit
	actionReveal
)

type stateRule struct {
	// next is the only state reachable from this one. Empty means terminal.
	next   string
	reject map[action]error
}

var stateTransitions = map[string]stateRule{
	store.StateWaiting: {
		next: store.StatePlaying,
		reject: map[action]error{
			actionSubmit: ErrNotPlaying,
			actionReveal: ErrNotPlaying,
		},
	},
	store.StatePlaying: {
		next: store.StateFinished,
		reject: map[action]error{
			actionStart: ErrAlreadyStarted,
		},
	},
	store.StateFinished: {
		reject: map[action]error{
			actionJoin:   ErrGameFinished,
			actionStart:  ErrGameFinished,
			actionSubmit: ErrNotPlaying,
			actionReveal: ErrNotPlaying,
		},
	},
}

func checkAction(room store.Room, act action) error {
	rule, ok := stateTransitions[room.GameState]
	if !ok {
		return fmt.Errorf("%w: unknown state %q", ErrInvalidTransition, room.GameState)
	}
	return rule.reject[act]
}

func setState(room *store.Room, to string) error {
	rule, ok := stateTransitions[room.GameState]
	if !ok || rule.next == "" || rule.next != to {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, room.GameState, to)
	}
	room.GameState = to
	return nil
}

package game

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Engine is the per-game state machine. A room owns at most one engine at a
// time; all calls happen under the room's lock.
//
// ApplyMove returns an error without mutating state when the move is out of
// turn, structurally invalid, or fails a game precondition. A successful
// move may flip the engine into a terminal state, reported via
// MoveResult.Terminal and afterwards via Terminal().
type Engine interface {
	// Initialize (re)sets the randomized start state. Called when all
	// participants are ready, and again on "play again".
	Initialize()

	ApplyMove(actor int, mv Move) (*MoveResult, error)

	// Terminal reports how the game ended, or nil while it is running.
	Terminal() *TerminalInfo

	// PublicState is the room-visible projection.
	PublicState() map[string]any

	// PrivateState is the projection for one participant (own hand in the
	// card duel, everyone else's hand in hanabi).
	PrivateState(actor int) map[string]any

	// CurrentTurn is the index of the participant who may act next.
	CurrentTurn() int
}

// NewEngine builds the engine for a game type. The set of game types is
// closed; dispatch happens here rather than through open-ended subtyping.
func NewEngine(gt GameType, players []string) (Engine, error) {
	switch gt {
	case GameNumberGuess:
		return newNumberGuess(players), nil
	case GameHitAndBlow:
		return newHitAndBlow(players), nil
	case GameCardDuel:
		return newCardDuel(players), nil
	case GameHanabi:
		return newHanabi(players), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGameType, gt)
	}
}

// asInt coerces a client-supplied numeric value. Socket payloads arrive as
// float64, json.Number or string depending on the client.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

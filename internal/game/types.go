package game

import (
	"errors"
	"time"
)

type GameType string

const (
	GameNumberGuess GameType = "numberguess"
	GameHitAndBlow  GameType = "hitandblow"
	GameCardDuel    GameType = "cardgame"
	GameHanabi      GameType = "hanabi"
)

func (g GameType) Valid() bool {
	switch g {
	case GameNumberGuess, GameHitAndBlow, GameCardDuel, GameHanabi:
		return true
	}
	return false
}

// MaxPlayers is how many players a game type's engine can seat. It
// documents engine capability only: passphrase pairing is pairwise, so
// rooms always hold two participants regardless of game type.
func (g GameType) MaxPlayers() int {
	if g == GameHanabi {
		return 5
	}
	return 2
}

type RoomState string

const (
	StateWaitingForPlayers   RoomState = "WaitingForPlayers"
	StateWaitingForSelection RoomState = "WaitingForGameSelection"
	StateWaitingReady        RoomState = "WaitingReady"
	StatePlaying             RoomState = "Playing"
	StateFinished            RoomState = "Finished"
)

var (
	ErrRoomFull        = errors.New("room is full")
	ErrNotInRoom       = errors.New("participant not in room")
	ErrInvalidState    = errors.New("action not allowed in current room state")
	ErrUnknownGameType = errors.New("unknown game type")
	ErrNoProposal      = errors.New("no pending game proposal")
	ErrOwnProposal     = errors.New("cannot respond to own proposal")

	ErrNotYourTurn      = errors.New("not your turn")
	ErrInvalidMove      = errors.New("invalid move")
	ErrGameFinished     = errors.New("game already finished")
	ErrInvalidTarget    = errors.New("invalid target")
	ErrInsufficientMana = errors.New("not enough mana")
	ErrFieldFull        = errors.New("field is full")
	ErrAlreadyAttacked  = errors.New("creature already attacked this turn")
	ErrNoHintTokens     = errors.New("no hint tokens left")
	ErrHintTokensFull   = errors.New("hint tokens already at maximum")
)

type Participant struct {
	ConnID       string `json:"id"`
	Name         string `json:"name"`
	Ready        bool   `json:"ready"`
	WantsRematch bool   `json:"-"`
}

type ChatMessage struct {
	ID     string    `json:"id"`
	Author string    `json:"author"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sentAt"`
}

// Target addresses a player or a fielded creature in the card duel.
type Target struct {
	Type   string `json:"type"` // "player" | "creature"
	Player int    `json:"player"`
	Index  int    `json:"index"`
}

// Move is the union payload of every game's makeMove event. Engines read
// only the fields they understand and validate them before touching state.
type Move struct {
	// number guessing
	Guess any `json:"guess,omitempty"`

	// hit and blow
	Colors []string `json:"colors,omitempty"`

	// card duel + hanabi
	Action    string  `json:"action,omitempty"`
	CardIndex int     `json:"cardIndex"`
	Target    *Target `json:"target,omitempty"`

	// card duel
	AttackerIndex int `json:"attackerIndex"`

	// hanabi
	TargetPlayer int    `json:"targetPlayer"`
	HintType     string `json:"hintType,omitempty"`
	HintValue    any    `json:"hintValue,omitempty"`
}

// TerminalInfo describes how a game ended.
type TerminalInfo struct {
	Winner string         `json:"winner,omitempty"`
	Draw   bool           `json:"draw,omitempty"`
	Kind   string         `json:"kind,omitempty"` // hanabi: defeat | perfect | normal
	Reason string         `json:"reason,omitempty"`
	Score  int            `json:"score,omitempty"`
	Reveal map[string]any `json:"-"`
}

// MoveResult is a successfully applied move: the broadcastable payload plus
// terminal info when the move ended the game.
type MoveResult struct {
	Payload  map[string]any
	Terminal *TerminalInfo
}

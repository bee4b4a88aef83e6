package game

import "math/rand"

const (
	guessMin         = 1
	guessMax         = 100
	guessMaxAttempts = 10
)

// Hint labels describe the guess relative to the target: a guess above the
// target is "higher" ("your guess is too high"). Clients must render them
// with the same polarity.
const (
	HintCorrect = "correct"
	HintHigher  = "higher"
	HintLower   = "lower"
)

type GuessAttempt struct {
	Player string `json:"player"`
	Guess  int    `json:"guess"`
	Result string `json:"result"`
}

type numberGuess struct {
	players  []string
	target   int
	attempts []GuessAttempt
	turn     int
	terminal *TerminalInfo
}

func newNumberGuess(players []string) *numberGuess {
	e := &numberGuess{players: players}
	e.Initialize()
	return e
}

func (e *numberGuess) Initialize() {
	e.target = rand.Intn(guessMax-guessMin+1) + guessMin
	e.attempts = nil
	e.turn = 0
	e.terminal = nil
}

func (e *numberGuess) ApplyMove(actor int, mv Move) (*MoveResult, error) {
	if e.terminal != nil {
		return nil, ErrGameFinished
	}
	if actor != e.turn {
		return nil, ErrNotYourTurn
	}
	guess, ok := asInt(mv.Guess)
	if !ok || guess < guessMin || guess > guessMax {
		return nil, ErrInvalidMove
	}

	attempt := GuessAttempt{Player: e.players[actor], Guess: guess, Result: e.hint(guess)}
	e.attempts = append(e.attempts, attempt)

	res := &MoveResult{Payload: map[string]any{
		"player": attempt.Player,
		"guess":  attempt.Guess,
		"result": attempt.Result,
	}}

	switch {
	case guess == e.target:
		e.terminal = &TerminalInfo{
			Winner: attempt.Player,
			Reveal: map[string]any{"targetNumber": e.target},
		}
	case len(e.attempts) >= guessMaxAttempts:
		e.terminal = &TerminalInfo{
			Draw:   true,
			Reveal: map[string]any{"targetNumber": e.target},
		}
	default:
		e.turn = (e.turn + 1) % len(e.players)
	}
	res.Terminal = e.terminal
	return res, nil
}

func (e *numberGuess) hint(guess int) string {
	switch {
	case guess == e.target:
		return HintCorrect
	case guess > e.target:
		return HintHigher
	default:
		return HintLower
	}
}

func (e *numberGuess) Terminal() *TerminalInfo { return e.terminal }
func (e *numberGuess) CurrentTurn() int        { return e.turn }

func (e *numberGuess) PublicState() map[string]any {
	attempts := make([]GuessAttempt, len(e.attempts))
	copy(attempts, e.attempts)
	return map[string]any{
		"targetRange":   "1-100",
		"maxAttempts":   guessMaxAttempts,
		"attempts":      attempts,
		"currentPlayer": e.turn,
	}
}

func (e *numberGuess) PrivateState(actor int) map[string]any {
	// nothing hidden per participant
	return e.PublicState()
}

package game

import "math/rand"

const (
	hbCodeLength  = 4
	hbMaxAttempts = 10
)

var hbPalette = []string{"red", "blue", "green", "yellow", "pink", "white"}

type HBAttempt struct {
	Player string   `json:"player"`
	Guess  []string `json:"guess"`
	Hit    int      `json:"hit"`
	Blow   int      `json:"blow"`
}

type hitAndBlow struct {
	players  []string
	secret   []string
	attempts []HBAttempt
	turn     int
	terminal *TerminalInfo
}

func newHitAndBlow(players []string) *hitAndBlow {
	e := &hitAndBlow{players: players}
	e.Initialize()
	return e
}

func (e *hitAndBlow) Initialize() {
	// 4 distinct colors drawn without replacement
	perm := rand.Perm(len(hbPalette))
	e.secret = make([]string, hbCodeLength)
	for i := 0; i < hbCodeLength; i++ {
		e.secret[i] = hbPalette[perm[i]]
	}
	e.attempts = nil
	e.turn = 0
	e.terminal = nil
}

func (e *hitAndBlow) ApplyMove(actor int, mv Move) (*MoveResult, error) {
	if e.terminal != nil {
		return nil, ErrGameFinished
	}
	if actor != e.turn {
		return nil, ErrNotYourTurn
	}
	if len(mv.Colors) != hbCodeLength {
		return nil, ErrInvalidMove
	}
	for _, c := range mv.Colors {
		if !hbColorValid(c) {
			return nil, ErrInvalidMove
		}
	}

	hit, blow := scoreHitAndBlow(mv.Colors, e.secret)
	attempt := HBAttempt{
		Player: e.players[actor],
		Guess:  append([]string(nil), mv.Colors...),
		Hit:    hit,
		Blow:   blow,
	}
	e.attempts = append(e.attempts, attempt)

	res := &MoveResult{Payload: map[string]any{
		"player": attempt.Player,
		"guess":  attempt.Guess,
		"hit":    attempt.Hit,
		"blow":   attempt.Blow,
	}}

	switch {
	case hit == hbCodeLength:
		e.terminal = &TerminalInfo{
			Winner: attempt.Player,
			Reveal: map[string]any{"targetColors": e.secret},
		}
	case len(e.attempts) >= hbMaxAttempts:
		e.terminal = &TerminalInfo{
			Draw:   true,
			Reveal: map[string]any{"targetColors": e.secret},
		}
	default:
		e.turn = (e.turn + 1) % len(e.players)
	}
	res.Terminal = e.terminal
	return res, nil
}

// scoreHitAndBlow implements classic Mastermind scoring: exact matches
// first, then each remaining secret color satisfies at most one misplaced
// guess color.
func scoreHitAndBlow(guess, secret []string) (hit, blow int) {
	guessLeft := append([]string(nil), guess...)
	secretLeft := append([]string(nil), secret...)

	for i := range guess {
		if guess[i] == secret[i] {
			hit++
			guessLeft[i] = ""
			secretLeft[i] = ""
		}
	}
	for i := range guessLeft {
		if guessLeft[i] == "" {
			continue
		}
		for j := range secretLeft {
			if secretLeft[j] == guessLeft[i] {
				blow++
				secretLeft[j] = ""
				break
			}
		}
	}
	return hit, blow
}

func hbColorValid(c string) bool {
	for _, p := range hbPalette {
		if c == p {
			return true
		}
	}
	return false
}

func (e *hitAndBlow) Terminal() *TerminalInfo { return e.terminal }
func (e *hitAndBlow) CurrentTurn() int        { return e.turn }

func (e *hitAndBlow) PublicState() map[string]any {
	attempts := make([]HBAttempt, len(e.attempts))
	copy(attempts, e.attempts)
	return map[string]any{
		"colors":        hbPalette,
		"codeLength":    hbCodeLength,
		"maxAttempts":   hbMaxAttempts,
		"attempts":      attempts,
		"currentPlayer": e.turn,
	}
}

func (e *hitAndBlow) PrivateState(actor int) map[string]any {
	return e.PublicState()
}

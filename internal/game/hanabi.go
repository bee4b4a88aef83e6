package game

import "math/rand"

const (
	hanabiMaxHints  = 8
	hanabiMaxErrors = 3
	hanabiTopCard   = 5
	hanabiPerfect   = 25
)

var hanabiColors = []string{"white", "red", "blue", "yellow", "green"}

// copies per number: 1 appears three times, 2-4 twice, 5 once
var hanabiCopies = map[int]int{1: 3, 2: 2, 3: 2, 4: 2, 5: 1}

type HanabiCard struct {
	Color  string `json:"color"`
	Number int    `json:"number"`
}

type hanabi struct {
	players    []string
	deck       []HanabiCard
	hands      [][]HanabiCard
	fireworks  map[string]int
	discard    []HanabiCard
	hintTokens int
	errTokens  int
	finalRound bool
	finalTurns int
	turn       int
	terminal   *TerminalInfo
}

func newHanabi(players []string) *hanabi {
	e := &hanabi{players: players}
	e.Initialize()
	return e
}

func (e *hanabi) Initialize() {
	e.deck = nil
	for _, color := range hanabiColors {
		for num := 1; num <= hanabiTopCard; num++ {
			for i := 0; i < hanabiCopies[num]; i++ {
				e.deck = append(e.deck, HanabiCard{Color: color, Number: num})
			}
		}
	}
	rand.Shuffle(len(e.deck), func(i, j int) { e.deck[i], e.deck[j] = e.deck[j], e.deck[i] })

	e.fireworks = make(map[string]int, len(hanabiColors))
	for _, color := range hanabiColors {
		e.fireworks[color] = 0
	}
	e.discard = nil
	e.hintTokens = hanabiMaxHints
	e.errTokens = 0
	e.finalRound = false
	e.finalTurns = 0
	e.turn = 0
	e.terminal = nil

	handSize := 5
	if len(e.players) > 3 {
		handSize = 4
	}
	e.hands = make([][]HanabiCard, len(e.players))
	for i := range e.players {
		for j := 0; j < handSize; j++ {
			e.dealTo(i)
		}
	}
}

// dealTo moves the top deck card into a hand. Drawing the last card starts
// the final round: exactly one more full rotation of players.
func (e *hanabi) dealTo(player int) {
	if len(e.deck) == 0 {
		return
	}
	e.hands[player] = append(e.hands[player], e.deck[len(e.deck)-1])
	e.deck = e.deck[:len(e.deck)-1]
	if len(e.deck) == 0 && !e.finalRound {
		e.finalRound = true
		e.finalTurns = 0
	}
}

func (e *hanabi) ApplyMove(actor int, mv Move) (*MoveResult, error) {
	if e.terminal != nil {
		return nil, ErrGameFinished
	}
	if actor != e.turn {
		return nil, ErrNotYourTurn
	}

	var (
		payload map[string]any
		err     error
	)
	switch mv.Action {
	case "giveHint":
		payload, err = e.giveHint(actor, mv.TargetPlayer, mv.HintType, mv.HintValue)
	case "discardCard":
		payload, err = e.discardCard(actor, mv.CardIndex)
	case "playCard":
		payload, err = e.playCard(actor, mv.CardIndex)
	default:
		return nil, ErrInvalidMove
	}
	if err != nil {
		return nil, err
	}

	e.turn = (e.turn + 1) % len(e.players)
	if e.finalRound {
		e.finalTurns++
	}
	e.checkEnd()

	return &MoveResult{Payload: payload, Terminal: e.terminal}, nil
}

func (e *hanabi) giveHint(actor, target int, hintType string, hintValue any) (map[string]any, error) {
	if e.hintTokens <= 0 {
		return nil, ErrNoHintTokens
	}
	if target < 0 || target >= len(e.players) || target == actor {
		return nil, ErrInvalidTarget
	}

	var matching []int
	switch hintType {
	case "color":
		color, ok := hintValue.(string)
		if !ok || !hanabiColorValid(color) {
			return nil, ErrInvalidMove
		}
		for i, card := range e.hands[target] {
			if card.Color == color {
				matching = append(matching, i)
			}
		}
		hintValue = color
	case "number":
		num, ok := asInt(hintValue)
		if !ok || num < 1 || num > hanabiTopCard {
			return nil, ErrInvalidMove
		}
		for i, card := range e.hands[target] {
			if card.Number == num {
				matching = append(matching, i)
			}
		}
		hintValue = num
	default:
		return nil, ErrInvalidMove
	}

	// a hint must point at something
	if len(matching) == 0 {
		return nil, ErrInvalidMove
	}

	e.hintTokens--
	return map[string]any{
		"action":        "giveHint",
		"player":        e.players[actor],
		"targetPlayer":  e.players[target],
		"hintType":      hintType,
		"hintValue":     hintValue,
		"matchingCards": matching,
		"hintTokens":    e.hintTokens,
	}, nil
}

func (e *hanabi) discardCard(actor, cardIndex int) (map[string]any, error) {
	hand := e.hands[actor]
	if cardIndex < 0 || cardIndex >= len(hand) {
		return nil, ErrInvalidMove
	}
	// discarding to regain a token is pointless and disallowed at the cap
	if e.hintTokens >= hanabiMaxHints {
		return nil, ErrHintTokensFull
	}

	card := hand[cardIndex]
	e.hands[actor] = append(hand[:cardIndex], hand[cardIndex+1:]...)
	e.discard = append(e.discard, card)
	e.hintTokens++
	e.dealTo(actor)

	return map[string]any{
		"action":        "discardCard",
		"player":        e.players[actor],
		"discardedCard": card,
		"hintTokens":    e.hintTokens,
	}, nil
}

func (e *hanabi) playCard(actor, cardIndex int) (map[string]any, error) {
	hand := e.hands[actor]
	if cardIndex < 0 || cardIndex >= len(hand) {
		return nil, ErrInvalidMove
	}

	card := hand[cardIndex]
	e.hands[actor] = append(hand[:cardIndex], hand[cardIndex+1:]...)

	if card.Number == e.fireworks[card.Color]+1 {
		e.fireworks[card.Color]++
		if card.Number == hanabiTopCard && e.hintTokens < hanabiMaxHints {
			e.hintTokens++
		}
		e.dealTo(actor)
		return map[string]any{
			"action":     "playCard",
			"success":    true,
			"player":     e.players[actor],
			"playedCard": card,
			"fireworks":  e.fireworksCopy(),
			"hintTokens": e.hintTokens,
		}, nil
	}

	e.discard = append(e.discard, card)
	e.errTokens++
	e.dealTo(actor)
	return map[string]any{
		"action":      "playCard",
		"success":     false,
		"player":      e.players[actor],
		"playedCard":  card,
		"errorTokens": e.errTokens,
		"maxErrors":   hanabiMaxErrors,
	}, nil
}

func (e *hanabi) score() int {
	total := 0
	for _, v := range e.fireworks {
		total += v
	}
	return total
}

func (e *hanabi) checkEnd() {
	if e.terminal != nil {
		return
	}
	if e.errTokens >= hanabiMaxErrors {
		e.terminal = &TerminalInfo{Kind: "defeat", Reason: "three misplays", Score: 0}
		return
	}
	if total := e.score(); total == hanabiPerfect {
		e.terminal = &TerminalInfo{Kind: "perfect", Reason: "all fireworks complete", Score: total}
		return
	}
	if e.finalRound && e.finalTurns >= len(e.players) {
		e.terminal = &TerminalInfo{Kind: "normal", Reason: "deck exhausted", Score: e.score()}
	}
}

func (e *hanabi) fireworksCopy() map[string]int {
	out := make(map[string]int, len(e.fireworks))
	for k, v := range e.fireworks {
		out[k] = v
	}
	return out
}

func hanabiColorValid(c string) bool {
	for _, color := range hanabiColors {
		if c == color {
			return true
		}
	}
	return false
}

func (e *hanabi) Terminal() *TerminalInfo { return e.terminal }
func (e *hanabi) CurrentTurn() int        { return e.turn }

func (e *hanabi) PublicState() map[string]any {
	discard := make([]HanabiCard, len(e.discard))
	copy(discard, e.discard)
	return map[string]any{
		"players":       append([]string(nil), e.players...),
		"currentPlayer": e.turn,
		"fireworks":     e.fireworksCopy(),
		"hintTokens":    e.hintTokens,
		"errorTokens":   e.errTokens,
		"maxErrors":     hanabiMaxErrors,
		"deckCount":     len(e.deck),
		"discardPile":   discard,
		"finalRound":    e.finalRound,
		"score":         e.score(),
	}
}

// PrivateState shows everyone else's hand but hides the actor's own.
func (e *hanabi) PrivateState(actor int) map[string]any {
	st := e.PublicState()
	others := make(map[int][]HanabiCard, len(e.players)-1)
	for i := range e.players {
		if i == actor {
			continue
		}
		hand := make([]HanabiCard, len(e.hands[i]))
		copy(hand, e.hands[i])
		others[i] = hand
	}
	st["otherPlayersHands"] = others
	st["myHandCount"] = len(e.hands[actor])
	st["myIndex"] = actor
	return st
}

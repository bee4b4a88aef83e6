package game

import (
	"math/rand"
	"sync/atomic"
)

const (
	duelStartHealth = 15
	duelMaxHealth   = 15
	duelMaxMana     = 10
	duelHandSize    = 5
	duelFieldSize   = 3
	duelStartHand   = 3
	duelCopies      = 3
)

type cardTemplate struct {
	Name        string
	Kind        string // "creature" | "spell"
	Cost        int
	Attack      int
	Health      int
	Damage      int
	Heal        int
	Shield      int
	AttackBoost int
}

var duelTemplates = []cardTemplate{
	{Name: "Goblin", Kind: "creature", Cost: 1, Attack: 2, Health: 1},
	{Name: "Orc", Kind: "creature", Cost: 2, Attack: 3, Health: 2},
	{Name: "Knight", Kind: "creature", Cost: 2, Attack: 2, Health: 3},
	{Name: "Wizard", Kind: "creature", Cost: 3, Attack: 4, Health: 2},
	{Name: "Dragon", Kind: "creature", Cost: 5, Attack: 5, Health: 4},
	{Name: "Fireball", Kind: "spell", Cost: 2, Damage: 3},
	{Name: "Heal", Kind: "spell", Cost: 2, Heal: 4},
	{Name: "Lightning", Kind: "spell", Cost: 1, Damage: 2},
	{Name: "Shield", Kind: "spell", Cost: 1, Shield: 3},
	{Name: "Power Up", Kind: "spell", Cost: 2, AttackBoost: 2},
}

// cardUID hands out process-unique instance ids so no two live card
// instances can ever collide, even across "play again" resets.
var cardUID atomic.Int64

// CardInstance is one physical card. Hands, fields and the deck reference
// instances by UID into the engine's arena, never by value.
type CardInstance struct {
	UID           int    `json:"uid"`
	Name          string `json:"name"`
	Kind          string `json:"type"`
	Cost          int    `json:"cost"`
	Attack        int    `json:"attack,omitempty"`
	Health        int    `json:"health,omitempty"`
	CurrentHealth int    `json:"currentHealth,omitempty"`
	Damage        int    `json:"damage,omitempty"`
	Heal          int    `json:"heal,omitempty"`
	Shield        int    `json:"shield,omitempty"`
	AttackBoost   int    `json:"attackBoost,omitempty"`
}

type duelSide struct {
	Health   int
	Shield   int
	Mana     int
	Hand     []int // card UIDs
	Field    []int
	attacked map[int]bool // UIDs that already attacked this turn
}

type cardDuel struct {
	players   []string
	arena     map[int]*CardInstance
	deck      []int
	discard   []int
	sides     [2]*duelSide
	turn      int
	turnCount int
	terminal  *TerminalInfo
}

func newCardDuel(players []string) *cardDuel {
	e := &cardDuel{players: players}
	e.Initialize()
	return e
}

func (e *cardDuel) Initialize() {
	e.arena = make(map[int]*CardInstance)
	e.deck = nil
	e.discard = nil
	for i := range e.sides {
		e.sides[i] = &duelSide{
			Health:   duelStartHealth,
			Mana:     1,
			attacked: make(map[int]bool),
		}
	}
	e.turn = 0
	e.turnCount = 0
	e.terminal = nil

	for _, tpl := range duelTemplates {
		for i := 0; i < duelCopies; i++ {
			uid := int(cardUID.Add(1))
			e.arena[uid] = &CardInstance{
				UID:           uid,
				Name:          tpl.Name,
				Kind:          tpl.Kind,
				Cost:          tpl.Cost,
				Attack:        tpl.Attack,
				Health:        tpl.Health,
				CurrentHealth: tpl.Health,
				Damage:        tpl.Damage,
				Heal:          tpl.Heal,
				Shield:        tpl.Shield,
				AttackBoost:   tpl.AttackBoost,
			}
			e.deck = append(e.deck, uid)
		}
	}
	rand.Shuffle(len(e.deck), func(i, j int) { e.deck[i], e.deck[j] = e.deck[j], e.deck[i] })

	e.draw(0, duelStartHand)
	e.draw(1, duelStartHand)
}

func (e *cardDuel) draw(side, count int) {
	for i := 0; i < count; i++ {
		if len(e.sides[side].Hand) >= duelHandSize || len(e.deck) == 0 {
			return
		}
		top := e.deck[len(e.deck)-1]
		e.deck = e.deck[:len(e.deck)-1]
		e.sides[side].Hand = append(e.sides[side].Hand, top)
	}
}

func (e *cardDuel) ApplyMove(actor int, mv Move) (*MoveResult, error) {
	if e.terminal != nil {
		return nil, ErrGameFinished
	}
	if actor != e.turn {
		return nil, ErrNotYourTurn
	}

	var (
		res *MoveResult
		err error
	)
	switch mv.Action {
	case "playCard":
		res, err = e.playCard(actor, mv.CardIndex, mv.Target)
	case "attack":
		res, err = e.attack(actor, mv.AttackerIndex, mv.Target)
	case "endTurn":
		res, err = e.endTurn()
	default:
		return nil, ErrInvalidMove
	}
	if err != nil {
		return nil, err
	}
	res.Terminal = e.terminal
	return res, nil
}

// playCard validates everything before mutating: a rejected card must leave
// hand, mana and field untouched.
func (e *cardDuel) playCard(actor, cardIndex int, target *Target) (*MoveResult, error) {
	side := e.sides[actor]
	if cardIndex < 0 || cardIndex >= len(side.Hand) {
		return nil, ErrInvalidMove
	}
	card := e.arena[side.Hand[cardIndex]]
	if card.Cost > side.Mana {
		return nil, ErrInsufficientMana
	}

	if card.Kind == "creature" {
		if len(side.Field) >= duelFieldSize {
			return nil, ErrFieldFull
		}
		side.Mana -= card.Cost
		side.Hand = append(side.Hand[:cardIndex], side.Hand[cardIndex+1:]...)
		side.Field = append(side.Field, card.UID)
		return &MoveResult{Payload: map[string]any{
			"action": "playCard",
			"player": e.players[actor],
			"card":   *card,
		}}, nil
	}

	if err := e.checkSpellTarget(actor, card, target); err != nil {
		return nil, err
	}
	side.Mana -= card.Cost
	side.Hand = append(side.Hand[:cardIndex], side.Hand[cardIndex+1:]...)
	e.discard = append(e.discard, card.UID)
	payload := e.resolveSpell(actor, card, target)
	payload["player"] = e.players[actor]
	e.checkWinner()
	return &MoveResult{Payload: payload}, nil
}

// checkSpellTarget performs target validation ahead of any mutation.
// Damage and boost spells need an explicit target; heal and shield
// self-resolve.
func (e *cardDuel) checkSpellTarget(actor int, card *CardInstance, target *Target) error {
	if card.Damage > 0 {
		if target == nil {
			return ErrInvalidTarget
		}
		switch target.Type {
		case "player":
			if target.Player != 0 && target.Player != 1 {
				return ErrInvalidTarget
			}
		case "creature":
			if target.Player != 0 && target.Player != 1 {
				return ErrInvalidTarget
			}
			if target.Index < 0 || target.Index >= len(e.sides[target.Player].Field) {
				return ErrInvalidTarget
			}
		default:
			return ErrInvalidTarget
		}
	}
	if card.AttackBoost > 0 {
		if target == nil || target.Type != "creature" || target.Player != actor {
			return ErrInvalidTarget
		}
		if target.Index < 0 || target.Index >= len(e.sides[actor].Field) {
			return ErrInvalidTarget
		}
	}
	return nil
}

func (e *cardDuel) resolveSpell(actor int, card *CardInstance, target *Target) map[string]any {
	side := e.sides[actor]
	payload := map[string]any{"action": "spell", "card": *card}

	if card.Damage > 0 {
		if target.Type == "creature" {
			owner := e.sides[target.Player]
			victim := e.arena[owner.Field[target.Index]]
			victim.CurrentHealth -= card.Damage
			if victim.CurrentHealth <= 0 {
				owner.Field = append(owner.Field[:target.Index], owner.Field[target.Index+1:]...)
				e.discard = append(e.discard, victim.UID)
				payload["destroyed"] = victim.Name
			}
			payload["target"] = victim.Name
		} else {
			victim := e.sides[target.Player]
			absorbed := min(victim.Shield, card.Damage)
			victim.Shield -= absorbed
			victim.Health = max(0, victim.Health-(card.Damage-absorbed))
			payload["target"] = e.players[target.Player]
		}
	}
	if card.Heal > 0 {
		side.Health = min(duelMaxHealth, side.Health+card.Heal)
	}
	if card.Shield > 0 {
		side.Shield += card.Shield
	}
	if card.AttackBoost > 0 {
		boosted := e.arena[side.Field[target.Index]]
		boosted.Attack += card.AttackBoost
		payload["target"] = boosted.Name
	}
	return payload
}

func (e *cardDuel) attack(actor, attackerIndex int, target *Target) (*MoveResult, error) {
	side := e.sides[actor]
	opp := e.sides[1-actor]
	if attackerIndex < 0 || attackerIndex >= len(side.Field) {
		return nil, ErrInvalidTarget
	}
	attacker := e.arena[side.Field[attackerIndex]]
	if side.attacked[attacker.UID] {
		return nil, ErrAlreadyAttacked
	}

	payload := map[string]any{
		"action":   "attack",
		"player":   e.players[actor],
		"attacker": *attacker,
	}

	if target != nil && target.Type == "creature" {
		if target.Index < 0 || target.Index >= len(opp.Field) {
			return nil, ErrInvalidTarget
		}
		defender := e.arena[opp.Field[target.Index]]
		attacker.CurrentHealth -= defender.Attack
		defender.CurrentHealth -= attacker.Attack
		payload["defender"] = defender.Name
		if defender.CurrentHealth <= 0 {
			opp.Field = append(opp.Field[:target.Index], opp.Field[target.Index+1:]...)
			e.discard = append(e.discard, defender.UID)
			payload["defenderDestroyed"] = true
		}
		if attacker.CurrentHealth <= 0 {
			side.Field = append(side.Field[:attackerIndex], side.Field[attackerIndex+1:]...)
			e.discard = append(e.discard, attacker.UID)
			payload["attackerDestroyed"] = true
		}
	} else {
		absorbed := min(opp.Shield, attacker.Attack)
		opp.Shield -= absorbed
		opp.Health = max(0, opp.Health-(attacker.Attack-absorbed))
		payload["target"] = e.players[1-actor]
	}

	// survivors only; a destroyed attacker can never act again anyway
	if attacker.CurrentHealth > 0 {
		side.attacked[attacker.UID] = true
	}

	e.checkWinner()
	return &MoveResult{Payload: payload}, nil
}

func (e *cardDuel) endTurn() (*MoveResult, error) {
	e.turnCount++
	e.turn = 1 - e.turn
	for _, s := range e.sides {
		s.attacked = make(map[int]bool)
	}
	e.sides[e.turn].Mana = min(duelMaxMana, e.turnCount/2+1)
	e.draw(e.turn, 1)

	e.checkWinner()
	return &MoveResult{Payload: map[string]any{
		"action":     "endTurn",
		"nextPlayer": e.players[e.turn],
	}}, nil
}

func (e *cardDuel) checkWinner() {
	if e.terminal != nil {
		return
	}
	switch {
	case e.sides[0].Health <= 0:
		e.terminal = &TerminalInfo{Winner: e.players[1]}
	case e.sides[1].Health <= 0:
		e.terminal = &TerminalInfo{Winner: e.players[0]}
	}
}

func (e *cardDuel) Terminal() *TerminalInfo { return e.terminal }
func (e *cardDuel) CurrentTurn() int        { return e.turn }

func (e *cardDuel) resolve(uids []int) []CardInstance {
	out := make([]CardInstance, 0, len(uids))
	for _, uid := range uids {
		out = append(out, *e.arena[uid])
	}
	return out
}

func (e *cardDuel) PublicState() map[string]any {
	sides := make([]map[string]any, len(e.sides))
	for i, s := range e.sides {
		attacked := make([]int, 0, len(s.attacked))
		for uid := range s.attacked {
			attacked = append(attacked, uid)
		}
		sides[i] = map[string]any{
			"name":             e.players[i],
			"health":           s.Health,
			"shield":           s.Shield,
			"mana":             s.Mana,
			"handCount":        len(s.Hand),
			"field":            e.resolve(s.Field),
			"attackedThisTurn": attacked,
		}
	}
	return map[string]any{
		"players":       sides,
		"currentPlayer": e.turn,
		"deckCount":     len(e.deck),
	}
}

func (e *cardDuel) PrivateState(actor int) map[string]any {
	st := e.PublicState()
	st["myHand"] = e.resolve(e.sides[actor].Hand)
	st["myIndex"] = actor
	return st
}

package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDuel(t *testing.T) *cardDuel {
	t.Helper()
	return newCardDuel([]string{"Alice", "Bob"})
}

// addCard places a fresh instance of the template into a hand and returns
// its uid.
func addCard(e *cardDuel, side int, tpl cardTemplate) int {
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
	e.sides[side].Hand = append(e.sides[side].Hand, uid)
	return uid
}

// fieldCreature puts a creature straight onto the field.
func fieldCreature(e *cardDuel, side, attack, health int) int {
	uid := addCard(e, side, cardTemplate{Name: "Test", Kind: "creature", Attack: attack, Health: health})
	hand := e.sides[side].Hand
	e.sides[side].Hand = hand[:len(hand)-1]
	e.sides[side].Field = append(e.sides[side].Field, uid)
	return uid
}

func TestDuelSetup(t *testing.T) {
	e := newDuel(t)

	assert.Len(t, e.deck, len(duelTemplates)*duelCopies-2*duelStartHand)
	for _, s := range e.sides {
		assert.Len(t, s.Hand, duelStartHand)
		assert.Equal(t, duelStartHealth, s.Health)
		assert.Equal(t, 1, s.Mana)
	}

	// every instance id is unique across deck and hands
	seen := map[int]bool{}
	all := append([]int(nil), e.deck...)
	all = append(all, e.sides[0].Hand...)
	all = append(all, e.sides[1].Hand...)
	for _, uid := range all {
		require.False(t, seen[uid], "duplicate card uid %d", uid)
		seen[uid] = true
	}
}

func TestDuelPlayCreature(t *testing.T) {
	e := newDuel(t)
	e.sides[0].Hand = nil
	e.sides[0].Mana = 2
	uid := addCard(e, 0, cardTemplate{Name: "Orc", Kind: "creature", Cost: 2, Attack: 3, Health: 2})

	res, err := e.ApplyMove(0, Move{Action: "playCard", CardIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, "playCard", res.Payload["action"])
	assert.Equal(t, 0, e.sides[0].Mana)
	assert.Empty(t, e.sides[0].Hand)
	assert.Equal(t, []int{uid}, e.sides[0].Field)
}

func TestDuelPlayCardRejections(t *testing.T) {
	e := newDuel(t)
	e.sides[0].Hand = nil
	e.sides[0].Mana = 1
	addCard(e, 0, cardTemplate{Name: "Dragon", Kind: "creature", Cost: 5, Attack: 5, Health: 4})

	_, err := e.ApplyMove(0, Move{Action: "playCard", CardIndex: 0})
	require.ErrorIs(t, err, ErrInsufficientMana)
	assert.Equal(t, 1, e.sides[0].Mana, "rejection must not spend mana")
	assert.Len(t, e.sides[0].Hand, 1, "rejection must not discard the card")

	// field capacity is checked before anything mutates
	e.sides[0].Mana = 10
	fieldCreature(e, 0, 1, 1)
	fieldCreature(e, 0, 1, 1)
	fieldCreature(e, 0, 1, 1)
	_, err = e.ApplyMove(0, Move{Action: "playCard", CardIndex: 0})
	require.ErrorIs(t, err, ErrFieldFull)
	assert.Equal(t, 10, e.sides[0].Mana)
	assert.Len(t, e.sides[0].Hand, 1)
	assert.Len(t, e.sides[0].Field, duelFieldSize)

	_, err = e.ApplyMove(0, Move{Action: "playCard", CardIndex: 5})
	require.ErrorIs(t, err, ErrInvalidMove)

	_, err = e.ApplyMove(1, Move{Action: "playCard", CardIndex: 0})
	require.ErrorIs(t, err, ErrNotYourTurn)
}

func TestDuelDamageSpellNeedsTarget(t *testing.T) {
	e := newDuel(t)
	e.sides[0].Hand = nil
	e.sides[0].Mana = 5
	addCard(e, 0, cardTemplate{Name: "Fireball", Kind: "spell", Cost: 2, Damage: 3})

	_, err := e.ApplyMove(0, Move{Action: "playCard", CardIndex: 0})
	require.ErrorIs(t, err, ErrInvalidTarget)
	assert.Equal(t, 5, e.sides[0].Mana)

	res, err := e.ApplyMove(0, Move{Action: "playCard", CardIndex: 0, Target: &Target{Type: "player", Player: 1}})
	require.NoError(t, err)
	assert.Equal(t, "spell", res.Payload["action"])
	assert.Equal(t, duelStartHealth-3, e.sides[1].Health)
	assert.Equal(t, 3, e.sides[0].Mana)
}

func TestDuelDamageSpellThroughShield(t *testing.T) {
	e := newDuel(t)
	e.sides[0].Hand = nil
	e.sides[0].Mana = 5
	e.sides[1].Shield = 2
	addCard(e, 0, cardTemplate{Name: "Fireball", Kind: "spell", Cost: 2, Damage: 3})

	_, err := e.ApplyMove(0, Move{Action: "playCard", CardIndex: 0, Target: &Target{Type: "player", Player: 1}})
	require.NoError(t, err)
	assert.Equal(t, 0, e.sides[1].Shield)
	assert.Equal(t, duelStartHealth-1, e.sides[1].Health, "shield absorbs first")
}

func TestDuelSpellKillsCreature(t *testing.T) {
	e := newDuel(t)
	e.sides[0].Hand = nil
	e.sides[0].Mana = 5
	victim := fieldCreature(e, 1, 2, 2)
	addCard(e, 0, cardTemplate{Name: "Fireball", Kind: "spell", Cost: 2, Damage: 3})

	_, err := e.ApplyMove(0, Move{Action: "playCard", CardIndex: 0, Target: &Target{Type: "creature", Player: 1, Index: 0}})
	require.NoError(t, err)
	assert.Empty(t, e.sides[1].Field, "dead creature leaves the field")
	assert.Contains(t, e.discard, victim)
}

func TestDuelHealClampsAndShieldAccumulates(t *testing.T) {
	e := newDuel(t)
	e.sides[0].Hand = nil
	e.sides[0].Mana = 10
	e.sides[0].Health = 13
	addCard(e, 0, cardTemplate{Name: "Heal", Kind: "spell", Cost: 2, Heal: 4})
	addCard(e, 0, cardTemplate{Name: "Shield", Kind: "spell", Cost: 1, Shield: 3})
	addCard(e, 0, cardTemplate{Name: "Shield", Kind: "spell", Cost: 1, Shield: 3})

	_, err := e.ApplyMove(0, Move{Action: "playCard", CardIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, duelMaxHealth, e.sides[0].Health, "heal clamps at max")

	for i := 0; i < 2; i++ {
		_, err = e.ApplyMove(0, Move{Action: "playCard", CardIndex: 0})
		require.NoError(t, err)
	}
	assert.Equal(t, 6, e.sides[0].Shield, "shield accumulates")
}

func TestDuelBoostOnlyOwnCreature(t *testing.T) {
	e := newDuel(t)
	e.sides[0].Hand = nil
	e.sides[0].Mana = 5
	fieldCreature(e, 1, 2, 2)
	mine := fieldCreature(e, 0, 2, 2)
	addCard(e, 0, cardTemplate{Name: "Power Up", Kind: "spell", Cost: 2, AttackBoost: 2})

	_, err := e.ApplyMove(0, Move{Action: "playCard", CardIndex: 0, Target: &Target{Type: "creature", Player: 1, Index: 0}})
	require.ErrorIs(t, err, ErrInvalidTarget)

	_, err = e.ApplyMove(0, Move{Action: "playCard", CardIndex: 0, Target: &Target{Type: "creature", Player: 0, Index: 0}})
	require.NoError(t, err)
	assert.Equal(t, 4, e.arena[mine].Attack)
}

func TestDuelAttackPlayerWithShield(t *testing.T) {
	e := newDuel(t)
	fieldCreature(e, 0, 3, 2)
	e.sides[1].Shield = 2

	_, err := e.ApplyMove(0, Move{Action: "attack", AttackerIndex: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, e.sides[1].Shield)
	assert.Equal(t, duelStartHealth-1, e.sides[1].Health, "3 attack - 2 shield = 1 damage")
}

func TestDuelAttackOncePerTurn(t *testing.T) {
	e := newDuel(t)
	uid := fieldCreature(e, 0, 2, 3)

	_, err := e.ApplyMove(0, Move{Action: "attack", AttackerIndex: 0})
	require.NoError(t, err)
	assert.True(t, e.sides[0].attacked[uid])

	_, err = e.ApplyMove(0, Move{Action: "attack", AttackerIndex: 0})
	require.ErrorIs(t, err, ErrAlreadyAttacked)

	// clears at end of turn
	_, err = e.ApplyMove(0, Move{Action: "endTurn"})
	require.NoError(t, err)
	assert.Empty(t, e.sides[0].attacked)
}

func TestDuelCreatureCombat(t *testing.T) {
	e := newDuel(t)
	attacker := fieldCreature(e, 0, 3, 2)
	defender := fieldCreature(e, 1, 2, 3)

	_, err := e.ApplyMove(0, Move{Action: "attack", AttackerIndex: 0, Target: &Target{Type: "creature", Index: 0}})
	require.NoError(t, err)
	// mutual damage: defender 3-3=0 dies, attacker 2-2=0 dies
	assert.Empty(t, e.sides[0].Field)
	assert.Empty(t, e.sides[1].Field)
	assert.Contains(t, e.discard, attacker)
	assert.Contains(t, e.discard, defender)
	assert.False(t, e.sides[0].attacked[attacker], "a destroyed attacker is not marked")
}

// A destroyed instance id must never come back in any zone.
func TestDuelDeadCardNeverResurrects(t *testing.T) {
	e := newDuel(t)
	e.sides[0].Mana = 10
	victim := fieldCreature(e, 1, 1, 1)
	addCard(e, 0, cardTemplate{Name: "Lightning", Kind: "spell", Cost: 1, Damage: 2})
	idx := len(e.sides[0].Hand) - 1

	_, err := e.ApplyMove(0, Move{Action: "playCard", CardIndex: idx, Target: &Target{Type: "creature", Player: 1, Index: 0}})
	require.NoError(t, err)

	for turn := 0; turn < 20; turn++ {
		_, err := e.ApplyMove(e.turn, Move{Action: "endTurn"})
		require.NoError(t, err)
		live := append([]int(nil), e.deck...)
		for _, s := range e.sides {
			live = append(live, s.Hand...)
			live = append(live, s.Field...)
		}
		assert.NotContains(t, live, victim, "destroyed uid reappeared")
	}
}

func TestDuelManaRampAndBounds(t *testing.T) {
	e := newDuel(t)

	for turn := 1; turn <= 30; turn++ {
		_, err := e.ApplyMove(e.turn, Move{Action: "endTurn"})
		require.NoError(t, err)
		active := e.sides[e.turn]
		want := min(duelMaxMana, turn/2+1)
		assert.Equal(t, want, active.Mana, "turn %d", turn)
		for _, s := range e.sides {
			assert.GreaterOrEqual(t, s.Mana, 0)
			assert.LessOrEqual(t, s.Mana, duelMaxMana)
		}
	}
}

func TestDuelCurrentHealthNeverExceedsTemplate(t *testing.T) {
	e := newDuel(t)
	for turn := 0; turn < 15; turn++ {
		_, err := e.ApplyMove(e.turn, Move{Action: "endTurn"})
		require.NoError(t, err)
		for _, card := range e.arena {
			if card.Kind == "creature" {
				assert.LessOrEqual(t, card.CurrentHealth, card.Health, "card %s", card.Name)
			}
		}
	}
}

func TestDuelLethalEndsImmediately(t *testing.T) {
	e := newDuel(t)
	fieldCreature(e, 0, 5, 5)
	e.sides[1].Health = 3

	res, err := e.ApplyMove(0, Move{Action: "attack", AttackerIndex: 0})
	require.NoError(t, err)
	require.NotNil(t, res.Terminal, "terminal checked after every action, not only end of turn")
	assert.Equal(t, "Alice", res.Terminal.Winner)

	_, err = e.ApplyMove(0, Move{Action: "endTurn"})
	require.ErrorIs(t, err, ErrGameFinished)
}

func TestDuelHandCapOnDraw(t *testing.T) {
	e := newDuel(t)
	// fill active player's hand to the cap before their draw
	for len(e.sides[1].Hand) < duelHandSize {
		addCard(e, 1, cardTemplate{Name: "Goblin", Kind: "creature", Cost: 1, Attack: 2, Health: 1})
	}
	deckBefore := len(e.deck)
	_, err := e.ApplyMove(0, Move{Action: "endTurn"})
	require.NoError(t, err)
	assert.Len(t, e.sides[1].Hand, duelHandSize)
	assert.Equal(t, deckBefore, len(e.deck), "no draw at hand cap")
}

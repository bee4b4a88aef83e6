package game

import (
	"fmt"
	"sync"
	"time"
)

type MatchStatus string

const (
	// MatchWaiting: first caller for the passphrase, parked until a peer arrives.
	MatchWaiting MatchStatus = "waiting"
	// MatchPaired: second caller, both connections now share a room.
	MatchPaired MatchStatus = "paired"
	// MatchRejoined: the connection was already in the room (reconnect race).
	MatchRejoined MatchStatus = "rejoined"
	// MatchFull: the passphrase already holds two connections.
	MatchFull MatchStatus = "full"
)

type MatchOutcome struct {
	Status     MatchStatus
	Room       *Room
	Passphrase string
}

type DisconnectKind string

const (
	DisconnectNone DisconnectKind = "none"
	// DisconnectRoomGone: the leaver was the last member, room deleted.
	DisconnectRoomGone DisconnectKind = "roomGone"
	// DisconnectPeerWaiting: peer left before a game was chosen; the
	// survivor stays parked on the passphrase awaiting a new opponent.
	DisconnectPeerWaiting DisconnectKind = "peerWaiting"
	// DisconnectMatchEnded: peer left mid-match; room torn down, survivors
	// must pair again.
	DisconnectMatchEnded DisconnectKind = "matchEnded"
)

type DisconnectResult struct {
	Kind      DisconnectKind
	Room      *Room
	Survivors []string
	LeftID    string
}

// Registry pairs anonymous connections that present the same passphrase.
// It owns the room table; nothing else holds rooms. Modeled as an injected
// instance, never package globals, so the core tests without a transport.
type Registry struct {
	mu     sync.Mutex
	byPass map[string]*Room
	byConn map[string]*Room
	passOf map[string]string // roomID -> passphrase
}

func NewRegistry() *Registry {
	return &Registry{
		byPass: make(map[string]*Room),
		byConn: make(map[string]*Room),
		passOf: make(map[string]string),
	}
}

// RequestMatch implements passphrase pairing: first caller waits, second
// caller completes the pair, a third is rejected, and a connection already
// present is re-attached idempotently.
func (reg *Registry) RequestMatch(passphrase, displayName, connID string) MatchOutcome {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if room := reg.byConn[connID]; room != nil {
		status := MatchRejoined
		if len(room.Participants()) < 2 {
			status = MatchWaiting
		}
		return MatchOutcome{Status: status, Room: room, Passphrase: reg.passOf[room.ID]}
	}

	room := reg.byPass[passphrase]
	if room == nil {
		room = NewRoom(newRoomID(passphrase))
		if _, err := room.AddParticipant(connID, displayName); err != nil {
			return MatchOutcome{Status: MatchFull, Passphrase: passphrase}
		}
		reg.byPass[passphrase] = room
		reg.byConn[connID] = room
		reg.passOf[room.ID] = passphrase
		return MatchOutcome{Status: MatchWaiting, Room: room, Passphrase: passphrase}
	}

	if _, err := room.AddParticipant(connID, displayName); err != nil {
		return MatchOutcome{Status: MatchFull, Room: room, Passphrase: passphrase}
	}
	reg.byConn[connID] = room
	return MatchOutcome{Status: MatchPaired, Room: room, Passphrase: passphrase}
}

// Disconnect cleans up after a dropped connection and tells the caller who
// to notify. A peer lost before game selection resets the entry to waiting;
// a peer lost any later ends the match and frees the survivors to re-pair.
func (reg *Registry) Disconnect(connID string) DisconnectResult {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room := reg.byConn[connID]
	if room == nil {
		return DisconnectResult{Kind: DisconnectNone}
	}
	delete(reg.byConn, connID)

	state := room.State()
	room.RemoveParticipant(connID)
	survivors := room.ConnIDs()

	if len(survivors) == 0 {
		reg.dropLocked(room)
		return DisconnectResult{Kind: DisconnectRoomGone, Room: room, LeftID: connID}
	}

	if state == StateWaitingForSelection {
		room.ResetToWaiting()
		return DisconnectResult{
			Kind:      DisconnectPeerWaiting,
			Room:      room,
			Survivors: survivors,
			LeftID:    connID,
		}
	}

	for _, id := range survivors {
		delete(reg.byConn, id)
	}
	reg.dropLocked(room)
	return DisconnectResult{
		Kind:      DisconnectMatchEnded,
		Room:      room,
		Survivors: survivors,
		LeftID:    connID,
	}
}

func (reg *Registry) dropLocked(room *Room) {
	if pass, ok := reg.passOf[room.ID]; ok {
		delete(reg.byPass, pass)
		delete(reg.passOf, room.ID)
	}
}

// RoomByConn resolves the room a connection belongs to, nil when unknown.
func (reg *Registry) RoomByConn(connID string) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.byConn[connID]
}

// RoomByID looks a room up by its id.
func (reg *Registry) RoomByID(roomID string) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for _, room := range reg.byPass {
		if room.ID == roomID {
			return room
		}
	}
	return nil
}

// Stats reports room and lone-waiter counts for the ops endpoint.
func (reg *Registry) Stats() (rooms, waiting int) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for _, room := range reg.byPass {
		if len(room.Participants()) < 2 {
			waiting++
		} else {
			rooms++
		}
	}
	return rooms, waiting
}

// newRoomID derives an id from the passphrase and creation time so two
// different passphrases can never collide.
func newRoomID(passphrase string) string {
	return fmt.Sprintf("room_%s_%d", passphrase, time.Now().UnixMilli())
}

package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Room groups the participants paired on one passphrase around a pending or
// active game. All state behind the mutex; socket handlers take exactly one
// method call per inbound event.
type Room struct {
	mu sync.Mutex

	ID           string
	participants []*Participant
	state        RoomState
	gameType     GameType
	chat         []ChatMessage
	engine       Engine

	// pending game proposal awaiting the other participant's response
	proposedType GameType
	proposerConn string
}

func NewRoom(id string) *Room {
	return &Room{ID: id, state: StateWaitingForPlayers}
}

// AddParticipant registers a connection. The second join moves the room to
// game selection.
func (r *Room) AddParticipant(connID, name string) (*Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateWaitingForPlayers {
		return nil, ErrRoomFull
	}
	if len(r.participants) >= 2 {
		return nil, ErrRoomFull
	}
	p := &Participant{ConnID: connID, Name: name}
	r.participants = append(r.participants, p)
	if len(r.participants) == 2 {
		r.state = StateWaitingForSelection
	}
	return p, nil
}

// RemoveParticipant drops a connection and reports whether the room is now
// empty. The caller decides whether the room survives; a room with an
// active or pending game never does, two-party games cannot outlive a peer.
func (r *Room) RemoveParticipant(connID string) (empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.participants[:0]
	for _, p := range r.participants {
		if p.ConnID != connID {
			kept = append(kept, p)
		}
	}
	r.participants = kept
	return len(r.participants) == 0
}

// ResetToWaiting returns a room whose peer left before any game was chosen
// back to the pairing stage, keeping the survivor.
func (r *Room) ResetToWaiting() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = StateWaitingForPlayers
	r.gameType = ""
	r.engine = nil
	r.proposedType = ""
	r.proposerConn = ""
	for _, p := range r.participants {
		p.Ready = false
		p.WantsRematch = false
	}
}

func (r *Room) Has(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(connID) != nil
}

func (r *Room) find(connID string) *Participant {
	for _, p := range r.participants {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

func (r *Room) indexOf(connID string) int {
	for i, p := range r.participants {
		if p.ConnID == connID {
			return i
		}
	}
	return -1
}

// ProposeGame records a proposal and returns the connection ids of the
// participants who must consent. The proposal is forwarded, never
// auto-accepted.
func (r *Room) ProposeGame(connID string, gt GameType) (requester string, others []string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !gt.Valid() {
		return "", nil, ErrUnknownGameType
	}
	if r.state != StateWaitingForSelection {
		return "", nil, ErrInvalidState
	}
	p := r.find(connID)
	if p == nil {
		return "", nil, ErrNotInRoom
	}
	r.proposedType = gt
	r.proposerConn = connID
	for _, other := range r.participants {
		if other.ConnID != connID {
			others = append(others, other.ConnID)
		}
	}
	return p.Name, others, nil
}

// RespondToSelection resolves a pending proposal. Accepting instantiates
// the engine and moves to ready-gating; rejecting leaves the room in game
// selection and reports the proposer to notify.
func (r *Room) RespondToSelection(connID string, gt GameType, accepted bool) (proposer string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateWaitingForSelection {
		return "", ErrInvalidState
	}
	if r.proposedType == "" || r.proposedType != gt {
		return "", ErrNoProposal
	}
	if r.find(connID) == nil {
		return "", ErrNotInRoom
	}
	if connID == r.proposerConn {
		return "", ErrOwnProposal
	}

	proposer = r.proposerConn
	r.proposedType = ""
	r.proposerConn = ""
	if !accepted {
		return proposer, nil
	}

	names := make([]string, len(r.participants))
	for i, p := range r.participants {
		names[i] = p.Name
	}
	engine, err := NewEngine(gt, names)
	if err != nil {
		return "", err
	}
	r.engine = engine
	r.gameType = gt
	r.state = StateWaitingReady
	for _, p := range r.participants {
		p.Ready = false
	}
	return proposer, nil
}

// SetReady marks a participant ready; when the whole room is ready the
// engine (re)initializes and play starts.
func (r *Room) SetReady(connID string) (started bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateWaitingReady {
		return false, ErrInvalidState
	}
	p := r.find(connID)
	if p == nil {
		return false, ErrNotInRoom
	}
	p.Ready = true
	for _, other := range r.participants {
		if !other.Ready {
			return false, nil
		}
	}
	r.engine.Initialize()
	r.state = StatePlaying
	return true, nil
}

// ApplyMove forwards a move to the engine for the owning participant. A
// terminal result flips the room to Finished immediately; any display
// pacing is the client's business.
func (r *Room) ApplyMove(connID string, mv Move) (*MoveResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StatePlaying {
		return nil, ErrInvalidState
	}
	idx := r.indexOf(connID)
	if idx < 0 {
		return nil, ErrNotInRoom
	}
	res, err := r.engine.ApplyMove(idx, mv)
	if err != nil {
		return nil, err
	}
	if res.Terminal != nil {
		r.state = StateFinished
	}
	return res, nil
}

// AddChat appends and returns a chat message. Chat is open in every state
// the room exists in.
func (r *Room) AddChat(connID, text string) (ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.find(connID)
	if p == nil {
		return ChatMessage{}, ErrNotInRoom
	}
	msg := ChatMessage{
		ID:     uuid.NewString(),
		Author: p.Name,
		Text:   text,
		SentAt: time.Now().UTC(),
	}
	r.chat = append(r.chat, msg)
	return msg, nil
}

// PlayAgain rewinds a finished game to ready-gating with the same game
// type. The engine resets when everyone readies up again.
func (r *Room) PlayAgain(connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateFinished {
		return ErrInvalidState
	}
	if r.find(connID) == nil {
		return ErrNotInRoom
	}
	for _, p := range r.participants {
		p.Ready = false
		p.WantsRematch = false
	}
	r.state = StateWaitingReady
	return nil
}

// RequestGameSelection registers one participant's wish to pick a different
// game. Only when every participant has asked does the room discard its
// engine and return to game selection.
func (r *Room) RequestGameSelection(connID string) (all bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateFinished && r.state != StatePlaying && r.state != StateWaitingReady {
		return false, ErrInvalidState
	}
	p := r.find(connID)
	if p == nil {
		return false, ErrNotInRoom
	}
	p.WantsRematch = true
	for _, other := range r.participants {
		if !other.WantsRematch {
			return false, nil
		}
	}
	r.gameType = ""
	r.engine = nil
	r.state = StateWaitingForSelection
	for _, other := range r.participants {
		other.Ready = false
		other.WantsRematch = false
	}
	return true, nil
}

func (r *Room) State() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Room) GameType() GameType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gameType
}

// Participants returns a copy safe to serialize.
func (r *Room) Participants() []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.participantsLocked()
}

func (r *Room) participantsLocked() []Participant {
	out := make([]Participant, len(r.participants))
	for i, p := range r.participants {
		out[i] = *p
	}
	return out
}

// ConnIDs lists the current member connections for fan-out.
func (r *Room) ConnIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.participants))
	for i, p := range r.participants {
		out[i] = p.ConnID
	}
	return out
}

func (r *Room) ChatLog() []ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ChatMessage, len(r.chat))
	copy(out, r.chat)
	return out
}

// CurrentTurnName is the display name of the participant to act, or ""
// outside of play.
func (r *Room) CurrentTurnName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.engine == nil || r.state != StatePlaying {
		return ""
	}
	return r.participants[r.engine.CurrentTurn()].Name
}

// GamePublicState is the engine's room-visible projection, nil when no
// engine is active.
func (r *Room) GamePublicState() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.engine == nil {
		return nil
	}
	return r.engine.PublicState()
}

// GamePrivateState is the engine projection for one participant.
func (r *Room) GamePrivateState(connID string) map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.engine == nil {
		return nil
	}
	idx := r.indexOf(connID)
	if idx < 0 {
		return nil
	}
	return r.engine.PrivateState(idx)
}

// HasPrivateProjections reports whether participants see different views
// and therefore need individual gameStateUpdate emits.
func (r *Room) HasPrivateProjections() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gameType == GameCardDuel || r.gameType == GameHanabi
}

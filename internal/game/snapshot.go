package game

import "encoding/json"

// Snapshot is a room's full public projection: everything a (re)joining
// connection needs to rebuild its view. It deliberately excludes secrets
// (targets, hands, deck order), so it is safe to send to any participant.
type Snapshot struct {
	RoomID       string         `json:"roomId"`
	State        RoomState      `json:"state"`
	GameType     GameType       `json:"gameType,omitempty"`
	Participants []Participant  `json:"participants"`
	Chat         []ChatMessage  `json:"chat"`
	Game         map[string]any `json:"game,omitempty"`
}

func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := Snapshot{
		RoomID:       r.ID,
		State:        r.state,
		GameType:     r.gameType,
		Participants: r.participantsLocked(),
		Chat:         append([]ChatMessage(nil), r.chat...),
	}
	if r.engine != nil {
		snap.Game = r.engine.PublicState()
	}
	return snap
}

func (s Snapshot) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// RehydrateSnapshot parses a serialized snapshot back into an equivalent
// public projection, used on the reconnect path.
func RehydrateSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

package ws

import (
	"net/http"
	"sync"

	"github.com/ayumu-t/minigames-server/internal/config"
	"github.com/ayumu-t/minigames-server/internal/game"
	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"
)

// ConnCtx is the per-connection session binding.
type ConnCtx struct {
	RoomID string
	Name   string
}

// Server dispatches socket events into the registry and rooms and fans
// results back out to room members. Rooms guard their own state; the
// members map here only tracks which live connection belongs to which room.
type Server struct {
	registry *game.Registry
	mu       sync.Mutex
	members  map[string]map[string]socketio.Conn // roomID -> socketID -> Conn
	config   config.Config
}

func New(registry *game.Registry, cfg config.Config) *Server {
	return &Server{
		registry: registry,
		members:  make(map[string]map[string]socketio.Conn),
		config:   cfg,
	}
}

// Mount attaches the Socket.IO server with all handlers to the Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	io.OnEvent("/", "matchByPassword", func(s socketio.Conn, payload struct {
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
	}) map[string]any {
		return srv.handleMatch(s, payload.Password, payload.DisplayName)
	})

	io.OnEvent("/", "selectGame", func(s socketio.Conn, payload struct {
		GameType string `json:"gameType"`
		RoomID   string `json:"roomId"`
	}) map[string]any {
		room := srv.registry.RoomByConn(s.ID())
		if room == nil {
			return srv.err(s, "room_not_found", "Not in a room")
		}
		requester, others, err := room.ProposeGame(s.ID(), game.GameType(payload.GameType))
		if err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		log.Info().Str("room", room.ID).Str("gameType", payload.GameType).Msg("selectGame proposed")
		// forwarded to the other participant only, never auto-accepted
		srv.emitTo(room.ID, others, "gameSelectionRequest", map[string]any{
			"gameType":      payload.GameType,
			"roomId":        room.ID,
			"requesterName": requester,
		})
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "gameSelectionResponse", func(s socketio.Conn, payload struct {
		RoomID   string `json:"roomId"`
		GameType string `json:"gameType"`
		Accepted bool   `json:"accepted"`
	}) map[string]any {
		room := srv.registry.RoomByConn(s.ID())
		if room == nil {
			return srv.err(s, "room_not_found", "Not in a room")
		}
		proposer, err := room.RespondToSelection(s.ID(), game.GameType(payload.GameType), payload.Accepted)
		if err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		if !payload.Accepted {
			log.Info().Str("room", room.ID).Str("gameType", payload.GameType).Msg("selection rejected")
			srv.emitTo(room.ID, []string{proposer}, "gameSelectionRejected", map[string]any{
				"gameType": payload.GameType,
				"roomId":   room.ID,
			})
			return map[string]any{"ok": true}
		}
		log.Info().Str("room", room.ID).Str("gameType", payload.GameType).Msg("selection accepted")
		srv.broadcast(room.ID, "matchFound", map[string]any{
			"roomId":   room.ID,
			"players":  room.Participants(),
			"gameType": payload.GameType,
		})
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "playerReady", func(s socketio.Conn) map[string]any {
		room := srv.registry.RoomByConn(s.ID())
		if room == nil {
			return srv.err(s, "room_not_found", "Not in a room")
		}
		started, err := room.SetReady(s.ID())
		if err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		if !started {
			srv.broadcast(room.ID, "playerReadyUpdate", map[string]any{
				"players": room.Participants(),
			})
			return map[string]any{"ok": true}
		}

		log.Info().Str("room", room.ID).Str("gameType", string(room.GameType())).Msg("game started")
		start := map[string]any{
			"gameType":      room.GameType(),
			"currentPlayer": room.CurrentTurnName(),
		}
		for k, v := range room.GamePublicState() {
			start[k] = v
		}
		srv.broadcast(room.ID, "gameStart", start)
		srv.pushPrivateStates(room)
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "makeMove", func(s socketio.Conn, payload game.Move) map[string]any {
		room := srv.registry.RoomByConn(s.ID())
		if room == nil {
			return srv.err(s, "room_not_found", "Not in a room")
		}
		res, err := srv.applyMove(room, s.ID(), payload)
		if err != nil {
			// move errors go only to the acting connection
			s.Emit("moveError", map[string]any{"error": err.Error()})
			return map[string]any{"error": err.Error()}
		}

		result := map[string]any{}
		for k, v := range res.Payload {
			result[k] = v
		}
		if st := room.GamePublicState(); st != nil {
			if attempts, ok := st["attempts"]; ok {
				result["attempts"] = attempts
			}
		}
		if next := room.CurrentTurnName(); next != "" {
			result["nextPlayer"] = next
		}
		srv.broadcast(room.ID, "moveResult", result)
		srv.pushPrivateStates(room)

		if res.Terminal != nil {
			srv.finishGame(room, res.Terminal)
		}
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "chatMessage", func(s socketio.Conn, payload struct {
		Message string `json:"message"`
	}) map[string]any {
		room := srv.registry.RoomByConn(s.ID())
		if room == nil {
			return srv.err(s, "room_not_found", "Not in a room")
		}
		if payload.Message == "" {
			return srv.err(s, "bad_request", "Empty message")
		}
		msg, err := room.AddChat(s.ID(), payload.Message)
		if err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		srv.broadcast(room.ID, "newChatMessage", msg)
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "newGame", func(s socketio.Conn) map[string]any {
		room := srv.registry.RoomByConn(s.ID())
		if room == nil {
			return srv.err(s, "room_not_found", "Not in a room")
		}
		if err := room.PlayAgain(s.ID()); err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		log.Info().Str("room", room.ID).Msg("play again")
		srv.broadcast(room.ID, "newGameReady", map[string]any{
			"roomId":   room.ID,
			"gameType": room.GameType(),
			"players":  room.Participants(),
		})
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "backToGameSelection", func(s socketio.Conn) map[string]any {
		room := srv.registry.RoomByConn(s.ID())
		if room == nil {
			return srv.err(s, "room_not_found", "Not in a room")
		}
		all, err := room.RequestGameSelection(s.ID())
		if err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		if all {
			log.Info().Str("room", room.ID).Msg("back to game selection")
			srv.broadcast(room.ID, "readyForNewGameSelection", map[string]any{
				"roomId":  room.ID,
				"players": room.Participants(),
			})
		} else {
			others := exclude(room.ConnIDs(), s.ID())
			srv.emitTo(room.ID, others, "opponentReturnedToSelection", map[string]any{
				"roomId":  room.ID,
				"players": room.Participants(),
			})
		}
		return map[string]any{"ok": true}
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})

	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		res := srv.registry.Disconnect(s.ID())
		switch res.Kind {
		case game.DisconnectPeerWaiting:
			srv.emitTo(res.Room.ID, res.Survivors, "opponentLeftPasswordMatch", map[string]any{
				"roomId":     res.Room.ID,
				"opponentId": res.LeftID,
			})
		case game.DisconnectMatchEnded:
			srv.emitTo(res.Room.ID, res.Survivors, "opponentDisconnectedEndMatch", map[string]any{
				"roomId":     res.Room.ID,
				"opponentId": res.LeftID,
			})
			srv.dropRoom(res.Room.ID)
		case game.DisconnectRoomGone:
			srv.dropRoom(res.Room.ID)
		}
		if ctx, ok := s.Context().(*ConnCtx); ok && ctx.RoomID != "" {
			srv.removeMember(ctx.RoomID, s)
		}
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go io.Serve()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

// handleMatch runs passphrase pairing for one connection and emits the
// outcome. A rejoining connection gets its full view replayed: the room
// snapshot, the chat log, and its private projection for games with hidden
// information.
func (srv *Server) handleMatch(s socketio.Conn, password, displayName string) map[string]any {
	if password == "" {
		return srv.err(s, "password_required", "Password is required")
	}
	name := displayName
	if name == "" {
		name = "Player " + shortID(s.ID())
	}

	out := srv.registry.RequestMatch(password, name, s.ID())
	ctx := s.Context().(*ConnCtx)
	switch out.Status {
	case game.MatchWaiting:
		ctx.RoomID = out.Room.ID
		ctx.Name = name
		srv.addMember(out.Room.ID, s)
		log.Info().Str("sid", s.ID()).Str("room", out.Room.ID).Msg("matchByPassword: waiting")
		s.Emit("waitingForPasswordMatch", map[string]any{
			"password": out.Passphrase,
			"roomId":   out.Room.ID,
		})
	case game.MatchPaired:
		ctx.RoomID = out.Room.ID
		ctx.Name = name
		srv.addMember(out.Room.ID, s)
		log.Info().Str("sid", s.ID()).Str("room", out.Room.ID).Msg("matchByPassword: paired")
		srv.broadcast(out.Room.ID, "matchFound", map[string]any{
			"roomId":  out.Room.ID,
			"players": out.Room.Participants(),
		})
	case game.MatchRejoined:
		ctx.RoomID = out.Room.ID
		ctx.Name = name
		srv.addMember(out.Room.ID, s)
		log.Info().Str("sid", s.ID()).Str("room", out.Room.ID).Msg("matchByPassword: rejoined")
		s.Emit("matchFound", map[string]any{
			"roomId":   out.Room.ID,
			"players":  out.Room.Participants(),
			"gameType": out.Room.GameType(),
		})
		// replay goes to the rejoining connection only
		s.Emit("roomState", out.Room.Snapshot())
		s.Emit("chatHistory", map[string]any{"messages": out.Room.ChatLog()})
		if out.Room.HasPrivateProjections() {
			if st := out.Room.GamePrivateState(s.ID()); st != nil {
				s.Emit("gameStateUpdate", st)
			}
		}
	case game.MatchFull:
		log.Info().Str("sid", s.ID()).Str("password", password).Msg("matchByPassword: room full")
		s.Emit("passwordRoomFull", map[string]any{"password": password})
	}
	return map[string]any{"status": string(out.Status)}
}

// applyMove shields the dispatcher from engine panics: a panicking engine
// indicates a coordinator bug and must surface as a rejected move, never as
// a crashed process.
func (srv *Server) applyMove(room *game.Room, connID string, mv game.Move) (res *game.MoveResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("room", room.ID).Any("panic", r).Msg("engine panic recovered")
			res = nil
			err = game.ErrInvalidMove
		}
	}()
	return room.ApplyMove(connID, mv)
}

func (srv *Server) finishGame(room *game.Room, term *game.TerminalInfo) {
	end := map[string]any{}
	if term.Winner != "" {
		end["winner"] = term.Winner
	}
	end["draw"] = term.Draw
	if term.Kind != "" {
		end["type"] = term.Kind
		end["reason"] = term.Reason
		end["score"] = term.Score
	}
	for k, v := range term.Reveal {
		end[k] = v
	}
	srv.broadcast(room.ID, "gameEnd", end)
	log.Info().Str("room", room.ID).Str("winner", term.Winner).Bool("draw", term.Draw).Msg("game finished")

	if srv.config.ExportEnabled {
		if err := game.ExportMatch(room, term, srv.config.ExportFile); err != nil {
			log.Error().Err(err).Str("room", room.ID).Msg("failed to export match result")
		}
	}
}

// pushPrivateStates sends each member its own projection for games with
// hidden information.
func (srv *Server) pushPrivateStates(room *game.Room) {
	if !room.HasPrivateProjections() {
		return
	}
	for _, c := range srv.roomConns(room.ID) {
		if st := room.GamePrivateState(c.ID()); st != nil {
			c.Emit("gameStateUpdate", st)
		}
	}
}

func (srv *Server) addMember(roomID string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.members[roomID] == nil {
		srv.members[roomID] = make(map[string]socketio.Conn)
	}
	srv.members[roomID][c.ID()] = c
}

func (srv *Server) removeMember(roomID string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if m := srv.members[roomID]; m != nil {
		delete(m, c.ID())
		if len(m) == 0 {
			delete(srv.members, roomID)
		}
	}
}

func (srv *Server) dropRoom(roomID string) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	delete(srv.members, roomID)
}

func (srv *Server) roomConns(roomID string) []socketio.Conn {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	out := make([]socketio.Conn, 0, len(srv.members[roomID]))
	for _, c := range srv.members[roomID] {
		out = append(out, c)
	}
	return out
}

func (srv *Server) broadcast(roomID, event string, payload any) {
	for _, c := range srv.roomConns(roomID) {
		c.Emit(event, payload)
	}
}

// emitTo targets specific connections within a room by socket id.
func (srv *Server) emitTo(roomID string, connIDs []string, event string, payload any) {
	for _, c := range srv.roomConns(roomID) {
		for _, id := range connIDs {
			if c.ID() == id {
				c.Emit(event, payload)
			}
		}
	}
}

func (srv *Server) err(s socketio.Conn, code, message string) map[string]any {
	s.Emit("error", map[string]any{"code": code, "message": message})
	return map[string]any{"error": message}
}

func exclude(ids []string, drop string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

func shortID(id string) string {
	if len(id) > 4 {
		return id[:4]
	}
	return id
}

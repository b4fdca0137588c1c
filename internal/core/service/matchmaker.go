package service

import (
	"context"
	"sync"
	"time"

	"github.com/dyerandrew14/chatchilllaunch-sub000/internal/core/domain"
	"github.com/dyerandrew14/chatchilllaunch-sub000/internal/core/port"
	"github.com/rs/zerolog"
)

// Matchmaker owns all mutable signaling state: the connection
// registry, the room table, and the cooldown tracker. Every operation
// runs under one mutex, so a pairing decision always observes a
// consistent snapshot and no operation blocks beyond a non-blocking
// Send on an already-open connection.
type Matchmaker struct {
	mu        sync.Mutex
	registry  *registry
	rooms     *roomTable
	cooldowns *cooldownTracker

	lobby    string
	cooldown time.Duration
	log      zerolog.Logger

	newRoomID func() string
}

// New builds a Matchmaker with its own isolated state. lobby is the
// reserved room id used for anonymous pairing; cooldown is the
// re-matching suppression window applied when a paired room is left.
func New(lobby string, cooldown time.Duration, logger zerolog.Logger) *Matchmaker {
	return &Matchmaker{
		registry:  newRegistry(),
		rooms:     newRoomTable(),
		cooldowns: newCooldownTracker(time.Now),
		lobby:     lobby,
		cooldown:  cooldown,
		log:       logger,
		newRoomID: domain.NewPairedRoomID,
	}
}

// Register binds a connection to a user id and acknowledges it. The id
// is client-chosen and unauthenticated; registering an id that is
// already bound evicts the prior connection (last write wins), after
// running the normal leave path for whatever room it occupied.
func (mm *Matchmaker) Register(userID string, conn port.Conn) {
	mm.mu.Lock()
	if old, ok := mm.registry.lookup(userID); ok {
		if old.conn == conn {
			// Repeated register on the same connection; keep the
			// existing binding and just re-acknowledge.
			mm.mu.Unlock()
			conn.Send(domain.Registered(userID))
			return
		}
		mm.log.Warn().Str("user_id", userID).Msg("User id re-registered, evicting previous connection")
		mm.leaveLocked(userID, old.roomID)
		old.conn.Close()
		mm.registry.remove(userID)
	}
	mm.registry.register(userID, conn)
	mm.mu.Unlock()

	mm.log.Info().Str("user_id", userID).Msg("User registered")
	conn.Send(domain.Registered(userID))
}

// Join places the user in a room. Joining the lobby runs the pairing
// algorithm; any other id joins (and lazily creates) a named room.
// Joining while already in a different room leaves that room first,
// with the same semantics as an explicit leave. Re-joining the current
// room is a no-op.
func (mm *Matchmaker) Join(userID, roomID string) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	b, ok := mm.registry.lookup(userID)
	if !ok {
		return domain.ErrNotRegistered
	}
	if b.roomID == roomID {
		return nil
	}
	if b.roomID != "" {
		mm.leaveLocked(userID, b.roomID)
	}

	if roomID == mm.lobby {
		mm.joinLobbyLocked(userID, b)
	} else {
		mm.joinNamedLocked(userID, roomID, b)
	}
	return nil
}

func (mm *Matchmaker) joinNamedLocked(userID, roomID string, b *binding) {
	others := mm.rooms.members(roomID)
	mm.rooms.add(roomID, userID)
	b.roomID = roomID

	for _, id := range others {
		if peer, ok := mm.registry.lookup(id); ok {
			peer.conn.Send(domain.UserJoined(userID, roomID))
		}
	}
	b.conn.Send(domain.RoomJoined(roomID, others))
	mm.log.Info().Str("user_id", userID).Str("room_id", roomID).Msg("User joined room")
}

// joinLobbyLocked either pairs the user with a waiting candidate or
// leaves it waiting. The whole decision runs inside the matchmaker
// lock, so the candidate checks below can never observe a half-applied
// pairing from another goroutine.
func (mm *Matchmaker) joinLobbyLocked(userID string, b *binding) {
	if mm.cooldowns.active(userID) {
		mm.rooms.add(mm.lobby, userID)
		b.roomID = mm.lobby
		b.conn.Send(domain.RoomJoined(mm.lobby, nil))
		mm.log.Debug().Str("user_id", userID).Msg("User in cooldown, waiting in lobby")
		return
	}
	mm.cooldowns.clear(userID)

	candidate, peer := mm.pickCandidateLocked(userID)
	if candidate == "" || candidate == userID {
		// No valid partner right now; wait for the next join. The
		// self comparison repeats the filter in pickCandidateLocked
		// because a self-pairing would create a room that can never
		// be left.
		mm.rooms.add(mm.lobby, userID)
		b.roomID = mm.lobby
		b.conn.Send(domain.RoomJoined(mm.lobby, nil))
		mm.log.Debug().Str("user_id", userID).Msg("User waiting in lobby")
		return
	}

	roomID := mm.newRoomID()
	mm.rooms.remove(mm.lobby, userID)
	mm.rooms.remove(mm.lobby, candidate)
	mm.rooms.add(roomID, userID)
	mm.rooms.add(roomID, candidate)
	b.roomID = roomID
	peer.roomID = roomID

	initiator := domain.Initiator(userID, candidate)
	b.conn.Send(domain.Paired(roomID, candidate, initiator == userID))
	peer.conn.Send(domain.Paired(roomID, userID, initiator == candidate))

	mm.log.Info().
		Str("room_id", roomID).
		Str("user_id", userID).
		Str("partner_id", candidate).
		Msg("Paired users")
}

// pickCandidateLocked returns the first waiting lobby member eligible
// to pair with userID: not the user itself, not mid-cooldown, and
// still bound to the lobby in the registry. Members are scanned in
// sorted order, so the choice is deterministic.
func (mm *Matchmaker) pickCandidateLocked(userID string) (string, *binding) {
	for _, id := range mm.rooms.members(mm.lobby) {
		if id == userID {
			continue
		}
		if mm.cooldowns.active(id) {
			continue
		}
		peer, ok := mm.registry.lookup(id)
		if !ok || peer.roomID != mm.lobby {
			// Stale lobby entry; the member disconnected or was
			// re-assigned since it was added.
			continue
		}
		return id, peer
	}
	return "", nil
}

// Leave removes the user from roomID. Leaving a paired room starts the
// re-matching cooldown; remaining members are told the user left, and
// an emptied room is deleted.
func (mm *Matchmaker) Leave(userID, roomID string) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if _, ok := mm.registry.lookup(userID); !ok {
		return domain.ErrNotRegistered
	}
	mm.leaveLocked(userID, roomID)
	return nil
}

func (mm *Matchmaker) leaveLocked(userID, roomID string) {
	if roomID == "" || !mm.rooms.contains(roomID, userID) {
		return
	}
	deleted := mm.rooms.remove(roomID, userID)
	if b, ok := mm.registry.lookup(userID); ok && b.roomID == roomID {
		b.roomID = ""
	}
	if domain.IsPairedRoomID(roomID) {
		mm.cooldowns.start(userID, mm.cooldown)
	}
	if deleted {
		mm.log.Debug().Str("room_id", roomID).Msg("Room deleted")
		return
	}
	for _, id := range mm.rooms.members(roomID) {
		if peer, ok := mm.registry.lookup(id); ok {
			peer.conn.Send(domain.UserLeft(userID, roomID))
		}
	}
	mm.log.Info().Str("user_id", userID).Str("room_id", roomID).Msg("User left room")
}

// Relay forwards a validated offer/answer/ice-candidate to its target,
// annotated with the sender id. The payload itself is opaque. A failed
// check returns the corresponding routing error and the message is
// dropped; nothing is queued or retried.
func (mm *Matchmaker) Relay(senderID string, msg domain.ClientMessage) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if _, ok := mm.registry.lookup(senderID); !ok {
		return domain.ErrNotRegistered
	}
	target, ok := mm.registry.lookup(msg.TargetUserID)
	if !ok {
		return domain.ErrUnknownTarget
	}
	if !mm.rooms.exists(msg.RoomID) {
		return domain.ErrUnknownRoom
	}
	if !mm.rooms.contains(msg.RoomID, msg.TargetUserID) {
		return domain.ErrTargetNotInRoom
	}
	if !mm.rooms.contains(msg.RoomID, senderID) {
		return domain.ErrSenderNotInRoom
	}

	target.conn.Send(domain.Forward(senderID, msg))
	mm.log.Debug().
		Str("type", msg.Type).
		Str("sender_id", senderID).
		Str("target_id", msg.TargetUserID).
		Str("room_id", msg.RoomID).
		Msg("Relayed signal")
	return nil
}

// Disconnect handles an abrupt transport close: the current room is
// left exactly as on an explicit leave, then the registry entry is
// dropped. Cooldown bookkeeping survives, so reconnecting under the
// same id cannot bypass the re-matching window. conn identifies the
// closing connection; if the id has since been re-registered on a
// newer connection, the stale disconnect is ignored.
func (mm *Matchmaker) Disconnect(userID string, conn port.Conn) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	b, ok := mm.registry.lookup(userID)
	if !ok || b.conn != conn {
		return
	}
	mm.leaveLocked(userID, b.roomID)
	mm.registry.remove(userID)
	mm.log.Info().Str("user_id", userID).Msg("User disconnected")
}

// Stats reports the current number of registered clients and open
// rooms, for the health endpoint.
func (mm *Matchmaker) Stats() (clients, rooms int) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return mm.registry.size(), mm.rooms.size()
}

// SweepCooldowns purges expired cooldown entries every interval until
// ctx is cancelled. Expired entries are already inert, so this only
// bounds memory, not behavior.
func (mm *Matchmaker) SweepCooldowns(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			mm.mu.Lock()
			mm.cooldowns.sweep()
			mm.mu.Unlock()
		}
	}
}

// Shutdown disconnects every registered client and clears all state.
func (mm *Matchmaker) Shutdown() {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	mm.log.Info().Msg("Stopping matchmaker, disconnecting all clients")
	for userID, b := range mm.registry.bindings {
		if err := b.conn.Close(); err != nil {
			mm.log.Error().Err(err).Str("user_id", userID).Msg("Error closing client connection")
		}
	}
	mm.registry = newRegistry()
	mm.rooms = newRoomTable()
}

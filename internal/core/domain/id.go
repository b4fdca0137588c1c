package domain

import (
	"strings"

	"github.com/google/uuid"
)

const pairedRoomPrefix = "pair-"

// NewPairedRoomID generates the identifier for a room created by the
// pairing engine. The prefix keeps generated ids out of the namespace
// a client would pick for a named room.
func NewPairedRoomID() string {
	return pairedRoomPrefix + uuid.New().String()
}

// IsPairedRoomID reports whether roomID was generated by the pairing
// engine. Paired rooms trigger a re-matching cooldown when left.
func IsPairedRoomID(roomID string) bool {
	return strings.HasPrefix(roomID, pairedRoomPrefix)
}

// Initiator returns which of two paired user ids creates the WebRTC
// offer. The greater identifier initiates; both peers can compute the
// same answer locally, so no extra coordination message is needed.
func Initiator(a, b string) string {
	if a > b {
		return a
	}
	return b
}

package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message types exchanged over the websocket. Client-originated types
// are decoded into ClientMessage; everything the server emits is a
// ServerMessage.
const (
	TypeRegister     = "register"
	TypeRegistered   = "registered"
	TypeJoin         = "join"
	TypeRoomJoined   = "room-joined"
	TypeUserJoined   = "user-joined"
	TypeLeave        = "leave"
	TypeUserLeft     = "user-left"
	TypePaired       = "paired"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"
	TypeError        = "error"
)

var (
	ErrMissingType     = errors.New("message has no type")
	ErrUnknownType     = errors.New("unknown message type")
	ErrNotRegistered   = errors.New("not registered")
	ErrUnknownTarget   = errors.New("target user is not connected")
	ErrUnknownRoom     = errors.New("room does not exist")
	ErrTargetNotInRoom = errors.New("target user is not in that room")
	ErrSenderNotInRoom = errors.New("sender is not in that room")
)

// ClientMessage is the envelope for every client-to-server message.
// SDP and Candidate payloads are opaque; the server never inspects
// them.
type ClientMessage struct {
	Type         string          `json:"type"`
	UserID       string          `json:"userId,omitempty"`
	RoomID       string          `json:"roomId,omitempty"`
	TargetUserID string          `json:"targetUserId,omitempty"`
	SDP          json.RawMessage `json:"sdp,omitempty"`
	Candidate    json.RawMessage `json:"candidate,omitempty"`
}

// DecodeClientMessage parses and validates a raw frame from a client.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var m ClientMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return ClientMessage{}, fmt.Errorf("malformed message: %w", err)
	}
	if err := m.Validate(); err != nil {
		return ClientMessage{}, err
	}
	return m, nil
}

// Validate checks the per-type required fields of the wire contract.
func (m ClientMessage) Validate() error {
	switch m.Type {
	case "":
		return ErrMissingType
	case TypeRegister:
		if m.UserID == "" {
			return fmt.Errorf("%s requires userId", m.Type)
		}
	case TypeJoin, TypeLeave:
		if m.RoomID == "" {
			return fmt.Errorf("%s requires roomId", m.Type)
		}
	case TypeOffer, TypeAnswer:
		if len(m.SDP) == 0 {
			return fmt.Errorf("%s requires sdp", m.Type)
		}
		if m.TargetUserID == "" || m.RoomID == "" {
			return fmt.Errorf("%s requires targetUserId and roomId", m.Type)
		}
	case TypeICECandidate:
		if len(m.Candidate) == 0 {
			return fmt.Errorf("%s requires candidate", m.Type)
		}
		if m.TargetUserID == "" || m.RoomID == "" {
			return fmt.Errorf("%s requires targetUserId and roomId", m.Type)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	return nil
}

// IsSignal reports whether the message is a WebRTC handshake payload
// that must be relayed to a specific peer.
func (m ClientMessage) IsSignal() bool {
	switch m.Type {
	case TypeOffer, TypeAnswer, TypeICECandidate:
		return true
	}
	return false
}

// ServerMessage is the envelope for every server-to-client message.
type ServerMessage struct {
	Type      string          `json:"type"`
	UserID    string          `json:"userId,omitempty"`
	RoomID    string          `json:"roomId,omitempty"`
	Users     []string        `json:"users,omitempty"`
	PartnerID string          `json:"partnerId,omitempty"`
	Initiator bool            `json:"initiator,omitempty"`
	SenderID  string          `json:"senderId,omitempty"`
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	Message   string          `json:"message,omitempty"`
}

func Registered(userID string) ServerMessage {
	return ServerMessage{Type: TypeRegistered, UserID: userID}
}

func RoomJoined(roomID string, users []string) ServerMessage {
	return ServerMessage{Type: TypeRoomJoined, RoomID: roomID, Users: users}
}

func UserJoined(userID, roomID string) ServerMessage {
	return ServerMessage{Type: TypeUserJoined, UserID: userID, RoomID: roomID}
}

func UserLeft(userID, roomID string) ServerMessage {
	return ServerMessage{Type: TypeUserLeft, UserID: userID, RoomID: roomID}
}

func Paired(roomID, partnerID string, initiator bool) ServerMessage {
	return ServerMessage{Type: TypePaired, RoomID: roomID, PartnerID: partnerID, Initiator: initiator}
}

func ErrorMessage(text string) ServerMessage {
	return ServerMessage{Type: TypeError, Message: text}
}

// Forward annotates a relayed signal with its sender and keeps the
// payload byte-for-byte intact.
func Forward(senderID string, m ClientMessage) ServerMessage {
	return ServerMessage{
		Type:      m.Type,
		RoomID:    m.RoomID,
		SenderID:  senderID,
		SDP:       m.SDP,
		Candidate: m.Candidate,
	}
}

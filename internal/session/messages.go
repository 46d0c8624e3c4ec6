package session

import "github.com/hilthontt/liveshare/internal/domain"

const (
	FrameState = "state"
	FrameEnded = "ended"
	FrameError = "error"
)

// Reject reasons carried in error frames.
const (
	ReasonUnauthorized = "unauthorized"
	ReasonInactive     = "inactive"
	ReasonRoomFull     = "room_full"
)

// Close reasons carried in the WebSocket close frame.
const (
	closeReasonEnded    = "ended"
	closeReasonExpired  = "expired"
	closeReasonReplaced = "replaced"
	closeReasonInactive = "inactive"
	closeReasonRoomFull = "room full"
)

// StateFrame carries one full document snapshot to viewers: the initial
// snapshot on connect and every relayed host update.
type StateFrame struct {
	Type      string           `json:"type"`
	Content   string           `json:"content"`
	Selection domain.Selection `json:"selection"`
	Language  string           `json:"language,omitempty"`
	Version   int64            `json:"version"`
}

type EndedFrame struct {
	Type string `json:"type"`
}

type ErrorFrame struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// hostMessage is the inbound host frame. Selection is a pointer so a missing
// selection can be told apart from an explicit zero range.
type hostMessage struct {
	Type      string            `json:"type"`
	Content   string            `json:"content"`
	Selection *domain.Selection `json:"selection"`
	Language  string            `json:"language"`
	Version   int64             `json:"version"`
}

func NewStateFrame(room *domain.Room) StateFrame {
	return StateFrame{
		Type:      FrameState,
		Content:   room.Content,
		Selection: room.Selection,
		Language:  room.Language,
		Version:   room.Version,
	}
}

func NewEndedFrame() EndedFrame {
	return EndedFrame{Type: FrameEnded}
}

func NewErrorFrame(reason string) ErrorFrame {
	return ErrorFrame{Type: FrameError, Reason: reason}
}

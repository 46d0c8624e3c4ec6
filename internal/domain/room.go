package domain

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"math/big"
	"regexp"
	"strings"
	"time"
)

const (
	keyLetters = "ABCDEFGHJKLMNPQRSTUVWXYZ" // excludes I and O
	keyDigits  = "23456789"                 // excludes 0 and 1

	keyLetterCount = 3
	keyDigitCount  = 3

	hostTokenBytes = 32
)

var (
	keyPattern = regexp.MustCompile(`^[A-HJ-NP-Z]{3}-[2-9]{3}$`)

	letterCharsetLen = big.NewInt(int64(len(keyLetters)))
	digitCharsetLen  = big.NewInt(int64(len(keyDigits)))

	ErrInvalidKey    = errors.New("invalid key")
	ErrAlreadyActive = errors.New("already active")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInactive      = errors.New("room not active")
	ErrRoomFull      = errors.New("room is full")
)

// Selection is the host's cursor/selection range. Advisory metadata only;
// viewers may render it but nothing depends on it.
type Selection struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Room is the authoritative state of one share session. It is owned by
// exactly one session actor; nothing outside that actor mutates it.
type Room struct {
	Key           string
	Content       string
	Selection     Selection
	Language      string
	Version       int64
	HostToken     string
	HostConnected bool
	Active        bool
	CreatedByIP   string
	ExpiresAt     time.Time
}

// RoomStore durably saves the current snapshot of a room, last write wins
// per key. Load returns (nil, nil) when the key has never been persisted.
type RoomStore interface {
	Save(ctx context.Context, room *Room) error
	Load(ctx context.Context, key string) (*Room, error)
	ActiveKeys(ctx context.Context) ([]string, error)
}

// ValidKey reports whether key matches the exact LLL-DDD wire format.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

// NewRoomKey returns a human-typable room key, formatted LLL-DDD over an
// alphabet with the visually ambiguous I, O, 0 and 1 removed. Keys are not
// deduplicated here; an init collision surfaces as ErrAlreadyActive and the
// caller regenerates.
func NewRoomKey() (string, error) {
	var sb strings.Builder
	sb.Grow(keyLetterCount + 1 + keyDigitCount)

	for i := 0; i < keyLetterCount; i++ {
		n, err := rand.Int(rand.Reader, letterCharsetLen)
		if err != nil {
			return "", err
		}
		sb.WriteByte(keyLetters[n.Int64()])
	}
	sb.WriteByte('-')
	for i := 0; i < keyDigitCount; i++ {
		n, err := rand.Int(rand.Reader, digitCharsetLen)
		if err != nil {
			return "", err
		}
		sb.WriteByte(keyDigits[n.Int64()])
	}

	return sb.String(), nil
}

// NewHostToken returns an opaque URL-safe bearer credential with 256 bits of
// entropy. It carries no structure and is only ever equality-compared.
func NewHostToken() (string, error) {
	buf := make([]byte, hostTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

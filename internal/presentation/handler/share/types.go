package share

import "github.com/hilthontt/liveshare/internal/domain"

// startRequest carries the optional anti-abuse token; everything else about
// a new room is generated server-side.
type startRequest struct {
	TurnstileToken string `json:"turnstileToken,omitempty"`
}

type startResponse struct {
	Key        string `json:"key"`
	HostToken  string `json:"hostToken"`
	ViewerURL  string `json:"viewerUrl"`
	TTLSeconds int64  `json:"ttlSeconds"`
}

type stopRequest struct {
	Key       string `json:"key"`
	HostToken string `json:"hostToken"`
}

type stopResponse struct {
	OK bool `json:"ok"`
}

type snapshotResponse struct {
	Active    bool             `json:"active"`
	Content   string           `json:"content"`
	Selection domain.Selection `json:"selection"`
	Version   int64            `json:"version"`
	Language  string           `json:"language,omitempty"`
}

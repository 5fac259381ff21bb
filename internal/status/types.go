package status

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/flashpaperhq/flashpaper/internal/store"
)

// UpdateRequest is a partial status mutation. Nil fields are left untouched;
// a pointer to the empty string clears the field. Avatar is only decoded so
// the engine can reject it (avatars have their own endpoint).
type UpdateRequest struct {
	Avatar    json.RawMessage `json:"avatar,omitempty"`
	Name      *string         `json:"name,omitempty"`
	Status    *string         `json:"status,omitempty"`
	Emoji     *string         `json:"emoji,omitempty"`
	Media     *string         `json:"media,omitempty"`
	MediaType *int32          `json:"media_type,omitempty"`
	URI       *string         `json:"uri,omitempty"`
}

func (r UpdateRequest) empty() bool {
	return r.Name == nil && r.Status == nil && r.Emoji == nil &&
		r.Media == nil && r.MediaType == nil && r.URI == nil
}

// Payload is the wire form of a status record. Only fields that have been
// set appear; a field holding the empty string is set and serialized.
type Payload struct {
	Avatar    *AvatarPayload `json:"avatar,omitempty"`
	Name      *string        `json:"name,omitempty"`
	Status    *string        `json:"status,omitempty"`
	Emoji     *string        `json:"emoji,omitempty"`
	Media     *string        `json:"media,omitempty"`
	MediaType *int32         `json:"media_type,omitempty"`
	URI       *string        `json:"uri,omitempty"`
}

// AvatarPayload carries the avatar location with its cache-busting key.
type AvatarPayload struct {
	Original string `json:"original"`
}

// BuildPayload assembles the wire form from the stored record and avatar
// reference.
func BuildPayload(record store.StatusRecord, avatar store.AvatarRef) Payload {
	p := Payload{
		Name:      record.Name,
		Status:    record.Status,
		Emoji:     record.Emoji,
		Media:     record.Media,
		MediaType: record.MediaType,
		URI:       record.URI,
	}
	if avatar.Valid {
		p.Avatar = &AvatarPayload{
			Original: fmt.Sprintf("%s?%d", avatar.Location, avatar.CacheKey),
		}
	}
	return p
}

// Snapshot is the outcome of a conditional read.
type Snapshot struct {
	Freshness    Freshness
	Payload      Payload
	LastModified time.Time
}

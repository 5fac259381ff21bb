package store

import (
	"time"

	"github.com/google/uuid"
)

// User is an account row. LastUpdated covers the status record and avatar;
// FollowsUpdated covers the follow set and moves independently.
type User struct {
	ID             uuid.UUID
	Username       string
	PasswordHash   string
	LastUpdated    time.Time
	FollowsUpdated time.Time
	CreatedAt      time.Time
}

// StatusRecord holds the presence fields of a status record. A nil field is
// unset when reading and left untouched when passed to UpdateStatus.
type StatusRecord struct {
	Name      *string
	Status    *string
	Emoji     *string
	Media     *string
	MediaType *int32
	URI       *string
}

// AvatarRef points at the stored avatar. Location and CacheKey are set
// together on ingestion; Valid is false until the first upload.
type AvatarRef struct {
	Location string
	CacheKey int64
	Valid    bool
}

// Webhook is a registered notification target owned by one user.
type Webhook struct {
	ID         int64
	URL        string
	Method     string
	LastStatus *int32
	LastCalled *time.Time
	CreatedAt  time.Time
}

// Package session keeps uploaded datasets between requests. Each session is
// addressed by an opaque id, bound to a best-effort owner fingerprint, and
// expires after a fixed time-to-live.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vegasq/tablescope/internal/dataset"
)

// DefaultTTL is how long a stored dataset stays available.
const DefaultTTL = 8 * time.Hour

// ErrNotFound is returned for unknown, expired, and foreign sessions alike.
var ErrNotFound = errors.New("session not found")

// Record is one stored session.
type Record struct {
	// Dataset is immutable once stored.
	Dataset *dataset.Dataset

	// Owner is the fingerprint of the client that stored the dataset.
	Owner string

	// CreatedAt is when the dataset was stored. A later Put resets it.
	CreatedAt time.Time
}

// Store defines the interface for session persistence.
type Store interface {
	// Put stores ds under id, replacing any previous record.
	Put(ctx context.Context, id, owner string, ds *dataset.Dataset) error

	// Get returns the dataset stored under id for owner, or ErrNotFound.
	Get(ctx context.Context, id, owner string) (*dataset.Dataset, error)

	// Delete removes a session. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired sessions.
	Cleanup(ctx context.Context) error

	// Len returns the number of stored sessions, expired ones included.
	Len() int
}

// Fingerprint derives the owner fingerprint of a client from its remote
// address and user agent. It ties a session to a browser, it does not
// authenticate anyone.
func Fingerprint(remoteAddr, userAgent string) string {
	sum := sha256.Sum256([]byte(remoteAddr + "\x00" + userAgent))
	return hex.EncodeToString(sum[:])
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}

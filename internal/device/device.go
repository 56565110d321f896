package device

import (
	cryptorand "crypto/rand"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/calebmorton/vanguard/internal/storage"
)

const (
	identifierKey  = "device_id"
	fingerprintKey = "device_fingerprint"
)

// Resolver produces and persists the two device identity tokens: a durable
// per-installation Device Identifier and a session-scoped Device Fingerprint.
// Neither is a security boundary; they exist so the server's risk engine can
// recognize returning devices.
type Resolver struct {
	durable storage.Store
	session storage.Store
	logger  *slog.Logger
}

// NewResolver creates a resolver over the two storage tiers.
func NewResolver(durable, session storage.Store, logger *slog.Logger) *Resolver {
	return &Resolver{
		durable: durable,
		session: session,
		logger:  logger,
	}
}

// Identifier returns the durable device identifier, generating and persisting
// one on first use. Storage failures are treated as "no existing identifier"
// and never propagate.
func (r *Resolver) Identifier() string {
	return r.resolve(r.durable, identifierKey)
}

// Fingerprint returns the session-scoped device fingerprint, generating one on
// first use. Within a session every call returns the same value until
// ClearFingerprint.
func (r *Resolver) Fingerprint() string {
	return r.resolve(r.session, fingerprintKey)
}

// ClearFingerprint drops the session fingerprint so the next login attempt
// gets a fresh one. Called on logout.
func (r *Resolver) ClearFingerprint() {
	if err := r.session.Delete(fingerprintKey); err != nil {
		r.logger.Warn("failed to clear device fingerprint", slog.Any("error", err))
	}
}

func (r *Resolver) resolve(store storage.Store, key string) string {
	if existing, err := store.Get(key); err == nil && existing != "" {
		return existing
	}

	id := generateID()
	if err := store.Set(key, id); err != nil {
		// Quota or disabled storage: the identifier still serves this
		// session, it just won't be recognized next time.
		r.logger.Warn("failed to persist device token", slog.String("key", key), slog.Any("error", err))
	}
	return id
}

// generateID prefers a cryptographically strong UUID, falls back to a manually
// assembled v4-shaped string from crypto/rand, and as a last resort emits a
// low-quality pseudo-random string. The degraded mode is acceptable only
// because the identifier's role is heuristic device recognition.
func generateID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}

	var b [16]byte
	if _, err := cryptorand.Read(b[:]); err == nil {
		b[6] = (b[6] & 0x0f) | 0x40 // version 4
		b[8] = (b[8] & 0x3f) | 0x80 // variant 10
		return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
	}

	return degradedID()
}

func degradedID() string {
	rng := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	const charset = "abcdef0123456789"
	out := make([]byte, 32)
	for i := range out {
		out[i] = charset[rng.Intn(len(charset))]
	}
	return "deg-" + string(out)
}

package mfa

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/calebmorton/vanguard/internal/models"
	"github.com/calebmorton/vanguard/internal/transport"
)

// Challenge is the hand-off from a login that required step-up: proof the
// password was correct plus the email it belongs to. The token is single-use
// and expires server-side; the client never times it out locally.
type Challenge struct {
	MFAToken string
	Email    string
}

// Verifier finalizes a step-up challenge. It is distinct from the enrollment
// wizard: the account already has MFA enabled and only the second factor is
// outstanding.
type Verifier struct {
	client *transport.Client
	logger *slog.Logger
}

// NewVerifier creates a step-up verifier.
func NewVerifier(client *transport.Client, logger *slog.Logger) *Verifier {
	return &Verifier{client: client, logger: logger}
}

// Verify submits the 6-digit code with the challenge token. On success the
// server establishes the session and returns the authoritative user record,
// which the caller adopts via the orchestrator's UpdateUser. The login state
// transition is not re-run, since the password was already validated.
func (v *Verifier) Verify(ctx context.Context, ch Challenge, code string) (*models.User, error) {
	if ch.MFAToken == "" || ch.Email == "" {
		return nil, models.ErrMissingHandoff
	}
	if !codePattern.MatchString(code) {
		return nil, fmt.Errorf("%w: code must be 6 digits", models.ErrMFAInvalidCode)
	}

	req := models.MFAVerifyRequest{
		Email:    ch.Email,
		Code:     code,
		MFAToken: ch.MFAToken,
	}

	var resp models.MFAVerifyResponse
	if err := v.client.Post(ctx, "/auth/verify-mfa", req, &resp); err != nil {
		v.logger.Info("step-up verification rejected", slog.Any("error", err))
		return nil, fmt.Errorf("verify mfa: %w", err)
	}
	if resp.User == nil {
		return nil, fmt.Errorf("verify mfa: %w", models.ErrMalformedPayload)
	}

	v.logger.Info("step-up verification succeeded", slog.String("user_id", resp.User.ID))
	return resp.User, nil
}

// TokenExpiry reads the exp claim of a challenge or setup token without
// verifying the signature. Display-only: expiry is enforced server-side.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

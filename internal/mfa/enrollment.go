package mfa

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/pquerna/otp"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/calebmorton/vanguard/internal/models"
	"github.com/calebmorton/vanguard/internal/transport"
)

// Step is one of the three linear wizard states.
type Step int

const (
	StepQR Step = iota
	StepBackup
	StepVerify
)

func (s Step) String() string {
	switch s {
	case StepQR:
		return "qr"
	case StepBackup:
		return "backup"
	case StepVerify:
		return "verify"
	default:
		return "unknown"
	}
}

var codePattern = regexp.MustCompile(`^[0-9]{6}$`)

// Enrollment drives the three-step MFA setup wizard: scan the QR secret,
// acknowledge the recovery codes, confirm with a one-time code. Steps advance
// only on explicit confirmation; the only backward affordance is returning to
// the QR from the verify step.
type Enrollment struct {
	client  *transport.Client
	logger  *slog.Logger
	payload *models.RegisterResponse
	key     *otp.Key // parsed provisioning URI, nil when unparsable
	step    Step
	done    bool
}

// NewEnrollment starts the wizard from the registration hand-off. A missing
// or incomplete payload is a precondition violation (the caller should route
// back to registration); there is no recovery path for a forfeited payload
// other than RegenerateMFA.
func NewEnrollment(client *transport.Client, payload *models.RegisterResponse, logger *slog.Logger) (*Enrollment, error) {
	if payload == nil || payload.SetupToken == "" || payload.QRCodeURI == "" {
		return nil, models.ErrMissingHandoff
	}

	e := &Enrollment{
		client:  client,
		logger:  logger,
		payload: payload,
		step:    StepQR,
	}

	key, err := otp.NewKeyFromURL(payload.QRCodeURI)
	if err != nil {
		// Manual entry falls back to the raw URI; the QR still renders.
		logger.Warn("unparsable otpauth URI", slog.Any("error", err))
	} else {
		e.key = key
	}
	return e, nil
}

// Step returns the current wizard state.
func (e *Enrollment) Step() Step {
	return e.step
}

// Secret returns the base32 secret for manual authenticator entry, or empty
// when the provisioning URI did not parse.
func (e *Enrollment) Secret() string {
	if e.key == nil {
		return ""
	}
	return e.key.Secret()
}

// Issuer returns the issuer encoded in the provisioning URI.
func (e *Enrollment) Issuer() string {
	if e.key == nil {
		return ""
	}
	return e.key.Issuer()
}

// BackupCodes returns the one-time recovery codes shown in the backup step.
func (e *Enrollment) BackupCodes() []string {
	return e.payload.BackupCodes
}

// QRTerminal renders the provisioning QR as a terminal block string.
func (e *Enrollment) QRTerminal() (string, error) {
	qr, err := qrcode.New(e.payload.QRCodeURI, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to create QR code: %w", err)
	}
	return qr.ToSmallString(false), nil
}

// QRPNG writes the provisioning QR as a PNG file.
func (e *Enrollment) QRPNG(path string, size int) error {
	if err := qrcode.WriteFile(e.payload.QRCodeURI, qrcode.Highest, size, path); err != nil {
		return fmt.Errorf("failed to write QR code: %w", err)
	}
	return nil
}

// AcknowledgeQR advances qr → backup.
func (e *Enrollment) AcknowledgeQR() error {
	if e.step != StepQR {
		return fmt.Errorf("cannot acknowledge QR from step %s", e.step)
	}
	e.step = StepBackup
	return nil
}

// AcknowledgeBackupCodes advances backup → verify.
func (e *Enrollment) AcknowledgeBackupCodes() error {
	if e.step != StepBackup {
		return fmt.Errorf("cannot acknowledge backup codes from step %s", e.step)
	}
	e.step = StepVerify
	return nil
}

// BackToQR returns to the QR step, allowed only from verify.
func (e *Enrollment) BackToQR() error {
	if e.step != StepVerify {
		return fmt.Errorf("cannot return to QR from step %s", e.step)
	}
	e.step = StepQR
	return nil
}

// Confirm submits the 6-digit code with the setup token, finalizing the
// enrollment server-side. A failure is retryable: the wizard stays on verify
// and the payload is not discarded.
func (e *Enrollment) Confirm(ctx context.Context, code string) error {
	if e.step != StepVerify {
		return fmt.Errorf("cannot confirm from step %s", e.step)
	}
	if !codePattern.MatchString(code) {
		return fmt.Errorf("%w: code must be 6 digits", models.ErrMFAInvalidCode)
	}

	req := models.ConfirmMFASetupRequest{
		SetupToken: e.payload.SetupToken,
		Code:       code,
	}
	if err := e.client.Post(ctx, "/auth/confirm-mfa-setup", req, nil); err != nil {
		e.logger.Info("mfa setup confirmation rejected", slog.Any("error", err))
		return fmt.Errorf("confirm setup: %w", err)
	}

	e.done = true
	e.logger.Info("mfa enrollment confirmed")
	return nil
}

// Done reports whether the enrollment has been finalized.
func (e *Enrollment) Done() bool {
	return e.done
}

// ConfirmSetup finalizes enrollment from a regenerated setup token, outside
// the wizard. Used when the original enrollment payload was forfeited and
// only the token could be re-issued.
func ConfirmSetup(ctx context.Context, client *transport.Client, setupToken, code string) (*models.ConfirmMFASetupResponse, error) {
	if setupToken == "" {
		return nil, models.ErrMissingHandoff
	}
	if !codePattern.MatchString(code) {
		return nil, fmt.Errorf("%w: code must be 6 digits", models.ErrMFAInvalidCode)
	}

	req := models.ConfirmMFASetupRequest{
		SetupToken: setupToken,
		Code:       code,
	}
	var resp models.ConfirmMFASetupResponse
	if err := client.Post(ctx, "/auth/confirm-mfa-setup", req, &resp); err != nil {
		return nil, fmt.Errorf("confirm setup: %w", err)
	}
	return &resp, nil
}

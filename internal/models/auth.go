package models

import "time"

// User is the authoritative user record returned by the server.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	IsActive   bool      `json:"is_active"`
	IsVerified bool      `json:"is_verified"`
	MFAEnabled bool      `json:"mfa_enabled"`
	CreatedAt  time.Time `json:"created_at"`
}

// LoginRequest is the payload sent to POST /auth/login. The location and
// biometric fields are best-effort signals for the server's risk engine and
// may be absent.
type LoginRequest struct {
	Email             string  `json:"email"`
	Password          string  `json:"password"`
	IPAddress         string  `json:"ip_address"`
	UserAgent         string  `json:"user_agent"`
	DeviceFingerprint string  `json:"device_fingerprint"`
	Location          string  `json:"location,omitempty"`
	TypingSpeed       float64 `json:"typing_speed"`
	KeyInterval       float64 `json:"key_interval"`
	KeyHold           float64 `json:"key_hold"`

	LocationLatitude  *float64 `json:"location_latitude,omitempty"`
	LocationLongitude *float64 `json:"location_longitude,omitempty"`
	LocationCity      string   `json:"location_city,omitempty"`
	LocationRegion    string   `json:"location_region,omitempty"`
	LocationCountry   string   `json:"location_country,omitempty"`
}

// LoginResponse covers the three disjoint login outcomes: a plain message
// success, an MFA challenge, or a block.
type LoginResponse struct {
	Message     string   `json:"message"`
	MFARequired bool     `json:"mfa_required"`
	MFAToken    string   `json:"mfa_token,omitempty"`
	User        *User    `json:"user,omitempty"`
	RiskScore   *float64 `json:"risk_score,omitempty"`
	RiskLevel   string   `json:"risk_level,omitempty"`
	DeviceKnown *bool    `json:"device_known,omitempty"`
	Instructions string  `json:"instructions,omitempty"`
	Blocked     bool     `json:"blocked,omitempty"`
	BlockReason string   `json:"block_reason,omitempty"`
}

// RegisterRequest is the payload sent to POST /auth/register.
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// RegisterResponse carries the MFA enrollment material. QRCodeURI and
// SetupToken presence triggers the enrollment hand-off.
type RegisterResponse struct {
	Message     string   `json:"message"`
	User        *User    `json:"user"`
	QRCodeURI   string   `json:"qr_code_uri"`
	BackupCodes []string `json:"backup_codes"`
	SetupToken  string   `json:"setup_token"`
}

// MFAVerifyRequest finalizes a step-up challenge via POST /auth/verify-mfa.
type MFAVerifyRequest struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	MFAToken string `json:"mfa_token"`
}

// MFAVerifyResponse is the successful step-up outcome.
type MFAVerifyResponse struct {
	Message string `json:"message"`
	User    *User  `json:"user"`
}

// ConfirmMFASetupRequest finalizes enrollment via POST /auth/confirm-mfa-setup.
type ConfirmMFASetupRequest struct {
	SetupToken string `json:"setup_token"`
	Code       string `json:"code"`
}

// ConfirmMFASetupResponse acknowledges a finalized enrollment.
type ConfirmMFASetupResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
}

// RegenerateMFARequest re-issues a setup token when the enrollment payload was
// forfeited (navigated away before confirming).
type RegenerateMFARequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegenerateMFAResponse carries the fresh setup token.
type RegenerateMFAResponse struct {
	Message    string `json:"message"`
	SetupToken string `json:"setup_token"`
}

// ForgotPasswordRequest starts a password reset via POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// MessageResponse is the generic `{message}` acknowledgement shape.
type MessageResponse struct {
	Message string `json:"message"`
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/calebmorton/vanguard/internal/device"
	"github.com/calebmorton/vanguard/internal/geo"
	"github.com/calebmorton/vanguard/internal/models"
	"github.com/calebmorton/vanguard/internal/transport"
	pkglogger "github.com/calebmorton/vanguard/pkg/logger"
)

// loginSuccessMessage is the server's marker for the no-challenge branch.
const loginSuccessMessage = "Login successful"

// Snapshot is an immutable view of the authentication state. Consumers read
// state only through Snapshot, never through shared references.
type Snapshot struct {
	User            *models.User
	IsAuthenticated bool
	IsLoading       bool
	Err             string
}

// LoginResult is what a login attempt hands back to the caller: either an
// authenticated user, or the MFA challenge material for the step-up screen.
type LoginResult struct {
	MFARequired  bool
	MFAToken     string
	Email        string
	User         *models.User
	RiskScore    *float64
	RiskLevel    string
	DeviceKnown  *bool
	Instructions string
}

// Orchestrator owns the authentication lifecycle: login with contextual
// enrichment, registration, MFA hand-off, logout, and session refresh. It is
// the only writer of the auth state; everything else reads snapshots.
type Orchestrator struct {
	client    *transport.Client
	devices   *device.Resolver
	enrich    *geo.Client
	userAgent string
	logger    *slog.Logger

	mu          sync.Mutex
	initialized bool
	user        *models.User
	loading     bool
	errMsg      string
}

// NewOrchestrator wires the orchestrator over its collaborators. Call Init
// before the first login.
func NewOrchestrator(client *transport.Client, devices *device.Resolver, enrich *geo.Client, userAgent string, logger *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		client:    client,
		devices:   devices,
		enrich:    enrich,
		userAgent: userAgent,
		logger:    logger,
	}
	client.SetSessionExpiredHandler(func() {
		o.logger.Info("session expired, clearing auth state")
		o.setUnauthenticated("")
	})
	return o
}

// Init resolves the device identity tokens ahead of the first login. It never
// fails: resolution errors are swallowed inside the resolver, which falls back
// to freshly generated identifiers.
func (o *Orchestrator) Init(ctx context.Context) {
	_ = ctx

	id := o.devices.Identifier()
	fp := o.devices.Fingerprint()
	o.logger.Debug("device identity resolved",
		slog.String("device_id", id),
		slog.String("fingerprint", fp))

	o.mu.Lock()
	o.initialized = true
	o.mu.Unlock()
}

// Snapshot returns a copy of the current auth state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	var userCopy *models.User
	if o.user != nil {
		u := *o.user
		userCopy = &u
	}
	return Snapshot{
		User:            userCopy,
		IsAuthenticated: o.user != nil,
		IsLoading:       o.loading,
		Err:             o.errMsg,
	}
}

// Login performs one credential submission. The flow is strictly sequenced:
// fingerprint resolution, best-effort IP and geolocation enrichment, then
// exactly one login request. Enrichment failures never abort the login.
//
// A response carrying an MFA challenge leaves the state unauthenticated and
// returns the token for hand-off to the step-up flow. A success response
// transitions to authenticated with the returned user.
func (o *Orchestrator) Login(ctx context.Context, form LoginForm) (*LoginResult, error) {
	if err := validateForm(form); err != nil {
		return nil, err
	}

	o.setLoading(true)
	defer o.setLoading(false)

	fp := o.devices.Fingerprint()

	ip := o.enrich.ResolvePublicIP(ctx)
	loc := o.enrich.ResolveGeolocation(ctx, ip)

	req := models.LoginRequest{
		Email:             form.Email,
		Password:          form.Password,
		IPAddress:         ip,
		UserAgent:         o.userAgent,
		DeviceFingerprint: fp,
		TypingSpeed:       form.TypingSpeed,
		KeyInterval:       form.KeyInterval,
		KeyHold:           form.KeyHold,
	}
	if !loc.IsZero() {
		req.Location = geo.FormatLocation(loc)
		req.LocationCity = loc.City
		req.LocationRegion = loc.Region
		req.LocationCountry = loc.Country
		req.LocationLatitude = loc.Latitude
		req.LocationLongitude = loc.Longitude
	}

	var resp models.LoginResponse
	if err := o.client.Post(ctx, "/auth/login", req, &resp); err != nil {
		msg := humanMessage(err, "Login failed")
		o.setUnauthenticated(msg)
		return nil, fmt.Errorf("login: %w", err)
	}

	switch {
	case resp.Blocked:
		reason := resp.BlockReason
		if reason == "" {
			reason = models.ErrLoginBlocked.Error()
		}
		o.setUnauthenticated(reason)
		o.logger.Warn("login blocked by risk policy", slog.String("reason", reason))
		return nil, fmt.Errorf("login: %w: %s", models.ErrLoginBlocked, reason)

	case resp.MFARequired && resp.MFAToken != "":
		// Password verified, step-up pending. Not authenticated yet.
		o.setUnauthenticated("")
		o.logger.Info("mfa challenge issued",
			slog.String("risk_level", resp.RiskLevel),
			slog.String("mfa_token", pkglogger.ShortToken(resp.MFAToken)))
		return &LoginResult{
			MFARequired:  true,
			MFAToken:     resp.MFAToken,
			Email:        form.Email,
			RiskScore:    resp.RiskScore,
			RiskLevel:    resp.RiskLevel,
			DeviceKnown:  resp.DeviceKnown,
			Instructions: resp.Instructions,
		}, nil

	case resp.Message == loginSuccessMessage && resp.User != nil:
		o.setAuthenticated(resp.User)
		o.logger.Info("user logged in", slog.String("user_id", resp.User.ID))
		return &LoginResult{
			Email:        form.Email,
			User:         resp.User,
			RiskScore:    resp.RiskScore,
			RiskLevel:    resp.RiskLevel,
			Instructions: resp.Instructions,
		}, nil

	default:
		// Success message without a user record, or an unrecognized shape.
		o.setUnauthenticated("unexpected login response")
		return nil, fmt.Errorf("login: %w", models.ErrMalformedPayload)
	}
}

// Register forwards a registration and hands back the enrollment material.
// Registration never authenticates: the returned setup token is consumed by
// the enrollment flow, and the user logs in afterwards.
func (o *Orchestrator) Register(ctx context.Context, form RegisterForm) (*models.RegisterResponse, error) {
	if err := validateForm(form); err != nil {
		return nil, err
	}

	req := models.RegisterRequest{
		Email:           form.Email,
		Password:        form.Password,
		PasswordConfirm: form.PasswordConfirm,
	}

	var resp models.RegisterResponse
	if err := o.client.Post(ctx, "/auth/register", req, &resp); err != nil {
		msg := humanMessage(err, "Registration failed")
		o.recordError(msg)
		return nil, fmt.Errorf("register: %s: %w", msg, err)
	}

	o.logger.Info("user registered", pkglogger.EmailAttr("email", form.Email))
	return &resp, nil
}

// Logout notifies the server best-effort, clears the session fingerprint, and
// forces the state to unauthenticated. Idempotent; never returns an error.
func (o *Orchestrator) Logout(ctx context.Context) {
	if err := o.client.Post(ctx, "/auth/logout", nil, nil); err != nil {
		o.logger.Warn("logout notification failed", slog.Any("error", err))
	}

	o.devices.ClearFingerprint()
	o.setUnauthenticated("")
	o.logger.Info("logged out")
}

// UpdateUser adopts an authoritative user record from an out-of-band server
// confirmation (e.g. MFA verification) without a full re-login. A nil user
// clears the authenticated state so the state invariant holds.
func (o *Orchestrator) UpdateUser(user *models.User) {
	if user == nil {
		o.setUnauthenticated("")
		return
	}
	o.setAuthenticated(user)
}

// RefreshAuth attempts a session refresh; on failure it degrades to Logout
// rather than leaving an inconsistent state.
func (o *Orchestrator) RefreshAuth(ctx context.Context) error {
	if err := o.client.Refresh(ctx); err != nil {
		o.logger.Info("session refresh failed, logging out", slog.Any("error", err))
		o.Logout(ctx)
		return fmt.Errorf("refresh: %w", err)
	}
	return nil
}

// ForgotPassword starts a password reset for email.
func (o *Orchestrator) ForgotPassword(ctx context.Context, email string) error {
	if err := o.client.Post(ctx, "/auth/forgot-password", models.ForgotPasswordRequest{Email: email}, nil); err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	return nil
}

// RegenerateMFA re-issues an enrollment setup token for a user who forfeited
// the original payload before confirming.
func (o *Orchestrator) RegenerateMFA(ctx context.Context, email, password string) (*models.RegenerateMFAResponse, error) {
	req := models.RegenerateMFARequest{Email: email, Password: password}

	var resp models.RegenerateMFAResponse
	if err := o.client.Post(ctx, "/auth/regenerate-mfa", req, &resp); err != nil {
		return nil, fmt.Errorf("regenerate mfa: %w", err)
	}
	return &resp, nil
}

func (o *Orchestrator) setLoading(loading bool) {
	o.mu.Lock()
	o.loading = loading
	if loading {
		o.errMsg = ""
	}
	o.mu.Unlock()
}

func (o *Orchestrator) setAuthenticated(user *models.User) {
	o.mu.Lock()
	o.user = user
	o.errMsg = ""
	o.mu.Unlock()
}

func (o *Orchestrator) setUnauthenticated(errMsg string) {
	o.mu.Lock()
	o.user = nil
	o.errMsg = errMsg
	o.mu.Unlock()
}

func (o *Orchestrator) recordError(msg string) {
	o.mu.Lock()
	o.errMsg = msg
	o.mu.Unlock()
}

// humanMessage extracts the server-provided detail from a normalized
// transport error, falling back to a generic message.
func humanMessage(err error, fallback string) string {
	var apiErr *transport.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" && apiErr.Status != 0 {
		return apiErr.Message
	}
	return fallback
}

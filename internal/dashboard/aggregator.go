package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/calebmorton/vanguard/internal/models"
	"github.com/calebmorton/vanguard/internal/transport"
)

const (
	// UnknownDevice is shown when a record carries no fingerprint.
	UnknownDevice = "Unknown Device"

	// NewDevice is the status label for a device the server has not seen.
	NewDevice = "New Device"

	// Ellipsis marks a truncated fingerprint.
	Ellipsis = "…"
)

// Aggregator fetches the composite dashboard views and enriches them with
// derived display labels. It is read-only: the only mutation it offers is
// session revocation, and refreshing means fetching again.
type Aggregator struct {
	client *transport.Client
	logger *slog.Logger
}

// NewAggregator creates a dashboard aggregator.
func NewAggregator(client *transport.Client, logger *slog.Logger) *Aggregator {
	return &Aggregator{client: client, logger: logger}
}

// Full fetches GET /sessions/dashboard/full and enriches every session,
// login-history record, and the risk assessment with device labels. Missing
// sub-objects (e.g. no risk assessment yet) stay nil for the caller to render
// as "not available".
func (a *Aggregator) Full(ctx context.Context) (*models.DashboardComposite, error) {
	var composite models.DashboardComposite
	if err := a.client.Get(ctx, "/sessions/dashboard/full", &composite); err != nil {
		return nil, fmt.Errorf("dashboard fetch: %w", err)
	}

	enrichComposite(&composite)
	return &composite, nil
}

// Overview fetches GET /sessions/dashboard/overview.
func (a *Aggregator) Overview(ctx context.Context) (*models.DashboardOverview, error) {
	var overview models.DashboardOverview
	if err := a.client.Get(ctx, "/sessions/dashboard/overview", &overview); err != nil {
		return nil, fmt.Errorf("overview fetch: %w", err)
	}

	for i := range overview.RecentLogins {
		overview.RecentLogins[i].DeviceLabel = HistoryLabel(overview.RecentLogins[i].DeviceFingerprint)
	}
	return &overview, nil
}

// ActiveSessions fetches GET /sessions/active.
func (a *Aggregator) ActiveSessions(ctx context.Context) ([]models.SessionInfo, error) {
	var sessions []models.SessionInfo
	if err := a.client.Get(ctx, "/sessions/active", &sessions); err != nil {
		return nil, fmt.Errorf("active sessions fetch: %w", err)
	}

	for i := range sessions {
		sessions[i].DeviceLabel = ShortFingerprint(sessions[i].DeviceFingerprint)
	}
	return sessions, nil
}

// History fetches GET /sessions/history with the query's filters.
func (a *Aggregator) History(ctx context.Context, q models.HistoryQuery) ([]models.LoginEvent, error) {
	params := url.Values{}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.RiskLevel != "" {
		params.Set("risk_level", q.RiskLevel)
	}
	if q.Days > 0 {
		params.Set("days", strconv.Itoa(q.Days))
	}

	path := "/sessions/history"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var events []models.LoginEvent
	if err := a.client.Get(ctx, path, &events); err != nil {
		return nil, fmt.Errorf("history fetch: %w", err)
	}

	for i := range events {
		events[i].DeviceLabel = HistoryLabel(events[i].DeviceFingerprint)
	}
	return events, nil
}

// RevokeSession terminates one session by ID.
func (a *Aggregator) RevokeSession(ctx context.Context, sessionID string) error {
	if err := a.client.Delete(ctx, "/sessions/"+url.PathEscape(sessionID), nil); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	a.logger.Info("session revoked", slog.String("session_id", sessionID))
	return nil
}

// RevokeAll terminates every session except the current one.
func (a *Aggregator) RevokeAll(ctx context.Context) error {
	if err := a.client.Delete(ctx, "/sessions/revoke-all", nil); err != nil {
		return fmt.Errorf("revoke all sessions: %w", err)
	}
	a.logger.Info("all other sessions revoked")
	return nil
}

func enrichComposite(c *models.DashboardComposite) {
	for i := range c.Sessions {
		c.Sessions[i].DeviceLabel = ShortFingerprint(c.Sessions[i].DeviceFingerprint)
	}
	for i := range c.LoginHistory {
		c.LoginHistory[i].DeviceLabel = HistoryLabel(c.LoginHistory[i].DeviceFingerprint)
	}
	if ra := c.RiskAssessment; ra != nil {
		ra.DeviceLabel = ShortFingerprint(ra.DeviceFingerprint)
		if ra.DeviceKnown {
			ra.DeviceStatus = fmt.Sprintf("Known ✓ (%s)", ShortFingerprint(ra.DeviceFingerprint))
		} else {
			ra.DeviceStatus = NewDevice
		}
	}
}

// ShortFingerprint truncates a raw fingerprint to its first 16 characters
// plus an ellipsis, or returns UnknownDevice when absent. Used for session
// records and the risk assessment.
func ShortFingerprint(fp string) string {
	return truncate(fp, 16)
}

// HistoryLabel is the tighter 8-character form used in login-history rows.
func HistoryLabel(fp string) string {
	return truncate(fp, 8)
}

func truncate(fp string, n int) string {
	if fp == "" {
		return UnknownDevice
	}
	runes := []rune(fp)
	if len(runes) <= n {
		return fp
	}
	return string(runes[:n]) + Ellipsis
}

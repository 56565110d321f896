package dashboard_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/calebmorton/vanguard/internal/dashboard"
	"github.com/calebmorton/vanguard/internal/models"
	"github.com/calebmorton/vanguard/internal/transport"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullPayload = `{
	"user": {"email": "a@x.com", "mfa_enabled": true, "created_at": "2026-01-02T10:00:00Z", "last_login": null},
	"risk_assessment": {
		"risk_score": 0.42,
		"risk_level": "medium",
		"anomaly_score": 0.3,
		"device_known": true,
		"device_fingerprint": "0123456789abcdef0000",
		"location": "Oslo, NO",
		"ip_address": "203.0.113.7",
		"timestamp": "2026-01-02T10:00:00Z",
		"explanation": "Risk level: medium.",
		"mfa_required": true
	},
	"rag_insights": {
		"similar_cases": [{"explanation": "similar login", "outcome": "approved", "similarity_score": 0.85, "location": "Oslo", "timestamp": "2026-01-01T00:00:00Z"}],
		"total_found": 1,
		"retrieval_method": "vector_similarity",
		"embedding_model": "all-MiniLM-L6-v2"
	},
	"ml_analysis": {"model_used": "Hybrid", "anomaly_score": 0.3, "behavior_risk": "low", "features_analyzed": ["IP Address"]},
	"sessions": [
		{"id": "s-1", "device_fingerprint": "0123456789abcdef0000", "ip_address": "203.0.113.7", "created_at": "2026-01-02T10:00:00Z", "last_activity_at": "2026-01-02T11:00:00Z", "is_active": true},
		{"id": "s-2", "device_fingerprint": "", "ip_address": "203.0.113.8", "created_at": "2026-01-02T10:00:00Z", "last_activity_at": "2026-01-02T11:00:00Z", "is_active": true}
	],
	"login_history": [
		{"id": "e-1", "timestamp": "2026-01-02T10:00:00Z", "ip_address": "203.0.113.7", "location": "Oslo, NO", "risk_score": 0.42, "risk_level": "medium", "device_known": true, "user_action": "approved", "device_fingerprint": "0123456789abcdef0000"}
	]
}`

func newAggregator(t *testing.T, handler http.Handler) *dashboard.Aggregator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	client, err := transport.NewClient(srv.URL, 2*time.Second, "vanguard-test/1.0", logger)
	require.NoError(t, err)
	return dashboard.NewAggregator(client, logger)
}

func TestFull_EnrichesRecords(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/sessions/dashboard/full", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(fullPayload))
	})

	a := newAggregator(t, r)
	c, err := a.Full(context.Background())
	require.NoError(t, err)

	// Session records carry the 16-char short form.
	assert.Equal(t, "0123456789abcdef"+dashboard.Ellipsis, c.Sessions[0].DeviceLabel)
	assert.Equal(t, dashboard.UnknownDevice, c.Sessions[1].DeviceLabel)

	// Login-history rows use the tighter 8-char form.
	assert.Equal(t, "01234567"+dashboard.Ellipsis, c.LoginHistory[0].DeviceLabel)

	// Known device gets the checkmark status with the short fingerprint.
	require.NotNil(t, c.RiskAssessment)
	assert.Equal(t, "Known ✓ (0123456789abcdef"+dashboard.Ellipsis+")", c.RiskAssessment.DeviceStatus)
}

func TestFull_NewDeviceStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/sessions/dashboard/full", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{
			"user": {"email": "a@x.com", "mfa_enabled": false, "created_at": "2026-01-02T10:00:00Z", "last_login": null},
			"risk_assessment": {"risk_score": 0.9, "risk_level": "high", "anomaly_score": 0.8, "device_known": false, "device_fingerprint": "feedfacecafebeef99", "location": "Unknown", "ip_address": "203.0.113.9", "timestamp": "2026-01-02T10:00:00Z", "explanation": "New device.", "mfa_required": true},
			"sessions": [],
			"login_history": []
		}`))
	})

	a := newAggregator(t, r)
	c, err := a.Full(context.Background())
	require.NoError(t, err)

	assert.Equal(t, dashboard.NewDevice, c.RiskAssessment.DeviceStatus)
}

func TestFull_MissingSubObjectsAreNotErrors(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/sessions/dashboard/full", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"user": {"email": "a@x.com", "mfa_enabled": false, "created_at": "2026-01-02T10:00:00Z", "last_login": null}, "risk_assessment": null, "rag_insights": null, "ml_analysis": null, "sessions": [], "login_history": []}`))
	})

	a := newAggregator(t, r)
	c, err := a.Full(context.Background())
	require.NoError(t, err)

	assert.Nil(t, c.RiskAssessment)
	assert.Nil(t, c.RAGInsights)
	assert.Empty(t, c.Sessions)
}

func TestFull_FetchFailureIsRetryableError(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/sessions/dashboard/full", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"Failed to fetch dashboard data"}`))
	})

	a := newAggregator(t, r)
	_, err := a.Full(context.Background())
	require.Error(t, err)

	var apiErr *transport.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Failed to fetch dashboard data", apiErr.Message)
}

func TestHistory_PassesQueryFilters(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/sessions/history", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		assert.Equal(t, "10", q.Get("limit"))
		assert.Equal(t, "20", q.Get("offset"))
		assert.Equal(t, "high", q.Get("risk_level"))
		assert.Equal(t, "7", q.Get("days"))
		w.Write([]byte(`[{"id":"e-1","device_fingerprint":"0123456789abcdef0000","risk_score":0.9,"device_known":false,"user_action":"denied","timestamp":"2026-01-02T10:00:00Z","ip_address":"","location":"","risk_level":"high"}]`))
	})

	a := newAggregator(t, r)
	events, err := a.History(context.Background(), models.HistoryQuery{Limit: 10, Offset: 20, RiskLevel: "high", Days: 7})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "01234567"+dashboard.Ellipsis, events[0].DeviceLabel)
}

func TestActiveSessions(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/sessions/active", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`[{"id":"s-1","device_fingerprint":"shortfp","ip_address":"203.0.113.7","created_at":"2026-01-02T10:00:00Z","last_activity_at":"2026-01-02T11:00:00Z","is_active":true}]`))
	})

	a := newAggregator(t, r)
	sessions, err := a.ActiveSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	// Fingerprints at or under the limit are not truncated.
	assert.Equal(t, "shortfp", sessions[0].DeviceLabel)
}

func TestRevokeSession(t *testing.T) {
	var deleted string
	r := chi.NewRouter()
	r.Delete("/sessions/{id}", func(w http.ResponseWriter, req *http.Request) {
		deleted = chi.URLParam(req, "id")
		w.Write([]byte(`{"message":"Session revoked successfully"}`))
	})

	a := newAggregator(t, r)
	require.NoError(t, a.RevokeSession(context.Background(), "s-42"))
	assert.Equal(t, "s-42", deleted)
}

func TestRevokeAll(t *testing.T) {
	r := chi.NewRouter()
	r.Delete("/sessions/revoke-all", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"message":"2 sessions revoked successfully"}`))
	})

	a := newAggregator(t, r)
	assert.NoError(t, a.RevokeAll(context.Background()))
}

func TestShortFingerprint(t *testing.T) {
	assert.Equal(t, "0123456789abcdef"+dashboard.Ellipsis, dashboard.ShortFingerprint("0123456789abcdef0000"))
	assert.Equal(t, "exact16chars_abc", dashboard.ShortFingerprint("exact16chars_abc"))
	assert.Equal(t, dashboard.UnknownDevice, dashboard.ShortFingerprint(""))

	assert.Equal(t, "01234567"+dashboard.Ellipsis, dashboard.HistoryLabel("0123456789abcdef0000"))
	assert.Equal(t, dashboard.UnknownDevice, dashboard.HistoryLabel(""))
}

package models

// DashboardUser is the trimmed user block in the dashboard composite.
type DashboardUser struct {
	Email      string  `json:"email"`
	MFAEnabled bool    `json:"mfa_enabled"`
	CreatedAt  string  `json:"created_at"`
	LastLogin  *string `json:"last_login"`
}

// RiskAssessment is the latest server-side risk verdict for the account.
type RiskAssessment struct {
	RiskScore         float64  `json:"risk_score"`
	RiskLevel         string   `json:"risk_level"`
	AnomalyScore      float64  `json:"anomaly_score"`
	DeviceKnown       bool     `json:"device_known"`
	DeviceFingerprint string   `json:"device_fingerprint"`
	Location          string   `json:"location"`
	LocationCity      string   `json:"location_city,omitempty"`
	LocationRegion    string   `json:"location_region,omitempty"`
	LocationCountry   string   `json:"location_country,omitempty"`
	IPAddress         string   `json:"ip_address"`
	Timestamp         string   `json:"timestamp"`
	Explanation       string   `json:"explanation"`
	MFARequired       bool     `json:"mfa_required"`

	// Derived client-side before display, never sent by the server.
	DeviceLabel  string `json:"-"`
	DeviceStatus string `json:"-"`
}

// SimilarCase is a single RAG similarity-retrieval hit.
type SimilarCase struct {
	Explanation     string  `json:"explanation"`
	Outcome         string  `json:"outcome"`
	SimilarityScore float64 `json:"similarity_score"`
	Location        string  `json:"location"`
	Timestamp       string  `json:"timestamp"`
}

// RAGInsights summarizes the similarity retrieval behind the risk verdict.
type RAGInsights struct {
	SimilarCases    []SimilarCase `json:"similar_cases"`
	TotalFound      int           `json:"total_found"`
	RetrievalMethod string        `json:"retrieval_method"`
	EmbeddingModel  string        `json:"embedding_model"`
}

// MLAnalysis summarizes the anomaly model's contribution.
type MLAnalysis struct {
	ModelUsed        string   `json:"model_used"`
	AnomalyScore     float64  `json:"anomaly_score"`
	BehaviorRisk     string   `json:"behavior_risk"`
	FeaturesAnalyzed []string `json:"features_analyzed"`
}

// SessionInfo is one active session record.
type SessionInfo struct {
	ID                string `json:"id"`
	DeviceFingerprint string `json:"device_fingerprint"`
	IPAddress         string `json:"ip_address"`
	CreatedAt         string `json:"created_at"`
	LastActivityAt    string `json:"last_activity_at"`
	IsActive          bool   `json:"is_active"`

	DeviceLabel string `json:"-"`
}

// LoginEvent is one login-history record.
type LoginEvent struct {
	ID                string   `json:"id"`
	Timestamp         string   `json:"timestamp"`
	IPAddress         string   `json:"ip_address"`
	Location          string   `json:"location"`
	RiskScore         float64  `json:"risk_score"`
	RiskLevel         string   `json:"risk_level"`
	DeviceKnown       bool     `json:"device_known"`
	UserAction        string   `json:"user_action"`
	DeviceFingerprint string   `json:"device_fingerprint"`
	LocationCity      string   `json:"location_city,omitempty"`
	LocationRegion    string   `json:"location_region,omitempty"`
	LocationCountry   string   `json:"location_country,omitempty"`
	LocationLatitude  *float64 `json:"location_latitude,omitempty"`
	LocationLongitude *float64 `json:"location_longitude,omitempty"`

	DeviceLabel string `json:"-"`
}

// DashboardComposite is the full payload of GET /sessions/dashboard/full.
// Sub-objects other than User may be absent (e.g. no logins recorded yet).
type DashboardComposite struct {
	User           DashboardUser   `json:"user"`
	RiskAssessment *RiskAssessment `json:"risk_assessment"`
	RAGInsights    *RAGInsights    `json:"rag_insights"`
	MLAnalysis     *MLAnalysis     `json:"ml_analysis"`
	Sessions       []SessionInfo   `json:"sessions"`
	LoginHistory   []LoginEvent    `json:"login_history"`
}

// DashboardStats is the stats block of GET /sessions/dashboard/overview.
type DashboardStats struct {
	TotalLoginsToday    int     `json:"total_logins_today"`
	TotalLoginsWeek     int     `json:"total_logins_week"`
	TotalLoginsMonth    int     `json:"total_logins_month"`
	FailedLoginsToday   int     `json:"failed_logins_today"`
	ActiveSessions      int     `json:"active_sessions"`
	TrustedDevices      int     `json:"trusted_devices"`
	AverageRiskScore    float64 `json:"average_risk_score"`
	HighRiskLoginsToday int     `json:"high_risk_logins_today"`
	MFAEnabled          bool    `json:"mfa_enabled"`
	AccountStatus       string  `json:"account_status"`
}

// RiskDistribution buckets the past month's logins by risk level.
type RiskDistribution struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// DashboardOverview is the payload of GET /sessions/dashboard/overview.
type DashboardOverview struct {
	Stats            DashboardStats   `json:"stats"`
	RiskDistribution RiskDistribution `json:"risk_distribution"`
	RecentLogins     []LoginEvent     `json:"recent_logins"`
	CurrentRiskLevel string           `json:"current_risk_level"`
	SecurityScore    int              `json:"security_score"`
}

// HistoryQuery filters GET /sessions/history.
type HistoryQuery struct {
	Limit     int
	Offset    int
	RiskLevel string
	Days      int
}

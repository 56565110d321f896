package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// SentinelIP is returned when the public IP could not be resolved.
	SentinelIP = "0.0.0.0"

	// UnknownLocation is the display sentinel when nothing resolved.
	UnknownLocation = "Unknown"
)

// Location is the best-effort geolocation of an IP. Empty fields mean the
// lookup failed or was skipped; callers must tolerate a zero Location.
type Location struct {
	City      string
	Region    string
	Country   string
	Latitude  *float64
	Longitude *float64
}

// IsZero reports whether no location field resolved.
func (l Location) IsZero() bool {
	return l.City == "" && l.Region == "" && l.Country == "" && l.Latitude == nil && l.Longitude == nil
}

// Client resolves the caller's public IP and coarse geolocation through
// external lookup services. Every failure path degrades to absence of data:
// enrichment is a signal for the risk engine, never a requirement for login.
type Client struct {
	httpClient *http.Client
	ipEchoURL  string
	geoURL     string // expects one %s verb for the IP
	logger     *slog.Logger
}

// NewClient creates an enrichment client. geoURL must contain a single %s verb
// substituted with the IP under lookup.
func NewClient(ipEchoURL, geoURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		ipEchoURL:  ipEchoURL,
		geoURL:     geoURL,
		logger:     logger,
	}
}

// ResolvePublicIP performs a single call to the IP-echo service. On any
// failure it returns SentinelIP rather than an error.
func (c *Client) ResolvePublicIP(ctx context.Context) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ipEchoURL, nil)
	if err != nil {
		return SentinelIP
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("ip echo lookup failed", slog.Any("error", err))
		return SentinelIP
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("ip echo lookup non-2xx", slog.Int("status", resp.StatusCode))
		return SentinelIP
	}

	var payload struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return SentinelIP
	}
	if net.ParseIP(payload.IP) == nil {
		return SentinelIP
	}
	return payload.IP
}

// ResolveGeolocation looks up coarse geolocation for ip. The call is skipped
// entirely for the sentinel IP and for loopback, private, and link-local
// addresses; any lookup failure yields an empty Location.
func (c *Client) ResolveGeolocation(ctx context.Context, ip string) Location {
	if !IsLookupEligible(ip) {
		return Location{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(c.geoURL, ip), nil)
	if err != nil {
		return Location{}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("geolocation lookup failed", slog.String("ip", ip), slog.Any("error", err))
		return Location{}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("geolocation lookup non-2xx", slog.Int("status", resp.StatusCode))
		return Location{}
	}

	var payload struct {
		City    string `json:"city"`
		Region  string `json:"region"`
		Country string `json:"country"`
		Loc     string `json:"loc"` // "lat,lng"
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Location{}
	}

	loc := Location{
		City:    payload.City,
		Region:  payload.Region,
		Country: payload.Country,
	}
	if lat, lng, ok := parseLatLng(payload.Loc); ok {
		loc.Latitude = &lat
		loc.Longitude = &lng
	}
	return loc
}

// FormatLocation joins the present fields of city/region/country, in that
// order, or returns UnknownLocation when nothing resolved.
func FormatLocation(loc Location) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{loc.City, loc.Region, loc.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return UnknownLocation
	}
	return strings.Join(parts, ", ")
}

// IsLookupEligible reports whether ip is worth a geolocation call. The
// sentinel, unparsable addresses, loopback, RFC 1918 private ranges, and
// link-local addresses short-circuit before any network activity.
func IsLookupEligible(ip string) bool {
	if ip == "" || ip == SentinelIP {
		return false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	if parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsLinkLocalUnicast() || parsed.IsUnspecified() {
		return false
	}
	return true
}

func parseLatLng(loc string) (float64, float64, bool) {
	lat, lng, ok := strings.Cut(loc, ",")
	if !ok {
		return 0, 0, false
	}
	latF, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return 0, 0, false
	}
	lngF, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return 0, 0, false
	}
	return latF, lngF, true
}

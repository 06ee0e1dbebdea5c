// Package geo resolves client IP addresses into a human-readable location using
// an ip-api.com compatible endpoint, with a per-IP JSON file cache.
package geo

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL    = "http://ip-api.com/json/"
	DefaultCacheDir   = "cache/geolocation"
	DefaultCacheTTL   = 24 * time.Hour
	DefaultMaxRetries = 3
	DefaultRetryDelay = 2 * time.Second
	DefaultTimeout    = 5 * time.Second
)

type Config struct {
	BaseURL    string
	CacheDir   string
	CacheTTL   time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// Location is the stable internal shape of a geolocation lookup.
type Location struct {
	City        string   `json:"city,omitempty"`
	Region      string   `json:"region,omitempty"`
	CountryName string   `json:"country_name,omitempty"`
	CountryCode string   `json:"country_code,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

// String joins the non-empty city, region and country parts.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{l.City, l.Region, l.CountryName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

type cacheEntry struct {
	Timestamp int64     `json:"timestamp"`
	Data      *Location `json:"data"`
}

type apiResponse struct {
	Status      string   `json:"status"`
	Message     string   `json:"message"`
	City        string   `json:"city"`
	RegionName  string   `json:"regionName"`
	Country     string   `json:"country"`
	CountryCode string   `json:"countryCode"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
}

type Locator struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewLocator(cfg Config, logger *zap.Logger) *Locator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = DefaultCacheDir
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Locator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// FormattedLocation returns "city, region, country" for ip, or "" when the
// location cannot be resolved.
func (l *Locator) FormattedLocation(ctx context.Context, ip string) string {
	loc, ok := l.Lookup(ctx, ip)
	if !ok {
		return ""
	}
	return loc.String()
}

// Lookup resolves ip from the file cache or the remote API. Failures are logged
// and reported as ok=false; they never return an error to the caller.
func (l *Locator) Lookup(ctx context.Context, ip string) (*Location, bool) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		l.logger.Debug("geolocation skipped: no ip address")
		return nil, false
	}

	if loc, ok := l.fromCache(ip); ok {
		return loc, true
	}

	loc, err := l.fetch(ctx, ip)
	if err != nil {
		l.logger.Warn("geolocation lookup failed", zap.String("ip", ip), zap.Error(err))
		return nil, false
	}

	if err := l.saveToCache(ip, loc); err != nil {
		l.logger.Warn("failed to write geolocation cache", zap.String("ip", ip), zap.Error(err))
	}
	return loc, true
}

func (l *Locator) cacheFile(ip string) string {
	sum := md5.Sum([]byte(ip))
	return filepath.Join(l.cfg.CacheDir, hex.EncodeToString(sum[:])+".json")
}

func (l *Locator) fromCache(ip string) (*Location, bool) {
	path := l.cacheFile(ip)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Timestamp == 0 || entry.Data == nil {
		return nil, false
	}

	age := l.now().Sub(time.Unix(entry.Timestamp, 0))
	if age > l.cfg.CacheTTL {
		_ = os.Remove(path)
		return nil, false
	}
	return entry.Data, true
}

func (l *Locator) saveToCache(ip string, loc *Location) error {
	if err := os.MkdirAll(l.cfg.CacheDir, 0o755); err != nil {
		return err
	}
	raw, err := json.Marshal(cacheEntry{Timestamp: l.now().Unix(), Data: loc})
	if err != nil {
		return err
	}
	return os.WriteFile(l.cacheFile(ip), raw, 0o644)
}

// fetch calls the API, retrying only on 429 with a linearly growing delay.
func (l *Locator) fetch(ctx context.Context, ip string) (*Location, error) {
	url := l.cfg.BaseURL + ip

	for attempt := 1; ; attempt++ {
		status, body, err := l.get(ctx, url)
		if err != nil {
			return nil, err
		}

		if status == http.StatusTooManyRequests && attempt < l.cfg.MaxRetries {
			delay := l.cfg.RetryDelay * time.Duration(attempt)
			l.logger.Info("geolocation rate limited, retrying",
				zap.Duration("delay", delay),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", l.cfg.MaxRetries),
			)
			if err := l.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		if status != http.StatusOK || len(body) == 0 {
			return nil, statusError(status)
		}

		var resp apiResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to decode geolocation response: %w", err)
		}
		if resp.Status == "fail" {
			msg := resp.Message
			if msg == "" {
				msg = "unknown reason"
			}
			return nil, fmt.Errorf("geolocation api error: %s", msg)
		}

		return &Location{
			City:        resp.City,
			Region:      resp.RegionName,
			CountryName: resp.Country,
			CountryCode: resp.CountryCode,
			Latitude:    resp.Lat,
			Longitude:   resp.Lon,
		}, nil
	}
}

func (l *Locator) get(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func statusError(status int) error {
	switch status {
	case http.StatusTooManyRequests:
		return fmt.Errorf("geolocation rate limit reached")
	case http.StatusForbidden:
		return fmt.Errorf("geolocation api access denied")
	case http.StatusNotFound:
		return fmt.Errorf("ip address not found")
	default:
		return fmt.Errorf("geolocation api returned http %d", status)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

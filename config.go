package soupnight

import "time"

// SiteConfig holds all configuration for a soupnight deployment.
type SiteConfig struct {
	Name string // Site name used in notification subjects (default "Soup Night")
	URL  string // Canonical URL used for links in notifications (default "http://localhost:4000")

	Addr      string // Listen address (default ":4000")
	UploadDir string // Root directory for per-year photo uploads (default "uploads")
	DataDir   string // Directory holding the RSVP ledger file (default "data")
	PublicDir string // Built client assets served with HTML5 fallback; empty disables

	AllowedYears []string // Closed set of gallery years (default 2024, 2025, 2026)

	MaxUploadFiles  int   // Max photos per upload request (default 10)
	MaxUploadSize   int64 // Max bytes per photo (default 8 MiB)
	ThumbnailWidth  int   // Max thumbnail width in pixels (default 320)
	SubmitsPerMin   int   // Per-IP write requests per minute (default 12)

	RecaptchaSecret string // Bot-check secret; empty means uploads are open

	EmailAPIKey     string   // Email delivery API key; empty means notifications are logged
	EmailFrom       string   // From address for notification mail
	EmailRecipients []string // Who receives the RSVP roster mail

	AnalyticsEnabled      bool   // Enable visit analytics (default off)
	AnalyticsDatabasePath string // Analytics SQLite path (default "data/analytics.db")
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Soup Night"
	}
	if c.URL == "" {
		c.URL = "http://localhost:4000"
	}
	if c.Addr == "" {
		c.Addr = ":4000"
	}
	if c.UploadDir == "" {
		c.UploadDir = "uploads"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if len(c.AllowedYears) == 0 {
		c.AllowedYears = []string{"2024", "2025", "2026"}
	}
	if c.MaxUploadFiles == 0 {
		c.MaxUploadFiles = 10
	}
	if c.MaxUploadSize == 0 {
		c.MaxUploadSize = 8 << 20
	}
	if c.ThumbnailWidth == 0 {
		c.ThumbnailWidth = 320
	}
	if c.SubmitsPerMin == 0 {
		c.SubmitsPerMin = 12
	}
	if c.AnalyticsDatabasePath == "" {
		c.AnalyticsDatabasePath = "data/analytics.db"
	}
}

// ValidYear reports whether raw is one of the allowed gallery years.
// Membership is exact; callers must treat ok == false as a client
// error, never as a fallback to some default year.
func (c *SiteConfig) ValidYear(raw string) (string, bool) {
	for _, y := range c.AllowedYears {
		if raw == y {
			return y, true
		}
	}
	return "", false
}

// Option configures additional App behavior.
type Option func(*App)

// WithVerifier overrides the bot-check implementation selected from config.
func WithVerifier(v Verifier) Option {
	return func(a *App) {
		a.Verifier = v
	}
}

// WithNotifier overrides the notification implementation selected from config.
func WithNotifier(n Notifier) Option {
	return func(a *App) {
		a.Notifier = n
	}
}

// WithCustomRoutes registers additional routes on the Echo instance
// before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

const defaultSubmitWindow = time.Minute
